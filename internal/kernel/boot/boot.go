// Package boot wires every subsystem's Init together into the single
// sequence the kernel runs once, on the boot hart, before ever reaching
// the scheduler: clear BSS, bring up the Go runtime's allocator, build
// and activate the kernel's own address space, and hand off to the
// first task.
package boot

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/goruntime"
	"rv64kernel/internal/kernel/kfmt"
	"rv64kernel/internal/kernel/loader"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/memset"
	"rv64kernel/internal/kernel/mem/pmm"
	"rv64kernel/internal/kernel/task"
	"rv64kernel/internal/kernel/trap"
)

// initAppName is the app registry entry scheduled first; cmd/mkimage
// packs the init process under this name by convention, mirroring
// rCore-tutorial's hardcoded "initproc" ELF.
const initAppName = "initproc"

var (
	errNoInitApp         = &kernel.Error{Module: "boot", Message: "app registry has no " + initAppName}
	errSchedulerReturned = &kernel.Error{Module: "boot", Message: "scheduler returned"}
)

// Kmain is called once per machine, from cmd/kernel's main: it never
// returns. hartID and dtbPtr are the values SBI firmware leaves in
// a0/a1 at kernel entry; dtbPtr is accepted for parity with that calling
// convention but unused today, since memoryEnd is read from a fixed
// platform constant rather than parsed out of the device tree.
//
//go:noinline
func Kmain(hartID uint64, dtbPtr uintptr) {
	clearBSS()
	kfmt.SetOutputSink(sbiConsole{})
	kfmt.Printf("booting on hart %d\n", hartID)

	if err := goruntime.Init(); err != nil {
		kernel.Panic(err)
	}

	layout := memset.KernelLayout{
		TextStart:      addr.VirtAddr(textStart()),
		TextEnd:        addr.VirtAddr(textEnd()),
		RodataStart:    addr.VirtAddr(rodataStart()),
		RodataEnd:      addr.VirtAddr(rodataEnd()),
		DataStart:      addr.VirtAddr(dataStart()),
		DataEnd:        addr.VirtAddr(dataEnd()),
		BssStart:       addr.VirtAddr(bssStart()),
		BssEnd:         addr.VirtAddr(bssEnd()),
		KernelEnd:      addr.VirtAddr(kernelEnd()),
		MemoryEnd:      addr.VirtAddr(memoryEnd()),
		TrampolinePhys: addr.PhysAddr(trampolinePhys()),
	}

	pmm.Init(addr.PhysAddr(kernelEnd()).Ceil(), addr.PhysAddr(memoryEnd()).Floor())

	kernelSpace, err := memset.NewKernel(layout)
	if err != nil {
		kernel.Panic(err)
	}
	if err := kernelSpace.SelfCheck(layout); err != nil {
		kfmt.Printf("warning: %s: %s\n", err.Module, err.Message)
	}

	trap.SetKernelTrapEntry()

	initElf, ok := loader.GetAppData(initAppName)
	if !ok {
		kernel.Panic(errNoInitApp)
	}
	if err := task.Init(kernelSpace, addr.PhysAddr(trampolinePhys()), initElf); err != nil {
		kernel.Panic(err)
	}

	kernelSpace.Activate()
	task.Scheduler()

	kernel.Panic(errSchedulerReturned)
}

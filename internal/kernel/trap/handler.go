package trap

import (
	"rv64kernel/internal/kernel/cpu"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/timer"
)

const interruptBit = uint64(1) << 63

// Exception causes (scause with the interrupt bit clear).
const (
	causeStoreAccessFault = 7
	causeStorePageFault   = 15
	causeLoadAccessFault  = 5
	causeLoadPageFault    = 13
	causeIllegalInstr     = 2
	causeUserEnvCall      = 8
)

// Interrupt causes (scause with the interrupt bit set).
const causeSupervisorTimer = 5

func readScause() uint64 { return cpu.ReadScause() }
func readStval() uintptr { return cpu.ReadStval() }

// SetKernelTrapEntry re-points stvec at the local kernel-trap handler, so a
// trap taken while already in the kernel does not re-enter the user
// trampoline.
func SetKernelTrapEntry() {
	cpu.SetTrapVector(kernelTrapVector())
}

// SetUserTrapEntry re-points stvec at the trampoline page, the only entry
// a user-mode trap can safely land at.
func SetUserTrapEntry() {
	cpu.SetTrapVector(mem.Trampoline)
}

// Handler is the trap_handler entry point: reached from the trampoline
// after it has saved the user registers into the current TrapContext. It
// never returns to its caller; every path ends in a call to Return.
func Handler() {
	setKernelTrapEntryFn()

	scause := readScauseFn()
	stval := readStvalFn()
	isInterrupt := scause&interruptBit != 0
	cause := scause &^ interruptBit

	switch {
	case !isInterrupt && cause == causeUserEnvCall:
		handleSyscall()

	case !isInterrupt && (cause == causeStoreAccessFault || cause == causeStorePageFault ||
		cause == causeLoadAccessFault || cause == causeLoadPageFault):
		handlePageFault(uint64(stval))

	case !isInterrupt && cause == causeIllegalInstr:
		ActiveHooks.Exit(-3)

	case isInterrupt && cause == causeSupervisorTimer:
		setNextTriggerFn()
		ActiveHooks.Yield()

	default:
		ActiveHooks.Exit(-1)
	}

	returnFn()
}

func handleSyscall() {
	cx := ActiveHooks.CurrentTrapContext()
	cx.Sepc += 4

	num := cx.Regs[17]
	args := [3]uint64{cx.Regs[10], cx.Regs[11], cx.Regs[12]}
	result := ActiveHooks.Syscall(num, args)

	// exec (221) swaps the address space from under us; the TrapContext
	// pointer must be re-resolved before the result can be written back.
	if num == 221 {
		cx = ActiveHooks.CurrentTrapContext()
	}
	cx.Regs[10] = result
}

func handlePageFault(stval uint64) {
	heapBottom, programBrk := ActiveHooks.HeapBounds()
	ok := false
	if stval >= heapBottom && stval < programBrk {
		ok = ActiveHooks.TryLazyHeapAlloc(stval)
	} else if ActiveHooks.IsCopyOnWritePage(stval) {
		// Hook for a copy-on-write duplication path; not implemented.
		ok = false
	}

	if !ok {
		ActiveHooks.Exit(-2)
	}
}

// ForkRet is the entry point of a freshly forked task's kernel context.
// It runs release and then Return; the task package passes a no-op
// release because its scheduler drops every lock before switching.
func ForkRet(release func()) {
	release()
	returnFn()
}

// Return restores the user trap vector and jumps through the trampoline's
// restore path into user mode at the current task's saved sepc. It does
// not return to its caller.
func Return() {
	SetUserTrapEntry()
	jumpToRestore(mem.TrapContext, ActiveHooks.CurrentToken())
}

// returnFn lets tests replace the real, never-returning Return with a
// marker so Handler and ForkRet remain exercisable under `go test`.
var returnFn = Return

var setNextTriggerFn = timer.SetNextTrigger

var setKernelTrapEntryFn = SetKernelTrapEntry

var interruptsEnabledFn = cpu.InterruptsEnabled

// HandleKernelTrap is reached when a trap is taken while the hart was
// already running kernel code (stvec points at kernelTrapVector). Every
// cause is fatal except a supervisor timer interrupt, mirroring the
// user-mode handler's timer case; everything else panics rather than
// attempting to resume, since the kernel has no trap-context page to save
// into at this entry.
func HandleKernelTrap() {
	if interruptsEnabledFn() {
		panic("trap: kernel trap entered with interrupts enabled")
	}

	scause := readScauseFn()
	isInterrupt := scause&interruptBit != 0
	cause := scause &^ interruptBit

	switch {
	case isInterrupt && cause == causeSupervisorTimer:
		setNextTriggerFn()
		ActiveHooks.Yield()
		return

	case !isInterrupt && cause == causeUserEnvCall:
		panic("trap: a syscall from kernel mode")

	case !isInterrupt && (cause == causeStoreAccessFault || cause == causeStorePageFault ||
		cause == causeLoadAccessFault || cause == causeLoadPageFault):
		panic("trap: a page fault from kernel mode")

	case !isInterrupt && cause == causeIllegalInstr:
		panic("trap: an illegal instruction from kernel mode")

	default:
		panic("trap: unhandled trap from kernel mode")
	}
}

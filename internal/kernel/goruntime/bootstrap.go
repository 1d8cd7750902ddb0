// Package goruntime contains code for bootstrapping Go runtime features such
// as the memory allocator.
package goruntime

import (
	"unsafe"

	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/cpu"
	"rv64kernel/internal/kernel/mem"
)

// kernelHeap is the static arena the Go allocator bootstraps into. At
// the point Init runs neither the frame allocator nor any page table
// exists yet, so sysReserve/sysMap/sysAlloc all carve pages out of
// this fixed-size, already-resident array instead of touching
// physical memory through pmm or vmm.
var kernelHeap [mem.KernelHeapSize]byte

var heapNext uintptr

var errHeapExhausted = &kernel.Error{Module: "goruntime", Message: "static kernel heap exhausted"}

var (
	reserveFn       = reserve
	mallocInitFn    = mallocInit
	algInitFn       = algInit
	modulesInitFn   = modulesInit
	typeLinksInitFn = typeLinksInit
	itabsInitFn     = itabsInit

	// A seed for the pseudo-random number generator used by getRandomData
	prngSeed = 0xdeadc0de
)

//go:linkname algInit runtime.alginit
func algInit()

//go:linkname modulesInit runtime.modulesinit
func modulesInit()

//go:linkname typeLinksInit runtime.typelinksinit
func typeLinksInit()

//go:linkname itabsInit runtime.itabsinit
func itabsInit()

//go:linkname mallocInit runtime.mallocinit
func mallocInit()

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

// reserve carves size bytes, rounded up to a whole number of pages,
// off the front of kernelHeap.
func reserve(size uintptr) (unsafe.Pointer, *kernel.Error) {
	size = (size + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	if heapNext+size > uintptr(len(kernelHeap)) {
		return nil, errHeapExhausted
	}

	ptr := unsafe.Pointer(&kernelHeap[heapNext])
	heapNext += size
	return ptr, nil
}

// sysReserve reserves address space without allocating any memory or
// establishing any page mappings.
//
// This function replaces runtime.sysReserve and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	ptr, err := reserveFn(size)
	if err != nil {
		panic(err)
	}

	*reserved = true
	return ptr
}

// sysMap establishes a mapping for a region previously reserved via
// sysReserve. Because kernelHeap is a static array, the region is
// already backed and valid; this only has to keep the runtime's
// memory statistics honest.
//
// This function replaces runtime.sysMap and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	regionSize := (size + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	mSysStatInc(sysStat, regionSize)
	return virtAddr
}

// sysAlloc reserves and maps, in one step, enough of kernelHeap to
// satisfy the allocation request, returning the pointer to its start.
//
// This function replaces runtime.sysAlloc and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	ptr, err := reserveFn(size)
	if err != nil {
		return unsafe.Pointer(uintptr(0))
	}

	regionSize := (size + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	mSysStatInc(sysStat, regionSize)
	return ptr
}

// nanotime returns a monotonically increasing clock value, read
// straight off the `time` CSR.
//
// This function replaces runtime.nanotime and is invoked by the Go allocator
// when a span allocation is performed.
//
//go:redirect-from runtime.nanotime
//go:nosplit
func nanotime() uint64 {
	return cpu.ReadTime()
}

// getRandomData populates the given slice with random data. The implementation
// is the runtime package reads a random stream from /dev/random but since this
// is not available, we use a prng instead.
//
//go:redirect-from runtime.getRandomData
func getRandomData(r []byte) {
	for i := 0; i < len(r); i++ {
		prngSeed = (prngSeed * 58321) + 11113
		r[i] = byte((prngSeed >> 16) & 255)
	}
}

// Init enables support for various Go runtime features. After a call to init
// the following runtime features become available for use:
//  - heap memory allocation (new, make e.t.c)
//  - map primitives
//  - interfaces
func Init() *kernel.Error {
	mallocInitFn()
	algInitFn()       // setup hash implementation for map keys
	modulesInitFn()   // provides activeModules
	typeLinksInitFn() // uses maps, activeModules
	itabsInitFn()     // uses activeModules

	return nil
}

func init() {
	// Dummy calls so the compiler does not optimize away the functions in
	// this file.
	var (
		reserved bool
		stat     uint64
		zeroPtr  = unsafe.Pointer(uintptr(0))
	)

	sysReserve(zeroPtr, 0, &reserved)
	sysMap(zeroPtr, 0, reserved, &stat)
	sysAlloc(0, &stat)
	getRandomData(nil)
	stat = nanotime()
}

// Package pmm hands out and recycles physical page frames. A single
// stack allocator, guarded by a spinlock, owns the range
// [firstFreePPN, memoryEndPPN). FrameTracker couples an allocated frame
// to a destructor so a leak becomes a static property of whatever
// container holds the tracker instead of something that must be
// remembered at every call site.
package pmm

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/pmm/allocator"
)

// Allocator is the process-wide frame allocator. It is initialized once
// during boot via Init.
var Allocator allocator.StackFrameAllocator

// ZeroPageFn zero-fills the page backing ppn. Exported so tests (in this
// package and in vmm, which allocates frames through NewFrameTracker
// too) can substitute a fake with no real physical memory behind a
// PhysPageNum to write into.
var ZeroPageFn = func(ppn addr.PhysPageNum) {
	kernel.Memset(uintptr(addr.PagePtrFn(ppn.Addr())), 0, uintptr(mem.PageSize))
}

// Init seeds Allocator with the physical frames in [first, end).
func Init(first, end addr.PhysPageNum) {
	Allocator.Init(first, end)
}

// FrameTracker is an owning handle for one physical page frame. Creating
// one zero-fills the backing page; calling Drop returns the frame to the
// allocator exactly once. A FrameTracker must not be copied after
// construction — pass it by pointer so there is exactly one owner.
type FrameTracker struct {
	PPN addr.PhysPageNum

	dropped bool
}

// NewFrameTracker allocates a frame from Allocator and wraps it. Returns
// a non-nil error if no frame is available.
func NewFrameTracker() (*FrameTracker, *kernel.Error) {
	ppn, err := Allocator.Alloc()
	if err != nil {
		return nil, err
	}

	ft := &FrameTracker{PPN: ppn}
	ZeroPageFn(ppn)
	return ft, nil
}

// Drop returns the frame to the allocator. Calling Drop more than once
// on the same FrameTracker panics, mirroring the double-free check the
// allocator itself performs.
func (ft *FrameTracker) Drop() {
	if ft.dropped {
		panic(&kernel.Error{Module: "pmm", Message: "double drop of FrameTracker"})
	}
	ft.dropped = true
	Allocator.Dealloc(ft.PPN)
}

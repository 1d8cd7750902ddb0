// Package allocator implements the physical frame allocator used by pmm.
package allocator

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/sync"
)

var errOutOfFrames = &kernel.Error{Module: "pmm", Message: "out of physical frames"}

// StackFrameAllocator hands out frames from [current, end) in increasing
// order and pushes deallocated frames onto a recycle stack that alloc
// drains first. Allocation order is otherwise unspecified. Deallocation
// does not coalesce adjacent pages: frames are fixed-size, so there is
// nothing to merge.
//
// All operations take lock, making this safe to call from any context,
// including a trap handler, as long as the caller is not already holding
// lock on the same hart (sync.IntrSpinlock would be needed for that; a
// plain Spinlock is sufficient here because the allocator is never
// accessed from code that also masks interrupts around it).
type StackFrameAllocator struct {
	lock sync.Spinlock

	current addr.PhysPageNum
	end     addr.PhysPageNum
	recycled []addr.PhysPageNum
}

// Init resets the allocator to manage [current, end).
func (a *StackFrameAllocator) Init(current, end addr.PhysPageNum) {
	a.lock.Acquire()
	defer a.lock.Release()

	a.current = current
	a.end = end
	a.recycled = a.recycled[:0]
}

// Alloc reserves and returns one frame, preferring a previously freed one
// over extending into fresh territory.
func (a *StackFrameAllocator) Alloc() (addr.PhysPageNum, *kernel.Error) {
	a.lock.Acquire()
	defer a.lock.Release()

	if n := len(a.recycled); n > 0 {
		ppn := a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
		return ppn, nil
	}

	if a.current >= a.end {
		return 0, errOutOfFrames
	}

	ppn := a.current
	a.current++
	return ppn, nil
}

// Dealloc returns ppn to the allocator. It panics if ppn was never
// handed out by this allocator or has already been deallocated, both of
// which indicate a programming error rather than a recoverable
// condition.
func (a *StackFrameAllocator) Dealloc(ppn addr.PhysPageNum) {
	a.lock.Acquire()
	defer a.lock.Release()

	if ppn >= a.current {
		panic(&kernel.Error{Module: "pmm", Message: "dealloc of a frame never allocated"})
	}
	for _, recycledPPN := range a.recycled {
		if recycledPPN == ppn {
			panic(&kernel.Error{Module: "pmm", Message: "double free of a physical frame"})
		}
	}

	a.recycled = append(a.recycled, ppn)
}

package task

import (
	"rv64kernel/internal/kernel/sync"
)

// PidHandle is the RAII owner of a process id: once the task holding it
// drops its last reference, Release returns the id to the free list.
type PidHandle struct {
	id int64
}

func (h *PidHandle) ID() int64 { return h.id }

// Release returns id to the allocator. Safe to call at most once per
// handle; the PCB that owns a PidHandle calls it from its own teardown.
func (h *PidHandle) Release() {
	pidAllocator.dealloc(h.id)
}

type pidAllocatorState struct {
	lock     sync.IntrSpinlock
	current  int64
	recycled []int64
}

var pidAllocator pidAllocatorState

func (a *pidAllocatorState) alloc() *PidHandle {
	a.lock.Acquire()
	defer a.lock.Release()

	if n := len(a.recycled); n > 0 {
		id := a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
		return &PidHandle{id: id}
	}
	id := a.current
	a.current++
	return &PidHandle{id: id}
}

func (a *pidAllocatorState) dealloc(id int64) {
	a.lock.Acquire()
	defer a.lock.Release()

	if id >= a.current {
		panic("task: dealloc of a pid that was never allocated")
	}
	for _, r := range a.recycled {
		if r == id {
			panic("task: pid double-freed")
		}
	}
	a.recycled = append(a.recycled, id)
}

func allocPid() *PidHandle {
	return pidAllocator.alloc()
}

package task

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/memset"
	"rv64kernel/internal/kernel/mem/vmm"
)

// kernelSpace is the single kernel address space every KernelStack carves
// its framed area out of. Set once by Init, before any task is created.
var kernelSpace *memset.MemorySet

// KernelStackBounds returns the [bottom, top) range reserved for the pid'th
// task's kernel stack, leaving a one-page unmapped guard below every
// stack so a stack overflow faults instead of corrupting its neighbor.
func KernelStackBounds(pid int64) (bottom, top addr.VirtAddr) {
	stackTop := mem.Trampoline - uintptr(pid)*(uintptr(mem.KernelStackSize)+uintptr(mem.PageSize))
	stackBottom := stackTop - uintptr(mem.KernelStackSize)
	return addr.VirtAddr(stackBottom), addr.VirtAddr(stackTop)
}

// KernelStack owns the framed mapping backing one task's kernel stack.
type KernelStack struct {
	pid int64
}

// NewKernelStack maps a fresh kernel stack for pid into kernelSpace.
func NewKernelStack(pid int64) (*KernelStack, *kernel.Error) {
	bottom, top := KernelStackBounds(pid)
	if err := kernelSpace.InsertFramedArea(bottom, top, vmm.FlagR|vmm.FlagW); err != nil {
		return nil, err
	}
	return &KernelStack{pid: pid}, nil
}

// Top returns the stack's initial sp value.
func (s *KernelStack) Top() uint64 {
	_, top := KernelStackBounds(s.pid)
	return uint64(top)
}

// Release unmaps the kernel stack's framed area, returning its frames to
// the allocator.
func (s *KernelStack) Release() {
	bottom, top := KernelStackBounds(s.pid)
	kernelSpace.RemoveFramedArea(bottom, top)
}

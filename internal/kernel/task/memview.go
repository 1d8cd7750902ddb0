package task

import (
	"unsafe"

	"rv64kernel/internal/kernel/mem/addr"
)

// trapCxPointer resolves the physical page holding a task's TrapContext to
// a pointer usable from kernel code, funneled through addr.PagePtrFn so
// tests can back it with a fake arena rather than real physical memory.
func trapCxPointer(ppn addr.PhysPageNum) unsafe.Pointer {
	return addr.PagePtrFn(ppn.Addr())
}

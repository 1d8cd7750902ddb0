package memset

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem/addr"
)

var errSelfCheckFailed = &kernel.Error{Module: "memset", Message: "kernel address space self-check failed"}

// SelfCheck re-derives the expected permissions for the first page of the
// kernel's text, rodata and data sections and compares them
// against what the page table actually reports. It exists to catch a
// miscomputed section boundary or permission bit at boot, before the
// first user process is scheduled, rather than as a page fault deep
// into the trap handler.
func (ms *MemorySet) SelfCheck(layout KernelLayout) *kernel.Error {
	checks := []struct {
		va           addr.VirtAddr
		wantW, wantX bool
	}{
		{layout.TextStart, false, true},
		{layout.RodataStart, false, false},
		{layout.DataStart, true, false},
	}

	for _, c := range checks {
		entry, ok := ms.Translate(c.va.Floor())
		if !ok {
			return errSelfCheckFailed
		}
		if entry.IsWritable() != c.wantW || entry.IsExecutable() != c.wantX {
			return errSelfCheckFailed
		}
	}

	return nil
}

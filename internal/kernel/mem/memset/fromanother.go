package memset

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
)

// FromAnother deep-copies another address space: every area is
// recreated with fresh frames (for Framed areas) or by identity (for
// Identical ones) and the backing bytes are copied page by page. This
// is the primitive a copy-on-write fork would replace with a
// refcounted-frame scheme; see the PTE's C flag.
func FromAnother(other *MemorySet) (*MemorySet, *kernel.Error) {
	ms, err := NewBare()
	if err != nil {
		return nil, err
	}
	if other.hasTrampoline {
		ms.mapTrampoline(other.trampolinePhys)
	}

	for _, area := range other.areas {
		cloned := area.clone()
		if err := ms.Push(cloned, nil); err != nil {
			return nil, err
		}

		if area.mapType != Framed {
			continue
		}
		for vpn := area.startVPN; vpn < area.endVPN; vpn++ {
			srcEntry, ok := other.pageTable.Translate(vpn)
			if !ok {
				continue
			}
			dstEntry, ok := ms.pageTable.Translate(vpn)
			if !ok {
				panic("memset: freshly cloned area missing its own translation")
			}
			src := addr.PagePtrFn(srcEntry.PPN().Addr())
			dst := addr.PagePtrFn(dstEntry.PPN().Addr())
			kernel.Memcopy(uintptr(src), uintptr(dst), uintptr(mem.PageSize))
		}
	}

	return ms, nil
}

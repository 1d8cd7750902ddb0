package memset

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/vmm"
)

// FromELF builds a fresh user address space from an ELF64 image: one
// Framed area per PT_LOAD segment (permissions derived from the segment
// flags, plus U), a user stack below TRAP_CONTEXT, an initially-empty
// heap area right above the highest loaded VPN, and the trap-context
// page. It returns the new set, the user stack's top address, the
// heap's bottom address and the entry point.
func FromELF(data []byte, trampolinePhys addr.PhysAddr) (ms *MemorySet, userStackTop, heapBottom addr.VirtAddr, entry uint64, kerr *kernel.Error) {
	parsed, kerr := parseELF64(data)
	if kerr != nil {
		return nil, 0, 0, 0, kerr
	}

	ms, kerr = NewBare()
	if kerr != nil {
		return nil, 0, 0, 0, kerr
	}
	ms.mapTrampoline(trampolinePhys)

	var maxEndVPN addr.VirtPageNum
	for _, ph := range parsed.loads {
		startVA := addr.VirtAddr(ph.virtAddr)
		endVA := addr.VirtAddr(ph.virtAddr + ph.memSize)

		flags := vmm.FlagU
		if ph.readable {
			flags |= vmm.FlagR
		}
		if ph.writable {
			flags |= vmm.FlagW
		}
		if ph.executable {
			flags |= vmm.FlagX
		}

		area := NewMapArea(startVA, endVA, Framed, flags)
		if area.endVPN > maxEndVPN {
			maxEndVPN = area.endVPN
		}

		var segment []byte
		if ph.fileSize > 0 {
			segment = data[ph.offset : ph.offset+ph.fileSize]
		}
		if err := ms.Push(area, segment); err != nil {
			return nil, 0, 0, 0, err
		}
	}

	heapBottom = maxEndVPN.Addr()
	userStackTop = addr.VirtAddr(mem.TrapContext)
	userStackBottom := userStackTop - addr.VirtAddr(mem.UserStackSize)

	if err := ms.Push(NewMapArea(userStackBottom, userStackTop, Framed, vmm.FlagR|vmm.FlagW|vmm.FlagU), nil); err != nil {
		return nil, 0, 0, 0, err
	}

	// The heap starts empty; sbrk grows it in place by widening this
	// area, so it is pushed now with a zero-length range to reserve its
	// start VPN as a map key.
	if err := ms.Push(NewMapArea(heapBottom, heapBottom, Framed, vmm.FlagR|vmm.FlagW|vmm.FlagU), nil); err != nil {
		return nil, 0, 0, 0, err
	}

	trapCtxArea := NewMapArea(addr.VirtAddr(mem.TrapContext), addr.VirtAddr(mem.Trampoline), Framed, vmm.FlagR|vmm.FlagW)
	if err := ms.Push(trapCtxArea, nil); err != nil {
		return nil, 0, 0, 0, err
	}

	return ms, userStackTop, heapBottom, parsed.entry, nil
}

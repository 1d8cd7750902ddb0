// Package vmm implements the three-level SV39 page-table walk: creating
// and tearing down mappings, and translating virtual addresses to
// physical ones. It owns no policy about what should be mapped where;
// that lives in the memset package, one layer up.
package vmm

import "rv64kernel/internal/kernel/mem/addr"

// PTEFlags packs the permission and status bits of a page table entry.
type PTEFlags uint16

const (
	// FlagV marks the entry as valid; its PPN field refers to a real page.
	FlagV PTEFlags = 1 << iota
	// FlagR permits reads through this mapping.
	FlagR
	// FlagW permits writes through this mapping.
	FlagW
	// FlagX permits instruction fetch through this mapping.
	FlagX
	// FlagU permits user-mode access to this mapping.
	FlagU
	// FlagG is the "global" hint; unused by this kernel beyond carrying it.
	FlagG
	// FlagA is set by hardware on first access to the page.
	FlagA
	// FlagD is set by hardware on first write to the page.
	FlagD
	// FlagC marks the page copy-on-write. Recognized by the fault handler
	// but, per the current design, not wired to a duplication routine:
	// the handler terminates the faulting task instead of copying.
	FlagC
)

const (
	ppnShift    = 10
	flagsMask   = (1 << ppnShift) - 1
	ppnBitWidth = 44
)

// PageTableEntry is the raw 64-bit value stored at a page table slot: a
// 44-bit physical page number and a 10-bit flag field.
type PageTableEntry uint64

// NewPTE packs ppn and flags into an entry.
func NewPTE(ppn addr.PhysPageNum, flags PTEFlags) PageTableEntry {
	return PageTableEntry(uint64(ppn)<<ppnShift | uint64(flags))
}

// PPN extracts the physical page number this entry refers to.
func (e PageTableEntry) PPN() addr.PhysPageNum {
	return addr.PhysPageNum((uint64(e) >> ppnShift) & ((1 << ppnBitWidth) - 1))
}

// Flags extracts the flag field.
func (e PageTableEntry) Flags() PTEFlags {
	return PTEFlags(uint64(e) & flagsMask)
}

// IsValid reports whether FlagV is set. An entry with V clear is never
// dereferenced as a pointer to another table or a leaf page.
func (e PageTableEntry) IsValid() bool { return e.Flags()&FlagV != 0 }

// IsLeaf reports whether the entry is a leaf (carries at least one of
// R/W/X) as opposed to an intermediate table pointer.
func (e PageTableEntry) IsLeaf() bool { return e.Flags()&(FlagR|FlagW|FlagX) != 0 }

// IsReadable reports whether FlagR is set.
func (e PageTableEntry) IsReadable() bool { return e.Flags()&FlagR != 0 }

// IsWritable reports whether FlagW is set.
func (e PageTableEntry) IsWritable() bool { return e.Flags()&FlagW != 0 }

// IsExecutable reports whether FlagX is set.
func (e PageTableEntry) IsExecutable() bool { return e.Flags()&FlagX != 0 }

// IsCopyOnWrite reports whether FlagC is set.
func (e PageTableEntry) IsCopyOnWrite() bool { return e.Flags()&FlagC != 0 }

package memset

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/cpu"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/vmm"
)

var errOverlappingArea = &kernel.Error{Module: "memset", Message: "map area overlaps an existing one"}

// MemorySet pairs one PageTable with the areas that describe what each
// mapped range is for. One MemorySet is one address space; invariants
// held across the areas slice: no two areas' VPN ranges overlap, and
// the trampoline page is always mapped R|X at the highest VA.
type MemorySet struct {
	pageTable      *vmm.PageTable
	areas          []*MapArea
	trampolinePhys addr.PhysAddr
	hasTrampoline  bool
}

// NewBare allocates an empty address space: just a fresh root table, no
// areas and, notably, no trampoline — callers that need one, NewKernel
// included, must map it explicitly.
func NewBare() (*MemorySet, *kernel.Error) {
	pt, err := vmm.New()
	if err != nil {
		return nil, err
	}
	return &MemorySet{pageTable: pt}, nil
}

// KernelLayout describes the addresses of the running kernel image, as
// only the linker knows them. NewKernel uses it to lay out the
// identity-mapped kernel address space; the boot package is responsible
// for populating it from the Go linker's section boundary symbols.
type KernelLayout struct {
	TextStart, TextEnd     addr.VirtAddr
	RodataStart, RodataEnd addr.VirtAddr
	DataStart, DataEnd     addr.VirtAddr
	BssStart, BssEnd       addr.VirtAddr

	// KernelEnd is the first free physical page after the kernel image;
	// everything up to MemoryEnd is identity-mapped R|W as general
	// purpose physical memory.
	KernelEnd, MemoryEnd addr.VirtAddr

	// TrampolinePhys is the physical page the mode-switch trampoline
	// code was assembled into.
	TrampolinePhys addr.PhysAddr
}

// NewKernel builds the kernel's own address space: identity maps over
// .text (R|X), .rodata (R), .data (R|W), .bss (R|W) and all remaining
// physical memory (R|W), plus the trampoline page at its fixed VA.
func NewKernel(layout KernelLayout) (*MemorySet, *kernel.Error) {
	ms, err := NewBare()
	if err != nil {
		return nil, err
	}

	ms.mapTrampoline(layout.TrampolinePhys)

	sections := []struct {
		start, end addr.VirtAddr
		flags      vmm.PTEFlags
	}{
		{layout.TextStart, layout.TextEnd, vmm.FlagR | vmm.FlagX},
		{layout.RodataStart, layout.RodataEnd, vmm.FlagR},
		{layout.DataStart, layout.DataEnd, vmm.FlagR | vmm.FlagW},
		{layout.BssStart, layout.BssEnd, vmm.FlagR | vmm.FlagW},
		{layout.KernelEnd, layout.MemoryEnd, vmm.FlagR | vmm.FlagW},
	}
	for _, sec := range sections {
		if sec.start == sec.end {
			continue
		}
		if err := ms.Push(NewMapArea(sec.start, sec.end, Identical, sec.flags), nil); err != nil {
			return nil, err
		}
	}

	return ms, nil
}

func (ms *MemorySet) mapTrampoline(trampolinePhys addr.PhysAddr) {
	ms.pageTable.Map(addr.VirtAddr(mem.Trampoline).Floor(), trampolinePhys.Floor(), vmm.FlagR|vmm.FlagX, nil)
	ms.trampolinePhys = trampolinePhys
	ms.hasTrampoline = true
}

// Push installs area into the address space: maps every VPN it covers
// and, if data is non-nil, copies it into the newly mapped (Framed)
// pages starting at the area's first VPN. It returns errOverlappingArea
// without modifying anything if area's range intersects an existing
// one.
func (ms *MemorySet) Push(area *MapArea, data []byte) *kernel.Error {
	for _, existing := range ms.areas {
		if rangesOverlap(area.startVPN, area.endVPN, existing.startVPN, existing.endVPN) {
			return errOverlappingArea
		}
	}

	area.mapAll(ms.pageTable)
	if data != nil {
		area.copyData(ms.pageTable, data)
	}
	ms.areas = append(ms.areas, area)
	return nil
}

func rangesOverlap(aStart, aEnd, bStart, bEnd addr.VirtPageNum) bool {
	return aStart < bEnd && bStart < aEnd
}

// InsertFramedArea is a convenience wrapper over Push for the common
// case of adding one more anonymous, demand-backed range — e.g. a
// second thread's stack, or a shared-memory segment.
func (ms *MemorySet) InsertFramedArea(startVA, endVA addr.VirtAddr, flags vmm.PTEFlags) *kernel.Error {
	return ms.Push(NewMapArea(startVA, endVA, Framed, flags), nil)
}

// RemoveFramedArea tears down and forgets the area covering [startVA,
// endVA). It is a no-op if no such area exists.
func (ms *MemorySet) RemoveFramedArea(startVA, endVA addr.VirtAddr) {
	startVPN, endVPN := startVA.Floor(), endVA.Ceil()

	for i, area := range ms.areas {
		if area.startVPN == startVPN && area.endVPN == endVPN {
			area.unmapAll(ms.pageTable)
			ms.areas = append(ms.areas[:i], ms.areas[i+1:]...)
			return
		}
	}
}

// AreaContaining returns the area whose range starts at vpn, if any.
func (ms *MemorySet) AreaContaining(vpn addr.VirtPageNum) *MapArea {
	for _, area := range ms.areas {
		if area.startVPN == vpn {
			return area
		}
	}
	return nil
}

// ShrinkTo shrinks the area starting at startVA down to newEndVA. It
// returns false if no area starts at startVA.
func (ms *MemorySet) ShrinkTo(startVA, newEndVA addr.VirtAddr) bool {
	area := ms.AreaContaining(startVA.Floor())
	if area == nil {
		return false
	}
	area.shrinkTo(ms.pageTable, newEndVA.Ceil())
	return true
}

// AppendTo extends the area starting at startVA out to newEndVA. It
// returns false if no area starts at startVA.
func (ms *MemorySet) AppendTo(startVA, newEndVA addr.VirtAddr) bool {
	area := ms.AreaContaining(startVA.Floor())
	if area == nil {
		return false
	}
	area.appendTo(ms.pageTable, newEndVA.Ceil())
	return true
}

// Token returns the satp value that activates this address space.
func (ms *MemorySet) Token() uint64 { return ms.pageTable.Token() }

// Translate looks up the PTE mapping vpn in this address space.
func (ms *MemorySet) Translate(vpn addr.VirtPageNum) (vmm.PageTableEntry, bool) {
	return ms.pageTable.Translate(vpn)
}

// Activate installs this address space's page table as the active one
// on the calling hart and flushes stale TLB entries.
func (ms *MemorySet) Activate() {
	cpu.WriteSatp(ms.Token())
}

// Drop releases every frame this address space owns, root table
// included, and forgets its areas. Called once a task reaps its exited
// child or itself becomes a zombie; it is the Go-GC-era stand-in for the
// original's scope-exit frame release, since frames are refcounted by
// FrameTracker rather than by the page table's own lifetime.
func (ms *MemorySet) Drop() {
	ms.pageTable.Drop()
	ms.areas = nil
}

// Package memset builds address spaces out of the primitives in vmm and
// pmm: a MemorySet pairs one PageTable with the set of MapAreas that
// describe what each mapped range is for, so the whole space can be torn
// down, cloned or queried region by region instead of PTE by PTE.
package memset

import (
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/pmm"
	"rv64kernel/internal/kernel/mem/vmm"
)

// MapType distinguishes an area whose VPNs equal their PPNs (used for
// the kernel's own sections, which never move) from one backed by
// freshly allocated, arbitrarily placed frames.
type MapType int

const (
	// Identical maps VirtPageNum(n) to PhysPageNum(n).
	Identical MapType = iota
	// Framed maps to frames allocated on demand, owned by the area.
	Framed
)

// MapArea is a contiguous range of virtual pages sharing one map type
// and one permission set.
type MapArea struct {
	startVPN, endVPN addr.VirtPageNum
	mapType          MapType
	flags            vmm.PTEFlags

	// frames records, for a Framed area, the frame backing each mapped
	// VPN so unmap/shrink/append know what to free. Identical areas
	// leave this nil; there is nothing for the area itself to own.
	frames map[addr.VirtPageNum]*pmm.FrameTracker
}

// NewMapArea describes [startVA, endVA), rounded outward to whole
// pages, as one area. It does not map anything by itself; call
// (*MemorySet).Push to install it.
func NewMapArea(startVA, endVA addr.VirtAddr, mapType MapType, flags vmm.PTEFlags) *MapArea {
	area := &MapArea{
		startVPN: startVA.Floor(),
		endVPN:   endVA.Ceil(),
		mapType:  mapType,
		flags:    flags,
	}
	if mapType == Framed {
		area.frames = make(map[addr.VirtPageNum]*pmm.FrameTracker)
	}
	return area
}

// VPNRange returns the area's [start, end) range of virtual pages.
func (a *MapArea) VPNRange() (start, end addr.VirtPageNum) { return a.startVPN, a.endVPN }

func (a *MapArea) mapOne(pt *vmm.PageTable, vpn addr.VirtPageNum) {
	switch a.mapType {
	case Identical:
		pt.Map(vpn, addr.PhysPageNum(vpn), a.flags, nil)
	case Framed:
		frame, err := pmm.NewFrameTracker()
		if err != nil {
			panic(err)
		}
		a.frames[vpn] = frame
		pt.Map(vpn, frame.PPN, a.flags, frame)
	}
}

func (a *MapArea) unmapOne(pt *vmm.PageTable, vpn addr.VirtPageNum) {
	dealloc := a.mapType == Framed
	pt.Unmap(vpn, dealloc, true)
	if dealloc {
		delete(a.frames, vpn)
	}
}

// mapAll installs every VPN in the area's range.
func (a *MapArea) mapAll(pt *vmm.PageTable) {
	for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
		a.mapOne(pt, vpn)
	}
}

// unmapAll removes every VPN in the area's range.
func (a *MapArea) unmapAll(pt *vmm.PageTable) {
	for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
		a.unmapOne(pt, vpn)
	}
}

// copyData copies data into the area's backing pages, page by page,
// starting at the area's first VPN. Only meaningful for Framed areas;
// data must fit within the area.
func (a *MapArea) copyData(pt *vmm.PageTable, data []byte) {
	vpn := a.startVPN
	for offset := 0; offset < len(data); offset += int(mem.PageSize) {
		end := offset + int(mem.PageSize)
		if end > len(data) {
			end = len(data)
		}
		entry, ok := pt.Translate(vpn)
		if !ok {
			panic("memset: copyData target VPN is not mapped")
		}
		dst := entry.PPN().Bytes()
		copy(dst, data[offset:end])
		vpn++
	}
}

// shrinkTo drops every VPN at or after newEnd from the area.
func (a *MapArea) shrinkTo(pt *vmm.PageTable, newEnd addr.VirtPageNum) {
	for vpn := newEnd; vpn < a.endVPN; vpn++ {
		a.unmapOne(pt, vpn)
	}
	a.endVPN = newEnd
}

// appendTo extends the area with every VPN up to, but excluding, newEnd.
func (a *MapArea) appendTo(pt *vmm.PageTable, newEnd addr.VirtPageNum) {
	for vpn := a.endVPN; vpn < newEnd; vpn++ {
		a.mapOne(pt, vpn)
	}
	a.endVPN = newEnd
}

// clone produces a new, unmapped MapArea with the same range, type and
// permissions as a. The caller is responsible for mapping it (and, for
// a Framed area, copying the backing bytes) into a different PageTable.
func (a *MapArea) clone() *MapArea {
	cloned := &MapArea{startVPN: a.startVPN, endVPN: a.endVPN, mapType: a.mapType, flags: a.flags}
	if a.mapType == Framed {
		cloned.frames = make(map[addr.VirtPageNum]*pmm.FrameTracker)
	}
	return cloned
}

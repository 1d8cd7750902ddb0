// Package addr defines the newtypes used to talk about physical and
// virtual memory locations without mixing up addresses and page numbers:
// PhysAddr, VirtAddr, PhysPageNum and VirtPageNum. Every other memory
// package (pmm, vmm, memset) builds on top of these.
package addr

import (
	"reflect"
	"unsafe"

	"rv64kernel/internal/kernel/mem"
)

// PhysAddr is a physical memory address.
type PhysAddr uintptr

// VirtAddr is a virtual memory address.
type VirtAddr uintptr

// PhysPageNum is a physical page number: PhysAddr >> PageShift.
type PhysPageNum uintptr

// VirtPageNum is a virtual page number: VirtAddr >> PageShift.
type VirtPageNum uintptr

const pageOffsetMask = uintptr(mem.PageSize) - 1

// PageOffset returns the low, in-page bits of the address.
func (a PhysAddr) PageOffset() uintptr { return uintptr(a) & pageOffsetMask }

// PageOffset returns the low, in-page bits of the address.
func (a VirtAddr) PageOffset() uintptr { return uintptr(a) & pageOffsetMask }

// Floor returns the page number containing a, rounding down.
func (a PhysAddr) Floor() PhysPageNum { return PhysPageNum(uintptr(a) >> mem.PageShift) }

// Ceil returns the page number one past a if a is not already
// page-aligned, or the page containing a otherwise.
func (a PhysAddr) Ceil() PhysPageNum {
	if a == 0 {
		return 0
	}
	return PhysPageNum((uintptr(a) + pageOffsetMask) >> mem.PageShift)
}

// Floor returns the page number containing a, rounding down.
func (a VirtAddr) Floor() VirtPageNum { return VirtPageNum(uintptr(a) >> mem.PageShift) }

// Ceil returns the page number one past a if a is not already
// page-aligned, or the page containing a otherwise.
func (a VirtAddr) Ceil() VirtPageNum {
	if a == 0 {
		return 0
	}
	return VirtPageNum((uintptr(a) + pageOffsetMask) >> mem.PageShift)
}

// Addr converts a page number back to the address of its first byte.
func (p PhysPageNum) Addr() PhysAddr { return PhysAddr(uintptr(p) << mem.PageShift) }

// Addr converts a page number back to the address of its first byte.
func (p VirtPageNum) Addr() VirtAddr { return VirtAddr(uintptr(p) << mem.PageShift) }

// Indexes splits a VPN into its three 9-bit SV39 segments, ordered from
// the root level (index 0, i.e. VPN[2]) to the leaf level (index 2,
// VPN[0]), matching the order a page table walk descends in.
func (p VirtPageNum) Indexes() [3]uintptr {
	v := uintptr(p)
	var idx [3]uintptr
	for i := 2; i >= 0; i-- {
		idx[i] = v & uintptr(mem.VPNMask)
		v >>= mem.VPNShift
	}
	return idx
}

// PagePtrFn resolves a physical address to a pointer to its backing
// storage. It is the one seam every package above addr funnels physical
// memory access through; tests across pmm, vmm and memset substitute a
// fake backing arena here rather than dereferencing real physical
// addresses. In the real build it is inlined to a direct cast, which is
// safe because the kernel identity-maps all physical memory.
var PagePtrFn = func(phys PhysAddr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(phys))
}

// Bytes returns a slice over the full page of physical memory backing p.
func (p PhysPageNum) Bytes() []byte {
	data := PagePtrFn(p.Addr())
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: uintptr(data),
		Len:  int(mem.PageSize),
		Cap:  int(mem.PageSize),
	}))
}

package vmm

import (
	"reflect"
	"unsafe"

	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/pmm"
)

const satpModeSV39 = uint64(8) << 60

var (
	errPTENotFound   = &kernel.Error{Module: "vmm", Message: "page table entry not found"}
	errAlreadyMapped = &kernel.Error{Module: "vmm", Message: "virtual page already mapped"}
	errNotMapped     = &kernel.Error{Module: "vmm", Message: "virtual page not mapped"}
)

// newFrameFn allocates the frame backing a fresh table page. Mocked by
// tests, which have no physical frame allocator to draw from.
var newFrameFn = pmm.NewFrameTracker

// pagePtrFn resolves a table's physical page number to the slice of 512
// PTE slots stored in it, overlaid directly on the page's backing bytes.
// Mocked by tests, which have no real physical memory to walk.
var pagePtrFn = defaultPageSlots

func defaultPageSlots(ppn addr.PhysPageNum) []PageTableEntry {
	bytes := ppn.Bytes()
	return *(*[]PageTableEntry)(unsafe.Pointer(&reflect.SliceHeader{
		Data: uintptr(unsafe.Pointer(&bytes[0])),
		Len:  len(bytes) / 8,
		Cap:  len(bytes) / 8,
	}))
}

// PageTable is a three-level SV39 radix tree. It owns every frame used
// to hold an intermediate table, keyed by physical page number so it
// can look one up by PPN alone without taking back ownership from the
// slot that references it; the frames are released when Drop is called.
//
// A PageTable does not allocate leaf frames itself: Map takes the
// destination PPN from its caller, and when the caller also passes that
// frame as owner the table keeps it in the same map and releases it on
// Drop along with the intermediate frames.
type PageTable struct {
	root   addr.PhysPageNum
	frames map[addr.PhysPageNum]*pmm.FrameTracker
}

// New allocates a fresh, empty root table.
func New() (*PageTable, *kernel.Error) {
	root, err := newFrameFn()
	if err != nil {
		return nil, err
	}

	pt := &PageTable{
		root:   root.PPN,
		frames: make(map[addr.PhysPageNum]*pmm.FrameTracker),
	}
	pt.frames[root.PPN] = root
	return pt, nil
}

// FromToken builds a PageTable handle over an already-live root without
// taking ownership of any of its frames. It is used by the kernel to
// walk a user address space it did not create, e.g. when translating a
// buffer pointer supplied in a syscall argument.
func FromToken(token uint64) *PageTable {
	return &PageTable{root: addr.PhysPageNum(token & ((1 << 44) - 1))}
}

// Token returns the satp value that activates this table in SV39 mode.
func (pt *PageTable) Token() uint64 {
	return satpModeSV39 | uint64(pt.root)
}

// Drop releases every frame this table owns, including the root. A
// borrowed table built via FromToken owns nothing and Drop is a no-op.
func (pt *PageTable) Drop() {
	for _, ft := range pt.frames {
		ft.Drop()
	}
	pt.frames = nil
}

// findPTE walks the tree looking for the leaf slot for vpn. When create
// is true, missing intermediate tables are allocated as the walk
// descends; the table takes ownership of each new frame. When create is
// false, a missing intermediate table yields errPTENotFound instead of
// being allocated.
func (pt *PageTable) findPTE(vpn addr.VirtPageNum, create bool) (*pteSlot, *kernel.Error) {
	idx := vpn.Indexes()
	ppn := pt.root

	for level := 0; level < 3; level++ {
		slots := pagePtrFn(ppn)
		entry := slots[idx[level]]

		if level == 2 {
			return &pteSlot{tablePPN: ppn, index: idx[level]}, nil
		}

		if !entry.IsValid() {
			if !create {
				return nil, errPTENotFound
			}

			child, err := newFrameFn()
			if err != nil {
				return nil, err
			}
			pt.frames[child.PPN] = child

			slots[idx[level]] = NewPTE(child.PPN, FlagV)
			ppn = child.PPN
		} else {
			ppn = entry.PPN()
		}
	}

	return nil, errPTENotFound
}

// pteSlot names one page table slot: the table page that holds it and
// the index within that table. It is how findPTE hands back a location
// to read or write without the caller needing to know how pagePtrFn
// works.
type pteSlot struct {
	tablePPN addr.PhysPageNum
	index    uintptr
}

func (s *pteSlot) get() PageTableEntry {
	return pagePtrFn(s.tablePPN)[s.index]
}

func (s *pteSlot) set(e PageTableEntry) {
	pagePtrFn(s.tablePPN)[s.index] = e
}

// Map installs vpn -> ppn with the given flags (FlagV is added
// automatically). If owner is non-nil, the table takes ownership of
// that frame: a later Unmap(vpn, dealloc: true) drops it. It panics if
// vpn is already mapped: double-mapping a VPN is a programming error,
// not a recoverable condition.
func (pt *PageTable) Map(vpn addr.VirtPageNum, ppn addr.PhysPageNum, flags PTEFlags, owner *pmm.FrameTracker) {
	slot, err := pt.findPTE(vpn, true)
	if err != nil {
		panic(err)
	}
	if slot.get().IsValid() {
		panic(errAlreadyMapped)
	}
	if owner != nil {
		pt.frames[owner.PPN] = owner
	}
	slot.set(NewPTE(ppn, flags|FlagV))
}

// Unmap clears the mapping for vpn. If dealloc is true and the leaf
// frame is one this table owns, it is dropped. If panicOnMissing is
// true, unmapping a VPN that is not currently mapped panics; otherwise
// it is silently ignored, matching the "!panic" escape hatch used when
// tearing down an address space whose areas may already be gone.
func (pt *PageTable) Unmap(vpn addr.VirtPageNum, dealloc, panicOnMissing bool) {
	slot, err := pt.findPTE(vpn, false)
	if err != nil || !slot.get().IsValid() {
		if panicOnMissing {
			panic(errNotMapped)
		}
		return
	}

	if dealloc {
		ppn := slot.get().PPN()
		if ft, owned := pt.frames[ppn]; owned {
			ft.Drop()
			delete(pt.frames, ppn)
		}
	}
	slot.set(0)
}

// Translate looks up the PTE mapping vpn. ok is false if no mapping
// exists or the existing entry is not valid.
func (pt *PageTable) Translate(vpn addr.VirtPageNum) (entry PageTableEntry, ok bool) {
	slot, err := pt.findPTE(vpn, false)
	if err != nil {
		return 0, false
	}
	e := slot.get()
	return e, e.IsValid()
}

// TranslateVA resolves a full virtual address to its physical address,
// combining the leaf PPN with the original page offset.
func (pt *PageTable) TranslateVA(va addr.VirtAddr) (addr.PhysAddr, bool) {
	entry, ok := pt.Translate(va.Floor())
	if !ok {
		return 0, false
	}
	return addr.PhysAddr(uintptr(entry.PPN().Addr()) | va.PageOffset()), true
}

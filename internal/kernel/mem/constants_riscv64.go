// +build riscv64

package mem

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)).
	PointerShift = 3

	// PageShift is equal to log2(PageSize); VirtAddr/PhysAddr split their
	// low PageShift bits off as the in-page offset.
	PageShift = 12

	// PageSize defines the system's page size in bytes.
	PageSize = Size(1 << PageShift)

	// VPNShift is the width, in bits, of a single SV39 VPN segment
	// (VPN[2], VPN[1], VPN[0]).
	VPNShift = 9

	// VPNMask isolates one 9-bit VPN segment.
	VPNMask = (1 << VPNShift) - 1

	// PPNBits is the width of the PPN field packed into a page table
	// entry alongside its 10 flag bits.
	PPNBits = 44
)

const (
	// Trampoline sits in the very last page of the 64-bit address space
	// (VA = -PageSize) so its address survives the satp swap performed
	// while crossing the user/kernel boundary: the instruction fetching
	// the next instruction after the swap resolves to the same physical
	// page under both page tables.
	Trampoline = ^uintptr(0) - uintptr(PageSize) + 1

	// TrapContext is mapped one page below the trampoline, in every
	// user address space, holding the TrapContext record the trampoline
	// reads and writes across mode switches.
	TrapContext = Trampoline - uintptr(PageSize)
)

const (
	// KernelStackSize is the usable size of one process's kernel stack,
	// not counting its guard pages.
	KernelStackSize = Size(2 * (1 << 15)) // 64 KiB

	// UserStackSize is the usable size of one process's initial user
	// stack, allocated just below TrapContext.
	UserStackSize = Size(1 << 15) // 32 KiB

	// KernelHeapSize bounds the kernel's own bump/freelist heap, carved
	// out of a static array rather than from physical frames so it is
	// available before the frame allocator is seeded.
	KernelHeapSize = Size(3 * (1 << 20)) // 3 MiB

	// MemoryEnd is the exclusive upper bound of the physical RAM region
	// the frame allocator manages; everything above it is MMIO or
	// unmapped on the reference platform.
	MemoryEnd = 0x80800000

	// MaxAppNum is the nominal limit on application images in the
	// loader's registry; the loader does not check it.
	MaxAppNum = 16
)

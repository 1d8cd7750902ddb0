package boot

import "rv64kernel/internal/kernel/mem"

// These mirror the rCore-tutorial linker script's section symbols
// (stext/etext/srodata/..., os/src/linker.ld), each a bodyless function
// resolved to the matching linker-defined boundary address rather than a
// Go variable, the same seam convention cpu_riscv64.go and
// trampoline_riscv64.go use for everything else the Go compiler cannot
// express directly. They are only called from Kmain.

// textStart and textEnd bound the kernel's executable code.
func textStart() uintptr
func textEnd() uintptr

// rodataStart and rodataEnd bound read-only data.
func rodataStart() uintptr
func rodataEnd() uintptr

// dataStart and dataEnd bound initialized writable data.
func dataStart() uintptr
func dataEnd() uintptr

// bssStart and bssEnd bound zero-initialized writable data, up to and
// including the boot stack.
func bssStart() uintptr
func bssEnd() uintptr

// kernelEnd is the first physical address after the loaded image; memory
// from here to the platform's installed RAM is free for the frame
// allocator.
func kernelEnd() uintptr

// memoryEnd is the exclusive upper bound of the installed RAM the
// platform makes available. Unlike the other boundaries it needs no linker
// symbol: this kernel hardcodes it from the reference platform's fixed
// memory map the same way rCore-tutorial does.
func memoryEnd() uintptr { return uintptr(mem.MemoryEnd) }

// trampolinePhys is the physical address the mode-switch trampoline code
// was assembled to run from.
func trampolinePhys() uintptr

// clearBSS zeroes every byte between bssStart and bssEnd. Must run before
// any Go code reads a package-level variable that lives in .bss, which is
// everything, so it is the very first thing Kmain does.
func clearBSS()

package kernel

import (
	"reflect"
	"unsafe"
)

// Memset fills size bytes starting at addr with value. pmm's ZeroPageFn
// is the main caller, wiping a freshly allocated frame before it is
// handed to a task or a page table; doubling the already-written prefix
// each round (the bytes.Repeat trick) takes log2(size) calls instead of
// size, which matters since every frame in this kernel is zeroed this
// way.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	// overlay a slice on top of this address region
	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: addr,
	}))

	// Set first element and make log2(size) optimized copies
	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst. memset.FromAnother calls
// this once per framed page when deep-copying a forked address space,
// the same physical-address traffic Memset handles for a fresh frame.
func Memcopy(src, dst uintptr, size uintptr) {
	if size == 0 {
		return
	}

	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: src,
	}))
	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: dst,
	}))

	copy(dstSlice, srcSlice)
}

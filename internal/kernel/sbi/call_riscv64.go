package sbi

// call is the one asm-backed primitive: it places eid in a7 and arg0 in a0,
// executes ecall, and returns the value SBI left in a0.
func call(eid uintptr, arg0 uintptr) uintptr

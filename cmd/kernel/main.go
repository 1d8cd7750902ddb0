package main

import "rv64kernel/internal/kernel/boot"

// hartIDArg and dtbArg are package-level so the compiler cannot inline
// this call and strip boot.Kmain out of the linked image, the same
// trick the teacher's own stub.go relies on.
var (
	hartIDArg uint64
	dtbArg    uintptr
)

// main is the only Go symbol the entry assembly calls. It exists purely
// as a trampoline into boot.Kmain, which never returns.
func main() {
	boot.Kmain(hartIDArg, dtbArg)
}

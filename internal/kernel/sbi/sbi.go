// Package sbi wraps the legacy SBI (Supervisor Binary Interface) calls the
// kernel makes into the firmware underneath it: reading and writing one
// console byte at a time, programming the next timer interrupt, and
// shutting the machine down. The firmware itself, and the ecall trap that
// reaches it, are external primitives; this package only names the legacy
// extension IDs and exposes them as plain Go functions, following the
// teacher's split of an asm-backed leaf call behind a bodyless declaration.
package sbi

const (
	eidSetTimer      = 0
	eidConsolePutchar = 1
	eidConsoleGetchar = 2
	eidShutdown      = 8
)

var callFn = call

// ConsolePutchar writes one byte to the firmware console.
func ConsolePutchar(b byte) {
	callFn(eidConsolePutchar, uintptr(b))
}

// ConsoleGetchar reads one byte from the firmware console, or 0 if none is
// currently available.
func ConsoleGetchar() uint32 {
	return uint32(callFn(eidConsoleGetchar, 0))
}

// Shutdown powers the machine off. The firmware call does not return.
func Shutdown() {
	callFn(eidShutdown, 0)
}

// SetTimer programs the next supervisor timer interrupt to fire when the
// `time` CSR reaches deadline.
func SetTimer(deadline uint64) {
	callFn(eidSetTimer, uintptr(deadline))
}

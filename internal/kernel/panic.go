package kernel

import (
	"rv64kernel/internal/kernel/cpu"
	"rv64kernel/internal/kernel/kfmt"
)

var (
	// cpuHaltFn is mocked by tests and inlined by the compiler in the real
	// build.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if any) to the console and halts the
// hart. Calls to Panic never return. Panic also serves as the redirection
// target for calls to the builtin panic() (resolved via runtime.gopanic in
// the freestanding build).
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	kfmt.Printf("\n-----------------------------------\n")
	if err != nil {
		kfmt.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	kfmt.Printf("*** kernel panic: system halted ***")
	kfmt.Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

// Package kernel contains the types and helpers shared by every core
// subsystem: the kernel-wide error currency, panic redirection and the
// allocation-free memory primitives used before the kernel heap exists.
package kernel

// Error describes a kernel-level error. All kernel errors are defined as
// package-level variables that are pointers to Error. This requirement
// stems from the fact that the Go allocator is not guaranteed to be usable
// at the point an error needs to be produced (see internal/kernel/goruntime),
// so we cannot rely on errors.New.
type Error struct {
	// Module is the subsystem that raised the error.
	Module string

	// Message is the human-readable error text.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

package sync

import "rv64kernel/internal/kernel/cpu"

var (
	// These are mocked by tests and inlined by the compiler in the real
	// build, following the same seam pattern used for cpuHaltFn.
	interruptsEnabledFn  = cpu.InterruptsEnabled
	disableInterruptsFn  = cpu.DisableInterrupts
	enableInterruptsFn   = cpu.EnableInterrupts
)

// intrDepth and intrWasEnabled track the nesting depth of PushOff/PopOff
// calls for the current hart, along with whether interrupts were enabled
// before the outermost PushOff. This mirrors the push_off/pop_off
// discipline used to make interrupt-disabling critical sections
// composable: a routine that disables interrupts internally must not
// re-enable them on return if its caller had already disabled them.
//
// This package only supports a single hart at the moment, so the counters
// are plain package state rather than per-hart slots; SMP support will
// need to key these off cpu.HartID().
var (
	intrDepth       int
	intrWasEnabled  bool
)

// PushOff disables interrupts on the calling hart, recording whether they
// were enabled so a matching PopOff can restore the original state.
// PushOff/PopOff pairs nest: only the outermost PopOff actually
// re-enables interrupts.
func PushOff() {
	enabled := interruptsEnabledFn()
	disableInterruptsFn()

	if intrDepth == 0 {
		intrWasEnabled = enabled
	}
	intrDepth++
}

// PopOff reverses a PushOff. Calling PopOff without a matching prior
// PushOff, or calling it more times than PushOff was called, panics.
func PopOff() {
	if interruptsEnabledFn() {
		panic("sync: PopOff called with interrupts already enabled")
	}
	if intrDepth < 1 {
		panic("sync: PopOff called without a matching PushOff")
	}

	intrDepth--
	if intrDepth == 0 && intrWasEnabled {
		enableInterruptsFn()
	}
}

// IntrSpinlock is a Spinlock that additionally disables interrupts for the
// duration of the critical section. It guards data that is also touched
// from trap context (the ready queue, the PID allocator, each task's
// control block) where a plain Spinlock would deadlock if a timer interrupt
// fired while the lock was held and its handler tried to acquire it again
// on the same hart. The frame allocator uses a plain Spinlock instead.
type IntrSpinlock struct {
	inner Spinlock
}

// Acquire disables interrupts and then acquires the underlying spinlock.
func (l *IntrSpinlock) Acquire() {
	PushOff()
	l.inner.Acquire()
}

// Release releases the underlying spinlock and restores the interrupt
// state to what it was before the matching Acquire.
func (l *IntrSpinlock) Release() {
	l.inner.Release()
	PopOff()
}

// Package timer reads the monotonic clock and programs the next timer
// interrupt. Both operations bottom out in external primitives (the `time`
// CSR and the SBI set_timer call); this package only adds the fixed-point
// conversion between clock ticks and milliseconds.
package timer

import (
	"rv64kernel/internal/kernel/cpu"
	"rv64kernel/internal/kernel/sbi"
)

// clockFreq is the platform timer frequency, in Hz, of the `time` CSR on
// the reference QEMU virt machine.
const clockFreq = 12500000

// ticksPerSecond is how many timer interrupts the scheduler wants per
// second; a lower rate would make preemption sluggish, a higher one would
// spend more time in the trap handler than in user code.
const ticksPerSecond = 100

var (
	readTimeFn = cpu.ReadTime
	setTimerFn = sbi.SetTimer
)

// GetTime returns the number of raw `time` CSR ticks elapsed since boot.
func GetTime() uint64 {
	return readTimeFn()
}

// GetTimeMs returns the elapsed time since boot in milliseconds.
func GetTimeMs() uint64 {
	return readTimeFn() / (clockFreq / 1000)
}

// SetNextTrigger programs the timer to fire again one tick interval from
// now.
func SetNextTrigger() {
	setTimerFn(readTimeFn() + clockFreq/ticksPerSecond)
}

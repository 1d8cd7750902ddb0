// Package cpu exposes the architecture primitives the rest of the kernel
// needs: interrupt masking, the SV39 satp register, TLB maintenance and the
// hart id. The actual instructions live in cpu_riscv64.s; this file only
// declares the Go-visible signatures, following the teacher's split of
// assembly thunks behind plain Go function declarations.
package cpu

// EnableInterrupts sets sstatus.SIE, allowing supervisor interrupts to be
// taken on this hart.
func EnableInterrupts()

// DisableInterrupts clears sstatus.SIE.
func DisableInterrupts()

// InterruptsEnabled reports whether sstatus.SIE is currently set.
func InterruptsEnabled() bool

// Halt parks the hart in a low-power wait-for-interrupt loop. Used by the
// idle scheduler path and by Panic.
func Halt()

// WriteSatp installs token (8<<60 | root PPN, the SV39 encoding) as the
// active page table and executes sfence.vma to invalidate stale TLB entries.
func WriteSatp(token uint64)

// ReadSatp returns the currently active satp value.
func ReadSatp() uint64

// FlushTLBEntry invalidates the TLB entry (if any) for virtAddr via
// sfence.vma rs1=virtAddr.
func FlushTLBEntry(virtAddr uintptr)

// HartID returns the id of the hart executing this code, as set by the
// boot assembly into tp.
func HartID() uint64

// ReadTime returns the raw value of the `time` CSR (a monotonically
// increasing cycle count driven by the platform clock).
func ReadTime() uint64

// SetTrapVector writes addr into stvec in direct mode, so the next trap
// taken on this hart starts executing at addr.
func SetTrapVector(addr uintptr)

// ReadScause returns the current value of scause: bit 63 set means an
// interrupt, clear means an exception; the low bits name the cause.
func ReadScause() uint64

// ReadStval returns the current value of stval: the faulting address for
// a page fault, or the offending instruction for an illegal instruction
// trap.
func ReadStval() uintptr

// ReadSepc returns the current value of sepc: the instruction that was
// about to run when the trap was taken.
func ReadSepc() uintptr

// WriteSepc overwrites sepc, e.g. to advance past a completed ecall.
func WriteSepc(pc uintptr)

// EnableTimerInterrupt sets sie.STIE, unmasking supervisor timer
// interrupts.
func EnableTimerInterrupt()

// Package trap implements the user/kernel trap boundary: the register
// file the trampoline saves and restores across a mode switch, and the
// dispatcher that routes a taken trap to a syscall, a fault handler or the
// timer. It knows nothing about tasks or scheduling; Hooks (see dispatch.go)
// is the seam the task package plugs itself into.
package trap

// TrapContext is the user register file plus the minimum extra state the
// kernel needs to resume its own execution after a trap. It is laid out
// with the general registers first because the trampoline assembly
// addresses them by a fixed offset from the context's own base address.
type TrapContext struct {
	Regs        [32]uint64
	Sstatus     uint64
	Sepc        uint64
	KernelSatp  uint64
	KernelSP    uint64
	TrapHandler uint64
}

// SetSP overwrites the saved stack pointer (x2).
func (tc *TrapContext) SetSP(sp uint64) { tc.Regs[2] = sp }

// NewAppInitContext builds the TrapContext a freshly loaded application
// starts with: every register zero except sepc (the entry point), sp (the
// user stack top) and the three fields the trampoline needs to re-enter
// the kernel (kernelSatp, kernelSP, trapHandler).
func NewAppInitContext(entry, userSP, kernelSatp, kernelSP, trapHandler uint64) TrapContext {
	tc := TrapContext{
		Sepc:        entry,
		KernelSatp:  kernelSatp,
		KernelSP:    kernelSP,
		TrapHandler: trapHandler,
	}
	tc.SetSP(userSP)
	return tc
}

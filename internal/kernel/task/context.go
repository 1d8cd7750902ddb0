package task

// TaskContext holds the callee-saved register set contextSwitch preserves
// across a task switch: the return address, stack pointer, and the twelve
// s0-s11 registers. It says nothing about user-mode state; that lives in
// the task's TrapContext instead.
type TaskContext struct {
	Ra   uint64
	SP   uint64
	Regs [12]uint64
}

// GotoTrapReturn seeds a context that, the first time it is switched into,
// resumes execution at trap.Return with sp at the top of the given kernel
// stack. Used for tasks built straight from an ELF image (the init
// process, and any task mid-exec).
func GotoTrapReturn(kstackTop uint64) TaskContext {
	return TaskContext{Ra: uint64(trapReturnEntry()), SP: kstackTop}
}

// GotoForkRet is GotoTrapReturn's counterpart for a freshly forked task:
// the first switch lands in trap.ForkRet instead, which runs
// releaseForkRet (a no-op, since the scheduler holds no lock across the
// switch) before falling through to trap.Return.
func GotoForkRet(kstackTop uint64) TaskContext {
	return TaskContext{Ra: uint64(forkRetEntry()), SP: kstackTop}
}

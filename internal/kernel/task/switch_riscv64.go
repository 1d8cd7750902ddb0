package task

import "rv64kernel/internal/kernel/trap"

// contextSwitch saves the callee-saved registers, sp and ra of the
// running context into current, then loads the same set from next and
// returns by jumping to whatever address next.Ra holds rather than back
// to its caller. The first switch into a freshly created task therefore
// resumes at trapReturnEntry or forkRetEntry instead of returning here.
func contextSwitch(current, next *TaskContext)

// trapReturnEntry returns the address __switch should treat as the return
// address for a task that has never run: trap.Return, reached directly
// since it takes no arguments.
func trapReturnEntry() uintptr

// forkRetEntry returns the address of this package's fork-return
// trampoline, the first thing a freshly forked task's kernel context runs.
func forkRetEntry() uintptr

// forkRetTrampoline hands trap.ForkRet the no-op releaseForkRet and so
// falls through to the ordinary trap-return path. It is
// never called directly from Go; forkRetEntry's address is handed to
// contextSwitch as a task's initial Ra.
func forkRetTrampoline() {
	trap.ForkRet(releaseForkRet)
}

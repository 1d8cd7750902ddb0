package task

import (
	"rv64kernel/internal/kernel/cpu"
)

// Processor holds the one thing each hart needs beyond the ready queue:
// which task it is currently running, and the context to switch back to
// once that task yields or exits.
type Processor struct {
	current     *ControlBlock
	schedulerCx TaskContext
}

// hartIDFn is a seam over cpu.HartID so tests can run as hart 0 without a
// real CSR read.
var hartIDFn = cpu.HartID

// maxHarts bounds the Processor table. Only hart 0 is brought up today;
// see DESIGN.md for why SMP bring-up is out of scope.
const maxHarts = 1

var processors = make([]Processor, maxHarts)

func thisProcessor() *Processor { return &processors[hartIDFn()] }

// CurrentTask returns the task running on the calling hart, or nil if the
// hart is idling in the scheduler loop.
func CurrentTask() *ControlBlock { return thisProcessor().current }

// TakeCurrentTask clears and returns the calling hart's current task.
func TakeCurrentTask() *ControlBlock {
	p := thisProcessor()
	t := p.current
	p.current = nil
	return t
}

// Schedule switches out of a task's kernel context and into the calling
// hart's scheduler loop. switchedCx is the task's own TaskContext, saved
// in place; Schedule returns once the scheduler dispatches this task
// again. Unlike the lock-held-across-__switch discipline of a true SMP
// scheduler, this task's own PCB lock is never held across the switch
// (see DESIGN.md); callers that need exclusion across a yield point must
// arrange their own.
func Schedule(switchedCx *TaskContext) {
	contextSwitchFn(switchedCx, &thisProcessor().schedulerCx)
}

// releaseForkRet is the release callback trap.ForkRet runs before falling
// through to trap.Return. The PCB lock it would otherwise drop is already
// released by Scheduler before the switch, so this is a no-op kept for
// symmetry with trap.ForkRet's contract.
func releaseForkRet() {}

// Scheduler runs forever on the calling hart: enable interrupts, pop the
// next ready task, switch into it, and repeat once it yields, exits, or
// the hart finds nothing to run.
func Scheduler() {
	for {
		cpu.EnableInterrupts()

		next := FetchTask()
		if next == nil {
			cpu.Halt()
			continue
		}

		next.Lock()
		if next.inner.status != StatusReady {
			next.Unlock()
			continue
		}
		next.inner.status = StatusRunning
		next.Unlock()

		p := thisProcessor()
		p.current = next
		contextSwitchFn(&p.schedulerCx, &next.inner.cx)
		p.current = nil
	}
}

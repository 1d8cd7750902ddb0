package task

import "rv64kernel/internal/kernel/sync"

// readyQueue is the global FIFO of runnable tasks, guarded separately from
// any individual task's own lock since the trap handler and every hart's
// scheduler loop touch it.
var readyQueue struct {
	lock  sync.IntrSpinlock
	tasks []*ControlBlock
}

// AddTask enqueues t at the back of the ready queue.
func AddTask(t *ControlBlock) {
	readyQueue.lock.Acquire()
	readyQueue.tasks = append(readyQueue.tasks, t)
	readyQueue.lock.Release()
}

// FetchTask pops the task at the front of the ready queue, or nil if it is
// empty.
func FetchTask() *ControlBlock {
	readyQueue.lock.Acquire()
	defer readyQueue.lock.Release()

	if len(readyQueue.tasks) == 0 {
		return nil
	}
	t := readyQueue.tasks[0]
	readyQueue.tasks = readyQueue.tasks[1:]
	return t
}

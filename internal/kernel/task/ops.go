package task

import (
	"encoding/binary"

	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/memset"
	"rv64kernel/internal/kernel/sbi"
)

// initTask is the process every exiting task's orphaned children are
// re-parented onto. Set once by Init.
var initTask *ControlBlock

// doYield implements the yield() syscall and the timer-interrupt path:
// mark the running task Ready, push it back onto the ready queue, and
// switch to the scheduler. Returns once this task is dispatched again.
func doYield() {
	t := CurrentTask()
	t.Lock()
	t.inner.status = StatusReady
	t.Unlock()

	AddTask(t)
	Schedule(&t.inner.cx)
}

// doExit implements exit(code): PID 0 (the init process) exiting powers
// the machine off; any other task re-parents its children onto init,
// becomes a zombie, releases every frame its address space owns, and
// switches away for good.
func doExit(code int32) {
	t := TakeCurrentTask()
	if t.Pid.ID() == 0 {
		sbi.Shutdown()
		return
	}

	// Lock order is init first, then the exiting task, matching every
	// other two-task critical section in this package.
	initTask.Lock()
	t.Lock()
	for _, c := range t.inner.children {
		c.Lock()
		c.inner.parent = initTask
		c.Unlock()
		initTask.inner.children = append(initTask.inner.children, c)
	}
	t.inner.status = StatusZombie
	t.inner.exitCode = code
	t.inner.children = nil
	t.inner.memSet.Drop()
	t.Unlock()
	initTask.Unlock()

	var dummy TaskContext
	Schedule(&dummy)
	panic("task: exited task resumed after its final switch")
}

// doWaitPid implements waitpid(pid, &xcode): pid == -1 matches any child.
// Returns -1 if no matching child exists, -2 if one exists but none has
// exited yet, or the reaped child's pid with its exit code written to
// exitCodeUserPtr (if non-zero).
func doWaitPid(pid int64, exitCodeUserPtr uint64) int64 {
	cur := CurrentTask()
	cur.Lock()
	defer cur.Unlock()

	targetIdx := -1
	anyMatch := false
	for i, c := range cur.inner.children {
		if pid != -1 && c.Pid.ID() != pid {
			continue
		}
		anyMatch = true
		c.Lock()
		zombie := c.inner.status == StatusZombie
		c.Unlock()
		if zombie {
			targetIdx = i
			break
		}
	}
	if !anyMatch {
		return -1
	}
	if targetIdx < 0 {
		return -2
	}

	child := cur.inner.children[targetIdx]
	cur.inner.children = append(cur.inner.children[:targetIdx], cur.inner.children[targetIdx+1:]...)

	child.Lock()
	exitCode := child.inner.exitCode
	child.Unlock()

	if exitCodeUserPtr != 0 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(exitCode)))
		slices := translateBuffer(cur.inner.memSet, exitCodeUserPtr, 8)
		n := 0
		for _, s := range slices {
			n += copy(s, buf[n:])
		}
	}

	childPid := child.Pid.ID()
	child.release()
	return childPid
}

// shrinkHeap releases every whole page between newBrk (rounded up) and
// oldBrk. Pages that never took a lazy-allocation fault are simply absent
// and RemoveFramedArea is a no-op for them.
func shrinkHeap(t *ControlBlock, newBrk, oldBrk uint64) {
	pageMask := uint64(mem.PageSize) - 1
	start := (newBrk + pageMask) &^ pageMask
	for va := start; va < oldBrk; va += uint64(mem.PageSize) {
		t.inner.memSet.RemoveFramedArea(addr.VirtAddr(va), addr.VirtAddr(va+uint64(mem.PageSize)))
	}
}

// translateBuffer splits the userPtr..userPtr+length range in ms into
// kernel-visible slices, one per page crossed, the way every multi-page
// syscall argument buffer needs to be walked.
func translateBuffer(ms *memset.MemorySet, userPtr, length uint64) [][]byte {
	var out [][]byte
	start, end := userPtr, userPtr+length
	for start < end {
		vpn := addr.VirtAddr(start).Floor()
		pte, ok := ms.Translate(vpn)
		if !ok {
			break
		}
		pageStart := uint64(vpn.Addr())
		pageEnd := pageStart + uint64(mem.PageSize)
		sliceEnd := pageEnd
		if sliceEnd > end {
			sliceEnd = end
		}
		offset := start - pageStart
		page := pte.PPN().Bytes()
		out = append(out, page[offset:offset+(sliceEnd-start)])
		start = sliceEnd
	}
	return out
}

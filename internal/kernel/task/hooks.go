package task

import (
	"encoding/binary"

	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/loader"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/memset"
	"rv64kernel/internal/kernel/mem/vmm"
	"rv64kernel/internal/kernel/sbi"
	"rv64kernel/internal/kernel/syscall"
	"rv64kernel/internal/kernel/timer"
	"rv64kernel/internal/kernel/trap"
)

// heapPageFlags is applied to every page the lazy sbrk fault handler
// maps: readable and writable by user code, never executable.
const heapPageFlags = vmm.FlagR | vmm.FlagW | vmm.FlagU

// activeHooks is the single type wired into both trap.ActiveHooks and
// syscall.ActiveHooks; every method reaches the task currently running on
// the calling hart through CurrentTask.
type activeHooks struct{}

// Init registers this package's scheduling and syscall behavior as the
// live implementation the trap and syscall packages dispatch into, builds
// the very first task from initElf, and enqueues it. Must run after the
// kernel's own address space and frame allocator are up, and before the
// first trap can occur.
func Init(space *memset.MemorySet, trampoline addr.PhysAddr, initElf []byte) *kernel.Error {
	kernelSpace = space
	trampolinePhys = trampoline
	trap.ActiveHooks = activeHooks{}
	syscall.ActiveHooks = activeHooks{}

	initproc, err := NewInitProc(initElf)
	if err != nil {
		return err
	}
	initTask = initproc
	AddTask(initproc)
	return nil
}

func (activeHooks) CurrentTrapContext() *trap.TrapContext {
	t := CurrentTask()
	if t == nil {
		panic("task: no current task for CurrentTrapContext")
	}
	return t.trapContext()
}

func (activeHooks) CurrentToken() uint64 {
	t := CurrentTask()
	if t == nil {
		panic("task: no current task for CurrentToken")
	}
	return t.Token()
}

func (activeHooks) HeapBounds() (uint64, uint64) {
	t := CurrentTask()
	t.Lock()
	defer t.Unlock()
	return t.inner.heapBottom, t.inner.programBrk
}

func (activeHooks) TryLazyHeapAlloc(va uint64) bool {
	t := CurrentTask()
	t.Lock()
	defer t.Unlock()

	vpn := addr.VirtAddr(va).Floor()
	if _, ok := t.inner.memSet.Translate(vpn); ok {
		return true
	}
	pageStart := vpn.Addr()
	pageEnd := addr.VirtAddr(uintptr(pageStart) + uintptr(mem.PageSize))
	return t.inner.memSet.InsertFramedArea(pageStart, pageEnd, heapPageFlags) == nil
}

func (activeHooks) IsCopyOnWritePage(va uint64) bool {
	t := CurrentTask()
	t.Lock()
	defer t.Unlock()
	pte, ok := t.inner.memSet.Translate(addr.VirtAddr(va).Floor())
	return ok && pte.IsValid() && pte.IsReadable() && pte.IsCopyOnWrite()
}

func (activeHooks) Syscall(num uint64, args [3]uint64) uint64 {
	return syscall.Dispatch(num, args)
}

func (activeHooks) Exit(code int32) { doExit(code) }
func (activeHooks) Yield()          { doYield() }

func (activeHooks) GetTimeMs() uint64 { return timer.GetTimeMs() }

func (activeHooks) GetPid() int64 {
	return CurrentTask().Pid.ID()
}

func (activeHooks) Fork() int64 {
	cur := CurrentTask()
	child, err := cur.Fork()
	if err != nil {
		return -1
	}
	child.trapContext().Regs[10] = 0
	pid := child.Pid.ID()
	AddTask(child)
	return pid
}

func (activeHooks) Exec(path string) int64 {
	data, ok := loader.GetAppData(path)
	if !ok {
		return -1
	}
	if err := CurrentTask().Exec(data); err != nil {
		return -1
	}
	return 0
}

func (activeHooks) Sbrk(delta int64) int64 {
	t := CurrentTask()
	t.Lock()
	old := int64(t.inner.programBrk)
	newBrk := old + delta
	if uint64(newBrk) < t.inner.heapBottom {
		t.Unlock()
		return -1
	}
	if delta < 0 {
		shrinkHeap(t, uint64(newBrk), uint64(old))
	}
	t.inner.programBrk = uint64(newBrk)
	t.Unlock()
	return old
}

func (activeHooks) WaitPid(pid int64, exitCodeUserPtr uint64) int64 {
	return doWaitPid(pid, exitCodeUserPtr)
}

func (activeHooks) TranslatedBuffer(userPtr, length uint64) [][]byte {
	t := CurrentTask()
	t.Lock()
	defer t.Unlock()
	return translateBuffer(t.inner.memSet, userPtr, length)
}

func (activeHooks) TranslatedString(userPtr uint64) string {
	t := CurrentTask()
	t.Lock()
	defer t.Unlock()

	var out []byte
	va := userPtr
	for {
		pages := translateBuffer(t.inner.memSet, va, 1)
		if len(pages) == 0 || len(pages[0]) == 0 || pages[0][0] == 0 {
			break
		}
		out = append(out, pages[0][0])
		va++
	}
	return string(out)
}

func (activeHooks) WriteUint64(userPtr uint64, v uint64) {
	t := CurrentTask()
	t.Lock()
	defer t.Unlock()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	slices := translateBuffer(t.inner.memSet, userPtr, 8)
	n := 0
	for _, s := range slices {
		n += copy(s, buf[n:])
	}
}

func (activeHooks) ConsoleWrite(data [][]byte) int64 {
	var n int64
	for _, s := range data {
		for _, b := range s {
			sbi.ConsolePutchar(b)
			n++
		}
	}
	return n
}

func (activeHooks) ConsoleReadByte() (byte, bool) {
	raw := sbi.ConsoleGetchar()
	if raw == 0 || raw == 0xFFFFFFFF {
		return 0, false
	}
	return byte(raw), true
}

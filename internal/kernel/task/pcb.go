package task

import (
	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/memset"
	"rv64kernel/internal/kernel/sync"
	"rv64kernel/internal/kernel/trap"
)

// Status is one of the three states spec.md's process model admits; there
// is no Uninit state because a PCB is never observable before its fields
// are fully populated.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusZombie
)

// trampolinePhys is the physical page backing the trampoline code, shared
// identically by every address space's top VA page. Set once by Init.
var trampolinePhys addr.PhysAddr

// ControlBlock is one process: an immutable identity (pid, kernel stack)
// plus a lock-guarded mutable inner record touched by the scheduler, the
// trap handler and this task's own syscalls.
type ControlBlock struct {
	Pid         *PidHandle
	KStack      *KernelStack
	kstackTop   uint64

	lock  sync.IntrSpinlock
	inner innerState
}

type innerState struct {
	status     Status
	cx         TaskContext
	memSet     *memset.MemorySet
	trapCxPPN  addr.PhysPageNum
	heapBottom uint64
	programBrk uint64
	exitCode   int32

	parent   *ControlBlock
	children []*ControlBlock
}

// Lock acquires the PCB's own spinlock and Unlock releases it. The
// scheduler releases it before calling contextSwitch, so it is never held
// across a switch.
func (t *ControlBlock) Lock()   { t.lock.Acquire() }
func (t *ControlBlock) Unlock() { t.lock.Release() }

func (t *ControlBlock) trapContext() *trap.TrapContext {
	return (*trap.TrapContext)(trapCxPointer(t.inner.trapCxPPN))
}

// NewInitProc builds the very first task directly from an ELF image: a
// fresh pid, a fresh kernel stack, and a MemorySet constructed from the
// binary with its context seeded to resume at trap.Return.
func NewInitProc(elf []byte) (*ControlBlock, *kernel.Error) {
	ms, userSP, heapBottom, entry, err := memset.FromELF(elf, trampolinePhys)
	if err != nil {
		return nil, err
	}

	pte, ok := ms.Translate(addr.VirtAddr(mem.TrapContext).Floor())
	if !ok {
		return nil, &kernel.Error{Module: "task", Message: "new task has no trap-context mapping"}
	}

	pid := allocPid()
	kstack, err := NewKernelStack(pid.ID())
	if err != nil {
		return nil, err
	}

	t := &ControlBlock{
		Pid:       pid,
		KStack:    kstack,
		kstackTop: kstack.Top(),
	}
	t.inner = innerState{
		status:     StatusReady,
		cx:         GotoTrapReturn(kstack.Top()),
		memSet:     ms,
		trapCxPPN:  pte.PPN(),
		heapBottom: uint64(heapBottom),
		programBrk: uint64(heapBottom),
	}

	cx := t.trapContext()
	*cx = trap.NewAppInitContext(entry, uint64(userSP), kernelSpace.Token(), kstack.Top(), uint64(trapReturnEntry()))
	return t, nil
}

// Fork clones the parent's address space, allocates fresh identity, and
// links parent/child. The caller is responsible for zeroing the child's
// a0 in its TrapContext and for enqueueing it onto the ready queue.
func (t *ControlBlock) Fork() (*ControlBlock, *kernel.Error) {
	t.Lock()
	defer t.Unlock()

	childMS, err := memset.FromAnother(t.inner.memSet)
	if err != nil {
		return nil, err
	}

	pte, ok := childMS.Translate(addr.VirtAddr(mem.TrapContext).Floor())
	if !ok {
		return nil, &kernel.Error{Module: "task", Message: "forked address space has no trap-context mapping"}
	}

	pid := allocPid()
	kstack, err := NewKernelStack(pid.ID())
	if err != nil {
		return nil, err
	}

	child := &ControlBlock{
		Pid:       pid,
		KStack:    kstack,
		kstackTop: kstack.Top(),
	}
	child.inner = innerState{
		status:     StatusReady,
		cx:         GotoForkRet(kstack.Top()),
		memSet:     childMS,
		trapCxPPN:  pte.PPN(),
		heapBottom: t.inner.heapBottom,
		programBrk: t.inner.programBrk,
		parent:     t,
	}

	*child.trapContext() = *t.trapContext()
	child.trapContext().KernelSP = kstack.Top()

	t.inner.children = append(t.inner.children, child)
	return child, nil
}

// Exec rebuilds this task's address space from a new ELF image in place,
// keeping its pid and kernel stack. Any other goroutine holding the old
// TrapContext pointer must re-read it after this returns.
func (t *ControlBlock) Exec(elf []byte) *kernel.Error {
	ms, userSP, heapBottom, entry, err := memset.FromELF(elf, trampolinePhys)
	if err != nil {
		return err
	}
	pte, ok := ms.Translate(addr.VirtAddr(mem.TrapContext).Floor())
	if !ok {
		return &kernel.Error{Module: "task", Message: "exec'd address space has no trap-context mapping"}
	}

	t.Lock()
	t.inner.memSet = ms
	t.inner.trapCxPPN = pte.PPN()
	t.inner.heapBottom = uint64(heapBottom)
	t.inner.programBrk = uint64(heapBottom)
	*t.trapContext() = trap.NewAppInitContext(entry, uint64(userSP), kernelSpace.Token(), t.kstackTop, uint64(trapReturnEntry()))
	t.Unlock()
	return nil
}

// Token returns the satp value for this task's address space.
func (t *ControlBlock) Token() uint64 {
	t.Lock()
	defer t.Unlock()
	return t.inner.memSet.Token()
}

// release unmaps this task's kernel stack and returns its pid to the
// allocator; the address space's frames were already dropped by doExit.
// Called once, when a zombie is finally reaped.
func (t *ControlBlock) release() {
	t.KStack.Release()
	t.Pid.Release()
}

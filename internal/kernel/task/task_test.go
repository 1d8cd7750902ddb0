package task

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"rv64kernel/internal/kernel/mem"
	"rv64kernel/internal/kernel/mem/addr"
	"rv64kernel/internal/kernel/mem/memset"
	"rv64kernel/internal/kernel/mem/pmm"
	"rv64kernel/internal/kernel/mem/vmm"
)

// buildELF64 mirrors memset's own test helper: just enough of an ELF64
// image to exercise FromELF without a real toolchain-produced binary.
func buildELF64(entry uint64, segVA uint64, segData []byte, memSize uint64, flags uint32) []byte {
	const headerSize = 64
	const phEntSize = 56
	phOff := uint64(headerSize)
	dataOff := phOff + phEntSize

	buf := make([]byte, int(dataOff)+len(segData))
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	binary.LittleEndian.PutUint64(buf[24:32], entry)
	binary.LittleEndian.PutUint64(buf[32:40], phOff)
	binary.LittleEndian.PutUint16(buf[54:56], phEntSize)
	binary.LittleEndian.PutUint16(buf[56:58], 1)

	ph := buf[phOff : phOff+phEntSize]
	binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
	binary.LittleEndian.PutUint32(ph[4:8], flags)
	binary.LittleEndian.PutUint64(ph[8:16], dataOff)
	binary.LittleEndian.PutUint64(ph[16:24], segVA)
	binary.LittleEndian.PutUint64(ph[32:40], uint64(len(segData)))
	binary.LittleEndian.PutUint64(ph[40:48], memSize)

	copy(buf[dataOff:], segData)
	return buf
}

func withFakeArena(t *testing.T) {
	t.Helper()
	orig := addr.PagePtrFn
	t.Cleanup(func() { addr.PagePtrFn = orig })

	pages := make(map[addr.PhysPageNum]*[4096]byte)
	addr.PagePtrFn = func(phys addr.PhysAddr) unsafe.Pointer {
		ppn := phys.Floor()
		page, ok := pages[ppn]
		if !ok {
			page = new([4096]byte)
			pages[ppn] = page
		}
		return unsafe.Pointer(&page[0])
	}
	pmm.Init(0, 65536)
}

func withTestKernelSpace(t *testing.T) {
	t.Helper()
	withFakeArena(t)

	orig := kernelSpace
	t.Cleanup(func() { kernelSpace = orig })
	ks, err := memset.NewBare()
	require.Nil(t, err)
	kernelSpace = ks

	origTrampoline := trampolinePhys
	t.Cleanup(func() { trampolinePhys = origTrampoline })
	trampolinePhys = 0x1000

	origHart := hartIDFn
	t.Cleanup(func() { hartIDFn = origHart })
	hartIDFn = func() uint64 { return 0 }

	origSwitch := contextSwitchFn
	t.Cleanup(func() { contextSwitchFn = origSwitch })
	contextSwitchFn = func(*TaskContext, *TaskContext) {}

	origReady := readyQueue.tasks
	t.Cleanup(func() { readyQueue.tasks = origReady })
	readyQueue.tasks = nil

	origProcs := processors
	t.Cleanup(func() { processors = origProcs })
	processors = make([]Processor, maxHarts)
}

// ELF PF_R|PF_X, the raw on-disk program-header flag bits (not vmm's
// internal PTEFlags numbering, which parseELF64 never sees).
const elfFlagsRX = 4 | 1

func tinyELF() []byte {
	return buildELF64(0x10000, 0x10000, []byte("hi"), 0x1000, elfFlagsRX)
}

func TestPidAllocatorRecyclesReleasedIDs(t *testing.T) {
	orig := pidAllocator
	t.Cleanup(func() { pidAllocator = orig })
	pidAllocator = pidAllocatorState{}

	a := allocPid()
	b := allocPid()
	require.NotEqual(t, a.ID(), b.ID())
	a.Release()
	c := allocPid()
	require.Equal(t, a.ID(), c.ID())
}

func TestPidAllocatorPanicsOnDoubleFree(t *testing.T) {
	orig := pidAllocator
	t.Cleanup(func() { pidAllocator = orig })
	pidAllocator = pidAllocatorState{}

	a := allocPid()
	a.Release()
	require.Panics(t, func() { a.Release() })
}

func TestReadyQueueIsFIFO(t *testing.T) {
	orig := readyQueue.tasks
	t.Cleanup(func() { readyQueue.tasks = orig })
	readyQueue.tasks = nil

	t1 := &ControlBlock{Pid: &PidHandle{id: 1}}
	t2 := &ControlBlock{Pid: &PidHandle{id: 2}}
	AddTask(t1)
	AddTask(t2)

	require.Same(t, t1, FetchTask())
	require.Same(t, t2, FetchTask())
	require.Nil(t, FetchTask())
}

func TestKernelStackBoundsLeavesAGuardPageBetweenStacks(t *testing.T) {
	b0, top0 := KernelStackBounds(0)
	_, top1 := KernelStackBounds(1)

	require.EqualValues(t, mem.Trampoline, top0, "expected pid 0's stack to sit directly below the trampoline")
	require.Less(t, uintptr(top1), uintptr(b0), "expected pid 1's stack to sit below pid 0's")
	require.EqualValues(t, mem.PageSize, uintptr(b0)-uintptr(top1), "expected exactly one guard page between stacks")
}

func TestNewInitProcBuildsATaskReadyToRun(t *testing.T) {
	withTestKernelSpace(t)

	tsk, err := NewInitProc(tinyELF())
	require.Nil(t, err)
	require.Equal(t, StatusReady, tsk.inner.status)
	require.EqualValues(t, trapReturnEntry(), tsk.inner.cx.Ra, "expected the task context to resume at trap.Return")
	require.EqualValues(t, 0x10000, tsk.trapContext().Sepc, "expected sepc to carry the ELF entry point")
}

func TestForkClonesAddressSpaceAndLinksChild(t *testing.T) {
	withTestKernelSpace(t)

	parent, err := NewInitProc(tinyELF())
	require.Nil(t, err)

	child, err := parent.Fork()
	require.Nil(t, err)
	require.NotEqual(t, parent.Pid.ID(), child.Pid.ID())
	require.EqualValues(t, forkRetEntry(), child.inner.cx.Ra, "expected a forked task to resume at the fork-return trampoline")
	require.Len(t, parent.inner.children, 1)
	require.Same(t, child, parent.inner.children[0])
	require.Same(t, parent, child.inner.parent)
}

func TestSbrkGrowsLazilyThenShrinksFreesFrames(t *testing.T) {
	withTestKernelSpace(t)

	tsk, err := NewInitProc(tinyELF())
	require.Nil(t, err)
	origHart := hartIDFn
	hartIDFn = func() uint64 { return 0 }
	t.Cleanup(func() { hartIDFn = origHart })
	processors[0].current = tsk

	hooks := activeHooks{}
	base := hooks.Sbrk(0)
	grown := hooks.Sbrk(int64(mem.PageSize))
	require.Equal(t, base, grown, "expected sbrk to return the old break")

	require.True(t, hooks.TryLazyHeapAlloc(uint64(base)), "expected the grown range to be lazily mappable")
	_, mapped := tsk.inner.memSet.Translate(addr.VirtAddr(base).Floor())
	require.True(t, mapped, "expected the faulted page to now be mapped")

	shrunk := hooks.Sbrk(-int64(mem.PageSize))
	require.Equal(t, base+int64(mem.PageSize), shrunk, "expected shrink to return the pre-shrink break")
	_, mapped = tsk.inner.memSet.Translate(addr.VirtAddr(base).Floor())
	require.False(t, mapped, "expected shrinking past a faulted page to unmap it")
}

func TestSbrkRejectsShrinkingBelowHeapBottom(t *testing.T) {
	withTestKernelSpace(t)
	tsk, err := NewInitProc(tinyELF())
	require.Nil(t, err)
	processors[0].current = tsk

	hooks := activeHooks{}
	require.EqualValues(t, -1, hooks.Sbrk(-1))
}

func TestDoWaitPidReapsAZombieChildAndWritesItsExitCode(t *testing.T) {
	withTestKernelSpace(t)

	parent, err := NewInitProc(tinyELF())
	require.Nil(t, err)
	initTask = parent
	child, err := parent.Fork()
	require.Nil(t, err)
	child.inner.status = StatusZombie
	child.inner.exitCode = 42

	processors[0].current = parent
	got := doWaitPid(-1, 0)
	require.Equal(t, child.Pid.ID(), got, "expected to reap the child's pid")
	require.Empty(t, parent.inner.children, "expected the reaped child to be removed from the children list")

	again := doWaitPid(-1, 0)
	require.EqualValues(t, -1, again, "expected a second wait with no children to return -1")
}

func TestDoWaitPidReturnsWouldBlockWhenChildIsStillRunning(t *testing.T) {
	withTestKernelSpace(t)
	parent, err := NewInitProc(tinyELF())
	require.Nil(t, err)
	initTask = parent
	_, err = parent.Fork()
	require.Nil(t, err)
	processors[0].current = parent

	require.EqualValues(t, -2, doWaitPid(-1, 0), "expected -2 while the only child is still alive")
}

func TestDoExitReparentsChildrenToInit(t *testing.T) {
	withTestKernelSpace(t)

	initProc, err := NewInitProc(tinyELF())
	require.Nil(t, err)
	initProc.Pid.id = 0
	initTask = initProc

	parent, err := initProc.Fork()
	require.Nil(t, err)
	grandchild, err := parent.Fork()
	require.Nil(t, err)

	processors[0].current = parent
	// The faked contextSwitchFn is a no-op, so Schedule returns instead of
	// never coming back; doExit's trailing panic is the expected, harmless
	// consequence of driving it outside a real scheduler loop.
	require.Panics(t, func() { doExit(7) })

	require.Equal(t, StatusZombie, parent.inner.status)
	require.EqualValues(t, 7, parent.inner.exitCode)
	require.Empty(t, parent.inner.children, "expected the exiting task's children to be cleared")
	require.Contains(t, initProc.inner.children, grandchild, "expected the grandchild to be re-parented onto init")
	require.Same(t, initProc, grandchild.inner.parent)
}

func TestTranslateBufferSplitsAtPageBoundaries(t *testing.T) {
	withTestKernelSpace(t)
	tsk, err := NewInitProc(tinyELF())
	require.Nil(t, err)

	base := addr.VirtAddr(0x40000)
	err = tsk.inner.memSet.InsertFramedArea(base, addr.VirtAddr(uintptr(base)+2*uintptr(mem.PageSize)), vmm.FlagR|vmm.FlagW|vmm.FlagU)
	require.Nil(t, err)

	length := uint64(mem.PageSize) + 10
	slices := translateBuffer(tsk.inner.memSet, uint64(base)+uint64(mem.PageSize)-5, length)
	var total int
	for _, s := range slices {
		total += len(s)
	}
	require.EqualValues(t, length, total, "expected the split slices to cover the full length")
	require.GreaterOrEqual(t, len(slices), 2, "expected a buffer crossing a page boundary to split into at least 2 slices")
}

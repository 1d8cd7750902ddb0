package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHooks struct {
	bufs        map[uint64][][]byte
	strs        map[uint64]string
	writes      [][]byte
	writeResult int64
	readQueue   []byte
	feedOnYield []byte
	yields      int
	exitCode    *int32
	timeMs      uint64
	pid         int64
	forkResult  int64
	execResult  int64
	execPath    string
	sbrkResult  int64
	sbrkDelta   int64
	waitResult  int64
	waitPid     int64
}

func (f *fakeHooks) TranslatedBuffer(userPtr, length uint64) [][]byte {
	if f.bufs == nil {
		return nil
	}
	return f.bufs[userPtr]
}
func (f *fakeHooks) TranslatedString(userPtr uint64) string {
	f.execPath = f.strs[userPtr]
	return f.execPath
}
func (f *fakeHooks) WriteUint64(userPtr uint64, v uint64) {}

func (f *fakeHooks) ConsoleWrite(data [][]byte) int64 {
	f.writes = append(f.writes, data...)
	return f.writeResult
}
func (f *fakeHooks) ConsoleReadByte() (byte, bool) {
	if len(f.readQueue) == 0 {
		return 0, false
	}
	b := f.readQueue[0]
	f.readQueue = f.readQueue[1:]
	return b, true
}
func (f *fakeHooks) Yield() {
	f.yields++
	f.readQueue = append(f.readQueue, f.feedOnYield...)
	f.feedOnYield = nil
}
func (f *fakeHooks) Exit(code int32) { f.exitCode = &code }

func (f *fakeHooks) GetTimeMs() uint64 { return f.timeMs }
func (f *fakeHooks) GetPid() int64     { return f.pid }
func (f *fakeHooks) Fork() int64       { return f.forkResult }
func (f *fakeHooks) Exec(path string) int64 {
	f.execPath = path
	return f.execResult
}
func (f *fakeHooks) Sbrk(delta int64) int64 {
	f.sbrkDelta = delta
	return f.sbrkResult
}
func (f *fakeHooks) WaitPid(pid int64, exitCodeUserPtr uint64) int64 {
	f.waitPid = pid
	return f.waitResult
}

func withFakeHooks(t *testing.T) *fakeHooks {
	orig := ActiveHooks
	t.Cleanup(func() { ActiveHooks = orig })
	hooks := &fakeHooks{}
	ActiveHooks = hooks
	return hooks
}

func TestDispatchWriteSendsTranslatedBufferToConsole(t *testing.T) {
	hooks := withFakeHooks(t)
	hooks.bufs = map[uint64][][]byte{0x1000: {[]byte("hi")}}
	hooks.writeResult = 2

	got := Dispatch(sysWrite, [3]uint64{1, 0x1000, 2})

	require.EqualValues(t, 2, got)
	require.Len(t, hooks.writes, 1)
	require.Equal(t, "hi", string(hooks.writes[0]))
}

func TestDispatchWriteRejectsNonStdoutFd(t *testing.T) {
	hooks := withFakeHooks(t)
	got := Dispatch(sysWrite, [3]uint64{2, 0x1000, 2})
	require.EqualValues(t, -1, int64(got))
	require.Empty(t, hooks.writes)
}

func TestDispatchReadBlocksUntilAByteArrives(t *testing.T) {
	hooks := withFakeHooks(t)
	dst := make([]byte, 1)
	hooks.bufs = map[uint64][][]byte{0x2000: {dst}}
	hooks.feedOnYield = []byte{'z'}

	got := Dispatch(sysRead, [3]uint64{0, 0x2000, 1})
	require.EqualValues(t, 1, int64(got))
	require.Equal(t, 1, hooks.yields)
	require.Equal(t, byte('z'), dst[0])
}

func TestDispatchReadRejectsNonStdinFd(t *testing.T) {
	withFakeHooks(t)
	got := Dispatch(sysRead, [3]uint64{1, 0x2000, 1})
	require.EqualValues(t, -1, int64(got))
}

func TestDispatchExitForwardsCode(t *testing.T) {
	hooks := withFakeHooks(t)
	Dispatch(sysExit, [3]uint64{7, 0, 0})
	require.NotNil(t, hooks.exitCode)
	require.EqualValues(t, 7, *hooks.exitCode)
}

func TestDispatchYieldCallsHook(t *testing.T) {
	hooks := withFakeHooks(t)
	Dispatch(sysYield, [3]uint64{})
	require.Equal(t, 1, hooks.yields)
}

func TestDispatchGetTimeReturnsHookValue(t *testing.T) {
	hooks := withFakeHooks(t)
	hooks.timeMs = 1234
	require.EqualValues(t, 1234, Dispatch(sysGetTime, [3]uint64{}))
}

func TestDispatchGetPidReturnsHookValue(t *testing.T) {
	hooks := withFakeHooks(t)
	hooks.pid = 3
	require.EqualValues(t, 3, Dispatch(sysGetPid, [3]uint64{}))
}

func TestDispatchForkReturnsChildPid(t *testing.T) {
	hooks := withFakeHooks(t)
	hooks.forkResult = 5
	require.EqualValues(t, 5, Dispatch(sysFork, [3]uint64{}))
}

func TestDispatchExecTranslatesPathAndCallsHook(t *testing.T) {
	hooks := withFakeHooks(t)
	hooks.strs = map[uint64]string{0x3000: "hello"}
	hooks.execResult = 0

	Dispatch(sysExec, [3]uint64{0x3000, 0, 0})

	require.Equal(t, "hello", hooks.execPath)
}

func TestDispatchSbrkForwardsSignedDelta(t *testing.T) {
	hooks := withFakeHooks(t)
	hooks.sbrkResult = 0x4000
	got := Dispatch(sysSbrk, [3]uint64{uint64(int64(-4096)), 0, 0})
	require.EqualValues(t, -4096, hooks.sbrkDelta)
	require.EqualValues(t, 0x4000, got)
}

func TestDispatchWaitPidForwardsArgs(t *testing.T) {
	hooks := withFakeHooks(t)
	hooks.waitResult = 42
	got := Dispatch(sysWaitPid, [3]uint64{uint64(int64(-1)), 0x5000, 0})
	require.EqualValues(t, -1, hooks.waitPid)
	require.EqualValues(t, 42, got)
}

func TestDispatchUnknownNumberKillsCaller(t *testing.T) {
	hooks := withFakeHooks(t)
	Dispatch(9999, [3]uint64{})
	require.NotNil(t, hooks.exitCode)
	require.EqualValues(t, -1, *hooks.exitCode)
}

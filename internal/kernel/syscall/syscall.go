// Package syscall implements the fixed dispatch table the trap handler
// calls into on a user ECALL. Argument translation across address spaces
// and all process-level effects (exit, fork, exec, wait) are delegated to
// Hooks, which the task package implements; this package only owns the
// number-to-behavior mapping and each call's small amount of own logic
// (buffer translation plumbing, error codes).
package syscall

import "rv64kernel/internal/kernel/kfmt"

const (
	sysRead    = 63
	sysWrite   = 64
	sysExit    = 93
	sysYield   = 124
	sysGetTime = 169
	sysGetPid  = 172
	sysFork    = 220
	sysExec    = 221
	sysSbrk    = 214
	sysWaitPid = 260
)

// Hooks is everything Dispatch needs from the process/memory layer.
type Hooks interface {
	// TranslatedBuffer returns the kernel-visible slices backing the
	// userPtr..userPtr+length range in the calling task's address
	// space, split at page boundaries.
	TranslatedBuffer(userPtr, length uint64) [][]byte
	// TranslatedString reads a NUL-terminated string starting at
	// userPtr in the calling task's address space.
	TranslatedString(userPtr uint64) string
	// WriteUint64 writes v to userPtr in the calling task's address
	// space.
	WriteUint64(userPtr uint64, v uint64)

	ConsoleWrite(data [][]byte) int64
	ConsoleReadByte() (b byte, ok bool)
	Yield()
	Exit(code int32)

	GetTimeMs() uint64
	GetPid() int64
	Fork() int64
	Exec(path string) int64
	Sbrk(delta int64) int64
	WaitPid(pid int64, exitCodeUserPtr uint64) int64
}

// ActiveHooks is set once by the task package before the first syscall can
// occur.
var ActiveHooks Hooks

// Dispatch runs syscall number num with argument registers a0..a2 and
// returns the value to place back in a0. An unrecognized number logs and
// exits the caller with code -1, matching the contract for a malformed
// syscall ABI.
func Dispatch(num uint64, args [3]uint64) uint64 {
	switch num {
	case sysRead:
		return uint64(sysReadImpl(int32(args[0]), args[1], args[2]))
	case sysWrite:
		return uint64(sysWriteImpl(int32(args[0]), args[1], args[2]))
	case sysExit:
		ActiveHooks.Exit(int32(args[0]))
		return 0
	case sysYield:
		ActiveHooks.Yield()
		return 0
	case sysGetTime:
		return ActiveHooks.GetTimeMs()
	case sysGetPid:
		return uint64(ActiveHooks.GetPid())
	case sysFork:
		return uint64(ActiveHooks.Fork())
	case sysExec:
		path := ActiveHooks.TranslatedString(args[0])
		return uint64(ActiveHooks.Exec(path))
	case sysSbrk:
		return uint64(ActiveHooks.Sbrk(int64(args[0])))
	case sysWaitPid:
		return uint64(ActiveHooks.WaitPid(int64(args[0]), args[1]))
	default:
		kfmt.Printf("unsupported syscall %d\n", num)
		ActiveHooks.Exit(-1)
		return 0
	}
}

func sysReadImpl(fd int32, bufPtr, length uint64) int64 {
	if fd != 0 || length == 0 {
		return -1
	}

	for {
		if b, ok := ActiveHooks.ConsoleReadByte(); ok {
			dst := ActiveHooks.TranslatedBuffer(bufPtr, 1)
			if len(dst) > 0 && len(dst[0]) > 0 {
				dst[0][0] = b
			}
			return 1
		}
		ActiveHooks.Yield()
	}
}

func sysWriteImpl(fd int32, bufPtr, length uint64) int64 {
	if fd != 1 {
		return -1
	}

	slices := ActiveHooks.TranslatedBuffer(bufPtr, length)
	return ActiveHooks.ConsoleWrite(slices)
}

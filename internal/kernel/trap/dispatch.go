package trap

// Hooks is everything the dispatcher needs from the task/scheduler layer.
// Defining it here, rather than importing the task package directly, keeps
// trap free of a dependency cycle: task needs TrapContext and Return/
// ForkRet from this package, and trap needs to call back into whichever
// task is current.
type Hooks interface {
	// CurrentTrapContext returns the pointer to the running task's
	// TrapContext, valid until the next exec.
	CurrentTrapContext() *TrapContext
	// CurrentToken returns the satp value for the running task's
	// address space.
	CurrentToken() uint64
	// HeapBounds reports the running task's [heap_bottom, program_brk)
	// range, for the lazy sbrk page-fault fast path.
	HeapBounds() (heapBottom, programBrk uint64)
	// TryLazyHeapAlloc maps one framed page at va and reports success;
	// called only when va falls inside HeapBounds.
	TryLazyHeapAlloc(va uint64) bool
	// IsCopyOnWritePage reports whether va names a valid, readable,
	// copy-on-write mapping. No duplication is implemented; see
	// DESIGN.md for why this stays a hook.
	IsCopyOnWritePage(va uint64) bool
	// Syscall dispatches syscall number num with the three argument
	// registers and returns the value to place in a0.
	Syscall(num uint64, args [3]uint64) uint64
	// Exit terminates the running task with the given (possibly
	// negative) exit code. Does not return.
	Exit(code int32)
	// Yield marks the running task Ready and switches to the
	// scheduler. Returns once the task is rescheduled.
	Yield()
}

// ActiveHooks is set once, by the task package's Init, before the first
// trap can occur.
var ActiveHooks Hooks

var (
	readScauseFn = readScause
	readStvalFn  = readStval
)

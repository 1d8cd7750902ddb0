package trap

// jumpToRestore is the trampoline's __restore entry point, mapped at the
// fixed Trampoline VA in every user address space. It reloads every
// register from the TrapContext at trapCtxVA, swaps satp to userSatp and
// resumes user execution at the saved sepc. It never returns to its
// caller.
func jumpToRestore(trapCtxVA uintptr, userSatp uint64)

// kernelTrapVector returns the address of the assembly stub stvec points
// at while the hart is already running kernel code, so a nested trap does
// not re-enter the user trampoline.
func kernelTrapVector() uintptr

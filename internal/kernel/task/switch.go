package task

// contextSwitchFn is a seam over the real, arch-gated contextSwitch so
// Schedule and Scheduler are exercisable under `go test`, where a real
// register-context switch cannot be performed.
var contextSwitchFn = contextSwitch

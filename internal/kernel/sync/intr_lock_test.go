package sync

import "testing"

func withFakeInterruptFlag(t *testing.T, initiallyEnabled bool) *bool {
	enabled := initiallyEnabled

	origEnabledFn, origDisableFn, origEnableFn := interruptsEnabledFn, disableInterruptsFn, enableInterruptsFn
	t.Cleanup(func() {
		interruptsEnabledFn, disableInterruptsFn, enableInterruptsFn = origEnabledFn, origDisableFn, origEnableFn
		intrDepth, intrWasEnabled = 0, false
	})

	interruptsEnabledFn = func() bool { return enabled }
	disableInterruptsFn = func() { enabled = false }
	enableInterruptsFn = func() { enabled = true }

	return &enabled
}

func TestPushOffPopOffRestoresEnabledState(t *testing.T) {
	enabled := withFakeInterruptFlag(t, true)

	PushOff()
	if *enabled {
		t.Fatal("expected PushOff to disable interrupts")
	}
	PopOff()
	if !*enabled {
		t.Fatal("expected PopOff to restore interrupts once the outermost PushOff unwinds")
	}
}

func TestPushOffPopOffNesting(t *testing.T) {
	enabled := withFakeInterruptFlag(t, true)

	PushOff()
	PushOff()
	PushOff()
	if *enabled {
		t.Fatal("expected interrupts to stay disabled while nested")
	}

	PopOff()
	PopOff()
	if *enabled {
		t.Fatal("expected interrupts to remain disabled before the outermost PopOff")
	}

	PopOff()
	if !*enabled {
		t.Fatal("expected the outermost PopOff to re-enable interrupts")
	}
}

func TestPushOffPopOffLeavesDisabledIfOriginallyDisabled(t *testing.T) {
	enabled := withFakeInterruptFlag(t, false)

	PushOff()
	PopOff()
	if *enabled {
		t.Fatal("expected PopOff not to enable interrupts that were already disabled before PushOff")
	}
}

func TestPopOffWithoutPushOffPanics(t *testing.T) {
	withFakeInterruptFlag(t, false)

	defer func() {
		if recover() == nil {
			t.Fatal("expected PopOff without a matching PushOff to panic")
		}
	}()
	PopOff()
}

func TestIntrSpinlockAcquireRelease(t *testing.T) {
	enabled := withFakeInterruptFlag(t, true)

	var l IntrSpinlock
	l.Acquire()
	if *enabled {
		t.Fatal("expected Acquire to disable interrupts")
	}
	if l.inner.TryToAcquire() {
		t.Fatal("expected the underlying spinlock to already be held")
	}

	l.Release()
	if !*enabled {
		t.Fatal("expected Release to restore interrupts")
	}
}

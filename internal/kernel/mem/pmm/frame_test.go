package pmm

import (
	"testing"

	"rv64kernel/internal/kernel/mem/addr"
)

func mockZeroPageFn(t *testing.T) *[]addr.PhysPageNum {
	orig := ZeroPageFn
	t.Cleanup(func() { ZeroPageFn = orig })

	var zeroed []addr.PhysPageNum
	ZeroPageFn = func(ppn addr.PhysPageNum) { zeroed = append(zeroed, ppn) }
	return &zeroed
}

func TestNewFrameTrackerZeroesPage(t *testing.T) {
	zeroed := mockZeroPageFn(t)
	Init(0, 4)

	ft, err := NewFrameTracker()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*zeroed) != 1 || (*zeroed)[0] != ft.PPN {
		t.Fatalf("expected the allocated frame %d to be zeroed, got %v", ft.PPN, *zeroed)
	}
}

func TestFrameTrackerDropReturnsFrame(t *testing.T) {
	mockZeroPageFn(t)
	Init(0, 1)

	ft, err := NewFrameTracker()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft.Drop()

	if _, err := NewFrameTracker(); err != nil {
		t.Fatalf("expected the dropped frame to be available for reuse: %v", err)
	}
}

func TestFrameTrackerDoubleDropPanics(t *testing.T) {
	mockZeroPageFn(t)
	Init(0, 4)

	ft, err := NewFrameTracker()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft.Drop()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a second Drop to panic")
		}
	}()
	ft.Drop()
}

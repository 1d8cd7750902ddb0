package goruntime

import (
	"reflect"
	"testing"
	"unsafe"

	"rv64kernel/internal/kernel"
	"rv64kernel/internal/kernel/mem"
)

func resetHeap(t *testing.T) {
	orig := heapNext
	t.Cleanup(func() { heapNext = orig })
	heapNext = 0
}

func TestSysReserve(t *testing.T) {
	resetHeap(t)
	defer func() { reserveFn = reserve }()
	var reserved bool

	t.Run("success", func(t *testing.T) {
		ptr := sysReserve(nil, uintptr(2*mem.PageSize), &reserved)
		if ptr == nil {
			t.Fatal("sysReserve returned nil")
		}
		if !reserved {
			t.Error("expected reserved to be set to true")
		}
		if heapNext != uintptr(2*mem.PageSize) {
			t.Errorf("expected heapNext to advance by 2 pages, got %d", heapNext)
		}
	})

	t.Run("fail", func(t *testing.T) {
		reserveFn = func(uintptr) (unsafe.Pointer, *kernel.Error) {
			return nil, errHeapExhausted
		}
		defer func() {
			if err := recover(); err == nil {
				t.Fatal("expected sysReserve to panic")
			}
		}()

		sysReserve(nil, 0xf00, &reserved)
	})
}

func TestSysMap(t *testing.T) {
	resetHeap(t)

	t.Run("success", func(t *testing.T) {
		var reserved bool
		ptr := sysReserve(nil, uintptr(3*mem.PageSize), &reserved)

		var sysStat uint64
		mapped := sysMap(ptr, uintptr(3*mem.PageSize), true, &sysStat)
		if mapped != ptr {
			t.Errorf("expected sysMap to return the same pointer it was given, got %v want %v", mapped, ptr)
		}
		if sysStat != uint64(3*mem.PageSize) {
			t.Errorf("expected the stat counter to record 3 pages, got %d", sysStat)
		}
	})

	t.Run("panic if not reserved", func(t *testing.T) {
		defer func() {
			if err := recover(); err == nil {
				t.Fatal("expected sysMap to panic")
			}
		}()

		sysMap(nil, 0, false, nil)
	})
}

func TestSysAlloc(t *testing.T) {
	resetHeap(t)
	defer func() { reserveFn = reserve }()

	t.Run("success", func(t *testing.T) {
		var sysStat uint64
		ptr := sysAlloc(uintptr(4*mem.PageSize), &sysStat)
		if ptr == nil {
			t.Fatal("sysAlloc returned nil")
		}
		if sysStat != uint64(4*mem.PageSize) {
			t.Errorf("expected the stat counter to record 4 pages, got %d", sysStat)
		}
	})

	t.Run("heap exhausted", func(t *testing.T) {
		reserveFn = func(uintptr) (unsafe.Pointer, *kernel.Error) {
			return nil, errHeapExhausted
		}

		var sysStat uint64
		if got := sysAlloc(1, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysAlloc to return 0x0 when the heap is exhausted, got 0x%x", uintptr(got))
		}
	})
}

func TestGetRandomData(t *testing.T) {
	sample1 := make([]byte, 128)
	sample2 := make([]byte, 128)

	getRandomData(sample1)
	getRandomData(sample2)

	if reflect.DeepEqual(sample1, sample2) {
		t.Fatal("expected getRandomData to return different values for each invocation")
	}
}

func TestInit(t *testing.T) {
	defer func() {
		mallocInitFn = mallocInit
		algInitFn = algInit
		modulesInitFn = modulesInit
		typeLinksInitFn = typeLinksInit
		itabsInitFn = itabsInit
	}()

	mallocInitFn = func() {}
	algInitFn = func() {}
	modulesInitFn = func() {}
	typeLinksInitFn = func() {}
	itabsInitFn = func() {}

	if err := Init(); err != nil {
		t.Fatal(err)
	}
}

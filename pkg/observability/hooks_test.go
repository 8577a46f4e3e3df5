package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Placement hooks
	p := NoopPlacementHooks{}
	p.OnSpawn("bitcoin", 3)
	p.OnSettle("id", "bitcoin", 8, 26, false)
	p.OnOverflow("id", "bitcoin")
	p.OnRemove("id", "bitcoin")
	p.OnReorganize(12, 1, time.Millisecond)

	// Store hooks
	s := NoopStoreHooks{}
	s.OnLoad(ctx, "file", 3, 1, nil)
	s.OnSave(ctx, "redis", 3, 512, errors.New("down"))
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Placement().(NoopPlacementHooks); !ok {
		t.Error("Placement() should return NoopPlacementHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}

	// Set custom hooks
	customPlacement := &testPlacementHooks{}
	SetPlacementHooks(customPlacement)
	if Placement() != customPlacement {
		t.Error("SetPlacementHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Placement().(NoopPlacementHooks); !ok {
		t.Error("Reset() should restore NoopPlacementHooks")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Reset() should restore NoopStoreHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPlacementHooks{}
	SetPlacementHooks(custom)
	SetPlacementHooks(nil)
	if Placement() != custom {
		t.Error("SetPlacementHooks(nil) should keep the previous hooks")
	}

	SetStoreHooks(nil)
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("SetStoreHooks(nil) should keep the no-op hooks")
	}
	Reset()
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	h := &testPlacementHooks{}
	SetPlacementHooks(h)

	Placement().OnSpawn("dogecoin", 5)
	Placement().OnSettle("a", "dogecoin", 0, 0, true)

	if h.spawned != 5 {
		t.Errorf("spawned = %d, want 5", h.spawned)
	}
	if h.relocated != 1 {
		t.Errorf("relocated = %d, want 1", h.relocated)
	}
}

type testPlacementHooks struct {
	NoopPlacementHooks
	spawned   int
	relocated int
}

func (h *testPlacementHooks) OnSpawn(_ string, replicas int) { h.spawned += replicas }

func (h *testPlacementHooks) OnSettle(_, _ string, _, _ int, relocated bool) {
	if relocated {
		h.relocated++
	}
}

type testStoreHooks struct {
	NoopStoreHooks
}

type testHooks struct {
	testPlacementHooks
	NoopStoreHooks
	saves int
}

func (h *testHooks) OnSave(context.Context, string, int, int, error) { h.saves++ }

func TestSetHooksFansOut(t *testing.T) {
	Reset()
	defer Reset()

	a, b := &testHooks{}, &testHooks{}
	SetHooks(a, b)

	Placement().OnSpawn("bitcoin", 2)
	Store().OnSave(context.Background(), "file", 1, 10, nil)
	for i, h := range []*testHooks{a, b} {
		if h.spawned != 2 || h.saves != 1 {
			t.Errorf("hook %d: spawned=%d saves=%d, want 2 and 1", i, h.spawned, h.saves)
		}
	}

	SetHooks(a)
	if Placement() != PlacementHooks(a) {
		t.Error("a single hook should be registered directly")
	}

	SetHooks()
	if Placement() != PlacementHooks(a) {
		t.Error("SetHooks() should keep the current hooks")
	}
}

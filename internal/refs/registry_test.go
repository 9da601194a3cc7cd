package refs

import "testing"

func TestAssignMonotonicallyIncreasing(t *testing.T) {
	reg := NewRegistry()
	first := reg.Assign(Identity{BackendNodeID: 1})
	second := reg.Assign(Identity{BackendNodeID: 2})

	if first == second {
		t.Fatalf("expected distinct refs, got %q twice", first)
	}
	if first != "@e1" || second != "@e2" {
		t.Errorf("expected @e1, @e2, got %q, %q", first, second)
	}
}

func TestClearPreservesCounter(t *testing.T) {
	reg := NewRegistry()
	reg.Assign(Identity{BackendNodeID: 1})
	reg.Clear()

	next := reg.Assign(Identity{BackendNodeID: 2})
	if next == "@e1" {
		t.Errorf("Clear must not let the counter reset; got %q after clear", next)
	}
	if next != "@e2" {
		t.Errorf("expected @e2 after one prior assign and a clear, got %q", next)
	}
	if reg.Len() != 1 {
		t.Errorf("expected exactly the post-clear entry, got %d entries", reg.Len())
	}
}

func TestMarkAllStale(t *testing.T) {
	reg := NewRegistry()
	ref := reg.Assign(Identity{BackendNodeID: 1})

	reg.MarkAllStale()

	identity, ok := reg.Get(ref)
	if !ok {
		t.Fatal("ref missing after MarkAllStale")
	}
	if !identity.Stale {
		t.Error("expected identity to be marked stale")
	}
}

func TestFreeRemovesEntry(t *testing.T) {
	reg := NewRegistry()
	ref := reg.Assign(Identity{BackendNodeID: 1})
	reg.Free(ref)

	if _, ok := reg.Get(ref); ok {
		t.Error("expected ref to be gone after Free")
	}
}

func TestResetCounterIsTestOnly(t *testing.T) {
	reg := NewRegistry()
	reg.Assign(Identity{BackendNodeID: 1})
	reg.ResetCounter()

	next := reg.Assign(Identity{BackendNodeID: 2})
	if next != "@e1" {
		t.Errorf("expected counter reset to produce @e1, got %q", next)
	}
}

package storage

import (
	"testing"
	"time"
)

func TestIndexAddAndLookup(t *testing.T) {
	idx := NewIndex()

	id1, created := idx.Add("pump-1", "flow")
	if !created {
		t.Error("Expected first Add to create the series")
	}

	id2, created := idx.Add("pump-1", "flow")
	if created {
		t.Error("Expected second Add to find the existing series")
	}
	if id1 != id2 {
		t.Errorf("Expected stable ID, got %d and %d", id1, id2)
	}

	got, ok := idx.Lookup("pump-1", "flow")
	if !ok || got != id1 {
		t.Errorf("Lookup returned %d/%v, want %d/true", got, ok, id1)
	}

	if _, ok := idx.Lookup("pump-1", "pressure"); ok {
		t.Error("Expected unknown series to miss")
	}
}

func TestIndexInvertedLookups(t *testing.T) {
	idx := NewIndex()
	idx.Add("pump-1", "flow")
	idx.Add("pump-1", "pressure")
	idx.Add("pump-2", "flow")

	if got := len(idx.ByElement("pump-1")); got != 2 {
		t.Errorf("Expected 2 series for pump-1, got %d", got)
	}
	if got := len(idx.ByParameter("flow")); got != 2 {
		t.Errorf("Expected 2 series for flow, got %d", got)
	}
	if got := len(idx.ByElement("pump-3")); got != 0 {
		t.Errorf("Expected no series for pump-3, got %d", got)
	}
}

func TestIndexList(t *testing.T) {
	idx := NewIndex()
	idx.Add("b", "y")
	idx.Add("a", "z")
	idx.Add("a", "x")

	list := idx.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 series, got %d", len(list))
	}
	if list[0].Element != "a" || list[0].Parameter != "x" {
		t.Errorf("Expected sorted output, got %+v", list)
	}
	if idx.Count() != 3 {
		t.Errorf("Expected count 3, got %d", idx.Count())
	}
}

func TestIndexObserveRange(t *testing.T) {
	idx := NewIndex()
	id, _ := idx.Add("pump-1", "flow")

	if _, _, ok := idx.Range(id); ok {
		t.Error("Expected no range before observations")
	}

	t1 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	idx.ObserveRange(id, t1.UnixMilli(), t1.UnixMilli())
	idx.ObserveRange(id, t2.UnixMilli(), t2.UnixMilli())

	minTime, maxTime, ok := idx.Range(id)
	if !ok {
		t.Fatal("Expected range after observations")
	}
	if !minTime.Equal(t1) || !maxTime.Equal(t2) {
		t.Errorf("Range [%v, %v], want [%v, %v]", minTime, maxTime, t1, t2)
	}
}

func TestFingerprintDistinguishesIdentity(t *testing.T) {
	// The NUL separator keeps (ab, c) and (a, bc) apart.
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Error("Expected distinct fingerprints for distinct identities")
	}
	if Fingerprint("pump-1", "flow") != Fingerprint("pump-1", "flow") {
		t.Error("Expected fingerprint to be deterministic")
	}
}

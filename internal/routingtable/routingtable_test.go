package routingtable

import (
	"testing"

	"chorddht/internal/domain"
)

func newTestTable(t *testing.T, bits int) (*RoutingTable, domain.Space, domain.ID) {
	t.Helper()
	space, err := domain.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	id := space.FromUint64(5)
	rt := New(id.Handle(), id, space)
	return rt, space, id
}

func TestInitSingleNode(t *testing.T) {
	rt, _, id := newTestTable(t, 8)
	rt.InitSingleNode()

	succ, ok := rt.GetSuccessor()
	if !ok || succ != id.Handle() {
		t.Fatalf("successor = %v, %v; want self handle", succ, ok)
	}
	pred, ok := rt.GetPredecessor()
	if !ok || pred != id.Handle() {
		t.Fatalf("predecessor = %v, %v; want self handle", pred, ok)
	}
	for i := 0; i < rt.FingerCount(); i++ {
		h, ok := rt.GetFinger(i)
		if !ok || h != id.Handle() {
			t.Fatalf("finger[%d] = %v, %v; want self handle", i, h, ok)
		}
	}
}

func TestSetSuccessorUpdatesFingerZero(t *testing.T) {
	rt, space, _ := newTestTable(t, 8)
	other := space.FromUint64(9).Handle()
	rt.SetSuccessor(other)

	succ, ok := rt.GetSuccessor()
	if !ok || succ != other {
		t.Fatalf("successor = %v, %v; want %v", succ, ok, other)
	}
	f0, ok := rt.GetFinger(0)
	if !ok || f0 != other {
		t.Fatalf("finger[0] = %v, %v; want %v", f0, ok, other)
	}
}

func TestPredecessorClear(t *testing.T) {
	rt, space, _ := newTestTable(t, 8)
	rt.SetPredecessor(space.FromUint64(3).Handle())
	if _, ok := rt.GetPredecessor(); !ok {
		t.Fatalf("expected predecessor to be set")
	}
	rt.ClearPredecessor()
	if _, ok := rt.GetPredecessor(); ok {
		t.Fatalf("expected predecessor to be cleared")
	}
}

func TestFingerStartWraps(t *testing.T) {
	rt, space, id := newTestTable(t, 8)
	for i := 0; i < rt.FingerCount(); i++ {
		want, err := space.FingerStart(id, i)
		if err != nil {
			t.Fatalf("FingerStart: %v", err)
		}
		if got := rt.FingerStart(i); !got.Equal(want) {
			t.Fatalf("finger[%d] start = %s, want %s", i, got, want)
		}
	}
}

func TestLookupCacheEviction(t *testing.T) {
	space, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	cache := NewLookupCache(2)
	id1, id2, id3 := space.FromUint64(1), space.FromUint64(2), space.FromUint64(3)
	h1, h2, h3 := id1.Handle(), id2.Handle(), id3.Handle()

	cache.Put(id1, h1)
	cache.Put(id2, h2)
	cache.Put(id3, h3) // evicts id1, the least recently used

	if _, ok := cache.Get(id1); ok {
		t.Fatalf("expected id1 to be evicted")
	}
	if h, ok := cache.Get(id2); !ok || h != h2 {
		t.Fatalf("id2 lookup = %v, %v; want %v, true", h, ok, h2)
	}
	if h, ok := cache.Get(id3); !ok || h != h3 {
		t.Fatalf("id3 lookup = %v, %v; want %v, true", h, ok, h3)
	}
}

func TestLookupCacheDisabled(t *testing.T) {
	space, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	cache := NewLookupCache(0)
	id := space.FromUint64(1)
	cache.Put(id, id.Handle())
	if _, ok := cache.Get(id); ok {
		t.Fatalf("expected disabled cache to never report a hit")
	}
}

func TestLookupCacheInvalidate(t *testing.T) {
	space, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	cache := NewLookupCache(4)
	id := space.FromUint64(1)
	h := id.Handle()
	cache.Put(id, h)
	cache.Invalidate(h)
	if _, ok := cache.Get(id); ok {
		t.Fatalf("expected entry to be invalidated")
	}
}

package chordnode

import (
	"context"
	"testing"

	"chorddht/internal/domain"
)

// stubResolver is a minimal in-memory Resolver used to unit-test Node
// methods without pulling in the network package.
type stubResolver struct {
	nodes map[domain.Handle]*Node
}

func newStubResolver() *stubResolver {
	return &stubResolver{nodes: make(map[domain.Handle]*Node)}
}

func (r *stubResolver) Resolve(h domain.Handle) (*Node, bool) {
	n, ok := r.nodes[h]
	return n, ok
}

func (r *stubResolver) add(n *Node) { r.nodes[n.Handle()] = n }

func TestSingleNodeFindSuccessorReturnsSelf(t *testing.T) {
	space, err := domain.NewSpace(4)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	resolver := newStubResolver()
	n := New(space.FromUint64(5), space, resolver)
	resolver.add(n)
	n.InitSingleNode()

	for _, target := range []uint64{0, 5, 9, 15} {
		got, err := n.FindSuccessor(context.Background(), space.FromUint64(target))
		if err != nil {
			t.Fatalf("FindSuccessor(%d): %v", target, err)
		}
		if got != n.Handle() {
			t.Errorf("FindSuccessor(%d) = %v, want self", target, got)
		}
	}
}

func TestClosestPrecedingFinger(t *testing.T) {
	space, err := domain.NewSpace(4)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	resolver := newStubResolver()
	self := New(space.FromUint64(0), space, resolver)
	resolver.add(self)
	peer := New(space.FromUint64(6), space, resolver)
	resolver.add(peer)
	peer.InitSingleNode()

	self.RoutingTable().SetSuccessor(peer.Handle())
	for i := 1; i < self.RoutingTable().FingerCount(); i++ {
		self.RoutingTable().SetFinger(i, peer.Handle())
	}

	got := self.closestPrecedingFinger(space.FromUint64(10))
	if got != peer.Handle() {
		t.Errorf("closestPrecedingFinger(10) = %v, want %v", got, peer.Handle())
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	space, err := domain.NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	resolver := newStubResolver()
	n := New(space.FromUint64(1), space, resolver)
	resolver.add(n)
	n.InitSingleNode()

	if err := n.Put(context.Background(), "alpha", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := n.Get(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "one" {
		t.Fatalf("Get = %q, want \"one\"", got)
	}
}

package chordnode

import (
	"context"
	"testing"
	"time"

	"chorddht/internal/domain"
)

// ring3 builds a fully-wired 3-node ring (0, 6, 12 in a 4-bit space) without
// going through Join/Stabilize, so tests can drive the maintenance
// primitives directly and deterministically.
func ring3(t *testing.T) (space domain.Space, resolver *stubResolver, a, b, c *Node) {
	t.Helper()
	space, err := domain.NewSpace(4)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	resolver = newStubResolver()
	a = New(space.FromUint64(0), space, resolver)
	b = New(space.FromUint64(6), space, resolver)
	c = New(space.FromUint64(12), space, resolver)
	resolver.add(a)
	resolver.add(b)
	resolver.add(c)

	a.RoutingTable().SetSuccessor(b.Handle())
	a.RoutingTable().SetPredecessor(c.Handle())
	a.RoutingTable().SetBackup(c.Handle())

	b.RoutingTable().SetSuccessor(c.Handle())
	b.RoutingTable().SetPredecessor(a.Handle())
	b.RoutingTable().SetBackup(a.Handle())

	c.RoutingTable().SetSuccessor(a.Handle())
	c.RoutingTable().SetPredecessor(b.Handle())
	c.RoutingTable().SetBackup(b.Handle())

	return space, resolver, a, b, c
}

// A node whose successor vanishes ungracefully must be recovered two ways:
// the successor's successor restores routing continuity (recoverSuccessor
// via the backup handle), and the data the dead node last pushed to its own
// successor is merged in by the node that notices its predecessor is gone
// (checkPredecessor -> recoverFromBackup).
func TestUngracefulDepartureRecovery(t *testing.T) {
	space, resolver, a, b, c := ring3(t)

	// b owns a key in (a.id, b.id] = (0, 6].
	key := space.FromUint64(3)
	res := domain.Resource{Key: key, RawKey: "k", Value: []byte("payload")}
	b.StoreLocal(res)

	// b pushes its storage snapshot to its successor, c, as the periodic
	// maintenance loop would.
	b.pushBackup(context.Background())

	// b crashes: it's simply gone from the arena, no Leave call.
	delete(resolver.nodes, b.Handle())

	// a notices its successor (b) is unreachable and falls back to its
	// recorded backup handle (c), re-closing the ring around the gap.
	if err := a.Stabilize(context.Background()); err != nil {
		t.Fatalf("Stabilize after successor crash: %v", err)
	}
	if succ, ok := a.RoutingTable().GetSuccessor(); !ok || succ != c.Handle() {
		t.Fatalf("a's successor = %v, %v; want c (recovered via backup)", succ, ok)
	}

	// c notices its predecessor (b) is unreachable and recovers the data b
	// had pushed to it just before crashing.
	c.checkPredecessor(context.Background(), time.Second)
	if _, ok := c.RoutingTable().GetPredecessor(); ok {
		t.Fatalf("c's predecessor should be cleared after the dead-predecessor check")
	}
	got, err := c.RetrieveLocal(key)
	if err != nil {
		t.Fatalf("expected b's backed-up key to have been recovered onto c: %v", err)
	}
	if string(got.Value) != "payload" {
		t.Fatalf("recovered value = %q, want %q", got.Value, "payload")
	}
}

// checkPredecessor must not disturb a live predecessor pointer.
func TestCheckPredecessorLeavesLivePredecessorAlone(t *testing.T) {
	_, _, _, b, c := ring3(t)

	c.checkPredecessor(context.Background(), time.Second)

	pred, ok := c.RoutingTable().GetPredecessor()
	if !ok || pred != b.Handle() {
		t.Fatalf("c's predecessor changed from a live peer: %v, %v", pred, ok)
	}
}

// SendHeartbeat must advance the liveness timestamp exposed through
// Metrics.
func TestSendHeartbeatUpdatesLastHeartbeat(t *testing.T) {
	_, _, a, _, _ := ring3(t)

	before := a.Metrics().Snapshot().LastHeartbeat
	if err := a.SendHeartbeat(context.Background()); err != nil {
		t.Fatalf("SendHeartbeat: %v", err)
	}
	after := a.Metrics().Snapshot().LastHeartbeat

	if !after.After(before) {
		t.Fatalf("last_heartbeat did not advance: before=%v after=%v", before, after)
	}
}

// Package network implements the Network supervisor: the arena that owns
// every live node, the entry point for inserting and removing ring
// members, and the put/get/health-check operations that route through
// whichever node is reachable.
package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"chorddht/internal/bootstrap"
	"chorddht/internal/chordnode"
	"chorddht/internal/codec"
	"chorddht/internal/domain"
	"chorddht/internal/logger"
)

// Network is the supervisor that owns the arena of live nodes and exposes
// the DHT's external operations. It never exposes a node pointer outside
// its own package boundary except through the Resolver interface nodes use
// to reach each other.
type Network struct {
	mu    sync.RWMutex
	space domain.Space
	arena map[domain.Handle]*chordnode.Node
	order []domain.Handle // insertion order, used to pick an arbitrary live entry point

	logger        logger.Logger
	codec         codec.Codec
	cacheCapacity int
	maintenance   chordnode.MaintenanceConfig
	bootstrap     bootstrap.Source

	cancelFns map[domain.Handle]context.CancelFunc
}

// Create builds a Network by seeding the first of initialIDs as a lone
// ring and then sequentially joining every remaining id through it,
// matching spec.md's create(m, initial_ids) contract. It validates every
// id up front: ids must be distinct, in range for space, and initialIDs
// must be non-empty; the seed-then-join sequence only starts once that
// validation passes.
func Create(ctx context.Context, space domain.Space, initialIDs []domain.ID, opts ...Option) (*Network, error) {
	if len(initialIDs) == 0 {
		return nil, ErrEmptyNetwork
	}
	seen := make(map[domain.Handle]struct{}, len(initialIDs))
	for _, id := range initialIDs {
		if err := space.IsValidID(id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNodeID, err)
		}
		h := id.Handle()
		if _, dup := seen[h]; dup {
			return nil, ErrDuplicateNodeID
		}
		seen[h] = struct{}{}
	}

	net := New(space, opts...)
	for _, id := range initialIDs {
		if _, err := net.InsertNodeWithID(ctx, id); err != nil {
			net.Cleanup()
			return nil, err
		}
	}
	return net, nil
}

// New creates an empty Network for a ring of the given identifier space.
func New(space domain.Space, opts ...Option) *Network {
	net := &Network{
		space:     space,
		arena:     make(map[domain.Handle]*chordnode.Node),
		logger:    &logger.NopLogger{},
		codec:     codec.Identity{},
		bootstrap: bootstrap.NewStatic(nil),
		cancelFns: make(map[domain.Handle]context.CancelFunc),
		maintenance: chordnode.MaintenanceConfig{
			StabilizeInterval:  time.Second,
			FixFingersInterval: time.Second,
			BackupInterval:     2 * time.Second,
			FailureTimeout:     500 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(net)
	}
	return net
}

// Resolve implements chordnode.Resolver.
func (net *Network) Resolve(h domain.Handle) (*chordnode.Node, bool) {
	net.mu.RLock()
	defer net.mu.RUnlock()
	n, ok := net.arena[h]
	return n, ok
}

func (net *Network) ringCapacity() (uint64, bool) {
	if net.space.Bits >= 63 {
		return 0, false
	}
	return uint64(1) << uint(net.space.Bits), true
}

// InsertNode creates a new node with the given raw identifier input
// (hashed into the ring's identifier space) and joins it to the ring
// through the entry point chosen by pickEntryPoint; with no entry point it
// starts a new ring. It returns the new node's handle.
func (net *Network) InsertNode(ctx context.Context, rawID string, opts ...chordnode.Option) (domain.Handle, error) {
	id := net.space.Hash([]byte(rawID))
	return net.insertNodeWithID(ctx, id, opts...)
}

// InsertNodeWithID is like InsertNode but takes an already-computed
// identifier, for callers (and tests) that need deterministic placement.
func (net *Network) InsertNodeWithID(ctx context.Context, id domain.ID, opts ...chordnode.Option) (domain.Handle, error) {
	return net.insertNodeWithID(ctx, id, opts...)
}

func (net *Network) insertNodeWithID(ctx context.Context, id domain.ID, opts ...chordnode.Option) (domain.Handle, error) {
	if err := net.space.IsValidID(id); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidNodeID, err)
	}
	handle := id.Handle()

	net.mu.Lock()
	if _, exists := net.arena[handle]; exists {
		net.mu.Unlock()
		return "", ErrDuplicateNodeID
	}
	if capacity, bounded := net.ringCapacity(); bounded && uint64(len(net.arena)) >= capacity {
		net.mu.Unlock()
		return "", ErrRingFull
	}
	nodeOpts := append([]chordnode.Option{
		chordnode.WithLogger(net.logger),
		chordnode.WithCodec(net.codec),
		chordnode.WithCache(net.cacheCapacity),
	}, opts...)
	n := chordnode.New(id, net.space, net, nodeOpts...)
	net.arena[handle] = n
	net.order = append(net.order, handle)
	net.mu.Unlock()

	introducer := net.pickEntryPoint(ctx, handle)
	if err := n.Join(ctx, introducer); err != nil {
		net.mu.Lock()
		delete(net.arena, handle)
		net.removeFromOrder(handle)
		net.mu.Unlock()
		return "", fmt.Errorf("network: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	net.mu.Lock()
	net.cancelFns[handle] = cancel
	net.mu.Unlock()
	go n.StartMaintenance(runCtx, net.maintenance)

	net.logger.Info("node inserted", logger.FHandle("handle", handle))
	return handle, nil
}

// pickEntryPoint returns a live node other than exclude to introduce a
// joining node through: the first one in insertion order. Only when there
// is none does it consult the bootstrap source, and a discovered id is
// accepted only if it names a live node in the arena; otherwise it returns
// nil.
func (net *Network) pickEntryPoint(ctx context.Context, exclude domain.Handle) *chordnode.Node {
	net.mu.RLock()
	for _, h := range net.order {
		if h == exclude {
			continue
		}
		if n, ok := net.arena[h]; ok {
			net.mu.RUnlock()
			return n
		}
	}
	net.mu.RUnlock()

	if net.bootstrap == nil {
		return nil
	}
	ids, err := net.bootstrap.Discover(ctx)
	if err != nil {
		return nil
	}
	net.mu.RLock()
	defer net.mu.RUnlock()
	for _, raw := range ids {
		if bootID, err := net.space.FromHexString(raw); err == nil {
			if n, ok := net.arena[bootID.Handle()]; ok && bootID.Handle() != exclude {
				return n
			}
		}
	}
	return nil
}

func (net *Network) removeFromOrder(h domain.Handle) {
	for i, oh := range net.order {
		if oh == h {
			net.order = append(net.order[:i], net.order[i+1:]...)
			return
		}
	}
}

// DeleteNode removes a node from the ring, first asking it to leave
// gracefully (handing its data to its successor) before evicting it from
// the arena. It fails if the node is unknown or is the last remaining
// node in the ring (deleting it would leave no one to hold its data).
func (net *Network) DeleteNode(ctx context.Context, handle domain.Handle) error {
	net.mu.Lock()
	n, ok := net.arena[handle]
	if !ok {
		net.mu.Unlock()
		return ErrNodeNotFound
	}
	if len(net.arena) == 1 {
		net.mu.Unlock()
		return ErrEmptyNetwork
	}
	cancel := net.cancelFns[handle]
	net.mu.Unlock()

	if err := n.Leave(ctx); err != nil {
		net.logger.Warn("graceful leave failed", logger.FHandle("handle", handle), logger.F("err", err.Error()))
	}

	if cancel != nil {
		cancel()
	}
	net.mu.Lock()
	delete(net.arena, handle)
	delete(net.cancelFns, handle)
	net.removeFromOrder(handle)
	net.mu.Unlock()
	net.logger.Info("node removed", logger.FHandle("handle", handle))
	return nil
}

// anyLiveNode returns an arbitrary live node to issue a routed operation
// through, or ErrEmptyNetwork if the ring has none.
func (net *Network) anyLiveNode() (*chordnode.Node, error) {
	net.mu.RLock()
	defer net.mu.RUnlock()
	for _, h := range net.order {
		if n, ok := net.arena[h]; ok {
			return n, nil
		}
	}
	return nil, ErrEmptyNetwork
}

// Put stores value under rawKey, retrying a bounded number of times if
// routing fails transiently (e.g. mid-stabilization), per the retry policy
// in SPEC_FULL.md §4.4.
func (net *Network) Put(ctx context.Context, rawKey string, value []byte) error {
	entry, err := net.anyLiveNode()
	if err != nil {
		return err
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		putErr := entry.Put(ctx, rawKey, value)
		if putErr != nil && putErr != chordnode.ErrRoutingFailure {
			return struct{}{}, backoff.Permanent(putErr)
		}
		return struct{}{}, putErr
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoutingFailure, err)
	}
	return nil
}

// Get retrieves the value stored under rawKey.
func (net *Network) Get(ctx context.Context, rawKey string) ([]byte, error) {
	entry, err := net.anyLiveNode()
	if err != nil {
		return nil, err
	}
	value, err := backoff.Retry(ctx, func() ([]byte, error) {
		v, getErr := entry.Get(ctx, rawKey)
		if getErr == domain.ErrResourceNotFound {
			return nil, backoff.Permanent(getErr)
		}
		if getErr != nil && getErr != chordnode.ErrRoutingFailure {
			return nil, backoff.Permanent(getErr)
		}
		return v, getErr
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRoutingFailure, err)
	}
	return value, nil
}

// NodeReport is one node's reported routing state and counters, as
// returned by Introspect. It is a pure read-only snapshot; producing it
// never mutates routing state.
type NodeReport struct {
	Handle      domain.Handle
	ID          domain.ID
	Successor   domain.Handle
	Predecessor domain.Handle
	FingerCount int
	StoredKeys  int
	Metrics     chordnode.Snapshot
}

// Introspect returns a snapshot of every live node's routing pointers,
// finger count, stored-key count, and counters.
func (net *Network) Introspect() []NodeReport {
	net.mu.RLock()
	defer net.mu.RUnlock()
	out := make([]NodeReport, 0, len(net.order))
	for _, h := range net.order {
		n, ok := net.arena[h]
		if !ok {
			continue
		}
		succ, _ := n.RoutingTable().GetSuccessor()
		pred, _ := n.RoutingTable().GetPredecessor()
		out = append(out, NodeReport{
			Handle:      h,
			ID:          n.ID(),
			Successor:   succ,
			Predecessor: pred,
			FingerCount: n.RoutingTable().FingerCount(),
			StoredKeys:  len(n.LocalResources()),
			Metrics:     n.Metrics().Snapshot(),
		})
	}
	return out
}

// HealthCheck evaluates the ring-wide invariants the original
// implementation's check_network_health reports as a dict of named
// booleans: every node's successor is live and points back via
// predecessor, finger[0] equals the successor, no key is owned by more
// than one node, and every node's stored keys satisfy the ownership
// predicate (key.Between(predecessor.ID, node.ID)). It is a pure
// observer: evaluating it never mutates routing state.
func (net *Network) HealthCheck() map[string]bool {
	net.mu.RLock()
	defer net.mu.RUnlock()

	successorsConsistent := true
	fingerZeroMatchesSuccessor := true
	noDuplicateOwnership := true
	keysSatisfyOwnership := true

	owners := make(map[string]int)

	for _, h := range net.order {
		n, ok := net.arena[h]
		if !ok {
			continue
		}

		succ, succOK := n.RoutingTable().GetSuccessor()
		succNode, succLive := net.arena[succ]
		switch {
		case !succOK, !succLive:
			successorsConsistent = false
		default:
			if pred, ok := succNode.RoutingTable().GetPredecessor(); !ok || pred != h {
				successorsConsistent = false
			}
		}

		if f0, ok := n.RoutingTable().GetFinger(0); !ok || !succOK || f0 != succ {
			fingerZeroMatchesSuccessor = false
		}

		pred, predOK := n.RoutingTable().GetPredecessor()
		var predNode *chordnode.Node
		if predOK {
			predNode, predOK = net.arena[pred]
		}
		for _, res := range n.LocalResources() {
			owners[res.Key.String()]++
			if !predOK || !res.Key.Between(predNode.ID(), n.ID()) {
				keysSatisfyOwnership = false
			}
		}
	}

	for _, count := range owners {
		if count > 1 {
			noDuplicateOwnership = false
		}
	}

	return map[string]bool{
		"successors_consistent":         successorsConsistent,
		"finger_zero_matches_successor": fingerZeroMatchesSuccessor,
		"no_duplicate_ownership":        noDuplicateOwnership,
		"keys_satisfy_ownership":        keysSatisfyOwnership,
	}
}

// Size returns the number of nodes currently in the ring.
func (net *Network) Size() int {
	net.mu.RLock()
	defer net.mu.RUnlock()
	return len(net.arena)
}

// Cleanup shuts down every node's maintenance loop and empties the arena,
// used when tearing down a Network instance (e.g. at the end of a test).
func (net *Network) Cleanup() {
	net.mu.Lock()
	defer net.mu.Unlock()
	for _, cancel := range net.cancelFns {
		cancel()
	}
	net.arena = make(map[domain.Handle]*chordnode.Node)
	net.order = nil
	net.cancelFns = make(map[domain.Handle]context.CancelFunc)
}

// Quiesce runs `rounds` maintenance passes (stabilize + fix-fingers)
// synchronously across every live node, in insertion order; backup pushes
// are not run. Tests and cmd/chordsim use it to reach the routing fixed
// point the background tickers converge to, without depending on
// wall-clock timing.
func (net *Network) Quiesce(ctx context.Context, rounds int) {
	for r := 0; r < rounds; r++ {
		net.mu.RLock()
		handles := append([]domain.Handle(nil), net.order...)
		net.mu.RUnlock()
		for _, h := range handles {
			n, ok := net.Resolve(h)
			if !ok {
				continue
			}
			_ = n.Stabilize(ctx)
			_ = n.FixFingers(ctx, n.RoutingTable().FingerCount())
		}
	}
}

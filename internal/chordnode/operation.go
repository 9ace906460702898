package chordnode

import (
	"context"
	"fmt"
	"time"

	"chorddht/internal/domain"
	"chorddht/internal/logger"
	"chorddht/internal/telemetry/lookuptrace"
)

// ErrRoutingFailure is returned when a lookup cannot make progress because
// every candidate hop was unreachable or the configured hop budget was
// exhausted.
var ErrRoutingFailure = fmt.Errorf("chordnode: routing failure")

const maxLookupHops = 64

// FindSuccessor returns the handle of the node responsible for id: the
// first node whose identifier lies in (predecessor.id, node.id] walking
// clockwise from id.
func (n *Node) FindSuccessor(ctx context.Context, id domain.ID) (domain.Handle, error) {
	n.metrics.recordLookupAttempt()

	if h, ok := n.cache.Get(id); ok {
		if candidate, live := n.resolve(h); live {
			if pred, ok := candidate.rt.GetPredecessor(); ok {
				predNode, predLive := n.resolve(pred)
				if predLive && id.Between(predNode.id, candidate.id) {
					n.metrics.recordCacheHit()
					n.metrics.recordLookupSuccess(0)
					return h, nil
				}
			}
		}
		n.cache.Invalidate(h)
	}
	n.metrics.recordCacheMiss()

	h, hops, err := n.findSuccessorHops(ctx, id, 0)
	if err != nil {
		n.metrics.recordLookupFailure()
		return "", err
	}
	n.metrics.recordLookupSuccess(hops)
	n.cache.Put(id, h)
	return h, nil
}

func (n *Node) findSuccessorHops(ctx context.Context, id domain.ID, hops int) (domain.Handle, int, error) {
	ctx, endSpan := lookuptrace.StartHop(ctx, n.handle, id, hops)
	defer endSpan()

	if err := ctx.Err(); err != nil {
		return "", hops, fmt.Errorf("chordnode: %w", err)
	}
	if hops > maxLookupHops {
		return "", hops, ErrRoutingFailure
	}

	succ, ok := n.rt.GetSuccessor()
	succNode, succLive := (*Node)(nil), false
	if ok {
		succNode, succLive = n.resolve(succ)
	}
	if ok && succLive && id.Between(n.id, succNode.id) {
		return succ, hops + 1, nil
	}

	// The successor either isn't responsible for id or is unreachable.
	// Try progressively lower fingers before giving up on it entirely;
	// closestPrecedingFinger already walks from the highest finger down,
	// skipping any stale (dead) entries along the way.
	next := n.closestPrecedingFinger(id)
	if next != n.handle {
		if nextNode, live := n.resolve(next); live {
			return nextNode.findSuccessorHops(ctx, id, hops+1)
		}
	}

	// No finger made progress: fall back to the direct successor even
	// though it wasn't confirmed responsible above, matching the
	// "finally falls back to the direct successor" rule.
	if ok && succLive {
		return succ, hops + 1, nil
	}
	return "", hops, ErrRoutingFailure
}

// closestPrecedingFinger returns the handle of the highest finger that
// precedes id, or self if none does.
func (n *Node) closestPrecedingFinger(id domain.ID) domain.Handle {
	for i := n.rt.FingerCount() - 1; i >= 0; i-- {
		h, ok := n.rt.GetFinger(i)
		if !ok {
			continue
		}
		candidate, live := n.resolve(h)
		if !live {
			continue
		}
		if candidate.id.BetweenOpen(n.id, id) {
			return h
		}
	}
	return n.handle
}

// Join attaches this node to the ring reachable through introducer,
// locating its successor and leaving predecessor unset until the next
// Notify call fills it in (standard Chord join semantics).
func (n *Node) Join(ctx context.Context, introducer *Node) error {
	if introducer == nil {
		n.InitSingleNode()
		return nil
	}
	succ, err := introducer.FindSuccessor(ctx, n.id)
	if err != nil {
		return fmt.Errorf("chordnode: join: %w", err)
	}
	n.rt.SetSuccessor(succ)
	n.rt.ClearPredecessor()
	n.logger.Info("joined ring", logger.FHandle("successor", succ))

	// Run an immediate stabilize/notify pass so the new node is reachable
	// through its successor's predecessor link right away rather than
	// waiting a full maintenance tick.
	if err := n.Stabilize(ctx); err != nil {
		n.logger.Warn("post-join stabilize failed", logger.F("err", err.Error()))
	}
	if err := n.FixFingers(ctx, n.rt.FingerCount()); err != nil {
		n.logger.Warn("post-join fix-fingers failed", logger.F("err", err.Error()))
	}
	return nil
}

// Notify is invoked by a node that believes it may be our predecessor. If
// it is accepted, every locally stored resource whose key no longer falls
// in (candidate.id, self.id] is hand carried over to the candidate — this
// is the data-migration step of the join protocol, folded into notify
// because the set of keys a new predecessor should own is exactly the set
// notify already has to reason about.
func (n *Node) Notify(ctx context.Context, candidate domain.Handle, candidateID domain.ID) {
	pred, havePred := n.rt.GetPredecessor()
	accept := !havePred
	if havePred {
		predNode, live := n.resolve(pred)
		accept = !live || candidateID.BetweenOpen(predNode.id, n.id)
	}
	if !accept {
		return
	}
	n.rt.SetPredecessor(candidate)
	n.logger.Debug("predecessor notified", logger.FHandle("candidate", candidate))

	candidateNode, live := n.resolve(candidate)
	if !live {
		return
	}
	for _, res := range n.store.All() {
		if !res.Key.BetweenOpen(candidateID, n.id) && !res.Key.Equal(n.id) {
			candidateNode.StoreLocal(res)
			n.RemoveLocal(res.Key)
		}
	}
}

// Stabilize is the periodic check that keeps the successor pointer
// converging toward its true value: ask the successor who it thinks its
// predecessor is, adopt that node if it lies strictly between us and our
// current successor, then notify whichever node ends up as our successor.
func (n *Node) Stabilize(ctx context.Context) error {
	n.metrics.recordStabilize()
	succ, ok := n.rt.GetSuccessor()
	if !ok {
		return nil
	}
	succNode, live := n.resolve(succ)
	if !live {
		return n.recoverSuccessor(ctx)
	}

	if pred, ok := succNode.rt.GetPredecessor(); ok {
		predNode, live := n.resolve(pred)
		if live && predNode.id.BetweenOpen(n.id, succNode.id) {
			n.rt.SetSuccessor(pred)
			succ = pred
			succNode = predNode
		}
	}
	succNode.Notify(ctx, n.handle, n.id)
	return nil
}

// recoverSuccessor is invoked when the current successor is unreachable.
// It falls back to the backup handle recorded by the last successful
// pushBackup, matching the spec's single-successor backup
// policy (no full successor-list replication).
func (n *Node) recoverSuccessor(ctx context.Context) error {
	backupHandle, ok := n.rt.GetBackup()
	if !ok {
		return ErrRoutingFailure
	}
	if _, live := n.resolve(backupHandle); !live {
		return ErrRoutingFailure
	}
	n.rt.SetSuccessor(backupHandle)
	n.cache.Invalidate(n.handle)
	n.logger.Warn("successor unreachable, fell back to backup", logger.FHandle("backup", backupHandle))
	return nil
}

// FixFingers refreshes up to count finger entries, starting right after
// finger 0 (the successor, already kept current by Stabilize).
func (n *Node) FixFingers(ctx context.Context, count int) error {
	n.metrics.recordFixFingers()
	m := n.rt.FingerCount()
	if count <= 0 || count > m {
		count = m
	}
	var firstErr error
	for i := 1; i < count; i++ {
		start := n.rt.FingerStart(i)
		h, err := n.FindSuccessor(ctx, start)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		n.rt.SetFinger(i, h)
	}
	return firstErr
}

// Leave performs a graceful departure: hand every locally stored resource
// to the successor, link predecessor and successor directly to each
// other, and stop participating in routing. Callers must remove the node
// from the Network arena afterward.
func (n *Node) Leave(ctx context.Context) error {
	succ, hasSucc := n.rt.GetSuccessor()
	pred, hasPred := n.rt.GetPredecessor()

	if hasSucc && succ != n.handle {
		if succNode, live := n.resolve(succ); live {
			for _, res := range n.store.All() {
				succNode.StoreLocal(res)
			}
			if hasPred {
				succNode.rt.SetPredecessor(pred)
			} else {
				succNode.rt.ClearPredecessor()
			}
		}
	}
	if hasPred && pred != n.handle {
		if predNode, live := n.resolve(pred); live {
			if hasSucc {
				predNode.rt.SetSuccessor(succ)
			}
		}
	}
	n.logger.Info("left ring gracefully")
	return nil
}

// Put stores value under the identifier derived from rawKey, migrating to
// whichever node the ring currently says owns that identifier.
func (n *Node) Put(ctx context.Context, rawKey string, value []byte) error {
	key := n.space.Hash([]byte(rawKey))
	owner, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return err
	}
	encoded, err := n.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("chordnode: encoding value: %w", err)
	}
	res := domain.Resource{Key: key, RawKey: rawKey, Value: encoded}
	if owner == n.handle {
		n.StoreLocal(res)
		n.metrics.recordPut()
		return nil
	}
	ownerNode, live := n.resolve(owner)
	if !live {
		return ErrRoutingFailure
	}
	ownerNode.StoreLocal(res)
	n.metrics.recordPut()
	return nil
}

// Get retrieves and decodes the value stored under rawKey.
func (n *Node) Get(ctx context.Context, rawKey string) ([]byte, error) {
	key := n.space.Hash([]byte(rawKey))
	owner, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return nil, err
	}
	var res domain.Resource
	if owner == n.handle {
		res, err = n.RetrieveLocal(key)
	} else {
		ownerNode, live := n.resolve(owner)
		if !live {
			return nil, ErrRoutingFailure
		}
		res, err = ownerNode.RetrieveLocal(key)
	}
	if err != nil {
		return nil, err
	}
	n.metrics.recordGet()
	return n.codec.Decode(res.Value)
}

// StoreLocal saves resource directly in this node's storage, bypassing
// routing. Used for handoffs between nodes that have already agreed on
// ownership (notify, leave, put once the owner is known).
func (n *Node) StoreLocal(res domain.Resource) {
	n.store.Put(res)
}

// RetrieveLocal reads a resource directly from this node's storage.
func (n *Node) RetrieveLocal(key domain.ID) (domain.Resource, error) {
	return n.store.Get(key)
}

// RemoveLocal deletes a resource directly from this node's storage.
func (n *Node) RemoveLocal(key domain.ID) error {
	return n.store.Delete(key)
}

// SendHeartbeat is a liveness probe a caller uses to check whether this
// node is still responsive; checkPredecessor issues it against the
// current predecessor on every maintenance tick. A successful probe
// updates the node's last-heartbeat timestamp, exposed via Metrics.
func (n *Node) SendHeartbeat(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.metrics.recordHeartbeat(time.Now())
	return nil
}

package chordnode

import (
	"context"
	"sync"
	"time"

	"chorddht/internal/domain"
	"chorddht/internal/logger"
)

// MaintenanceConfig controls the cadence of a node's background
// maintenance loops.
type MaintenanceConfig struct {
	StabilizeInterval  time.Duration
	FixFingersInterval time.Duration
	BackupInterval     time.Duration
	FailureTimeout     time.Duration
}

// StartMaintenance launches the three periodic routines the routing
// protocol depends on: stabilize, fix-fingers, and backup-to-successor,
// plus a predecessor liveness check. A routine whose interval is zero or
// negative is not started. It returns once ctx is canceled, or at once if
// every interval is zero or negative.
func (n *Node) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	var wg sync.WaitGroup
	wg.Add(3)

	go n.runTicker(ctx, &wg, cfg.StabilizeInterval, func(tickCtx context.Context) {
		if err := n.Stabilize(tickCtx); err != nil {
			n.logger.Warn("stabilize failed", logger.F("err", err.Error()))
		}
		n.checkPredecessor(tickCtx, cfg.FailureTimeout)
	})

	fingerNext := 1
	go n.runTicker(ctx, &wg, cfg.FixFingersInterval, func(tickCtx context.Context) {
		m := n.rt.FingerCount()
		if m <= 1 {
			return
		}
		start := n.rt.FingerStart(fingerNext)
		if h, err := n.FindSuccessor(tickCtx, start); err == nil {
			n.rt.SetFinger(fingerNext, h)
		}
		fingerNext = (fingerNext % (m - 1)) + 1
	})

	go n.runTicker(ctx, &wg, cfg.BackupInterval, func(tickCtx context.Context) {
		n.pushBackup(tickCtx)
	})

	wg.Wait()
}

func (n *Node) runTicker(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, tick func(context.Context)) {
	defer wg.Done()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// pushBackup sends a snapshot of this node's storage to its successor, so
// the successor can serve those keys if this node disappears before a
// proper stabilize/notify handoff can run.
func (n *Node) pushBackup(ctx context.Context) {
	succ, ok := n.rt.GetSuccessor()
	if !ok || succ == n.handle {
		return
	}
	succNode, live := n.resolve(succ)
	if !live {
		return
	}
	succNode.receiveBackup(n.handle, n.id, n.store.All())

	// Also refresh the routing-fallback handle: the successor's own
	// successor, used by recoverSuccessor if succ itself goes dark.
	if nextSucc, ok := succNode.rt.GetSuccessor(); ok && nextSucc != n.handle {
		n.rt.SetBackup(nextSucc)
	}
	n.metrics.recordBackup()
}

// receiveBackup stores the pushed snapshot from a predecessor, replacing
// whatever was held before.
func (n *Node) receiveBackup(fromHandle domain.Handle, fromID domain.ID, resources []domain.Resource) {
	n.backup.mu.Lock()
	defer n.backup.mu.Unlock()
	n.backup.predHandle = fromHandle
	n.backup.predID = fromID
	n.backup.resources = resources
}

// checkPredecessor probes the current predecessor's liveness and, if it
// is unreachable, clears the pointer and recovers its backed-up data.
func (n *Node) checkPredecessor(ctx context.Context, timeout time.Duration) {
	pred, ok := n.rt.GetPredecessor()
	if !ok {
		return
	}
	predNode, live := n.resolve(pred)
	if live {
		probeCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			probeCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := predNode.SendHeartbeat(probeCtx); err == nil {
			return
		}
	}
	n.rt.ClearPredecessor()
	n.logger.Warn("predecessor unreachable, cleared", logger.FHandle("predecessor", pred))
	n.recoverFromBackup(pred)
}

// recoverFromBackup merges the data a dead predecessor had pushed to this
// node's backup slot into local storage, if the backup slot was indeed
// populated by that predecessor.
func (n *Node) recoverFromBackup(dead domain.Handle) {
	n.backup.mu.Lock()
	defer n.backup.mu.Unlock()
	if n.backup.predHandle != dead || len(n.backup.resources) == 0 {
		return
	}
	for _, res := range n.backup.resources {
		n.store.Put(res)
	}
	n.logger.Info("recovered backed-up data from dead predecessor",
		logger.FHandle("dead", dead), logger.F("count", len(n.backup.resources)))
	n.metrics.recordRecovery()
	n.backup.resources = nil
}

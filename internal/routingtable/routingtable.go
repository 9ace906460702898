// Package routingtable holds the per-node Chord routing state: the
// predecessor pointer, the successor pointer with its single backup, and
// the m-entry finger table used to route lookups in O(log n) hops.
package routingtable

import (
	"fmt"
	"sync"

	"chorddht/internal/domain"
	"chorddht/internal/logger"
)

// handleEntry holds a single Handle-valued routing pointer behind its own
// lock, so a stabilize goroutine reading the successor does not block a
// concurrent fix-fingers pass touching a different slot.
type handleEntry struct {
	handle domain.Handle
	set    bool
	mu     sync.RWMutex
}

// fingerEntry is one row of the finger table: the start of the interval it
// covers and the handle currently believed to own it.
type fingerEntry struct {
	start domain.ID
	handleEntry
}

// RoutingTable is the routing state of a single Chord node.
//
// Nodes are referenced by domain.Handle, the arena key Network uses to look
// up the live *chordnode.Node; the routing table itself never holds a Go
// pointer to another node, which keeps the ring free of reference cycles
// and makes every comparison a plain value comparison.
type RoutingTable struct {
	logger      logger.Logger
	space       domain.Space
	self        domain.Handle
	selfID      domain.ID
	predecessor *handleEntry
	successor   *handleEntry
	backup      *handleEntry // single-successor failure backup, per spec's no-replication policy
	fingers     []*fingerEntry
}

// New creates a routing table for the node identified by selfID/self. All
// pointers start unset; call InitSingleNode for a fresh one-node ring or
// rely on Join to populate them.
func New(self domain.Handle, selfID domain.ID, space domain.Space, opts ...Option) *RoutingTable {
	rt := &RoutingTable{
		self:        self,
		selfID:      selfID,
		space:       space,
		predecessor: &handleEntry{},
		successor:   &handleEntry{},
		backup:      &handleEntry{},
		fingers:     make([]*fingerEntry, space.Bits),
		logger:      &logger.NopLogger{},
	}
	for i := range rt.fingers {
		start, err := space.FingerStart(selfID, i)
		if err != nil {
			start = selfID
		}
		rt.fingers[i] = &fingerEntry{start: start}
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.logger.Debug("routing table initialized", logger.FHandle("self", self))
	return rt
}

// InitSingleNode points every routing pointer at self, the state of a
// freshly created one-node ring.
func (rt *RoutingTable) InitSingleNode() {
	rt.setEntry(rt.predecessor, rt.self)
	rt.setEntry(rt.successor, rt.self)
	for _, f := range rt.fingers {
		rt.setEntry(&f.handleEntry, rt.self)
	}
	rt.logger.Debug("routing table set to single-node ring")
}

func (rt *RoutingTable) Space() domain.Space { return rt.space }
func (rt *RoutingTable) Self() domain.Handle { return rt.self }
func (rt *RoutingTable) SelfID() domain.ID   { return rt.selfID }

func (rt *RoutingTable) getEntry(e *handleEntry) (domain.Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handle, e.set
}

func (rt *RoutingTable) setEntry(e *handleEntry, h domain.Handle) {
	e.mu.Lock()
	e.handle = h
	e.set = true
	e.mu.Unlock()
}

func (rt *RoutingTable) clearEntry(e *handleEntry) {
	e.mu.Lock()
	e.handle = ""
	e.set = false
	e.mu.Unlock()
}

// GetPredecessor returns the current predecessor and whether it is set.
func (rt *RoutingTable) GetPredecessor() (domain.Handle, bool) {
	return rt.getEntry(rt.predecessor)
}

// SetPredecessor updates the predecessor pointer.
func (rt *RoutingTable) SetPredecessor(h domain.Handle) {
	rt.setEntry(rt.predecessor, h)
	rt.logger.Debug("predecessor updated", logger.FHandle("predecessor", h))
}

// ClearPredecessor unsets the predecessor pointer, used when the
// predecessor is detected dead and no replacement is known yet.
func (rt *RoutingTable) ClearPredecessor() {
	rt.clearEntry(rt.predecessor)
	rt.logger.Debug("predecessor cleared")
}

// GetSuccessor returns the current successor and whether it is set.
func (rt *RoutingTable) GetSuccessor() (domain.Handle, bool) {
	return rt.getEntry(rt.successor)
}

// SetSuccessor updates the successor pointer and, implicitly, finger[0]:
// the zeroth finger always mirrors the successor in a Chord ring because
// both cover the interval starting at self+1.
func (rt *RoutingTable) SetSuccessor(h domain.Handle) {
	rt.setEntry(rt.successor, h)
	if len(rt.fingers) > 0 {
		rt.setEntry(&rt.fingers[0].handleEntry, h)
	}
	rt.logger.Debug("successor updated", logger.FHandle("successor", h))
}

// GetBackup returns the successor's backup handle and whether it is set.
// The backup is the successor's own successor, refreshed on each backup
// push, and is adopted as the new successor if the current one becomes
// unreachable.
func (rt *RoutingTable) GetBackup() (domain.Handle, bool) {
	return rt.getEntry(rt.backup)
}

// SetBackup updates the backup pointer.
func (rt *RoutingTable) SetBackup(h domain.Handle) {
	rt.setEntry(rt.backup, h)
	rt.logger.Debug("backup updated", logger.FHandle("backup", h))
}

// FingerCount returns m, the bit width of the identifier space.
func (rt *RoutingTable) FingerCount() int { return len(rt.fingers) }

// FingerStart returns the start identifier of the i-th finger interval.
func (rt *RoutingTable) FingerStart(i int) domain.ID {
	return rt.fingers[i].start
}

// GetFinger returns the handle stored at finger i and whether it is set.
func (rt *RoutingTable) GetFinger(i int) (domain.Handle, bool) {
	if i < 0 || i >= len(rt.fingers) {
		rt.logger.Warn("GetFinger: index out of range",
			logger.F("requested", i),
			logger.F("valid_range", fmt.Sprintf("[0..%d]", len(rt.fingers)-1)))
		return "", false
	}
	return rt.getEntry(&rt.fingers[i].handleEntry)
}

// SetFinger updates finger i with the given handle.
func (rt *RoutingTable) SetFinger(i int, h domain.Handle) {
	if i < 0 || i >= len(rt.fingers) {
		rt.logger.Warn("SetFinger: index out of range",
			logger.F("requested", i),
			logger.F("valid_range", fmt.Sprintf("[0..%d]", len(rt.fingers)-1)))
		return
	}
	rt.setEntry(&rt.fingers[i].handleEntry, h)
	if i == 0 {
		rt.setEntry(rt.successor, h)
	}
}

// Snapshot is a read-only view of the routing table's contents, returned
// by DebugLog.
type Snapshot struct {
	Self        domain.Handle
	Predecessor domain.Handle
	Successor   domain.Handle
	Backup      domain.Handle
	Fingers     []domain.Handle // empty string for an unset slot
}

// DebugLog returns a snapshot of the whole routing table, each slot read
// under its own lock one after another, and emits it as a single
// structured DEBUG log line.
func (rt *RoutingTable) DebugLog() Snapshot {
	pred, _ := rt.GetPredecessor()
	succ, _ := rt.GetSuccessor()
	backup, _ := rt.GetBackup()
	fingers := make([]domain.Handle, len(rt.fingers))
	for i := range rt.fingers {
		h, _ := rt.GetFinger(i)
		fingers[i] = h
	}
	snap := Snapshot{Self: rt.self, Predecessor: pred, Successor: succ, Backup: backup, Fingers: fingers}
	rt.logger.Debug("routing table snapshot",
		logger.FHandle("self", snap.Self),
		logger.FHandle("predecessor", snap.Predecessor),
		logger.FHandle("successor", snap.Successor),
		logger.FHandle("backup", snap.Backup),
	)
	return snap
}

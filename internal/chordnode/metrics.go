package chordnode

import (
	"sync/atomic"
	"time"
)

// Metrics accumulates read-only counters about a node's activity, exposed
// through Network.Introspect as a pure observer with no effect on routing
// behavior.
type Metrics struct {
	lookupsAttempted atomic.Uint64
	lookupsSucceeded atomic.Uint64
	lookupsFailed    atomic.Uint64
	lookupHops       atomic.Uint64
	cacheHits        atomic.Uint64
	cacheMisses      atomic.Uint64
	puts             atomic.Uint64
	gets             atomic.Uint64
	stabilizes       atomic.Uint64
	fixFingers       atomic.Uint64
	backups          atomic.Uint64
	recoveries       atomic.Uint64
	lastHeartbeat    atomic.Int64 // unix nanoseconds; 0 means never
}

// NewMetrics returns a zeroed counter set.
func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) recordLookupAttempt() { m.lookupsAttempted.Add(1) }

func (m *Metrics) recordLookupSuccess(hops int) {
	m.lookupsSucceeded.Add(1)
	m.lookupHops.Add(uint64(hops))
}

func (m *Metrics) recordLookupFailure() { m.lookupsFailed.Add(1) }

func (m *Metrics) recordCacheHit()   { m.cacheHits.Add(1) }
func (m *Metrics) recordCacheMiss()  { m.cacheMisses.Add(1) }
func (m *Metrics) recordPut()        { m.puts.Add(1) }
func (m *Metrics) recordGet()        { m.gets.Add(1) }
func (m *Metrics) recordStabilize()  { m.stabilizes.Add(1) }
func (m *Metrics) recordFixFingers() { m.fixFingers.Add(1) }
func (m *Metrics) recordBackup()     { m.backups.Add(1) }
func (m *Metrics) recordRecovery()   { m.recoveries.Add(1) }

// recordHeartbeat updates the liveness timestamp to t.
func (m *Metrics) recordHeartbeat(t time.Time) { m.lastHeartbeat.Store(t.UnixNano()) }

// Snapshot is a read-only copy of the counters at a point in time.
type Snapshot struct {
	LookupsAttempted uint64
	LookupsSucceeded uint64
	LookupsFailed    uint64
	LookupHops       uint64
	CacheHits        uint64
	CacheMisses      uint64
	Puts             uint64
	Gets             uint64
	Stabilizes       uint64
	FixFingers       uint64
	Backups          uint64
	Recoveries       uint64
	LastHeartbeat    time.Time // zero value if SendHeartbeat was never called
}

// Snapshot reads every counter without interrupting concurrent updates.
func (m *Metrics) Snapshot() Snapshot {
	var lastHeartbeat time.Time
	if nanos := m.lastHeartbeat.Load(); nanos != 0 {
		lastHeartbeat = time.Unix(0, nanos)
	}
	return Snapshot{
		LookupsAttempted: m.lookupsAttempted.Load(),
		LookupsSucceeded: m.lookupsSucceeded.Load(),
		LookupsFailed:    m.lookupsFailed.Load(),
		LookupHops:       m.lookupHops.Load(),
		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
		Puts:             m.puts.Load(),
		Gets:             m.gets.Load(),
		Stabilizes:       m.stabilizes.Load(),
		FixFingers:       m.fixFingers.Load(),
		Backups:          m.backups.Load(),
		Recoveries:       m.recoveries.Load(),
		LastHeartbeat:    lastHeartbeat,
	}
}

// Package chordnode implements a single Chord ring participant: identifier
// arithmetic lives in domain, routing state lives in routingtable, and this
// package wires the two together into find_successor, join, stabilize,
// fix_fingers, leave, and the local put/get/backup operations described by
// the routing protocol.
package chordnode

import (
	"sync"

	"chorddht/internal/codec"
	"chorddht/internal/domain"
	"chorddht/internal/logger"
	"chorddht/internal/routingtable"
	"chorddht/internal/storage"
)

// Resolver looks up a live node by its arena handle. Network is the only
// production implementation; a Node never holds a pointer to another Node,
// only the handle, and goes through Resolver whenever it needs to call a
// peer.
type Resolver interface {
	Resolve(h domain.Handle) (*Node, bool)
}

// backupSlot is the data a node's predecessor pushes to it periodically, so
// that if the predecessor disappears ungracefully this node can recover the
// keys the predecessor was responsible for (see Node.recoverFromBackup).
type backupSlot struct {
	mu         sync.RWMutex
	predID     domain.ID // id of the node that pushed this snapshot
	predHandle domain.Handle
	resources  []domain.Resource
}

// Node is one participant in the Chord ring.
type Node struct {
	handle domain.Handle
	id     domain.ID
	space  domain.Space

	rt      *routingtable.RoutingTable
	store   storage.Storage
	codec   codec.Codec
	cache   *routingtable.LookupCache
	backup  backupSlot
	metrics *Metrics
	logger  logger.Logger

	resolver Resolver
}

// New creates a Node for the given identifier, wired to the shared
// Resolver (the Network instance that owns it). The node starts detached
// from any ring; callers invoke InitSingleNode or Join to take part in one.
func New(id domain.ID, space domain.Space, resolver Resolver, opts ...Option) *Node {
	n := &Node{
		id:       id,
		handle:   id.Handle(),
		space:    space,
		store:    storage.NewMemory(&logger.NopLogger{}),
		codec:    codec.Identity{},
		cache:    routingtable.NewLookupCache(0),
		metrics:  NewMetrics(),
		logger:   &logger.NopLogger{},
		resolver: resolver,
	}
	n.rt = routingtable.New(n.handle, n.id, space, routingtable.WithLogger(n.logger))
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Node) Handle() domain.Handle                    { return n.handle }
func (n *Node) ID() domain.ID                            { return n.id }
func (n *Node) RoutingTable() *routingtable.RoutingTable { return n.rt }
func (n *Node) Metrics() *Metrics                        { return n.metrics }

// LocalResources returns a snapshot of every resource this node currently
// stores, for read-only introspection (Network.HealthCheck's ownership
// checks, Network.Introspect's stored-key counts).
func (n *Node) LocalResources() []domain.Resource { return n.store.All() }

// InitSingleNode puts this node into the state of a freshly created
// one-node ring: its own successor and predecessor.
func (n *Node) InitSingleNode() {
	n.rt.InitSingleNode()
	n.logger.Info("node initialized as sole ring member", logger.FID("id", n.id))
}

func (n *Node) resolve(h domain.Handle) (*Node, bool) {
	return n.resolver.Resolve(h)
}

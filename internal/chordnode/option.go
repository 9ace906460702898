package chordnode

import (
	"chorddht/internal/codec"
	"chorddht/internal/logger"
	"chorddht/internal/routingtable"
	"chorddht/internal/storage"
)

// Option customizes a Node at construction time.
type Option func(*Node)

// WithLogger attaches a structured logger, propagated to the node's
// routing table as well.
func WithLogger(lgr logger.Logger) Option {
	return func(n *Node) {
		if lgr == nil {
			return
		}
		n.logger = lgr.Named("node").With(logger.FID("id", n.id))
		n.rt = routingtable.New(n.handle, n.id, n.space, routingtable.WithLogger(n.logger))
	}
}

// WithStorage overrides the default in-memory storage backend.
func WithStorage(s storage.Storage) Option {
	return func(n *Node) { n.store = s }
}

// WithCodec overrides the default identity payload codec.
func WithCodec(c codec.Codec) Option {
	return func(n *Node) { n.codec = c }
}

// WithCache enables the bounded lookup-hint cache with the given capacity.
func WithCache(capacity int) Option {
	return func(n *Node) { n.cache = routingtable.NewLookupCache(capacity) }
}

package network

import (
	"time"

	"chorddht/internal/bootstrap"
	"chorddht/internal/codec"
	"chorddht/internal/logger"
)

// Option customizes a Network at construction time.
type Option func(*Network)

// WithLogger attaches a structured logger, propagated to every node
// created afterward.
func WithLogger(lgr logger.Logger) Option {
	return func(net *Network) {
		if lgr != nil {
			net.logger = lgr.Named("network")
		}
	}
}

// WithCodec sets the payload codec every node in the ring uses.
func WithCodec(c codec.Codec) Option {
	return func(net *Network) { net.codec = c }
}

// WithCacheCapacity sets the lookup-hint cache capacity for every node
// (0 disables the cache).
func WithCacheCapacity(capacity int) Option {
	return func(net *Network) { net.cacheCapacity = capacity }
}

// WithMaintenance sets the background maintenance cadence applied to every
// node inserted afterward.
func WithMaintenance(stabilize, fixFingers, backup, failureTimeout time.Duration) Option {
	return func(net *Network) {
		net.maintenance.StabilizeInterval = stabilize
		net.maintenance.FixFingersInterval = fixFingers
		net.maintenance.BackupInterval = backup
		net.maintenance.FailureTimeout = failureTimeout
	}
}

// WithBootstrap supplies the source Network consults when InsertNode finds
// no other live node in the arena to join through.
func WithBootstrap(src bootstrap.Source) Option {
	return func(net *Network) { net.bootstrap = src }
}

package routingtable

import "chorddht/internal/logger"

// Option customizes a RoutingTable at construction time.
type Option func(*RoutingTable)

// WithLogger attaches a structured logger to the routing table.
func WithLogger(lgr logger.Logger) Option {
	return func(rt *RoutingTable) {
		rt.logger = lgr.Named("routingtable")
	}
}

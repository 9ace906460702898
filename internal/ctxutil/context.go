// Package ctxutil provides the small set of context helpers the routing
// protocol needs: trace-id propagation, a hop counter for bounding lookup
// depth, and a plain-error check for cancellation/deadline handling.
package ctxutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chorddht/internal/domain"
	"chorddht/internal/trace"
)

type hopsKey struct{}

// ContextOption configures the context built by NewContext.
type ContextOption func(*ctxConfig)

type ctxConfig struct {
	withTrace bool
	withHops  bool
	nodeID    domain.ID
	timeout   time.Duration
}

// WithTrace attaches a fresh trace id derived from nodeID.
func WithTrace(nodeID domain.ID) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withTrace = true
		cfg.nodeID = nodeID
	}
}

// WithTimeout applies a timeout to the created context. Callers must defer
// the returned cancel function.
func WithTimeout(d time.Duration) ContextOption {
	return func(cfg *ctxConfig) { cfg.timeout = d }
}

// WithHops initializes the hop counter at 0.
func WithHops() ContextOption {
	return func(cfg *ctxConfig) { cfg.withHops = true }
}

// NewContext builds a context.Background() derived context configured by
// opts, returning its cancel function (nil if no timeout was requested).
func NewContext(opts ...ContextOption) (context.Context, context.CancelFunc) {
	cfg := &ctxConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.timeout)
	} else {
		ctx = context.Background()
	}
	if cfg.withTrace {
		ctx, _ = trace.AttachTraceID(ctx, cfg.nodeID)
	}
	if cfg.withHops {
		ctx = context.WithValue(ctx, hopsKey{}, 0)
	}
	return ctx, cancel
}

// TraceIDFromContext extracts the trace id, or "" if none is set.
func TraceIDFromContext(ctx context.Context) string {
	return trace.GetTraceID(ctx)
}

// EnsureTraceID attaches a trace id derived from nodeID if ctx does not
// already carry one.
func EnsureTraceID(ctx context.Context, nodeID domain.ID) context.Context {
	if id := trace.GetTraceID(ctx); id == "" {
		ctx, _ = trace.AttachTraceID(ctx, nodeID)
	}
	return ctx
}

// HopsFromContext returns the current hop counter, or -1 if not set.
func HopsFromContext(ctx context.Context) int {
	if hops, ok := ctx.Value(hopsKey{}).(int); ok {
		return hops
	}
	return -1
}

// IncHops increments the hop counter if present; a counter of -1 means
// "do not count" and is left unchanged.
func IncHops(ctx context.Context) context.Context {
	hops, ok := ctx.Value(hopsKey{}).(int)
	if !ok {
		return ctx
	}
	if hops == -1 {
		return ctx
	}
	return context.WithValue(ctx, hopsKey{}, hops+1)
}

// CheckContext reports a plain error if ctx has been canceled or its
// deadline has expired, and nil otherwise. Callers invoke this at the
// start of a routing hop to fail fast rather than keep walking the ring.
func CheckContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("ctxutil: request canceled: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("ctxutil: deadline exceeded: %w", err)
	default:
		return nil
	}
}

// Package trace generates and carries a correlation id through a single
// operation's context, so every log line touched by one put/get/lookup can
// be tied back together regardless of how many nodes it hops through.
package trace

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"chorddht/internal/domain"

	"github.com/oklog/ulid/v2"
)

type traceKey struct{}

// GenerateTraceID builds a globally unique correlation id in the form
// <nodeID>-<ULID>.
func GenerateTraceID(nodeID string) string {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return fmt.Sprintf("%s-%s", nodeID, id.String())
}

// AttachTraceID generates a trace id rooted at nodeID and stores it in ctx.
func AttachTraceID(ctx context.Context, nodeID domain.ID) (context.Context, string) {
	traceID := GenerateTraceID(nodeID.String())
	return context.WithValue(ctx, traceKey{}, traceID), traceID
}

// GetTraceID returns the trace id carried by ctx, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	if v := ctx.Value(traceKey{}); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}

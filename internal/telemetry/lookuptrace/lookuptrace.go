// Package lookuptrace instruments find_successor with one span per hop,
// purely as an in-process observability aid: no span ever crosses a
// network boundary, since the module has none.
package lookuptrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chorddht/internal/domain"
)

var tracer = otel.Tracer("chorddht/routing")

// StartHop opens a span representing one find_successor hop. Callers must
// call the returned function when the hop completes.
func StartHop(ctx context.Context, from domain.Handle, target domain.ID, hop int) (context.Context, func()) {
	spanCtx, span := tracer.Start(ctx, "find_successor.hop",
		trace.WithAttributes(
			attribute.String("chord.node", string(from)),
			attribute.String("chord.target", target.String()),
			attribute.Int("chord.hop", hop),
		),
	)
	return spanCtx, func() { span.End() }
}

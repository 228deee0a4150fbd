// Package tracing provides OpenTelemetry spans for binder resolutions.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/binder"
)

// SpanName is the name of every resolution span.
const SpanName = "binder.resolve"

// Attribute keys set on resolution spans.
const (
	ServiceAttr = attribute.Key("binder.service")
	KeyAttr     = attribute.Key("binder.key")
)

// Middleware starts one span per Get or GetAll request. Nested dependency
// requests become child spans of the request that triggered them.
type Middleware struct {
	tracer trace.Tracer
}

// NewMiddleware creates tracing middleware using a tracer named name from tp.
// A nil tp uses the global tracer provider.
func NewMiddleware(tp trace.TracerProvider, name string) *Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Middleware{tracer: tp.Tracer(name)}
}

// BeforeResolve implements binder.Middleware.
func (m *Middleware) BeforeResolve(ctx context.Context, key binder.BindingKey) (context.Context, error) {
	ctx, _ = m.tracer.Start(ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			ServiceAttr.String(key.Service.String()),
			KeyAttr.String(key.Key),
		),
	)
	return ctx, nil
}

// AfterResolve implements binder.Middleware.
func (m *Middleware) AfterResolve(ctx context.Context, _ binder.BindingKey, _ any, err error) error {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return nil
}

var _ binder.Middleware = (*Middleware)(nil)

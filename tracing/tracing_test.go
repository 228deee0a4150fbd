package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/xraph/binder"
)

type database struct{}

type repository struct {
	db *database
}

func newRepository(db *database) *repository {
	return &repository{db: db}
}

func newTracedContainer(t *testing.T) (binder.Container, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	b := binder.NewBuilder(binder.WithMiddleware(NewMiddleware(tp, "binder-test")))
	b.Constructors(newRepository)
	binder.BindType[*database](b).ToSelf()
	binder.BindType[*repository](b).ToSelf()

	c, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Dispose() })

	return c, recorder
}

func attributeValue(span sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestMiddleware_NestedSpans(t *testing.T) {
	c, recorder := newTracedContainer(t)

	_, err := binder.Get[*repository](c)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	// The dependency span ends first
	child, parent := spans[0], spans[1]
	assert.Equal(t, SpanName, parent.Name())
	assert.Equal(t, "*tracing.repository", attributeValue(parent, ServiceAttr))
	assert.Equal(t, "*tracing.database", attributeValue(child, ServiceAttr))
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
	assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext().TraceID())
	assert.Equal(t, codes.Unset, parent.Status().Code)
}

func TestMiddleware_RecordsErrors(t *testing.T) {
	c, recorder := newTracedContainer(t)

	_, err := binder.GetKeyed[*repository](c, "missing")
	require.ErrorIs(t, err, binder.ErrNotRegistered)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "missing", attributeValue(spans[0], KeyAttr))
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

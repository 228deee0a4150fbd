// Package metrics provides Prometheus instrumentation for binder containers.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xraph/binder"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

type startKey struct{}

// Middleware records one counter sample and one latency observation per
// Get or GetAll request, nested dependency requests included.
type Middleware struct {
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMiddleware registers the resolution metrics with reg under namespace.
// A nil reg registers with prometheus.DefaultRegisterer. Registering the same
// namespace twice on one registry panics.
func NewMiddleware(reg prometheus.Registerer, namespace string) *Middleware {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Middleware{
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of service resolutions",
			},
			[]string{"service", "key", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Service resolution latency in seconds",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{"service"},
		),
	}
}

// BeforeResolve implements binder.Middleware.
func (m *Middleware) BeforeResolve(ctx context.Context, _ binder.BindingKey) (context.Context, error) {
	return context.WithValue(ctx, startKey{}, time.Now()), nil
}

// AfterResolve implements binder.Middleware.
func (m *Middleware) AfterResolve(ctx context.Context, key binder.BindingKey, _ any, err error) error {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	service := key.Service.String()

	m.resolutions.WithLabelValues(service, key.Key, outcome).Inc()
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		m.duration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	}

	return nil
}

var _ binder.Middleware = (*Middleware)(nil)

package binder

import "go.uber.org/zap"

// Option configures a Builder.
type Option func(*builderOptions)

type builderOptions struct {
	logger       *zap.Logger
	middleware   []Middleware
	defaultScope Scope
	verify       bool
}

func defaultOptions() builderOptions {
	return builderOptions{
		logger:       zap.NewNop(),
		defaultScope: Transient,
	}
}

// WithLogger sets the logger used for container lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *builderOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMiddleware adds resolution middleware. BeforeResolve hooks run in the
// order given and AfterResolve hooks in reverse.
func WithMiddleware(middleware ...Middleware) Option {
	return func(o *builderOptions) {
		o.middleware = append(o.middleware, middleware...)
	}
}

// WithDefaultScope sets the scope of bindings that do not choose one.
func WithDefaultScope(scope Scope) Option {
	return func(o *builderOptions) {
		o.defaultScope = scope
	}
}

// WithVerification makes Build run Verify and fail on its error.
func WithVerification() Option {
	return func(o *builderOptions) {
		o.verify = true
	}
}

package binder

import "context"

// Middleware provides hooks around every Get and GetAll request, including
// the nested requests a resolution makes for its dependencies.
// Middleware can be used for logging, metrics, tracing, testing, etc.
type Middleware interface {
	// BeforeResolve is called before resolving key. The returned context is
	// passed to nested resolutions and to AfterResolve.
	// Return error to abort resolution.
	BeforeResolve(ctx context.Context, key BindingKey) (context.Context, error)

	// AfterResolve is called after resolving key.
	// Called even if resolution failed or an inner middleware rejected it;
	// a returned error replaces the result.
	AfterResolve(ctx context.Context, key BindingKey, instance any, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	middleware []Middleware
}

// newMiddlewareChain creates a new middleware chain.
func newMiddlewareChain(middleware ...Middleware) *middlewareChain {
	return &middlewareChain{
		middleware: append([]Middleware(nil), middleware...),
	}
}

// beforeResolve calls BeforeResolve on all middleware in order. When one
// fails, the middleware that already ran get AfterResolve with the error.
func (m *middlewareChain) beforeResolve(ctx context.Context, key BindingKey) (context.Context, error) {
	for i, mw := range m.middleware {
		next, err := mw.BeforeResolve(ctx, key)
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.middleware[j].AfterResolve(ctx, key, nil, err)
			}
			return ctx, err
		}
		if next != nil {
			ctx = next
		}
	}
	return ctx, nil
}

// afterResolve calls AfterResolve on all middleware in reverse order. Every
// middleware runs; once one returns an error, the middleware outside it see
// that error and no instance. The first error returned wins.
func (m *middlewareChain) afterResolve(ctx context.Context, key BindingKey, instance any, err error) error {
	var result error
	for i := len(m.middleware) - 1; i >= 0; i-- {
		mwErr := m.middleware[i].AfterResolve(ctx, key, instance, err)
		if mwErr != nil && result == nil {
			result = mwErr
			instance, err = nil, mwErr
		}
	}
	return result
}

// FuncMiddleware wraps functions as Middleware.
type FuncMiddleware struct {
	BeforeResolveFunc func(ctx context.Context, key BindingKey) (context.Context, error)
	AfterResolveFunc  func(ctx context.Context, key BindingKey, instance any, err error) error
}

// BeforeResolve implements Middleware.
func (f *FuncMiddleware) BeforeResolve(ctx context.Context, key BindingKey) (context.Context, error) {
	if f.BeforeResolveFunc != nil {
		return f.BeforeResolveFunc(ctx, key)
	}
	return ctx, nil
}

// AfterResolve implements Middleware.
func (f *FuncMiddleware) AfterResolve(ctx context.Context, key BindingKey, instance any, err error) error {
	if f.AfterResolveFunc != nil {
		return f.AfterResolveFunc(ctx, key, instance, err)
	}
	return nil
}

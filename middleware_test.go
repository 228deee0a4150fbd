package binder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxMarker struct{}

func TestMiddleware_BeforeAfterResolve(t *testing.T) {
	// Track middleware calls
	var calls []string

	mw := &FuncMiddleware{
		BeforeResolveFunc: func(ctx context.Context, key BindingKey) (context.Context, error) {
			calls = append(calls, "before:"+key.String())
			return ctx, nil
		},
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			calls = append(calls, "after:"+key.String())
			return nil
		},
	}

	b := NewBuilder(WithMiddleware(mw))
	BindType[*testService](b).WithKey("test").ToInstance(&testService{value: "test"})
	c := mustBuild(t, b)

	svc, err := GetKeyed[*testService](c, "test")
	require.NoError(t, err)
	assert.NotNil(t, svc)

	assert.Equal(t, []string{
		"before:*binder.testService[key=test]",
		"after:*binder.testService[key=test]",
	}, calls)
}

func TestMiddleware_BeforeResolveError(t *testing.T) {
	expectedErr := errors.New("access denied")
	built := false

	mw := &FuncMiddleware{
		BeforeResolveFunc: func(ctx context.Context, key BindingKey) (context.Context, error) {
			return ctx, expectedErr
		},
	}

	b := NewBuilder(WithMiddleware(mw))
	BindType[*testService](b).ToFactory(func(Container) (any, error) {
		built = true
		return &testService{value: "test"}, nil
	})
	c := mustBuild(t, b)

	// Resolve should fail due to middleware
	_, err := Get[*testService](c)
	assert.ErrorIs(t, err, expectedErr)
	assert.False(t, built)
}

func TestMiddleware_AfterResolveError(t *testing.T) {
	expectedErr := errors.New("post-resolve validation failed")

	mw := &FuncMiddleware{
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			return expectedErr
		},
	}

	b := NewBuilder(WithMiddleware(mw))
	BindType[*testService](b).ToInstance(&testService{value: "test"})
	c := mustBuild(t, b)

	svc, err := Get[*testService](c)
	assert.ErrorIs(t, err, expectedErr)
	assert.Nil(t, svc)
}

func TestMiddleware_MultipleMiddleware(t *testing.T) {
	var calls []string

	record := func(name string) Middleware {
		return &FuncMiddleware{
			BeforeResolveFunc: func(ctx context.Context, key BindingKey) (context.Context, error) {
				calls = append(calls, name+":before")
				return ctx, nil
			},
			AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
				calls = append(calls, name+":after")
				return nil
			},
		}
	}

	b := NewBuilder(WithMiddleware(record("mw1"), record("mw2")))
	BindType[*testService](b).ToSelf()
	c := mustBuild(t, b)

	_, err := Get[*testService](c)
	require.NoError(t, err)

	assert.Equal(t, []string{"mw1:before", "mw2:before", "mw2:after", "mw1:after"}, calls)
}

func TestMiddleware_AfterResolveReceivesError(t *testing.T) {
	var received error

	mw := &FuncMiddleware{
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			received = err
			return nil
		},
	}

	c := mustBuild(t, NewBuilder(WithMiddleware(mw)))

	_, err := Get[*testService](c)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.ErrorIs(t, received, ErrNotRegistered)
}

func TestMiddleware_NestedResolutionsSeeContext(t *testing.T) {
	var seen []string

	mw := &FuncMiddleware{
		BeforeResolveFunc: func(ctx context.Context, key BindingKey) (context.Context, error) {
			parent, _ := ctx.Value(ctxMarker{}).(string)
			seen = append(seen, parent+">"+key.Service.String())
			return context.WithValue(ctx, ctxMarker{}, key.Service.String()), nil
		},
	}

	b := NewBuilder(WithMiddleware(mw))
	b.Constructors(newServiceB)
	BindType[*serviceA](b).ToSelf()
	BindType[*serviceB](b).ToSelf()
	c := mustBuild(t, b)

	_, err := Get[*serviceB](c)
	require.NoError(t, err)

	assert.Equal(t, []string{
		">*binder.serviceB",
		"*binder.serviceB>*binder.serviceA",
	}, seen)
}

func TestMiddleware_GetAll(t *testing.T) {
	var results []any

	mw := &FuncMiddleware{
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			results = append(results, instance)
			return nil
		},
	}

	b := NewBuilder(WithMiddleware(mw))
	BindType[greeter](b).To(TypeOf[*englishGreeter]())
	BindType[greeter](b).To(TypeOf[*frenchGreeter]())
	c := mustBuild(t, b)

	all, err := GetAll[greeter](c)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// One call for the whole request
	require.Len(t, results, 1)
	assert.Len(t, results[0], 2)
}

func TestMiddleware_NilContextKeepsPrevious(t *testing.T) {
	chain := newMiddlewareChain(
		&FuncMiddleware{
			BeforeResolveFunc: func(ctx context.Context, key BindingKey) (context.Context, error) {
				return context.WithValue(ctx, ctxMarker{}, "kept"), nil
			},
		},
		&FuncMiddleware{
			BeforeResolveFunc: func(ctx context.Context, key BindingKey) (context.Context, error) {
				return nil, nil
			},
		},
	)

	got, err := chain.beforeResolve(context.Background(), KeyOf[*serviceA](""))
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Value(ctxMarker{}))
}

func TestMiddleware_BeforeResolveErrorUnwinds(t *testing.T) {
	expectedErr := errors.New("denied")
	var unwound error

	first := &FuncMiddleware{
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			unwound = err
			return nil
		},
	}
	second := &FuncMiddleware{
		BeforeResolveFunc: func(ctx context.Context, key BindingKey) (context.Context, error) {
			return ctx, expectedErr
		},
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			t.Fatal("AfterResolve called on failing middleware")
			return nil
		},
	}

	b := NewBuilder(WithMiddleware(first, second))
	BindType[*testService](b).ToSelf()
	c := mustBuild(t, b)

	_, err := Get[*testService](c)
	assert.ErrorIs(t, err, expectedErr)
	assert.ErrorIs(t, unwound, expectedErr)
}

func TestMiddleware_AfterResolveErrorReachesOuter(t *testing.T) {
	veto := errors.New("veto")

	var (
		outerCalls int
		outerSaw   error
		outerGot   any
	)
	outer := &FuncMiddleware{
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			outerCalls++
			outerSaw, outerGot = err, instance
			return nil
		},
	}
	inner := &FuncMiddleware{
		AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
			return veto
		},
	}

	b := NewBuilder(WithMiddleware(outer, inner))
	BindType[*testService](b).ToSelf()
	c := mustBuild(t, b)

	_, err := Get[*testService](c)
	assert.ErrorIs(t, err, veto)

	assert.Equal(t, 1, outerCalls)
	assert.ErrorIs(t, outerSaw, veto)
	assert.Nil(t, outerGot)
}

func TestMiddleware_FirstAfterResolveErrorWins(t *testing.T) {
	first := errors.New("inner")
	second := errors.New("outer")

	chain := newMiddlewareChain(
		&FuncMiddleware{
			AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
				return second
			},
		},
		&FuncMiddleware{
			AfterResolveFunc: func(ctx context.Context, key BindingKey, instance any, err error) error {
				return first
			},
		},
	)

	err := chain.afterResolve(context.Background(), KeyOf[*serviceA](""), &serviceA{}, nil)
	assert.Same(t, first, err)
}

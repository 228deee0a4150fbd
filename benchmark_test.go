package binder

import (
	"testing"
)

// Benchmark container building.
func BenchmarkBuild_Singleton(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builder := NewBuilder()
		BindType[*serviceA](builder).ToSelf().InSingletonScope()
		_, _ = builder.Build()
	}
}

func BenchmarkBuild_Constructors(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builder := NewBuilder()
		builder.Constructors(newServiceB)
		BindType[*serviceA](builder).ToSelf()
		BindType[*serviceB](builder).ToSelf()
		_, _ = builder.Build()
	}
}

func newBenchContainer(b *testing.B, scope Scope) Container {
	b.Helper()

	builder := NewBuilder(WithDefaultScope(scope))
	builder.Constructors(newServiceB)
	BindType[*serviceA](builder).ToSelf()
	BindType[*serviceB](builder).ToSelf()
	BindType[greeter](builder).To(TypeOf[*englishGreeter]())
	BindType[greeter](builder).To(TypeOf[*frenchGreeter]())
	builder.Bind(Unbound(ReflectTypeOf[repo[any]]())).To(Unbound(ReflectTypeOf[*memoryRepo[int]]()))

	c, err := builder.Build()
	if err != nil {
		b.Fatal(err)
	}
	return c
}

// Benchmark service resolution.
func BenchmarkGet_Singleton_Cached(b *testing.B) {
	c := newBenchContainer(b, Singleton)

	// Warm up cache
	_, _ = Get[*serviceA](c)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Get[*serviceA](c)
	}
}

func BenchmarkGet_Transient(b *testing.B) {
	c := newBenchContainer(b, Transient)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Get[*serviceA](c)
	}
}

func BenchmarkGet_ConstructorChain(b *testing.B) {
	c := newBenchContainer(b, Transient)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Get[*serviceB](c)
	}
}

func BenchmarkGet_UnboundGeneric(b *testing.B) {
	c := newBenchContainer(b, Transient)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Get[repo[int]](c)
	}
}

func BenchmarkGetAll(b *testing.B) {
	c := newBenchContainer(b, Transient)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = GetAll[greeter](c)
	}
}

func BenchmarkMustGet(b *testing.B) {
	c := newBenchContainer(b, Singleton)

	// Warm up cache
	_ = MustGet[*serviceB](c)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MustGet[*serviceB](c)
	}
}

// Benchmark concurrent access.
func BenchmarkConcurrentGet(b *testing.B) {
	c := newBenchContainer(b, Singleton)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = Get[*serviceB](c)
		}
	})
}

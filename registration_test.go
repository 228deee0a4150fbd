package binder

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCreator counts how often its generator is compiled.
type countingCreator struct {
	compiled atomic.Int32
}

func (cc *countingCreator) implementation() string { return "counting" }

func (cc *countingCreator) kind() string { return "factory" }

func (cc *countingCreator) compile(*containerImpl) (generator, error) {
	cc.compiled.Add(1)
	return func(*resolution) (any, error) {
		return &serviceA{}, nil
	}, nil
}

func (cc *countingCreator) dependencies(*containerImpl) ([]Dependency, error) {
	return nil, nil
}

func TestRegistration_TransientCompiledOnce(t *testing.T) {
	impl := mustBuild(t, NewBuilder()).(*containerImpl)

	cr := &countingCreator{}
	reg := newRegistration(KeyOf[*serviceA](""), cr, Transient, false)

	const goroutines = 50
	instances := make([]any, goroutines)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			instance, err := impl.instantiate(impl.base, impl.base.ctx, reg.key, reg)
			assert.NoError(t, err)
			instances[i] = instance
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), cr.compiled.Load())

	// Transient: every resolution still builds its own instance
	for i := 1; i < goroutines; i++ {
		assert.NotSame(t, instances[0], instances[i])
	}
}

func TestRegistration_ReleaseClearsCache(t *testing.T) {
	reg := newInstanceRegistration(KeyOf[*serviceA](""), &serviceA{id: 1}, false)

	instance, ok := reg.cached()
	require.True(t, ok)
	assert.Equal(t, 1, instance.(*serviceA).id)
	assert.True(t, reg.info(reg.key).Created)

	reg.release()

	_, ok = reg.cached()
	assert.False(t, ok)
	assert.False(t, reg.info(reg.key).Created)
}

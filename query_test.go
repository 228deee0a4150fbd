package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryContainer(t *testing.T) Container {
	t.Helper()

	b := NewBuilder()
	BindType[*testService](b).WithKey("svc1").ToFactory(func(Container) (any, error) {
		return &testService{value: "svc1"}, nil
	}).InSingletonScope()
	BindType[*testService](b).WithKey("svc2").ToFactory(func(Container) (any, error) {
		return &testService{value: "svc2"}, nil
	})
	BindType[*testService](b).WithKey("svc3").ToInstance(&testService{value: "svc3"})
	BindType[*serviceA](b).ToSelf().InSingletonScope()

	return mustBuild(t, b)
}

func TestQuery_ByScope(t *testing.T) {
	c := newQueryContainer(t)

	// Query for transients
	results := Query(c, RegistrationQuery{Scope: "transient"})
	require.Len(t, results, 1)
	assert.Equal(t, "svc2", results[0].Key.Key)

	// Instances are singletons
	results = FindByScope(c, Singleton)
	assert.Len(t, results, 3)
}

func TestQuery_ByCreator(t *testing.T) {
	c := newQueryContainer(t)

	results := Query(c, RegistrationQuery{Creator: "factory"})
	assert.Len(t, results, 2)

	results = Query(c, RegistrationQuery{Creator: "instance"})
	require.Len(t, results, 1)
	assert.Equal(t, "svc3", results[0].Key.Key)

	results = Query(c, RegistrationQuery{Creator: "constructor"})
	require.Len(t, results, 1)
	assert.Equal(t, KeyOf[*serviceA](""), results[0].Key)
}

func TestQuery_ByKey(t *testing.T) {
	c := newQueryContainer(t)

	unkeyed := ""
	results := Query(c, RegistrationQuery{Key: &unkeyed})
	require.Len(t, results, 1)
	assert.Equal(t, ReflectTypeOf[*serviceA](), results[0].Key.Service)

	svc1 := "svc1"
	keys := QueryKeys(c, RegistrationQuery{Key: &svc1})
	assert.Equal(t, []BindingKey{KeyOf[*testService]("svc1")}, keys)
}

func TestQuery_ByService(t *testing.T) {
	c := newQueryContainer(t)

	results := FindByService(c, ReflectTypeOf[*testService]())
	assert.Len(t, results, 3)

	results = FindByService(c, ReflectTypeOf[*serviceB]())
	assert.Empty(t, results)
}

func TestQuery_ByCreated(t *testing.T) {
	c := newQueryContainer(t)

	// Instances exist from the start
	created := FindCreated(c)
	require.Len(t, created, 1)
	assert.Equal(t, "svc3", created[0].Key.Key)

	_, err := GetKeyed[*testService](c, "svc1")
	require.NoError(t, err)
	_, err = GetKeyed[*testService](c, "svc2")
	require.NoError(t, err)

	// Transients are never cached
	created = FindCreated(c)
	assert.Len(t, created, 2)

	notCreated := FindNotCreated(c)
	assert.Len(t, notCreated, 2)
}

func TestQuery_MultipleFilters(t *testing.T) {
	c := newQueryContainer(t)

	notCreated := false
	results := Query(c, RegistrationQuery{
		Service: ReflectTypeOf[*testService](),
		Scope:   "singleton",
		Created: &notCreated,
	})
	require.Len(t, results, 1)
	assert.Equal(t, "svc1", results[0].Key.Key)
}

func TestQueryKeys_Distinct(t *testing.T) {
	b := NewBuilder()
	BindType[greeter](b).To(TypeOf[*englishGreeter]())
	BindType[greeter](b).To(TypeOf[*frenchGreeter]())
	c := mustBuild(t, b)

	assert.Len(t, Query(c, RegistrationQuery{}), 2)
	assert.Equal(t, []BindingKey{KeyOf[greeter]("")}, QueryKeys(c, RegistrationQuery{}))
}

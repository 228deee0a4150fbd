package binder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/errs"
)

type notAGreeter struct {
	name string
}

func requireBindingError(t *testing.T, b *Builder) *errs.Error {
	t.Helper()

	c, err := b.Build()
	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrBinding)

	var bindingErr *errs.Error
	require.ErrorAs(t, err, &bindingErr)

	return bindingErr
}

func TestBuild_Empty(t *testing.T) {
	c, err := NewBuilder().Build()
	require.NoError(t, err)
	assert.Empty(t, c.Registrations())
}

func TestBuild_Unterminated(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]())

	bindingErr := requireBindingError(t, b)
	assert.Equal(t, "binder.greeter", bindingErr.GetContext()["service"])
}

func TestBuild_MultipleImplementations(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).To(TypeOf[*englishGreeter]()).To(TypeOf[*frenchGreeter]())

	requireBindingError(t, b)
}

func TestBuild_NotImplementing(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).To(TypeOf[*notAGreeter]())

	requireBindingError(t, b)
}

func TestBuild_ImplementingSucceeds(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).To(TypeOf[*englishGreeter]())

	_, err := b.Build()
	assert.NoError(t, err)
}

func TestBuild_AbstractImplementation(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).ToSelf()

	requireBindingError(t, b)

	b = NewBuilder()
	b.Bind(TypeOf[named]()).To(TypeOf[greeter]())

	requireBindingError(t, b)
}

func TestBuild_ToSelfWithAnd(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[*englishGreeter]()).And(TypeOf[greeter]()).ToSelf()

	requireBindingError(t, b)
}

func TestBuild_AndRequiresEveryServiceImplemented(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).And(TypeOf[named]()).To(TypeOf[*frenchGreeter]())

	bindingErr := requireBindingError(t, b)
	assert.Equal(t, "binder.named", bindingErr.GetContext()["service"])
}

func TestBuild_NilFactory(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).ToFactory(nil)

	requireBindingError(t, b)
}

func TestBuild_NilInstance(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).ToInstance(nil)

	requireBindingError(t, b)
}

func TestBuild_InstanceNotAssignable(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).ToInstance(&notAGreeter{})

	requireBindingError(t, b)
}

func TestBuild_NilType(t *testing.T) {
	b := NewBuilder()
	b.Bind(Type(nil)).ToSelf()

	requireBindingError(t, b)
}

func TestBuild_DuplicateBinding(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).To(TypeOf[*englishGreeter]())
	b.Bind(TypeOf[greeter]()).To(TypeOf[*englishGreeter]())

	requireBindingError(t, b)
}

func TestBuild_DuplicateDisambiguatedByKey(t *testing.T) {
	b := NewBuilder()
	b.Bind(TypeOf[greeter]()).To(TypeOf[*englishGreeter]()).WithKey("a")
	b.Bind(TypeOf[greeter]()).To(TypeOf[*englishGreeter]()).WithKey("b")

	c, err := b.Build()
	require.NoError(t, err)

	_, err = GetKeyed[greeter](c, "a")
	assert.NoError(t, err)
	_, err = GetKeyed[greeter](c, "b")
	assert.NoError(t, err)
}

func TestBuild_InvalidConstructor(t *testing.T) {
	b := NewBuilder()
	b.Constructors("not a function")

	requireBindingError(t, b)

	b = NewBuilder()
	b.Constructors(func() (*serviceA, *serviceB) { return nil, nil })

	requireBindingError(t, b)
}

func TestBuild_DeclarationOrderIndependent(t *testing.T) {
	b := NewBuilder()
	BindType[*serviceB](b).ToSelf()
	b.Constructors(newServiceB)
	BindType[*serviceA](b).ToSelf().InSingletonScope()

	c, err := b.Build()
	require.NoError(t, err)

	svc, err := Get[*serviceB](c)
	require.NoError(t, err)
	assert.NotNil(t, svc.A)
}

func TestBuild_Verification(t *testing.T) {
	b := NewBuilder(WithVerification())
	b.Constructors(newCycleA, newCycleB)
	BindType[*cycleA](b).ToSelf()
	BindType[*cycleB](b).ToSelf()

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestBuild_VerificationNoEligibleConstructor(t *testing.T) {
	type port int

	b := NewBuilder(WithVerification())
	BindType[port](b).ToSelf()

	requireBindingError(t, b)
}

func TestBuild_VerificationLeavesInstances(t *testing.T) {
	type port int

	d := &mockDisposable{}

	b := NewBuilder(WithVerification())
	BindType[*mockDisposable](b).ToInstance(d)
	BindType[port](b).ToSelf()

	_, err := b.Build()
	require.Error(t, err)

	// A failed Build never owned the instance
	assert.Equal(t, int32(0), d.disposed.Load())
}

func TestBuild_VerificationPasses(t *testing.T) {
	b := NewBuilder(WithVerification())
	b.Constructors(newServiceB)
	BindType[*serviceA](b).ToSelf()
	BindType[*serviceB](b).ToSelf()

	_, err := b.Build()
	assert.NoError(t, err)
}

func TestAddModules(t *testing.T) {
	storage := ModuleFunc(func(b *Builder) error {
		BindType[*serviceA](b).ToSelf().InSingletonScope()
		return nil
	})
	app := ModuleFunc(func(b *Builder) error {
		b.Constructors(newServiceB)
		BindType[*serviceB](b).ToSelf()
		return nil
	})

	b := NewBuilder()
	require.NoError(t, b.AddModules(storage, nil, app))

	c, err := b.Build()
	require.NoError(t, err)

	svc, err := Get[*serviceB](c)
	require.NoError(t, err)
	assert.NotNil(t, svc.A)
}

func TestAddModules_StopsAtError(t *testing.T) {
	loadErr := errors.New("load failed")
	var loaded []string

	b := NewBuilder()
	err := b.AddModules(
		ModuleFunc(func(*Builder) error { loaded = append(loaded, "first"); return loadErr }),
		ModuleFunc(func(*Builder) error { loaded = append(loaded, "second"); return nil }),
	)

	assert.Same(t, loadErr, err)
	assert.Equal(t, []string{"first"}, loaded)
}

func TestBindServices(t *testing.T) {
	primary := NewServiceKey[*serviceA]("primary")

	b := NewBuilder()
	BindServices(b,
		Service(TypeOf[*serviceB](), func(Container) (any, error) { return &serviceB{}, nil }, Transient),
		KeyedService(primary, func(Container) (*serviceA, error) { return &serviceA{id: 1}, nil }, Singleton),
	)

	c, err := b.Build()
	require.NoError(t, err)

	a1 := MustGetKey(c, primary)
	a2 := MustGetKey(c, primary)
	assert.Same(t, a1, a2)
	assert.NotSame(t, MustGet[*serviceB](c), MustGet[*serviceB](c))
}

func TestParseScope(t *testing.T) {
	scope, err := ParseScope("singleton")
	require.NoError(t, err)
	assert.Equal(t, Singleton, scope)

	scope, err = ParseScope("transient")
	require.NoError(t, err)
	assert.Equal(t, Transient, scope)

	_, err = ParseScope("scoped")
	assert.Error(t, err)
}

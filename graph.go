package binder

import "fmt"

// Dependency is an edge of the dependency graph.
type Dependency struct {
	Key BindingKey

	// Deferred edges come from func() T, *Lazy[T], *OptionalLazy[T] and
	// *Provider[T] dependencies, which do not resolve the target while the
	// dependent is built.
	Deferred bool
}

// DependencyGraph manages dependencies between binding keys.
type DependencyGraph struct {
	nodes map[BindingKey]*node
	order []BindingKey // Preserve registration order
}

type node struct {
	key  BindingKey
	deps []Dependency
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[BindingKey]*node),
		order: make([]BindingKey, 0),
	}
}

// AddNode adds a node with its dependencies. Adding an existing key merges
// the dependencies, so a key with several registrations becomes one node.
// Nodes are processed in the order they are first added (FIFO) when no
// dependencies exist.
func (g *DependencyGraph) AddNode(key BindingKey, deps []Dependency) {
	if n, ok := g.nodes[key]; ok {
		n.deps = append(n.deps, deps...)
		return
	}

	g.nodes[key] = &node{
		key:  key,
		deps: append([]Dependency(nil), deps...),
	}
	g.order = append(g.order, key)
}

// GetDependencies returns every dependency of a node.
func (g *DependencyGraph) GetDependencies(key BindingKey) []Dependency {
	if n, ok := g.nodes[key]; ok {
		return n.deps
	}

	return nil
}

// GetEagerDependencies returns only the keys that must be resolved before
// the service can be created.
func (g *DependencyGraph) GetEagerDependencies(key BindingKey) []BindingKey {
	if n, ok := g.nodes[key]; ok {
		var eager []BindingKey

		for _, dep := range n.deps {
			if !dep.Deferred {
				eager = append(eager, dep.Key)
			}
		}

		return eager
	}

	return nil
}

// HasNode checks if a node exists in the graph.
func (g *DependencyGraph) HasNode(key BindingKey) bool {
	_, ok := g.nodes[key]

	return ok
}

// Keys returns the nodes in the order they were added.
func (g *DependencyGraph) Keys() []BindingKey {
	return append([]BindingKey(nil), g.order...)
}

// TopologicalSort returns nodes in dependency order, following every edge.
// Nodes without dependencies maintain their registration order (FIFO).
// Returns a CircularDependencyError if a cycle is detected.
func (g *DependencyGraph) TopologicalSort() ([]BindingKey, error) {
	return g.sort(false)
}

// TopologicalSortEagerOnly returns nodes sorted considering only eager
// dependencies. Deferred dependencies are resolved on demand and may form
// cycles legitimately.
func (g *DependencyGraph) TopologicalSortEagerOnly() ([]BindingKey, error) {
	return g.sort(true)
}

func (g *DependencyGraph) sort(eagerOnly bool) ([]BindingKey, error) {
	visited := make(map[BindingKey]bool)
	result := make([]BindingKey, 0, len(g.nodes))

	// Visit nodes in registration order to preserve FIFO for nodes without dependencies
	for _, key := range g.order {
		if err := g.visit(key, eagerOnly, visited, nil, &result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// visit performs DFS traversal. path holds the keys currently being visited.
func (g *DependencyGraph) visit(key BindingKey, eagerOnly bool, visited map[BindingKey]bool, path []BindingKey, result *[]BindingKey) error {
	if visited[key] {
		return nil
	}

	for i, k := range path {
		if k == key {
			cycle := make([]string, 0, len(path)-i+1)
			for _, c := range path[i:] {
				cycle = append(cycle, c.String())
			}
			return ErrCircularDependencyFor(append(cycle, key.String()))
		}
	}

	n := g.nodes[key]
	if n == nil {
		// Not bound; resolution reports it if it is needed
		return nil
	}

	path = append(path, key)

	// Visit dependencies first
	for _, dep := range n.deps {
		if eagerOnly && dep.Deferred {
			continue
		}
		if err := g.visit(dep.Key, eagerOnly, visited, path, result); err != nil {
			return err
		}
	}

	visited[key] = true
	*result = append(*result, key)

	return nil
}

// BuildGraph returns the dependency graph of every closed registration of c.
// Unbound generic bindings appear once they have been specialized.
func BuildGraph(c Container) (*DependencyGraph, error) {
	impl, err := containerOf(c)
	if err != nil {
		return nil, err
	}

	g := NewDependencyGraph()
	for _, entry := range impl.snapshot() {
		deps, err := entry.reg.creator.dependencies(impl)
		if err != nil {
			return nil, err
		}
		g.AddNode(entry.key, deps)
	}

	return g, nil
}

// Verify checks that every closed registration of c can be built: each
// generator compiles, which selects a constructor with resolvable
// parameters, and no eager dependency cycle exists. Nothing is instantiated.
func Verify(c Container) error {
	impl, err := containerOf(c)
	if err != nil {
		return err
	}

	for _, entry := range impl.snapshot() {
		if _, err := entry.reg.getGenerator(impl); err != nil {
			return err
		}
	}

	g, err := BuildGraph(impl)
	if err != nil {
		return err
	}

	_, err = g.TopologicalSortEagerOnly()
	return err
}

// containerOf returns the container implementation behind c.
func containerOf(c Container) (*containerImpl, error) {
	var impl *containerImpl
	switch v := c.(type) {
	case *containerImpl:
		impl = v
	case *resolution:
		impl = v.root
	default:
		return nil, NewBindingError(fmt.Sprintf("%T", c), "not a container built by a Builder")
	}

	if impl.disposed.Load() {
		return nil, ErrDisposed
	}
	return impl, nil
}

type keyedRegistration struct {
	key BindingKey
	reg *registration
}

// snapshot copies the current registrations in registration order.
func (c *containerImpl) snapshot() []keyedRegistration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var entries []keyedRegistration
	for _, key := range c.keys {
		for _, reg := range c.collections[key] {
			entries = append(entries, keyedRegistration{key: key, reg: reg})
		}
	}
	return entries
}

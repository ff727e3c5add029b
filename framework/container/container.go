package container

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrKeyNotFound is returned by Get when nothing is bound under the key.
	ErrKeyNotFound = errors.New("container: key not found")

	// ErrCircularDependency is returned when a factory asks for its own key,
	// directly or through other factories.
	ErrCircularDependency = errors.New("container: circular dependency")

	// ErrTypeMismatch is returned by Resolve when the bound value is not a T.
	ErrTypeMismatch = errors.New("container: type mismatch")
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a value from the container. It receives the container so it
// can pull other services it depends on.
type Factory func(c *Container) (any, error)

// Extender decorates a value after its factory has run.
type Extender func(instance any, c *Container) (any, error)

// binding is either a concrete value or a factory with a cached result.
type binding struct {
	value     any
	factory   Factory
	transient bool
	resolved  bool

	// held while a memoized factory runs, so it runs once
	building sync.Mutex
}

// deferredLoader binds a key the first time it is requested.
type deferredLoader struct {
	once sync.Once
	load func() error
	err  error
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container maps string keys to values or deferred factories.
//
// A factory registered with Bind runs on the first Get of its key; the result
// is cached and every later Get returns the same instance. Rebinding a key
// discards the cached instance. Concurrent Gets of an unresolved key run its
// factory once.
//
// A factory receives a Container scoped to the resolution in progress, which
// is how a cycle through factories is detected. Keep the root container, not
// the scoped one, when a built service holds on to it.
type Container struct {
	*table

	// keys being resolved by the call that handed out this container
	chain []string
}

// table is the state shared by a container and its scoped views.
type table struct {
	mu sync.RWMutex

	bindings map[string]*binding

	// alias → canonical key
	aliases map[string]string

	extenders map[string][]Extender

	deferred map[string]*deferredLoader

	// tag → keys, in tagging order
	tags map[string][]string
}

// New creates an empty container.
func New() *Container {
	return &Container{table: &table{
		bindings:  make(map[string]*binding),
		aliases:   make(map[string]string),
		extenders: make(map[string][]Extender),
		deferred:  make(map[string]*deferredLoader),
		tags:      make(map[string][]string),
	}}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a memoized factory. An existing binding for key, resolved or
// not, is replaced.
//
//	c.Bind("cache", func(c *container.Container) (any, error) {
//	    return cache.NewFileStore(os.TempDir())
//	})
func (c *Container) Bind(key string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[c.canonical(key)] = &binding{factory: factory}
}

// Factory registers a transient factory: every Get builds a new instance.
func (c *Container) Factory(key string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[c.canonical(key)] = &binding{factory: factory, transient: true}
}

// Set stores value under key. A Factory value is bound lazily as with Bind;
// anything else is returned verbatim by Get. Use Protect to store a function
// as a plain value.
func (c *Container) Set(key string, value any) {
	if f, ok := value.(Factory); ok {
		c.Bind(key, f)
		return
	}
	if f, ok := value.(func(*Container) (any, error)); ok {
		c.Bind(key, f)
		return
	}
	c.Instance(key, value)
}

// Instance stores a pre-built value.
func (c *Container) Instance(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[c.canonical(key)] = &binding{value: value, resolved: true}
}

// Protect stores fn itself as the value of key, so Get returns the function
// instead of calling it.
func (c *Container) Protect(key string, fn any) {
	c.Instance(key, fn)
}

// Defer registers a loader that is run the first time key is requested while
// unbound. The loader is expected to bind key.
func (c *Container) Defer(key string, loader func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred[c.canonical(key)] = &deferredLoader{load: loader}
}

// Alias makes alias resolve to key.
func (c *Container) Alias(key, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", key))
	}
	c.aliases[alias] = c.canonical(key)
}

// Extend decorates the value bound to key. Extenders run once, in
// registration order, when the binding resolves. Extending a binding that has
// already resolved re-applies the decorator to the cached instance.
func (c *Container) Extend(key string, fn Extender) error {
	c.mu.Lock()
	k := c.canonical(key)
	b, ok := c.bindings[k]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrKeyNotFound, "extend %q", key)
	}
	c.extenders[k] = append(c.extenders[k], fn)
	if !b.resolved || b.transient {
		c.mu.Unlock()
		return nil
	}
	inst := b.value
	c.mu.Unlock()

	extended, err := fn(inst, c)
	if err != nil {
		return errors.Wrapf(err, "extend %q", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.bindings[k]; ok && cur == b {
		b.value = extended
	}
	return nil
}

// Tag groups keys under tag. The keys do not have to be bound yet.
//
//	c.Tag("caches", "cache", "cache.memory")
func (c *Container) Tag(tag string, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if !slices.Contains(c.tags[tag], key) {
			c.tags[tag] = append(c.tags[tag], key)
		}
	}
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get returns the value bound to key, running its factory on first access.
func (c *Container) Get(key string) (any, error) {
	c.mu.RLock()
	k := c.canonical(key)
	b, ok := c.bindings[k]
	if ok && b.resolved {
		v := b.value
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	if !ok {
		loaded, err := c.loadDeferred(k)
		if err != nil {
			return nil, err
		}
		if !loaded {
			return nil, errors.Wrapf(ErrKeyNotFound, "%q", key)
		}
		return c.Get(key)
	}
	return c.build(k, b)
}

// loadDeferred runs the loader for key once, however many callers ask, and
// then drops it. It reports false when there was no loader or the loader did
// not bind key.
func (c *Container) loadDeferred(key string) (bool, error) {
	c.mu.RLock()
	d, ok := c.deferred[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}

	d.once.Do(func() { d.err = d.load() })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deferred[key] == d {
		delete(c.deferred, key)
	}
	if d.err != nil {
		return false, d.err
	}
	_, bound := c.bindings[key]
	return bound, nil
}

// Tagged resolves every key under tag in the order they were tagged.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	keys := append([]string(nil), c.tags[tag]...)
	c.mu.RUnlock()

	out := make([]any, 0, len(keys))
	for _, key := range keys {
		v, err := c.Get(key)
		if err != nil {
			return nil, errors.Wrapf(err, "tagged %q", tag)
		}
		out = append(out, v)
	}
	return out, nil
}

// MustGet is Get that panics on error.
func (c *Container) MustGet(key string) any {
	v, err := c.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

// build runs a binding's factory outside the container lock and caches the
// result unless the binding is transient or was replaced while building.
func (c *Container) build(key string, b *binding) (any, error) {
	for _, k := range c.chain {
		if k == key {
			chain := strings.Join(append(append([]string{}, c.chain...), key), " -> ")
			return nil, errors.Wrap(ErrCircularDependency, chain)
		}
	}
	scoped := &Container{
		table: c.table,
		chain: append(c.chain[:len(c.chain):len(c.chain)], key),
	}

	if !b.transient {
		b.building.Lock()
		defer b.building.Unlock()

		c.mu.RLock()
		resolved, v := b.resolved, b.value
		c.mu.RUnlock()
		if resolved {
			return v, nil
		}
	}

	instance, err := b.factory(scoped)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", key)
	}

	c.mu.RLock()
	exts := append([]Extender(nil), c.extenders[key]...)
	c.mu.RUnlock()
	for _, ext := range exts {
		if instance, err = ext(instance, scoped); err != nil {
			return nil, errors.Wrapf(err, "extend %q", key)
		}
	}

	if b.transient {
		return instance, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.bindings[key]; ok && cur == b && !b.resolved {
		b.value = instance
		b.resolved = true
	}
	return instance, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Has reports whether key is bound or waiting on a deferred loader. It never
// triggers resolution.
func (c *Container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k := c.canonical(key)
	if _, ok := c.bindings[k]; ok {
		return true
	}
	_, ok := c.deferred[k]
	return ok
}

// Resolved reports whether key holds a value without needing its factory.
func (c *Container) Resolved(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[c.canonical(key)]
	return ok && b.resolved
}

// Raw returns what was registered under key: the Factory for unresolved or
// transient bindings, the value otherwise.
func (c *Container) Raw(key string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[c.canonical(key)]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "%q", key)
	}
	if b.factory != nil && (!b.resolved || b.transient) {
		return b.factory, nil
	}
	return b.value, nil
}

// Forget removes the binding for key along with its extenders.
func (c *Container) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.canonical(key)
	delete(c.bindings, k)
	delete(c.extenders, k)
	delete(c.deferred, k)
}

// Keys returns the bound keys in sorted order.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings))
	for k := range c.bindings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// canonical resolves an alias to its canonical key.
func (c *Container) canonical(key string) string {
	if target, ok := c.aliases[key]; ok {
		return target
	}
	return key
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	store, err := container.Resolve[cache.Store](c, "cache")
func Resolve[T any](c *Container, key string) (T, error) {
	var zero T
	instance, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, errors.Wrapf(ErrTypeMismatch, "%q resolved to %T, want %T", key, instance, zero)
	}
	return typed, nil
}

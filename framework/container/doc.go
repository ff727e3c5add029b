// Package container provides the service container and service providers
// that the foundation bootstrap is built on.
//
// # Overview
//
// A Container maps string keys to either a concrete value or a factory. A
// factory bound with Bind is invoked the first time its key is requested; the
// result is cached and returned on every later request, so the same key always
// yields the same instance for the container's lifetime. There is no
// reflection-driven auto-wiring: every service is an explicit named factory.
//
// # Bindings
//
//	// Memoized: built on first Get, reused afterwards
//	c.Bind("cache", func(c *container.Container) (any, error) {
//	    return cache.NewFileStore(os.TempDir())
//	})
//
//	// Transient: new instance every Get
//	c.Factory("uuid", func(c *container.Container) (any, error) {
//	    return uuid.New(), nil
//	})
//
//	// Concrete value
//	c.Set("name", "demo")
//
//	// A function stored as a value, not called
//	c.Protect("rand", rand.Int)
//
// # Resolving
//
//	raw, err := c.Get("cache")
//	store, err := container.Resolve[cache.Store](c, "cache")
//
// Get on an unbound key fails with ErrKeyNotFound; a factory that requests
// its own key, directly or transitively, fails with ErrCircularDependency.
// Factory errors propagate and leave the binding unresolved.
//
// Concurrent Gets of an unresolved key wait for a single run of its factory.
// The chain used to detect cycles belongs to each resolution, so two
// goroutines building the same key never see each other as a cycle.
//
// # Tags
//
//	c.Tag("caches", "cache", "cache.memory")
//	stores, err := c.Tagged("caches") // resolved in tagging order
//
// # Extend / Decorate
//
//	c.Extend("cache", func(v any, c *container.Container) (any, error) {
//	    return &tracingStore{inner: v.(cache.Store)}, nil
//	})
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    app.Bind("mailer", newMailer)
//	    return nil
//	}
//
//	registry := container.NewProviderRegistry(c)
//	if err := registry.Register(&AppServiceProvider{}); err != nil { ... }
//	if err := registry.Boot(); err != nil { ... }
//
// A deferred provider (IsDeferred true) is only registered when one of the
// keys it Provides is first requested.
//
// Resolution is synchronous. The container's maps are guarded, but the first
// resolution of a key is not meant to race with itself.
package container

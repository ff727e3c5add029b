package container

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider adds bindings to a container.
//
// Register is called once, when the provider is registered. Boot is called
// after every provider has been registered, so it may resolve anything.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(app *container.Container) error {
//	    app.Bind("mailer", func(c *container.Container) (any, error) {
//	        return mail.NewSMTP()
//	    })
//	    return nil
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	Register(app *Container) error

	// Boot runs after all providers are registered.
	Boot(app *Container) error

	// Provides lists the keys a deferred provider binds.
	Provides() []string

	// IsDeferred reports whether Register should wait until one of the
	// Provides() keys is first requested.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider gives no-op Boot, Provides and IsDeferred. Embed it and only
// implement Register.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots providers against one container.
// Provider hooks run outside its lock, so a hook may resolve deferred keys.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // key → provider
	loaded     map[ServiceProvider]*providerLoad
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		deferred:   make(map[string]ServiceProvider),
		loaded:     make(map[ServiceProvider]*providerLoad),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and runs its Register hook unless it is deferred.
// Registering the same provider twice is a no-op. Hook errors come back
// wrapped with the provider type.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, key := range provider.Provides() {
			r.deferred[key] = provider
		}
		r.mu.Unlock()
		for _, key := range provider.Provides() {
			r.interceptDeferred(key, provider)
		}
		return nil
	}
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return errors.Wrapf(err, "register provider %T", provider)
	}

	r.mu.Lock()
	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	if booted {
		if err := provider.Boot(r.app); err != nil {
			return errors.Wrapf(err, "boot provider %T", provider)
		}
	}
	return nil
}

// interceptDeferred arranges for the first Get of key to load provider.
func (r *ProviderRegistry) interceptDeferred(key string, provider ServiceProvider) {
	r.app.Defer(key, func() error {
		return r.load(provider)
	})
}

// providerLoad records the one registration of a deferred provider.
type providerLoad struct {
	once sync.Once
	err  error
}

// load runs Register (and Boot, when the registry has booted) for a deferred
// provider exactly once. Callers for its other keys wait for that run.
func (r *ProviderRegistry) load(provider ServiceProvider) error {
	r.mu.Lock()
	l, ok := r.loaded[provider]
	if !ok {
		l = &providerLoad{}
		r.loaded[provider] = l
	}
	r.mu.Unlock()

	l.once.Do(func() { l.err = r.registerDeferred(provider) })
	return l.err
}

func (r *ProviderRegistry) registerDeferred(provider ServiceProvider) error {
	r.mu.Lock()
	for _, key := range provider.Provides() {
		if r.deferred[key] == provider {
			delete(r.deferred, key)
		}
	}
	booted := r.booted
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return errors.Wrapf(err, "register deferred provider %T", provider)
	}
	if booted {
		if err := provider.Boot(r.app); err != nil {
			return errors.Wrapf(err, "boot deferred provider %T", provider)
		}
	}
	return nil
}

// Boot calls Boot on every eager provider. Later calls are no-ops.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range eager {
		if err := provider.Boot(r.app); err != nil {
			return errors.Wrapf(err, "boot provider %T", provider)
		}
	}
	return nil
}

// Booted returns true once Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Deferred returns the keys still waiting on a deferred provider, sorted.
func (r *ProviderRegistry) Deferred() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.deferred))
	for k := range r.deferred {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

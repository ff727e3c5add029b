package providers

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-foundation/framework/cache"
	"github.com/km-arc/go-foundation/framework/config"
	"github.com/km-arc/go-foundation/framework/container"
)

// Keys bound by the providers in this package.
const (
	EnvKey         = "env"
	MemoryCacheKey = "cache.memory"
	RouterKey      = "router"
)

// ── EnvServiceProvider ────────────────────────────────────────────────────────

// EnvServiceProvider reads the process environment (and any .env files) into
// a configuration repository.
//
// Bound keys:
//   - "env" → *config.Repository
type EnvServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *EnvServiceProvider) Register(app *container.Container) error {
	files := p.EnvFiles
	app.Bind(EnvKey, func(*container.Container) (any, error) {
		return config.New(config.FromEnv(files...)), nil
	})
	return nil
}

// ── MemoryCacheServiceProvider ────────────────────────────────────────────────

// MemoryCacheServiceProvider offers an in-process cache next to the default
// file cache. It is deferred: nothing is registered until the key is first
// requested.
//
// Bound keys:
//   - "cache.memory" → *cache.MemoryStore
type MemoryCacheServiceProvider struct {
	container.BaseProvider
	CleanupInterval time.Duration // default: cache.DefaultCleanupInterval
}

func (p *MemoryCacheServiceProvider) Register(app *container.Container) error {
	interval := p.CleanupInterval
	if interval <= 0 {
		interval = cache.DefaultCleanupInterval
	}
	app.Bind(MemoryCacheKey, func(*container.Container) (any, error) {
		return cache.NewMemoryStore(interval), nil
	})
	return nil
}

func (p *MemoryCacheServiceProvider) Provides() []string { return []string{MemoryCacheKey} }
func (p *MemoryCacheServiceProvider) IsDeferred() bool   { return true }

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers a chi router. Handlers mounted on it can
// read path parameters through http.Request.RouteParam.
//
// Bound keys:
//   - "router" → *chi.Mux
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	app.Bind(RouterKey, func(*container.Container) (any, error) {
		return chi.NewRouter(), nil
	})
	return nil
}

// Defaults returns the providers a typical application registers.
func Defaults(envFiles ...string) []container.ServiceProvider {
	return []container.ServiceProvider{
		&EnvServiceProvider{EnvFiles: envFiles},
		&MemoryCacheServiceProvider{},
		&RoutingServiceProvider{},
	}
}

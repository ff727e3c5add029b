package foundation

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-foundation/framework/cache"
	"github.com/km-arc/go-foundation/framework/config"
	"github.com/km-arc/go-foundation/framework/container"
	gohttp "github.com/km-arc/go-foundation/framework/http"
	"github.com/km-arc/go-foundation/framework/log"
)

// Keys of the built-in bindings.
const (
	KeyRequest = "request"
	KeyHTTP    = "http"
	KeyCache   = "cache"

	// TagCaches groups every cache.Store binding; Caches resolves it.
	TagCaches = "caches"
)

// TestingEnv, when truthy, marks the process as a test run: the logger gets
// a null sink whatever the configuration says.
const TestingEnv = "FOUNDATION_TESTING"

// Foundation is the application root. It embeds the container, so
// app.Bind, app.Get and app.Set work directly on it, and it owns the
// configuration every built-in service is configured from.
type Foundation struct {
	*container.Container

	config    *config.Repository
	providers *container.ProviderRegistry
	logs      *log.Registry
}

// New bootstraps an application from cfg.
//
// In order: the configuration is stored; a truthy "debug" raises process-wide
// error verbosity; providers register; the request, http and cache bindings
// are installed; the logger is initialized unless the registry already holds
// one; providers boot. Any error aborts construction. Nothing registered
// before the failure is rolled back.
func New(cfg config.Map, opts ...Option) (*Foundation, error) {
	o := newOptions(opts)

	c := container.New()
	f := &Foundation{
		Container: c,
		config:    config.New(nil),
		providers: container.NewProviderRegistry(c),
		logs:      o.logs,
	}

	f.SetConfig(cfg)

	if f.Debug() {
		raiseVerbosity()
	}

	for _, p := range o.providers {
		if err := f.providers.Register(p); err != nil {
			return nil, err
		}
	}

	f.registerBase(o)
	f.initializeLogger(o.testing)

	if err := f.providers.Boot(); err != nil {
		return nil, err
	}
	return f, nil
}

// registerBase installs the request, http and cache bindings.
func (f *Foundation) registerBase(o options) {
	request := o.request
	f.Bind(KeyRequest, func(*container.Container) (any, error) {
		return request()
	})

	f.Bind(KeyHTTP, func(*container.Container) (any, error) {
		return gohttp.NewClient(f.Container, f.logs), nil
	})

	if store, ok := f.Config(KeyCache).(cache.Store); ok && store != nil {
		f.Instance(KeyCache, store)
	} else {
		f.Bind(KeyCache, func(*container.Container) (any, error) {
			return cache.NewFileStore(os.TempDir())
		})
	}
	f.Tag(TagCaches, KeyCache)
}

// initializeLogger installs the application logger unless one is already
// installed. The sink is the first match of: a null sink when debug is off or
// under test; the configured log.handler; a file sink for log.file; none.
func (f *Foundation) initializeLogger(underTest func() bool) {
	f.logs.InitOnce(func() *log.Logger {
		l := log.New(f.config.String("log.name", log.DefaultName))

		if !f.Debug() || underTest() {
			l.PushSink(log.NullSink{})
			return l
		}
		if sink, ok := f.Config("log.handler").(log.Sink); ok && sink != nil {
			l.PushSink(sink)
			return l
		}
		if file := f.Config("log.file"); config.Truthy(file) {
			l.PushSink(log.NewFileSink(
				fmt.Sprint(file),
				log.ParseLevel(f.Config("log.level"), logrus.WarnLevel),
				fileMode(f.Config("log.permission")),
			))
		}
		return l
	})
}

// raiseVerbosity makes crashes dump every goroutine and lets the standard
// logrus logger emit all levels.
var raiseVerbosity = func() {
	debug.SetTraceback("all")
	logrus.SetLevel(logrus.TraceLevel)
}

// UnderTest reports whether TestingEnv is set.
func UnderTest() bool {
	return config.Truthy(os.Getenv(TestingEnv))
}

func fileMode(v any) os.FileMode {
	switch p := v.(type) {
	case os.FileMode:
		return p
	case int:
		return os.FileMode(p)
	case uint32:
		return os.FileMode(p)
	case string:
		n, err := strconv.ParseUint(p, 8, 32)
		if err == nil {
			return os.FileMode(n)
		}
	}
	return 0
}

// ── Configuration ─────────────────────────────────────────────────────────────

// SetConfig replaces the whole configuration.
func (f *Foundation) SetConfig(cfg config.Map) { f.config.Set(cfg) }

// Config resolves a dotted key, returning nil when it cannot be resolved.
func (f *Foundation) Config(key string) any { return f.config.Get(key) }

// ConfigOr resolves a dotted key, falling back to def.
func (f *Foundation) ConfigOr(key string, def config.Default) any {
	return f.config.GetOr(key, def)
}

// AllConfig returns the whole configuration.
func (f *Foundation) AllConfig() config.Map { return f.config.All() }

// Debug reports whether the "debug" flag is truthy.
func (f *Foundation) Debug() bool { return config.Truthy(f.Config("debug")) }

// ── Services ──────────────────────────────────────────────────────────────────

// Register adds a provider after construction. It is booted immediately.
func (f *Foundation) Register(p container.ServiceProvider) error {
	return f.providers.Register(p)
}

// Providers returns the provider registry.
func (f *Foundation) Providers() *container.ProviderRegistry { return f.providers }

// Request resolves the request context.
func (f *Foundation) Request() (*gohttp.Request, error) {
	return container.Resolve[*gohttp.Request](f.Container, KeyRequest)
}

// HTTP resolves the outbound client facade.
func (f *Foundation) HTTP() (*gohttp.Client, error) {
	return container.Resolve[*gohttp.Client](f.Container, KeyHTTP)
}

// Cache resolves the application cache.
func (f *Foundation) Cache() (cache.Store, error) {
	return container.Resolve[cache.Store](f.Container, KeyCache)
}

// Caches resolves every store tagged TagCaches.
func (f *Foundation) Caches() ([]cache.Store, error) {
	tagged, err := f.Tagged(TagCaches)
	if err != nil {
		return nil, err
	}
	out := make([]cache.Store, 0, len(tagged))
	for _, v := range tagged {
		store, ok := v.(cache.Store)
		if !ok {
			return nil, errors.Wrapf(container.ErrTypeMismatch, "%s: %T is not a cache.Store", TagCaches, v)
		}
		out = append(out, store)
	}
	return out, nil
}

// Logger returns the installed application logger.
func (f *Foundation) Logger() (*log.Logger, error) { return f.logs.Logger() }

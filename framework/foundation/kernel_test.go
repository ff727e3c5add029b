package foundation_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-foundation/framework/cache"
	"github.com/km-arc/go-foundation/framework/config"
	"github.com/km-arc/go-foundation/framework/container"
	"github.com/km-arc/go-foundation/framework/foundation"
	gohttp "github.com/km-arc/go-foundation/framework/http"
	"github.com/km-arc/go-foundation/framework/log"
)

func notUnderTest() bool { return false }

// newApp builds a Foundation with its own log registry.
func newApp(t *testing.T, cfg config.Map, opts ...foundation.Option) (*foundation.Foundation, *log.Registry) {
	t.Helper()
	logs := log.NewRegistry()
	app, err := foundation.New(cfg, append([]foundation.Option{foundation.WithLogRegistry(logs)}, opts...)...)
	require.NoError(t, err)
	return app, logs
}

// recordingProvider appends its name to a shared journal on Register and Boot.
type recordingProvider struct {
	container.BaseProvider
	name    string
	journal *[]string
}

func (p *recordingProvider) Register(c *container.Container) error {
	*p.journal = append(*p.journal, "register:"+p.name)
	c.Set(p.name, p.name+"-service")
	return nil
}

func (p *recordingProvider) Boot(*container.Container) error {
	*p.journal = append(*p.journal, "boot:"+p.name)
	return nil
}

type failingProvider struct {
	container.BaseProvider
}

var errProvider = errors.New("provider exploded")

func (*failingProvider) Register(*container.Container) error { return errProvider }

// ── Configuration ─────────────────────────────────────────────────────────────

func TestNew_Config(t *testing.T) {
	app, _ := newApp(t, config.Map{
		"db":    config.Map{"host": "localhost", "port": 5432},
		"top":   nil,
		"debug": false,
	})

	assert.Equal(t, "localhost", app.Config("db.host"))
	assert.Equal(t, 5432, app.Config("db.port"))
	assert.Nil(t, app.Config("db.user"))
	assert.Equal(t, "root", app.ConfigOr("db.user", config.Value("root")))
	assert.Equal(t, "fallback", app.ConfigOr("top", config.Value("fallback")))
	assert.False(t, app.Debug())
	assert.Len(t, app.AllConfig(), 3)

	app.SetConfig(config.Map{"debug": "1"})
	assert.True(t, app.Debug())
	assert.Nil(t, app.Config("db.host"))
}

func TestNew_NilConfig(t *testing.T) {
	app, _ := newApp(t, nil)
	assert.Empty(t, app.AllConfig())
	assert.False(t, app.Debug())
}

// ── Providers ─────────────────────────────────────────────────────────────────

func TestNew_ProvidersRegisterInOrderThenBoot(t *testing.T) {
	var journal []string
	a := &recordingProvider{name: "a", journal: &journal}
	b := &recordingProvider{name: "b", journal: &journal}

	app, _ := newApp(t, nil, foundation.WithProviders(a, b))

	assert.Equal(t, []string{"register:a", "register:b", "boot:a", "boot:b"}, journal)
	assert.Equal(t, "a-service", app.MustGet("a"))
	assert.True(t, app.Providers().Booted())
	assert.Len(t, app.Providers().Providers(), 2)
}

func TestNew_ProviderErrorAbortsConstruction(t *testing.T) {
	var journal []string
	ok := &recordingProvider{name: "ok", journal: &journal}
	logs := log.NewRegistry()

	app, err := foundation.New(nil,
		foundation.WithLogRegistry(logs),
		foundation.WithProviders(ok, &failingProvider{}),
	)

	require.Error(t, err)
	assert.Nil(t, app)
	assert.ErrorIs(t, err, errProvider)
	assert.Equal(t, []string{"register:ok"}, journal)
	assert.False(t, logs.Has(), "logger must not be initialized after a provider failure")
}

func TestRegister_AfterConstructionBootsImmediately(t *testing.T) {
	app, _ := newApp(t, nil)

	var journal []string
	require.NoError(t, app.Register(&recordingProvider{name: "late", journal: &journal}))
	assert.Equal(t, []string{"register:late", "boot:late"}, journal)
}

// ── Base bindings ─────────────────────────────────────────────────────────────

func TestNew_BaseBindingsAreLazy(t *testing.T) {
	app, _ := newApp(t, nil)

	for _, key := range []string{foundation.KeyRequest, foundation.KeyHTTP, foundation.KeyCache} {
		assert.True(t, app.Has(key), key)
		assert.False(t, app.Resolved(key), key)
	}
}

func TestNew_DefaultCacheRootedAtTempDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	app, _ := newApp(t, nil)

	assert.False(t, app.Resolved(foundation.KeyCache))

	store, err := app.Cache()
	require.NoError(t, err)
	fs, ok := store.(*cache.FileStore)
	require.True(t, ok, "default cache should be a *cache.FileStore, got %T", store)
	assert.Equal(t, os.TempDir(), fs.Dir())
	assert.Equal(t, filepath.Join(tmp, cache.Namespace), fs.Path())

	again, err := app.Cache()
	require.NoError(t, err)
	assert.Same(t, fs, again)
}

func TestNew_ConfiguredCacheIsBoundAsIs(t *testing.T) {
	mem := cache.NewMemoryStore(0)
	app, _ := newApp(t, config.Map{"cache": mem})

	store, err := app.Cache()
	require.NoError(t, err)
	assert.Same(t, mem, store)

	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), cache.NoExpiration))
	assert.Equal(t, 1, mem.Len())
}

func TestNew_NonStoreCacheConfigFallsBackToFileStore(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	app, _ := newApp(t, config.Map{"cache": "redis://nowhere"})

	store, err := app.Cache()
	require.NoError(t, err)
	assert.IsType(t, &cache.FileStore{}, store)
}

func TestNew_RequestUsesFactory(t *testing.T) {
	want := gohttp.NewRequest(httptest.NewRequest("GET", "/ping?x=1", nil))
	calls := 0
	app, _ := newApp(t, nil, foundation.WithRequestFactory(func() (*gohttp.Request, error) {
		calls++
		return want, nil
	}))

	assert.Equal(t, 0, calls)
	got, err := app.Request()
	require.NoError(t, err)
	assert.Same(t, want, got)
	_, _ = app.Request()
	assert.Equal(t, 1, calls)
}

func TestNew_RequestFactoryErrorSurfacesOnGet(t *testing.T) {
	boom := errors.New("no request")
	app, _ := newApp(t, nil, foundation.WithRequestFactory(func() (*gohttp.Request, error) {
		return nil, boom
	}))

	_, err := app.Request()
	assert.ErrorIs(t, err, boom)
	assert.False(t, app.Resolved(foundation.KeyRequest))
}

func TestNew_HTTPClientIsMemoized(t *testing.T) {
	app, _ := newApp(t, nil)

	first, err := app.HTTP()
	require.NoError(t, err)
	second, err := app.HTTP()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCaches_ResolvesTaggedStores(t *testing.T) {
	mem := cache.NewMemoryStore(0)
	app, _ := newApp(t, config.Map{"cache": mem})

	other := cache.NewMemoryStore(0)
	app.Set("cache.other", other)
	app.Tag(foundation.TagCaches, "cache.other")

	stores, err := app.Caches()
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Same(t, mem, stores[0])
	assert.Same(t, other, stores[1])

	app.Set("not-a-cache", 42)
	app.Tag(foundation.TagCaches, "not-a-cache")
	_, err = app.Caches()
	assert.ErrorIs(t, err, container.ErrTypeMismatch)
}

func TestGet_UnknownKey(t *testing.T) {
	app, _ := newApp(t, nil)

	_, err := app.Get("nope")
	assert.ErrorIs(t, err, container.ErrKeyNotFound)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func TestLogger_NullSinkWithoutDebug(t *testing.T) {
	app, _ := newApp(t, config.Map{"log": config.Map{"file": "/tmp/never.log"}},
		foundation.WithTestMarker(notUnderTest))

	l, err := app.Logger()
	require.NoError(t, err)
	assert.Equal(t, log.DefaultName, l.Name())
	require.Len(t, l.Sinks(), 1)
	assert.IsType(t, log.NullSink{}, l.Sinks()[0])
}

func TestLogger_NullSinkUnderTest(t *testing.T) {
	t.Setenv(foundation.TestingEnv, "1")
	app, _ := newApp(t, config.Map{
		"debug": true,
		"log":   config.Map{"file": "/tmp/never.log"},
	})

	l, err := app.Logger()
	require.NoError(t, err)
	require.Len(t, l.Sinks(), 1)
	assert.IsType(t, log.NullSink{}, l.Sinks()[0])
}

func TestUnderTest_Env(t *testing.T) {
	t.Setenv(foundation.TestingEnv, "")
	assert.False(t, foundation.UnderTest())

	t.Setenv(foundation.TestingEnv, "1")
	assert.True(t, foundation.UnderTest())
}

func TestLogger_DebugOutsideTestsUsesConfiguredSink(t *testing.T) {
	t.Setenv(foundation.TestingEnv, "")
	hook := new(test.Hook)
	app, _ := newApp(t, config.Map{
		"debug": true,
		"log":   config.Map{"handler": hook},
	})

	l, err := app.Logger()
	require.NoError(t, err)
	require.Len(t, l.Sinks(), 1)
	assert.Same(t, hook, l.Sinks()[0])
}

func TestLogger_ConfiguredHandler(t *testing.T) {
	hook := new(test.Hook)
	app, _ := newApp(t, config.Map{
		"debug": true,
		"log": config.Map{
			"name":    "billing",
			"handler": hook,
			"file":    "/tmp/ignored.log",
		},
	}, foundation.WithTestMarker(notUnderTest))

	l, err := app.Logger()
	require.NoError(t, err)
	assert.Equal(t, "billing", l.Name())
	require.Len(t, l.Sinks(), 1)
	assert.Same(t, hook, l.Sinks()[0])

	l.Warn("charged twice")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "charged twice", entry.Message)
	assert.Equal(t, "billing", entry.Data["channel"])
}

func TestLogger_FileSinkDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	app, _ := newApp(t, config.Map{
		"debug": true,
		"log":   config.Map{"file": path},
	}, foundation.WithTestMarker(notUnderTest))

	l, err := app.Logger()
	require.NoError(t, err)
	require.Len(t, l.Sinks(), 1)
	sink, ok := l.Sinks()[0].(*log.FileSink)
	require.True(t, ok, "want *log.FileSink, got %T", l.Sinks()[0])
	assert.Equal(t, path, sink.Path())
	assert.Equal(t, logrus.WarnLevel, sink.Level())
	assert.Zero(t, sink.Perm())

	l.Info("below threshold")
	l.Error("kept")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), "kept")
	require.NoError(t, sink.Close())
}

func TestLogger_FileSinkLevelAndPermission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	app, _ := newApp(t, config.Map{
		"debug": true,
		"log": config.Map{
			"file":       path,
			"level":      "debug",
			"permission": "0600",
		},
	}, foundation.WithTestMarker(notUnderTest))

	l, err := app.Logger()
	require.NoError(t, err)
	sink := l.Sinks()[0].(*log.FileSink)
	assert.Equal(t, logrus.DebugLevel, sink.Level())
	assert.Equal(t, os.FileMode(0o600), sink.Perm())
}

func TestLogger_NoSinkWhenDebugWithoutTarget(t *testing.T) {
	app, _ := newApp(t, config.Map{"debug": true}, foundation.WithTestMarker(notUnderTest))

	l, err := app.Logger()
	require.NoError(t, err)
	assert.Empty(t, l.Sinks())
}

func TestLogger_InitializedOncePerRegistry(t *testing.T) {
	logs := log.NewRegistry()

	first, err := foundation.New(config.Map{"log": config.Map{"name": "first"}}, foundation.WithLogRegistry(logs))
	require.NoError(t, err)
	second, err := foundation.New(config.Map{"log": config.Map{"name": "second"}}, foundation.WithLogRegistry(logs))
	require.NoError(t, err)

	l1, err := first.Logger()
	require.NoError(t, err)
	l2, err := second.Logger()
	require.NoError(t, err)
	assert.Same(t, l1, l2)
	assert.Equal(t, "first", l2.Name())
}

func TestLogger_PreinstalledLoggerIsKept(t *testing.T) {
	logs := log.NewRegistry()
	mine := log.New("mine")
	logs.Set(mine)

	app, err := foundation.New(nil, foundation.WithLogRegistry(logs))
	require.NoError(t, err)

	l, err := app.Logger()
	require.NoError(t, err)
	assert.Same(t, mine, l)
	assert.Empty(t, mine.Sinks())
}

func TestLogger_ProcessRegistryByDefault(t *testing.T) {
	log.Reset()
	t.Cleanup(log.Reset)

	_, err := foundation.New(config.Map{"log": config.Map{"name": "process"}})
	require.NoError(t, err)

	require.True(t, log.HasLogger())
	l, err := log.Current()
	require.NoError(t, err)
	assert.Equal(t, "process", l.Name())
}

func TestHTTPClient_LogsThroughApplicationLogger(t *testing.T) {
	hook := new(test.Hook)
	app, _ := newApp(t, config.Map{
		"debug": true,
		"log":   config.Map{"handler": hook},
	}, foundation.WithTestMarker(notUnderTest))

	client, err := app.HTTP()
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "http://127.0.0.1:0/unreachable", nil)
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
}

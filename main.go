package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-foundation/framework/cache"
	"github.com/km-arc/go-foundation/framework/config"
	"github.com/km-arc/go-foundation/framework/container"
	"github.com/km-arc/go-foundation/framework/foundation"
	gohttp "github.com/km-arc/go-foundation/framework/http"
	"github.com/km-arc/go-foundation/framework/providers"
)

func main() {
	// APP_DEBUG, LOG_FILE, LOG_LEVEL ... from the environment and .env
	cfg := config.FromEnv()

	app, err := foundation.New(cfg, foundation.WithProviders(providers.Defaults()...))
	if err != nil {
		logrus.WithError(err).Fatal("bootstrap failed")
	}

	logger, err := app.Logger()
	if err != nil {
		logrus.WithError(err).Fatal("no logger")
	}
	logger.WithField("debug", app.Debug()).Info("application booted")

	// ── Cache ────────────────────────────────────────────────────────────────

	store, err := app.Cache()
	if err != nil {
		logger.WithError(err).Fatal("cache unavailable")
	}
	started, err := cache.Remember(context.Background(), store, "started-at", time.Hour,
		func(context.Context) ([]byte, error) {
			return []byte(time.Now().Format(time.RFC3339)), nil
		})
	if err != nil {
		logger.WithError(err).Error("cache write failed")
	}

	// ── Routes ───────────────────────────────────────────────────────────────

	r, err := container.Resolve[*chi.Mux](app.Container, providers.RouterKey)
	if err != nil {
		logger.WithError(err).Fatal("router unavailable")
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("started at " + string(started) + "\n"))
	})

	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		request := gohttp.NewRequest(req)
		logger.WithField("id", request.RouteParam("id")).Debug("user lookup")
		_, _ = w.Write([]byte(request.RouteParam("id") + "\n"))
	})

	addr := ":" + env("APP_PORT", "8000")
	logger.WithField("addr", addr).Info("listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

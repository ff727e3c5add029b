package foundation

import (
	"github.com/km-arc/go-foundation/framework/container"
	gohttp "github.com/km-arc/go-foundation/framework/http"
	"github.com/km-arc/go-foundation/framework/log"
)

// Option configures New.
type Option func(*options)

type options struct {
	providers []container.ServiceProvider
	logs      *log.Registry
	testing   func() bool
	request   func() (*gohttp.Request, error)
}

func newOptions(opts []Option) options {
	o := options{
		logs:    log.Default(),
		testing: UnderTest,
		request: gohttp.FromEnvironment,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithProviders sets the providers registered during construction, in order.
func WithProviders(providers ...container.ServiceProvider) Option {
	return func(o *options) {
		o.providers = append(o.providers, providers...)
	}
}

// WithLogRegistry installs the logger into r instead of the process-wide
// registry.
func WithLogRegistry(r *log.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.logs = r
		}
	}
}

// WithTestMarker replaces the check that forces a null log sink under test.
func WithTestMarker(fn func() bool) Option {
	return func(o *options) {
		if fn != nil {
			o.testing = fn
		}
	}
}

// WithRequestFactory replaces how the "request" binding is built.
func WithRequestFactory(fn func() (*gohttp.Request, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.request = fn
		}
	}
}

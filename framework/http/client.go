package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-foundation/framework/container"
	"github.com/km-arc/go-foundation/framework/log"
)

// ClientKey is the container key an application may bind a custom
// *http.Client under. The facade falls back to a client with DefaultTimeout.
const ClientKey = "http.client"

// DefaultTimeout bounds requests made with the fallback client.
const DefaultTimeout = 30 * time.Second

// Client is the facade bound under the "http" key. It keeps a reference to the
// container so the transport it uses can be swapped by binding ClientKey.
type Client struct {
	app      *container.Container
	logs     *log.Registry
	fallback *http.Client
}

// NewClient creates the facade for app. Exchanges are logged through the
// logger held by logs; a nil logs means the process-wide registry.
func NewClient(app *container.Container, logs *log.Registry) *Client {
	if logs == nil {
		logs = log.Default()
	}
	return &Client{
		app:      app,
		logs:     logs,
		fallback: &http.Client{Timeout: DefaultTimeout},
	}
}

// HTTPClient returns the *http.Client bound under ClientKey, or the fallback.
func (c *Client) HTTPClient() (*http.Client, error) {
	if c.app == nil || !c.app.Has(ClientKey) {
		return c.fallback, nil
	}
	return container.Resolve[*http.Client](c.app, ClientKey)
}

// Do sends req and logs the exchange through the application logger when
// one is installed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	hc, err := c.HTTPClient()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := hc.Do(req)
	fields := logrus.Fields{
		"method":   req.Method,
		"url":      req.URL.Redacted(),
		"duration": time.Since(start),
	}
	if err != nil {
		c.logEntry(fields).WithError(err).Error("http request failed")
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Redacted())
	}
	fields["status"] = resp.StatusCode
	c.logEntry(fields).Debug("http request")
	return resp, nil
}

// Request builds and sends a request.
func (c *Client) Request(ctx context.Context, method, rawURL string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Do(req)
}

// Get sends a GET with query merged into rawURL's query string.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*http.Response, error) {
	if len(query) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse url")
		}
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}
	return c.Request(ctx, http.MethodGet, rawURL, nil, nil)
}

// PostForm sends form as an urlencoded body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	return c.Request(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), header)
}

// PostJSON sends v encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, rawURL string, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode json body")
	}
	header := http.Header{"Content-Type": {"application/json"}}
	return c.Request(ctx, http.MethodPost, rawURL, bytes.NewReader(body), header)
}

// ParseJSON decodes resp's body into v and closes it. Non-2xx responses are
// returned as errors carrying the status and body.
func ParseJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}

// logEntry returns an entry on the installed logger, or on a discarding
// logger when none is installed yet.
func (c *Client) logEntry(fields logrus.Fields) *logrus.Entry {
	l, err := c.logs.Logger()
	if err != nil {
		return quiet.WithFields(fields)
	}
	return l.WithFields(fields)
}

var quiet = log.New("http")

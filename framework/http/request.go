package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/cgi"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// maxFormMemory caps how much of a multipart body is held in memory.
const maxFormMemory = 32 << 20

// ErrEmptyBody is returned by Bind when a JSON request carries no body.
var ErrEmptyBody = errors.New("http: empty request body")

// Request is the request context bound under the "request" key.
type Request struct {
	raw *http.Request
}

// NewRequest wraps r.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// FromEnvironment builds the request the process was started for, using the
// CGI variables in the environment (REQUEST_METHOD, QUERY_STRING, HTTP_*
// headers, CONTENT_LENGTH with the body on stdin).
func FromEnvironment() (*Request, error) {
	r, err := cgi.Request()
	if err != nil {
		return nil, errors.Wrap(err, "http: request from environment")
	}
	return NewRequest(r), nil
}

// Raw returns the wrapped *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes the body into v by media type. Form fields are matched to v's
// JSON field names; repeated fields become slices.
func (req *Request) Bind(v any) error {
	switch req.mediaType() {
	case "application/json":
		return req.decodeJSON(v)
	case "multipart/form-data":
		if err := req.raw.ParseMultipartForm(maxFormMemory); err != nil {
			return errors.Wrap(err, "http: parse multipart form")
		}
		return decodeForm(req.raw.MultipartForm.Value, v)
	default:
		if err := req.raw.ParseForm(); err != nil {
			return errors.Wrap(err, "http: parse form")
		}
		return decodeForm(req.raw.PostForm, v)
	}
}

func (req *Request) decodeJSON(v any) error {
	if req.raw.Body == nil {
		return ErrEmptyBody
	}
	defer req.raw.Body.Close()

	err := json.NewDecoder(req.raw.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return errors.Wrap(err, "http: decode json body")
}

func decodeForm(values url.Values, v any) error {
	fields := make(map[string]any, len(values))
	for name, vals := range values {
		if len(vals) == 1 {
			fields[name] = vals[0]
			continue
		}
		fields[name] = vals
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "http: encode form")
	}
	return errors.Wrap(json.Unmarshal(raw, v), "http: decode form")
}

// ── Input ────────────────────────────────────────────────────────────────────

// Input returns a query or form value, or the first fallback when it is empty.
func (req *Request) Input(key string, fallback ...string) string {
	_ = req.raw.ParseForm()
	return orFallback(req.raw.Form.Get(key), fallback)
}

// Query returns a query-string value, or the first fallback when it is empty.
func (req *Request) Query(key string, fallback ...string) string {
	return orFallback(req.raw.URL.Query().Get(key), fallback)
}

// Has reports whether key carries a non-empty query or form value.
func (req *Request) Has(key string) bool { return req.Input(key) != "" }

// RouteParam returns a path parameter captured by a chi router.
func (req *Request) RouteParam(key string) string { return chi.URLParam(req.raw, key) }

func orFallback(v string, fallback []string) string {
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// ── Headers ──────────────────────────────────────────────────────────────────

func (req *Request) Header(key string) string { return req.raw.Header.Get(key) }
func (req *Request) Method() string           { return req.raw.Method }
func (req *Request) Path() string             { return req.raw.URL.Path }
func (req *Request) ContentType() string      { return req.raw.Header.Get("Content-Type") }

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func (req *Request) BearerToken() string {
	token, ok := strings.CutPrefix(req.Header("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// IsJSON reports whether the request sends or accepts JSON.
func (req *Request) IsJSON() bool {
	return req.mediaType() == "application/json" ||
		strings.Contains(req.Header("Accept"), "application/json")
}

func (req *Request) mediaType() string {
	mt, _, err := mime.ParseMediaType(req.ContentType())
	if err != nil {
		return ""
	}
	return mt
}

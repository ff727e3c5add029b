package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Map is a nested configuration structure. Values may be scalars, nested
// maps or slices, or prebuilt objects such as a cache store or a log sink.
type Map = map[string]any

// Indexable is implemented by configuration nodes that are not plain maps or
// slices but still support key lookup.
type Indexable interface {
	Has(key string) bool
	Index(key string) any
}

// ── Default ──────────────────────────────────────────────────────────────────

// Default is the fallback used when a key cannot be resolved. It is either a
// literal (Value) or a producer (Lazy) that only runs on a miss.
type Default struct {
	value any
	lazy  func() any
}

// Value returns a literal default.
func Value(v any) Default { return Default{value: v} }

// Lazy returns a default computed by fn, invoked only when needed.
func Lazy(fn func() any) Default { return Default{lazy: fn} }

// Resolve produces the default value.
func (d Default) Resolve() any {
	if d.lazy != nil {
		return d.lazy()
	}
	return d.value
}

// ── Repository ───────────────────────────────────────────────────────────────

// Repository holds the application configuration and resolves dotted keys
// such as "log.file" against it.
type Repository struct {
	mu    sync.RWMutex
	items Map
}

// New creates a repository over items.
func New(items Map) *Repository {
	r := &Repository{}
	r.Set(items)
	return r
}

// Set replaces the whole configuration.
func (r *Repository) Set(items Map) {
	if items == nil {
		items = Map{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = items
}

// All returns the whole configuration.
func (r *Repository) All() Map {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items
}

// Get resolves key, returning nil when it cannot be resolved.
func (r *Repository) Get(key string) any {
	return r.GetOr(key, Default{})
}

// GetOr resolves key, falling back to def.
//
// A top-level key holding a non-nil value is returned directly. A top-level
// key holding nil counts as missing there. Otherwise the key is split on "."
// and walked; a path that resolves returns its value even when that value is
// nil.
func (r *Repository) GetOr(key string, def Default) any {
	if v, ok := r.Lookup(key); ok {
		return v
	}
	return def.Resolve()
}

// Lookup resolves key and reports whether it was found.
//
// A non-nil value stored under the literal key wins. Otherwise a dotted key
// is walked segment by segment. A top-level key without dots that holds nil
// counts as missing, while nil reached by walking is found.
func (r *Repository) Lookup(key string) (any, bool) {
	r.mu.RLock()
	items := r.items
	r.mu.RUnlock()

	if v, ok := items[key]; ok {
		if v != nil {
			return v, true
		}
		if !strings.Contains(key, ".") {
			return nil, false
		}
	}

	var node any = items
	for _, segment := range strings.Split(key, ".") {
		next, ok := child(node, segment)
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, true
}

// child indexes node by segment.
func child(node any, segment string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[segment]
		return v, ok
	case map[string]string:
		v, ok := n[segment]
		return v, ok
	case []any:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(n) {
			return nil, false
		}
		return n[i], true
	case Indexable:
		if !n.Has(segment) {
			return nil, false
		}
		return n.Index(segment), true
	}
	return nil, false
}

// ── Typed helpers ────────────────────────────────────────────────────────────

// String returns key as a string, or fallback when it is missing.
func (r *Repository) String(key, fallback string) string {
	v, ok := r.Lookup(key)
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the truthiness of key, or fallback when it is missing.
func (r *Repository) Bool(key string, fallback bool) bool {
	v, ok := r.Lookup(key)
	if !ok {
		return fallback
	}
	return Truthy(v)
}

// Int returns key as an int, or fallback when it is missing or not numeric.
func (r *Repository) Int(key string, fallback int) int {
	v, ok := r.Lookup(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint32:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.ParseInt(n, 0, 64)
		if err != nil {
			return fallback
		}
		return int(i)
	}
	return fallback
}

// Truthy reports whether v counts as "on": nil, false, zero numbers, "",
// "0" and empty maps or slices do not.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

package config

import (
	"strings"
	"time"
)

// Config is a read-only view over decoded YAML or JSON. Keys are either
// literal top-level keys or dotted paths into nested maps ("store.dsn").
// Typed getters fall back to their default when a key is missing or holds
// the wrong kind of value.
type Config struct {
	data map[string]any
}

// New wraps data. A nil map gives an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = map[string]any{}
	}
	return Config{data: data}
}

// Raw exposes the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any { return c.data }

func (c Config) Value(key string) any {
	v, _ := c.lookup(key)
	return v
}

func (c Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Sub returns the section at key, or an empty Config when key is not a
// map.
func (c Config) Sub(key string) Config {
	v, _ := c.lookup(key)
	m, _ := asMap(v)
	return New(m)
}

func (c Config) String(key, def string) string {
	return typed(c, key, def)
}

func (c Config) Bool(key string, def bool) bool {
	return typed(c, key, def)
}

// Int accepts integers and floats without a fractional part.
func (c Config) Int(key string, def int) int {
	switch n := c.Value(key).(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	return def
}

// Duration parses strings like "1m30s". Bare numbers count seconds.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	switch v := c.Value(key).(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

func typed[T any](c Config, key string, def T) T {
	if v, ok := c.Value(key).(T); ok {
		return v
	}
	return def
}

func (c Config) lookup(key string) (any, bool) {
	if v, ok := c.data[key]; ok {
		return v, true
	}
	head, rest, dotted := strings.Cut(key, ".")
	if !dotted {
		return nil, false
	}
	next, ok := c.data[head]
	if !ok {
		return nil, false
	}
	m, ok := asMap(next)
	if !ok {
		return nil, false
	}
	return Config{data: m}.lookup(rest)
}

// asMap accepts the map shapes YAML and JSON decoders produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	}
	return nil, false
}

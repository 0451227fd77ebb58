// Package config provides the configuration system for easysms.
//
// Config is a read-only nested key/value store. It offers two lookups:
// Lookup matches a top-level key exactly, while Get also walks dot-delimited
// paths through nested mappings and sequences. Get tries the exact top-level
// key first, so a literal key such as "a.b.c" shadows the path a → b → c.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is an immutable mapping from string keys to arbitrary values.
// Set and Delete exist for tests and are not safe for concurrent use.
type Config struct {
	items map[string]any
}

// NewConfig creates a Config over a shallow copy of items.
func NewConfig(items map[string]any) *Config {
	copied := make(map[string]any, len(items))
	for k, v := range items {
		copied[k] = v
	}
	return &Config{items: copied}
}

// Get returns the value at key, or the first default when it cannot be resolved.
func (c *Config) Get(key string, def ...any) any {
	fallback := func() any {
		if len(def) > 0 {
			return def[0]
		}
		return nil
	}
	if c == nil {
		return fallback()
	}

	if v, ok := c.items[key]; ok {
		return v
	}
	if !strings.Contains(key, ".") {
		return fallback()
	}

	var current any = c.items
	for _, segment := range strings.Split(key, ".") {
		next, ok := index(current, segment)
		if !ok {
			return fallback()
		}
		current = next
	}
	return current
}

// index reads one path segment from a mapping or sequence.
func index(container any, segment string) (any, bool) {
	switch v := container.(type) {
	case map[string]any:
		val, ok := v[segment]
		return val, ok
	case map[any]any:
		val, ok := v[segment]
		return val, ok
	case map[string]string:
		val, ok := v[segment]
		return val, ok
	case *Config:
		if v == nil {
			return nil, false
		}
		val, ok := v.items[segment]
		return val, ok
	case []any:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	case []string:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	default:
		return nil, false
	}
}

// Lookup returns the top-level value stored under key without path traversal.
func (c *Config) Lookup(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.items[key]
	return v, ok
}

// Has reports whether key exists at the top level.
func (c *Config) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Set replaces the top-level value under an existing key. Absent keys are
// left absent: Set never adds entries.
func (c *Config) Set(key string, value any) {
	if c == nil {
		return
	}
	if _, ok := c.items[key]; ok {
		c.items[key] = value
	}
}

// Delete removes a top-level key. Deleting an absent key is a no-op.
func (c *Config) Delete(key string) {
	if c == nil {
		return
	}
	delete(c.items, key)
}

// Len returns the number of top-level keys.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// All returns a shallow copy of the top-level mapping.
func (c *Config) All() map[string]any {
	out := make(map[string]any, c.Len())
	if c == nil {
		return out
	}
	for k, v := range c.items {
		out[k] = v
	}
	return out
}

// With returns a copy of the config with key set to value, adding the key if needed.
func (c *Config) With(key string, value any) *Config {
	items := c.All()
	items[key] = value
	return &Config{items: items}
}

// GetString returns the value at key rendered as a string.
func (c *Config) GetString(key string, def string) string {
	switch v := c.Get(key).(type) {
	case nil:
		return def
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case int, int64, int32, float64, float32, bool, uint, uint64:
		return fmt.Sprint(v)
	default:
		return def
	}
}

// GetInt returns the value at key as an int.
func (c *Config) GetInt(key string, def int) int {
	switch v := c.Get(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

// GetFloat returns the value at key as a float64.
func (c *Config) GetFloat(key string, def float64) float64 {
	switch v := c.Get(key).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// GetBool returns the value at key as a bool.
func (c *Config) GetBool(key string, def bool) bool {
	switch v := c.Get(key).(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// GetDuration returns the value at key as a duration. Bare numbers are seconds.
func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	if d, ok := toDuration(c.Get(key)); ok {
		return d
	}
	return def
}

// GetStringMap returns the mapping stored at key, or an empty map.
func (c *Config) GetStringMap(key string) map[string]any {
	switch v := c.Get(key).(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out
	case *Config:
		return v.All()
	default:
		return map[string]any{}
	}
}

// GetStrings returns the sequence stored at key as strings. A plain string is
// split on commas.
func (c *Config) GetStrings(key string) []string {
	switch v := c.Get(key).(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return splitList(v)
	default:
		return nil
	}
}

// Sub returns the mapping at key as a Config; missing or scalar values give an empty Config.
func (c *Config) Sub(key string) *Config {
	return NewConfig(c.GetStringMap(key))
}

// MarshalJSON renders the top-level mapping.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.All())
}

func toDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case int:
		return time.Duration(d) * time.Second, true
	case int64:
		return time.Duration(d) * time.Second, true
	case float64:
		return time.Duration(d * float64(time.Second)), true
	case string:
		s := strings.TrimSpace(d)
		if parsed, err := time.ParseDuration(s); err == nil {
			return parsed, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(f * float64(time.Second)), true
		}
	}
	return 0, false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

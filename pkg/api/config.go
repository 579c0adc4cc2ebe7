package api

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds the free-form options of an action or trigger as decoded
// from a workflow document. Numbers may arrive as int (YAML) or float64
// (JSON), so every numeric getter accepts both
type Config map[string]any

// Has reports whether the key is present
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// String returns the value for key rendered as a string, or def when the
// key is missing
func (c Config) String(key, def string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value for key as an int, or def when missing or not
// numeric
func (c Config) Int(key string, def int) int {
	if f, ok := c.number(key); ok {
		return int(f)
	}
	return def
}

// Float returns the value for key as a float64, or def when missing or not
// numeric
func (c Config) Float(key string, def float64) float64 {
	if f, ok := c.number(key); ok {
		return f
	}
	return def
}

// Bool returns the value for key as a bool, or def when missing
func (c Config) Bool(key string, def bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Duration interprets a number as seconds and a string as a Go duration
// ("500ms", "1m30s")
func (c Config) Duration(key string, def time.Duration) time.Duration {
	if s, ok := c[key].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		return def
	}
	if f, ok := c.number(key); ok {
		return time.Duration(f * float64(time.Second))
	}
	return def
}

// Strings returns the value for key as a string slice. A single string is
// returned as a one-element slice
func (c Config) Strings(key string) []string {
	switch v := c[key].(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		res := make([]string, 0, len(v))
		for _, e := range v {
			res = append(res, fmt.Sprint(e))
		}
		return res
	}
	return nil
}

// Map returns a nested mapping, or nil when the key is missing or is not a
// mapping
func (c Config) Map(key string) map[string]any {
	switch v := c[key].(type) {
	case map[string]any:
		return v
	case Config:
		return v
	case map[any]any:
		res := make(map[string]any, len(v))
		for k, e := range v {
			res[fmt.Sprint(k)] = e
		}
		return res
	}
	return nil
}

// StringMap returns a nested mapping with every value rendered as a string
func (c Config) StringMap(key string) map[string]string {
	m := c.Map(key)
	if m == nil {
		return nil
	}
	res := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			res[k] = s
			continue
		}
		res[k] = fmt.Sprint(v)
	}
	return res
}

func (c Config) number(key string) (float64, bool) {
	switch v := c[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

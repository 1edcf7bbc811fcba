// Package extract normalizes heterogeneous model responses into typed values.
// Every function here is pure: no I/O, no mutation of the response.
package extract

import (
	"encoding/base64"
	"strings"
)

// object returns v as a JSON object
func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// list returns v as a JSON array
func list(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// str returns v as a string
func str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// lookup returns the first present key of v, which must be an object.
// Several keys allow camelCase and snake_case spellings of the same field.
func lookup(v any, keys ...string) (any, bool) {
	m, ok := object(v)
	if !ok {
		return nil, false
	}
	for _, key := range keys {
		if val, exists := m[key]; exists && val != nil {
			return val, true
		}
	}
	return nil, false
}

// first returns the first element of a JSON array
func first(v any) (any, bool) {
	l, ok := list(v)
	if !ok || len(l) == 0 {
		return nil, false
	}
	return l[0], true
}

// walk follows a path of object keys; each step may list alternative spellings
func walk(v any, steps ...[]string) (any, bool) {
	cur := v
	for _, keys := range steps {
		next, ok := lookup(cur, keys...)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// k is shorthand for a single walk step
func k(keys ...string) []string {
	return keys
}

// lookupString returns the first non-blank string among keys
func lookupString(v any, keys ...string) string {
	for _, key := range keys {
		raw, ok := lookup(v, key)
		if !ok {
			continue
		}
		if s, ok := str(raw); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// decodeBase64 accepts standard and URL-safe encodings, padded or not
func decodeBase64(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(s); err == nil && len(data) > 0 {
			return data, true
		}
	}
	return nil, false
}

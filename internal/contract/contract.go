// Package contract enforces the shape of the JSON documents that cross the
// tool's boundary: the report it emits and the payloads a language model
// returns. Model payloads are repaired deterministically before they are
// validated; repair only reshapes, it never adds facts.
package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const rootPath = "<root>"

// ValidationError names the first field path that broke a contract.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed at %s: %s", e.Path, e.Reason)
}

func fail(path, format string, args ...any) *ValidationError {
	if path == "" {
		path = rootPath
	}
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func at(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

// requireKeys reports every missing key at once, sorted.
func requireKeys(m map[string]any, path string, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fail(path, "missing required keys [%s]", strings.Join(missing, ", "))
}

// rejectExtra fails when m carries keys outside allowed.
func rejectExtra(m map[string]any, path string, allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	var extra []string
	for k := range m {
		if !ok[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return fail(path, "unexpected keys [%s]", strings.Join(extra, ", "))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// numeric reads v as a number, accepting numeric strings.
func numeric(v any) (float64, bool) {
	if n, ok := number(v); ok {
		return n, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// clamp coerces v into [0, 1]. Anything non-numeric yields def.
func clamp(v any, def float64) float64 {
	n, ok := numeric(v)
	if !ok {
		return def
	}
	return min(max(n, 0), 1)
}

func validUnit(m map[string]any, key, path string) error {
	n, ok := number(m[key])
	if !ok || n < 0 || n > 1 {
		return fail(join(path, key), "must be a number in [0, 1]")
	}
	return nil
}

func validString(m map[string]any, key, path string, minLen, maxLen int) error {
	s, ok := m[key].(string)
	if !ok {
		return fail(join(path, key), "must be a string")
	}
	n := utf8.RuneCountInString(s)
	if n < minLen || (maxLen > 0 && n > maxLen) {
		if maxLen > 0 {
			return fail(join(path, key), "must be a string of %d-%d characters", minLen, maxLen)
		}
		return fail(join(path, key), "must be a non-empty string")
	}
	return nil
}

func validIDs(m map[string]any, path string) error {
	p := join(path, "supporting_event_ids")
	list, ok := m["supporting_event_ids"].([]any)
	if !ok || len(list) == 0 {
		return fail(p, "must be an array with at least 1 event id")
	}
	for i, v := range list {
		if s, ok := v.(string); !ok || s == "" {
			return fail(at(p, i), "must be a non-empty string")
		}
	}
	return nil
}

// objects checks that m[key] is an array of at most maxItems objects and
// returns them.
func objects(m map[string]any, key, path string, maxItems int) ([]map[string]any, error) {
	p := join(path, key)
	list, ok := m[key].([]any)
	if !ok {
		return nil, fail(p, "must be an array")
	}
	if maxItems > 0 && len(list) > maxItems {
		return nil, fail(p, "must have at most %d items", maxItems)
	}
	out := make([]map[string]any, len(list))
	for i, v := range list {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fail(at(p, i), "each item must be an object")
		}
		out[i] = obj
	}
	return out, nil
}

// stringIDs keeps the non-empty string entries of v, as []any so that a
// repaired payload compares equal to a decoded one.
func stringIDs(v any) []any {
	list, _ := v.([]any)
	out := make([]any, 0, len(list))
	for _, id := range list {
		if s, ok := id.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// decode converts a validated dynamic payload into its typed form.
func decode(m map[string]any, v any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fail("", "cannot encode payload: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fail("", "cannot decode payload: %v", err)
	}
	return nil
}

package tools

import "encoding/json"

// Args is a validated argument bag. Accessors assume the registry has
// already checked presence and types; missing optionals yield zero values.
type Args map[string]any

func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a Args) Int64(key string) int64 {
	n, _ := toInt64(a[key])
	return n
}

func (a Args) Int(key string) int {
	return int(a.Int64(key))
}

// IntOr returns the argument or def when absent.
func (a Args) IntOr(key string, def int) int {
	if !a.Has(key) {
		return def
	}
	return a.Int(key)
}

func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a Args) StringOr(key, def string) string {
	if !a.Has(key) {
		return def
	}
	return a.String(key)
}

func (a Args) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

func (a Args) Map(key string) map[string]any {
	m, _ := a[key].(map[string]any)
	return m
}

// Int64Slice reads an array argument of integers.
func (a Args) Int64Slice(key string) []int64 {
	items, _ := a[key].([]any)
	out := make([]int64, 0, len(items))
	for _, item := range items {
		if n, ok := toInt64(item); ok {
			out = append(out, n)
		}
	}
	return out
}

// toInt64 accepts the integer encodings JSON decoding can produce.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

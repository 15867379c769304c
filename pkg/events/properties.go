package events

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Properties wraps an untyped property bag with tolerant typed accessors. Every accessor
// accepts several candidate keys and tries each in camelCase and snake_case.
type Properties map[string]interface{}

func (p Properties) lookup(keys ...string) (interface{}, bool) {
	for _, key := range keys {
		for _, candidate := range keyVariants(key) {
			if v, ok := p[candidate]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

// Has reports whether any of the keys is present with a non-nil value
func (p Properties) Has(keys ...string) bool {
	_, ok := p.lookup(keys...)
	return ok
}

// String returns the first non-empty value among keys rendered as a trimmed string.
func (p Properties) String(keys ...string) string {
	for _, key := range keys {
		v, ok := p.lookup(key)
		if !ok {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

// Bool reports whether the first present key holds a truthy value.
func (p Properties) Bool(keys ...string) bool {
	v, ok := p.lookup(keys...)
	if !ok {
		return false
	}
	return truthy(v)
}

// BoolOr is Bool with a default for absent keys
func (p Properties) BoolOr(def bool, keys ...string) bool {
	v, ok := p.lookup(keys...)
	if !ok {
		return def
	}
	return truthy(v)
}

// List returns a list property given either as an array or a comma-separated string.
func (p Properties) List(keys ...string) []string {
	v, ok := p.lookup(keys...)
	if !ok {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, item := range strings.Split(t, ",") {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Millis returns a duration in milliseconds given as a number or numeric string.
func (p Properties) Millis(keys ...string) Millis {
	for _, key := range keys {
		v, ok := p.lookup(key)
		if !ok {
			continue
		}
		if f, ok := number(v); ok {
			return Millis{Value: int64(math.Round(f)), Valid: true}
		}
	}
	return Millis{}
}

// Millis is an optional duration in milliseconds
type Millis struct {
	Value int64
	Valid bool
}

// MaxPlausibleMillis bounds durations accepted into averages.
const MaxPlausibleMillis = 300000

// Plausible reports whether the duration is present and inside [0, MaxPlausibleMillis].
func (m Millis) Plausible() bool {
	return m.Valid && m.Value >= 0 && m.Value <= MaxPlausibleMillis
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return ""
	}
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
		return false
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return false
	}
}

func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// keyVariants returns key followed by its snake_case or camelCase twin.
func keyVariants(key string) []string {
	if strings.Contains(key, "_") {
		return []string{key, toCamel(key)}
	}
	if snake := toSnake(key); snake != key {
		return []string{key, snake}
	}
	return []string{key}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 || b.Len() == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

package util

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

var truthyWords = map[string]struct{}{"1": {}, "true": {}, "t": {}, "yes": {}, "y": {}}

func String(v any, fallback string) string {
	switch t := v.(type) {
	case nil:
		return fallback
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	}
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fallback
}

func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		_, ok := truthyWords[strings.ToLower(strings.TrimSpace(t))]
		return ok
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return false
}

func Float(v any, fallback float64) float64 {
	switch t := v.(type) {
	case nil:
		return fallback
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return fallback
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(parsed) {
			return fallback
		}
		return parsed
	}
	if f, ok := number(v); ok && finite(f) {
		return f
	}
	return fallback
}

func Int(v any, fallback int) int {
	switch t := v.(type) {
	case nil:
		return fallback
	case bool:
		if t {
			return 1
		}
		return 0
	case int:
		return t
	case int64:
		return int(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return fallback
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return fallback
		}
		return parsed
	}
	if f, ok := number(v); ok && finite(f) && math.Abs(f) < math.MaxInt32 {
		return int(f)
	}
	return fallback
}

// Present reports whether v carries a value: nil, "", 0, false and empty
// collections count as absent.
func Present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case time.Time:
		return !t.IsZero()
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }

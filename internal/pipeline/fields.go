package pipeline

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"studentoffer/internal/util"
)

// A section record declares its rows with struct tags:
//
//	raw:"key"        raw mapping key
//	default:"value"  literal used when the key is absent or null
//	coerce:"kind"    timestamp, timestamp,optional, date, language, visa_type
//	days:"n"         future days for timestamp fallbacks
//
// Bools take their default only when the key is absent. Fields without a
// raw tag are left alone, except OfferID which always
// receives the offer id.
type fieldRule struct {
	index  int
	key    string
	coerce func(v any, present bool, now time.Time) any
}

var rulesByType sync.Map

func rulesFor(t reflect.Type) []fieldRule {
	if cached, ok := rulesByType.Load(t); ok {
		return cached.([]fieldRule)
	}
	rules := compileRules(t)
	rulesByType.Store(t, rules)
	return rules
}

func compileRules(t reflect.Type) []fieldRule {
	rules := make([]fieldRule, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		key, ok := sf.Tag.Lookup("raw")
		if !ok {
			continue
		}
		coerce, err := coercerFor(sf)
		if err != nil {
			panic(fmt.Sprintf("section %s field %s: %v", t.Name(), sf.Name, err))
		}
		rules = append(rules, fieldRule{index: i, key: key, coerce: coerce})
	}
	return rules
}

func coercerFor(sf reflect.StructField) (func(any, bool, time.Time) any, error) {
	def := sf.Tag.Get("default")
	kind := sf.Tag.Get("coerce")

	days := 30
	if raw, ok := sf.Tag.Lookup("days"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("bad days %q", raw)
		}
		days = n
	}

	switch sf.Type.Kind() {
	case reflect.String:
		switch kind {
		case "":
			return func(v any, _ bool, _ time.Time) any { return util.String(v, def) }, nil
		case "timestamp":
			return func(v any, _ bool, now time.Time) any { return util.Timestamp(v, now, days) }, nil
		case "timestamp,optional":
			return func(v any, _ bool, now time.Time) any {
				if !util.Present(v) {
					return ""
				}
				return util.Timestamp(v, now, days)
			}, nil
		case "date":
			return func(v any, _ bool, _ time.Time) any { return util.Date(v, def) }, nil
		case "language":
			return func(v any, _ bool, _ time.Time) any { return NormalizeLanguage(util.String(v, def)) }, nil
		case "visa_type":
			return func(v any, _ bool, _ time.Time) any { return NormalizeVisaType(util.String(v, def)) }, nil
		default:
			return nil, fmt.Errorf("unknown coerce %q", kind)
		}
	case reflect.Bool:
		fallback := false
		if def != "" {
			parsed, err := strconv.ParseBool(def)
			if err != nil {
				return nil, fmt.Errorf("bad bool default %q", def)
			}
			fallback = parsed
		}
		// an explicit null is false; only an absent key takes the default
		return func(v any, present bool, _ time.Time) any {
			if !present {
				return fallback
			}
			return util.Bool(v)
		}, nil
	case reflect.Int:
		fallback := 0
		if def != "" {
			parsed, err := strconv.Atoi(def)
			if err != nil {
				return nil, fmt.Errorf("bad int default %q", def)
			}
			fallback = parsed
		}
		return func(v any, _ bool, _ time.Time) any { return util.Int(v, fallback) }, nil
	case reflect.Float64:
		fallback := 0.0
		if def != "" {
			parsed, err := strconv.ParseFloat(def, 64)
			if err != nil {
				return nil, fmt.Errorf("bad float default %q", def)
			}
			fallback = parsed
		}
		return func(v any, _ bool, _ time.Time) any { return util.Float(v, fallback) }, nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", sf.Type.Kind())
	}
}

// fillSection applies the tagged rows of dst (a pointer to a section
// struct) to raw. Missing keys never fail; they take the row default.
func fillSection(dst any, raw map[string]any, offerID string, now time.Time) {
	rv := reflect.ValueOf(dst).Elem()
	for _, rule := range rulesFor(rv.Type()) {
		v, present := raw[rule.key]
		rv.Field(rule.index).Set(reflect.ValueOf(rule.coerce(v, present, now)))
	}
	if f := rv.FieldByName("OfferID"); f.IsValid() && f.Kind() == reflect.String {
		f.SetString(offerID)
	}
}

func fillRecords[T any](entries []map[string]any, offerID string, now time.Time) []T {
	out := make([]T, 0, len(entries))
	for _, entry := range entries {
		var rec T
		fillSection(&rec, entry, offerID, now)
		out = append(out, rec)
	}
	return out
}

func section(raw map[string]any, key string) map[string]any {
	if m, ok := raw[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// sequence returns the mapping entries of raw[key] in order, skipping
// anything that is not itself a mapping.
func sequence(raw map[string]any, key string) []map[string]any {
	items, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func trimmed(v any) string {
	return strings.TrimSpace(util.String(v, ""))
}

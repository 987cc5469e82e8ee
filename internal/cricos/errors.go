package cricos

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type ValidationError struct {
	Field     string
	Message   string
	Technical string
}

type validationBody struct {
	IsSuccess  *bool                      `json:"IsSuccess"`
	ItemList   map[string]json.RawMessage `json:"itemList"`
	ModelState map[string]json.RawMessage `json:"ModelState"`
	Message    string                     `json:"Message"`
}

var reIndex = regexp.MustCompile(`\[\d+\]`)

// ParseValidationErrors understands the three error shapes the API answers
// with: IsSuccess=false with an itemList of code -> message, an ASP.NET
// ModelState of field -> messages, and a bare Message. Keys are reported in
// sorted order.
func ParseValidationErrors(body []byte) []ValidationError {
	var parsed validationBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}

	out := []ValidationError{}
	if parsed.IsSuccess != nil && !*parsed.IsSuccess && parsed.ItemList != nil {
		for _, code := range sortedKeys(parsed.ItemList) {
			out = append(out, ValidationError{
				Field:     "Error " + code,
				Message:   rawText(parsed.ItemList[code]),
				Technical: "Code: " + code,
			})
		}
	}

	for _, path := range sortedKeys(parsed.ModelState) {
		field := strings.TrimPrefix(path, "application.")
		if loc := reIndex.FindStringIndex(field); loc != nil {
			field = field[:loc[0]] + field[loc[1]:]
		}
		for _, msg := range rawMessages(parsed.ModelState[path]) {
			out = append(out, ValidationError{Field: field, Message: msg, Technical: "Field: " + path})
		}
	}

	if parsed.Message != "" && len(out) == 0 {
		out = append(out, ValidationError{Field: "General", Message: parsed.Message, Technical: "API Response Message"})
	}
	return out
}

// ValidationPassed is true for a 2xx answer that does not carry
// IsSuccess=false.
func ValidationPassed(res Result) bool {
	if !res.OK() {
		return false
	}
	var parsed validationBody
	if err := json.Unmarshal(res.Body, &parsed); err != nil {
		return true
	}
	return parsed.IsSuccess == nil || *parsed.IsSuccess
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func rawMessages(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return []string{rawText(raw)}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Technical)
}

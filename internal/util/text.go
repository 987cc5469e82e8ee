package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces  = regexp.MustCompile(`\s+`)
	reTopKey  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\s*:`)
	reNulling = strings.NewReplacer("\x00", "", "\r", "", "\n", "")
)

// NormalizeKey lower-cases, trims and collapses inner whitespace.
func NormalizeKey(input string) string {
	s := strings.ToLower(input)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func ContainsAny(s string, needles ...string) bool {
	for _, p := range needles {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// HasContent reports whether text still holds something after NUL, CR and LF
// are dropped.
func HasContent(text string) bool {
	return strings.TrimSpace(reNulling.Replace(text)) != ""
}

// LooksLikeDocument guesses whether a free-text body is a YAML or JSON
// application document rather than prose.
func LooksLikeDocument(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return true
	}
	keys := 0
	for _, line := range strings.Split(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\n") {
		if reTopKey.MatchString(line) {
			keys++
		}
	}
	return keys >= 2
}

func Snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

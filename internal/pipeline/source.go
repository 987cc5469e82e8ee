package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"gopkg.in/yaml.v3"

	"studentoffer/internal/util"
)

var ErrUndecodable = errors.New("unable to decode input with any supported encoding")

type Decoded struct {
	Text     string
	Encoding string
	Detected string
}

type decodeCandidate struct {
	name   string
	decode func([]byte) (string, bool)
}

var fallbackCandidates = []decodeCandidate{
	{name: "utf-8", decode: decodeUTF8},
	{name: "utf-16", decode: withEncoding(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM))},
	{name: "utf-16-le", decode: withEncoding(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM))},
	{name: "utf-16-be", decode: withEncoding(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM))},
	{name: "ascii", decode: decodeASCII},
	{name: "latin-1", decode: withEncoding(charmap.ISO8859_1)},
	{name: "cp1252", decode: withEncoding(charmap.Windows1252)},
}

// ReadSource reads a config file of unknown encoding.
func ReadSource(path string) (Decoded, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Decoded{}, fmt.Errorf("read %s: %w", path, err)
	}
	decoded, err := DecodeBytes(blob)
	if err != nil {
		return Decoded{}, fmt.Errorf("%s: %w", path, err)
	}
	return decoded, nil
}

// DecodeBytes tries the sniffed charset first and then a fixed list of
// encodings. A candidate is accepted only when it decodes cleanly and leaves
// real content behind.
func DecodeBytes(blob []byte) (Decoded, error) {
	candidates := make([]decodeCandidate, 0, len(fallbackCandidates)+1)
	detected := detectCharset(blob)
	if detected != "" {
		if enc, err := htmlindex.Get(charsetLabel(detected)); err == nil {
			candidates = append(candidates, decodeCandidate{name: detected, decode: withEncoding(enc)})
		}
	}
	candidates = append(candidates, fallbackCandidates...)

	for _, c := range candidates {
		text, ok := c.decode(blob)
		if !ok || !util.HasContent(text) {
			continue
		}
		return Decoded{Text: strings.TrimPrefix(text, "\ufeff"), Encoding: c.name, Detected: detected}, nil
	}
	return Decoded{Detected: detected}, ErrUndecodable
}

func detectCharset(blob []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(blob)
	if err != nil || result == nil || result.Confidence <= 50 {
		return ""
	}
	return result.Charset
}

func charsetLabel(name string) string {
	label := strings.ToLower(name)
	if label == "gb-18030" {
		return "gb18030"
	}
	return label
}

func decodeUTF8(blob []byte) (string, bool) {
	if !utf8.Valid(blob) || bytes.IndexByte(blob, 0) >= 0 {
		return "", false
	}
	return string(blob), true
}

func decodeASCII(blob []byte) (string, bool) {
	for _, b := range blob {
		if b == 0 || b >= 0x80 {
			return "", false
		}
	}
	return string(blob), true
}

func withEncoding(enc encoding.Encoding) func([]byte) (string, bool) {
	return func(blob []byte) (string, bool) {
		out, err := enc.NewDecoder().Bytes(blob)
		if err != nil || strings.ContainsRune(string(out), utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

// FixYAMLIndentation re-emits apparent top-level keys (a line whose trimmed
// form ends in ":" and that is not indented by two spaces) flush left. Other
// non-blank lines keep their indentation and blank lines are emptied.
func FixYAMLIndentation(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	fixed := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			fixed = append(fixed, "")
			continue
		}
		stripped := strings.TrimLeft(line, " \t")
		if strings.HasSuffix(stripped, ":") && !strings.HasPrefix(line, "  ") {
			fixed = append(fixed, stripped)
			continue
		}
		fixed = append(fixed, line)
	}
	return strings.Join(fixed, "\n")
}

// ParseDocument parses YAML (and therefore JSON) into a string-keyed tree.
// An empty document is an empty mapping.
func ParseDocument(text string) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	switch root := stringKeys(doc).(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return root, nil
	default:
		return nil, fmt.Errorf("parse document: root is %T, want a mapping", root)
	}
}

func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = stringKeys(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = stringKeys(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = stringKeys(item)
		}
		return t
	default:
		return v
	}
}

// Preview returns the first n lines of text, quoted, for parse error reports.
func Preview(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		out = append(out, fmt.Sprintf("%2d: %q", i+1, line))
	}
	return out
}

package util

import (
	"math"
	"strings"
	"time"
)

// LocalZone is the fixed UTC+10 zone every output instant is expressed in.
var LocalZone = time.FixedZone("AEST", 10*60*60)

const localLayout = "2006-01-02T15:04:05.000-07:00"

func FormatLocal(t time.Time) string {
	return t.In(LocalZone).Format(localLayout)
}

// CompactLocal renders t as 20060102_150405 in LocalZone.
func CompactLocal(t time.Time) string {
	return t.In(LocalZone).Format("20060102_150405")
}

type timeParser func(string) (time.Time, bool)

var (
	offsetLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04:05-0700",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}

	timestampParsers = []timeParser{parseISODateTime, parseDayFirstDate, parseISODate}
	dateParsers      = []timeParser{parseDayFirstDate, parseISODate, parseISODateTime}
)

func parseISODateTime(s string) (time.Time, bool) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, LocalZone); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDayFirstDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation("2/1/2006", s, LocalZone)
	return t, err == nil
}

func parseISODate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-1-2", s, LocalZone)
	return t, err == nil
}

func firstParse(s string, parsers []timeParser) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, parse := range parsers {
		if t, ok := parse(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Epoch seconds outside this range have no four-digit local year.
var (
	minEpoch = float64(time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix())
	maxEpoch = float64(time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix())
)

func epoch(v any) (time.Time, bool) {
	f, ok := number(v)
	if !ok || !finite(f) || f < minEpoch || f > maxEpoch {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	t := time.Unix(int64(sec), int64(frac*1e9))
	if y := t.In(LocalZone).Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return t, true
}

// ParseInstant tries epoch numbers, already-decoded times and then the
// timestamp string formats in order.
func ParseInstant(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		return firstParse(t, timestampParsers)
	case bool:
		return time.Time{}, false
	}
	return epoch(v)
}

// Timestamp coerces v into a local instant string, falling back to now plus
// defaultDays days.
func Timestamp(v any, now time.Time, defaultDays int) string {
	if t, ok := ParseInstant(v); ok {
		return FormatLocal(t)
	}
	return FormatLocal(now.In(LocalZone).AddDate(0, 0, defaultDays))
}

// Date coerces a date of birth style value; fallbackDate is YYYY-MM-DD.
func Date(v any, fallbackDate string) string {
	switch t := v.(type) {
	case time.Time:
		if !t.IsZero() {
			return FormatLocal(t)
		}
	case string:
		if parsed, ok := firstParse(t, dateParsers); ok {
			return FormatLocal(parsed)
		}
	}
	if parsed, ok := parseISODate(fallbackDate); ok {
		return FormatLocal(parsed)
	}
	return FormatLocal(time.Date(1990, time.January, 1, 0, 0, 0, 0, LocalZone))
}

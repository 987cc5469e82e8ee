package util

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)

func TestTimestamp(t *testing.T) {
	cases := []struct {
		name  string
		input any
		days  int
		want  string
	}{
		{name: "iso date", input: "1995-01-01", want: "1995-01-01T00:00:00.000+10:00"},
		{name: "day first", input: "01/01/1995", want: "1995-01-01T00:00:00.000+10:00"},
		{name: "day first unpadded", input: "1/2/1995", want: "1995-02-01T00:00:00.000+10:00"},
		{name: "utc z", input: "2023-11-14T22:13:20Z", want: "2023-11-15T08:13:20.000+10:00"},
		{name: "other offset", input: "2024-01-01T10:00:00+05:00", want: "2024-01-01T15:00:00.000+10:00"},
		{name: "naive is local", input: "2024-03-01T09:30:00", want: "2024-03-01T09:30:00.000+10:00"},
		{name: "space separated", input: " 2024-03-01 09:30:00 ", want: "2024-03-01T09:30:00.000+10:00"},
		{name: "fraction kept to millis", input: "2024-03-01T09:30:00.123456+10:00", want: "2024-03-01T09:30:00.123+10:00"},
		{name: "epoch int", input: 1700000000, want: "2023-11-15T08:13:20.000+10:00"},
		{name: "epoch float", input: 0.5, want: "1970-01-01T10:00:00.500+10:00"},
		{name: "garbage falls back", input: "next tuesday", days: 30, want: "2026-11-13T10:00:00.000+10:00"},
		{name: "empty falls back", input: "", days: 370, want: "2027-10-19T10:00:00.000+10:00"},
		{name: "nil falls back", input: nil, want: "2026-10-14T10:00:00.000+10:00"},
		{name: "epoch past year 9999 falls back", input: 1e15, days: 30, want: "2026-11-13T10:00:00.000+10:00"},
		{name: "epoch beyond int64 falls back", input: 1e19, days: 30, want: "2026-11-13T10:00:00.000+10:00"},
		{name: "epoch before year 1 falls back", input: -1e12, days: 1, want: "2026-10-15T10:00:00.000+10:00"},
		{name: "last local second of 9999", input: int64(253402264799), want: "9999-12-31T23:59:59.000+10:00"},
		{name: "bool is not epoch", input: true, days: 1, want: "2026-10-15T10:00:00.000+10:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Timestamp(tc.input, fixedNow, tc.days)
			if got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestTimestampEpochMatchesISO(t *testing.T) {
	fromEpoch := Timestamp(int64(788918400), fixedNow, 30)
	fromISO := Timestamp("1995-01-01T00:00:00Z", fixedNow, 30)
	if fromEpoch != fromISO {
		t.Fatalf("epoch %s iso %s", fromEpoch, fromISO)
	}
}

func TestDate(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{name: "iso", input: "1995-01-01", want: "1995-01-01T00:00:00.000+10:00"},
		{name: "day first", input: "01/01/1995", want: "1995-01-01T00:00:00.000+10:00"},
		{name: "full timestamp", input: "1995-06-30T12:00:00Z", want: "1995-06-30T22:00:00.000+10:00"},
		{name: "garbage", input: "unknown", want: "1990-01-01T00:00:00.000+10:00"},
		{name: "number", input: 12345, want: "1990-01-01T00:00:00.000+10:00"},
		{name: "missing", input: nil, want: "1990-01-01T00:00:00.000+10:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Date(tc.input, "1990-01-01"); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestDateBadFallback(t *testing.T) {
	if got := Date(nil, "not-a-date"); got != "1990-01-01T00:00:00.000+10:00" {
		t.Fatalf("got %s", got)
	}
}

func TestCompactLocal(t *testing.T) {
	if got := CompactLocal(fixedNow); got != "20261014_100000" {
		t.Fatalf("got %s", got)
	}
}

package util

import (
	"math"
	"testing"
)

func TestBool(t *testing.T) {
	cases := []struct {
		input any
		want  bool
	}{
		{true, true},
		{false, false},
		{" YES ", true},
		{"y", true},
		{"T", true},
		{"1", true},
		{"no", false},
		{"", false},
		{2, true},
		{0, false},
		{0.0, false},
		{-1.5, true},
		{nil, false},
		{[]any{1}, false},
	}
	for _, tc := range cases {
		if got := Bool(tc.input); got != tc.want {
			t.Fatalf("Bool(%#v) = %v want %v", tc.input, got, tc.want)
		}
	}
}

func TestFloat(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  float64
	}{
		{name: "nil", input: nil, want: 12000},
		{name: "empty", input: "", want: 12000},
		{name: "string", input: " 9500.5 ", want: 9500.5},
		{name: "int", input: 42, want: 42},
		{name: "garbage", input: "12k", want: 12000},
		{name: "nan string", input: "NaN", want: 12000},
		{name: "nan value", input: math.NaN(), want: 12000},
		{name: "map", input: map[string]any{}, want: 12000},
		{name: "bool", input: true, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Float(tc.input, 12000); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestInt(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  int
	}{
		{name: "nil", input: nil, want: 1},
		{name: "string", input: "3", want: 3},
		{name: "float truncates", input: 3.9, want: 3},
		{name: "decimal string rejected", input: "3.5", want: 1},
		{name: "garbage", input: "campus", want: 1},
		{name: "huge", input: 1e300, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Int(tc.input, 1); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		input any
		want  string
	}{
		{nil, "dflt"},
		{"", ""},
		{"x", "x"},
		{3000, "3000"},
		{6.5, "6.5"},
		{false, "false"},
		{[]any{"a"}, "dflt"},
		{map[string]any{"a": 1}, "dflt"},
	}
	for _, tc := range cases {
		if got := String(tc.input, "dflt"); got != tc.want {
			t.Fatalf("String(%#v) = %q want %q", tc.input, got, tc.want)
		}
	}
}

func TestPresent(t *testing.T) {
	if Present(nil) || Present("") || Present("  ") || Present(0) || Present(false) || Present([]any{}) {
		t.Fatal("expected absent")
	}
	if !Present("2030-01-01") || !Present(1) || !Present(true) {
		t.Fatal("expected present")
	}
}

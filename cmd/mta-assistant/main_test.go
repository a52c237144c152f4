package main

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short value untouched", "openai / gpt-4o", 19, "openai / gpt-4o"},
		{"exact length untouched", "0123456789012345678", 19, "0123456789012345678"},
		{"long ascii cut", "anthropic / claude-sonnet-4", 19, "anthropic / clau…"},
		{"multi-byte not split", "Café-Métro-Señor-Straße-line", 19, "Café-Métro-Señor…"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := truncate(tc.in, tc.max)
			if got != tc.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8: %q", tc.in, tc.max, got)
			}
			if n := utf8.RuneCountInString(got); n > tc.max {
				t.Errorf("truncate(%q, %d) is %d runes long", tc.in, tc.max, n)
			}
		})
	}
}

package utils

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{name: "shorter than limit", input: "hello", maxRunes: 10, want: "hello"},
		{name: "exactly at limit", input: "hello", maxRunes: 5, want: "hello"},
		{name: "longer than limit", input: "hello world", maxRunes: 5, want: "hello"},
		{name: "multibyte runes are not split", input: "héllo wörld", maxRunes: 7, want: "héllo w"},
		{name: "zero limit", input: "hello", maxRunes: 0, want: ""},
		{name: "negative limit", input: "hello", maxRunes: -3, want: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Truncate(testCase.input, testCase.maxRunes); got != testCase.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", testCase.input, testCase.maxRunes, got, testCase.want)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		maxLen        int
		wantTruncated bool
	}{
		{name: "shorter than maxLen returns unchanged", input: "hello", maxLen: 10},
		{name: "exactly at maxLen returns unchanged", input: "hello", maxLen: 5},
		{name: "longer than maxLen gets truncated", input: "hello world", maxLen: 5, wantTruncated: true},
		{name: "zero maxLen uses DefaultMaxStringLength", input: strings.Repeat("a", DefaultMaxStringLength+1), wantTruncated: true},
		{name: "negative maxLen uses DefaultMaxStringLength", input: strings.Repeat("b", DefaultMaxStringLength), maxLen: -1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := TruncateString(testCase.input, testCase.maxLen)

			hasSuffix := strings.Contains(got, "... (truncated, total:")
			if hasSuffix != testCase.wantTruncated {
				t.Errorf("TruncateString(%q, %d) truncated=%v, want %v; got %q",
					testCase.input, testCase.maxLen, hasSuffix, testCase.wantTruncated, got)
			}
		})
	}
}

// Package util provides shared utilities: airport code normalisation,
// display fallbacks, and error aggregation.
package util

import (
	"strings"
	"unicode/utf8"
)

// ─── Airport Codes ────────────────────────────────────────────────────────────

// CodeLen is the length of an IATA airport code.
const CodeLen = 3

// NormaliseCode trims and upper-cases an airport code.
func NormaliseCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsCodeLength reports whether s is exactly CodeLen characters long.
// Characters are counted as runes, not bytes.
func IsCodeLength(s string) bool {
	return utf8.RuneCountInString(s) == CodeLen
}

// ─── Display Fallbacks ────────────────────────────────────────────────────────

// Fallback display values for absent optional fields.
const (
	UnknownAirline = "Unknown"
	UnknownStatus  = "N/A"
	UnknownValue   = "-"
)

// Or returns s, or fallback when s is empty.
func Or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Truncate shortens s to at most n runes, ending with "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n || n < 4 {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

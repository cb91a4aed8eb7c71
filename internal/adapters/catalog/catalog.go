// Package catalog looks books up in Google Books and Open Library.
//
// Both clients share one HTTP layer that throttles outbound calls, caches
// decoded responses and treats a non-2xx answer as "nothing found".
package catalog

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrRateLimited is returned when the outbound limiter gives up waiting.
	ErrRateLimited = errors.New("catalog rate limited")

	// ErrUpstream wraps transport and decoding failures.
	ErrUpstream = errors.New("catalog upstream error")
)

// ExactPageCount reads a page count from a loosely typed catalog field.
// Numbers are truncated; strings are read from their leading digits, so
// "320" and "320 pages" both give 320. Anything else, including negative
// values, gives nil.
func ExactPageCount(v any) *int {
	var n int
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n = int(t)
	case json.Number:
		return ExactPageCount(t.String())
	case *int:
		if t == nil {
			return nil
		}
		n = *t
	case string:
		p, ok := leadingInt(t)
		if !ok {
			return nil
		}
		n = p
	default:
		return nil
	}
	if n < 0 {
		return nil
	}
	return &n
}

// leadingInt parses an optionally signed run of digits at the start of s,
// after leading whitespace.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved and a nil
// input stays nil. It works on any string-kinded type, such as typed ids.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim[S ~string](values []S) []S {
	if values == nil {
		return nil
	}

	seen := make(map[S]struct{}, len(values))
	result := make([]S, 0, len(values))

	for _, v := range values {
		trimmed := S(strings.TrimSpace(string(v)))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SplitList splits a separated list such as "a, b,,a" into its distinct
// non-empty elements. An empty input yields an empty, non-nil slice.
func SplitList[S ~string](raw, sep string) []S {
	parts := strings.Split(raw, sep)
	values := make([]S, len(parts))
	for i, p := range parts {
		values[i] = S(p)
	}
	return DedupeAndTrim(values)
}

// Package strings provides string normalization utilities for geographic
// code lists.
package strings

import (
	"sort"
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
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

// NormalizeCodes canonicalizes a geographic code list: trim, uppercase,
// dedupe, sort. Territory fingerprints depend on this being order- and
// whitespace-independent.
//
// Example:
//
//	NormalizeCodes([]string{" sp", "RJ", "SP ", ""})
//	// Returns: []string{"RJ", "SP"}
func NormalizeCodes(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		code := strings.ToUpper(strings.TrimSpace(v))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			result = append(result, code)
		}
	}
	sort.Strings(result)
	if len(result) == 0 {
		return nil
	}
	return result
}

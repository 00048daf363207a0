// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value into trimmed, non-empty,
// de-duplicated elements. Order of first appearance is preserved.
//
// Example:
//
//	SplitList(" 276, 235,,276 ")
//	// Returns: []string{"276", "235"}
func SplitList(value string) []string {
	return DedupeAndTrim(strings.Split(value, ","))
}

// DedupeAndTrim removes duplicates and blank entries, trimming whitespace
// from each element.
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
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// Package strings provides small helpers for list-valued inputs such as
// comma-separated environment variables and query parameters.
package strings

import (
	"strings"
)

// SplitCSV splits a comma-separated value, trimming each part and dropping
// empty or repeated parts. Order is preserved.
//
// Example:
//
//	SplitCSV(" kafka-1:9092, ,kafka-2:9092,kafka-1:9092")
//	// Returns: []string{"kafka-1:9092", "kafka-2:9092"}
func SplitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return dedupe(strings.Split(v, ","), strings.TrimSpace)
}

// NormalizeLower trims, lowercases and dedupes values. Useful for
// case-insensitive enum filters.
func NormalizeLower(values []string) []string {
	return dedupe(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}

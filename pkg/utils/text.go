// Package utils provides shared utilities for text, math, and logging.
package utils

// Truncate returns s cut to at most maxLen characters (runes), with "..." appended if cut.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// TruncateExact returns s cut to at most maxLen characters without a suffix.
func TruncateExact(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen < 0 || len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Truncate returns s truncated to maxLen runes, with "..." appended if truncated.
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

// FlattenNewlines replaces every line break in s with a single space.
func FlattenNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

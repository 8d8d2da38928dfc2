package util

import "strings"

// TruncateForLog bounds a string for log output, keeping at most limit runes
// and marking the cut with an ellipsis. Used to keep prompt and response
// previews from flooding debug logs.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}

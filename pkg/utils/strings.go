package utils

import "strings"

// FirstNonEmpty returns the first value that is not blank after trimming,
// or the empty string.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// MaskToken shortens an opaque device token for logging.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}

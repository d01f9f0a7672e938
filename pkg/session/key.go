package session

import (
	"regexp"
	"strings"
)

// DefaultKey is the session every client lands in when it does not name one.
const DefaultKey = "default"

// MaxKeyLength bounds sanitized keys so they stay usable as table names.
const MaxKeyLength = 64

var invalidKeyRuns = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizeKey normalizes arbitrary client input into a safe session key.
// Every run of characters outside [A-Za-z0-9_-] collapses to a single
// underscore, leading/trailing underscores are stripped, and the result is
// truncated to MaxKeyLength. Empty or all-invalid input maps to DefaultKey.
// The function is pure and idempotent.
func SanitizeKey(raw string) string {
	key := invalidKeyRuns.ReplaceAllString(raw, "_")
	key = strings.Trim(key, "_")
	if len(key) > MaxKeyLength {
		key = key[:MaxKeyLength]
		// Truncation can expose a trailing underscore again.
		key = strings.TrimRight(key, "_")
	}
	if key == "" {
		return DefaultKey
	}
	return key
}

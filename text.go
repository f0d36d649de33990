package polytlai

import "unicode/utf8"

// MaxMessageLen caps failure messages and response excerpts.
const MaxMessageLen = 200

// Truncate shortens s to at most max bytes without splitting a rune, adding
// "..." when something was cut.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

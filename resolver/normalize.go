package resolver

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"
)

// maxKeyLength bounds the cache key so arbitrarily long imported descriptions
// cannot bloat the unique index.
const maxKeyLength = 100

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a raw merchant name into the shared cache key:
// emojis removed, lowercased, punctuation folded to spaces, whitespace
// collapsed, truncated to maxKeyLength. Idempotent.
func Normalize(raw string) string {
	key := gomoji.RemoveEmojis(raw)
	key = strings.ToLower(strings.TrimSpace(key))
	key = nonAlphanumeric.ReplaceAllString(key, " ")
	key = whitespaceRun.ReplaceAllString(key, " ")
	key = strings.TrimSpace(key)
	if len(key) > maxKeyLength {
		// Only single-byte runes survive the replacements above, so a byte
		// slice cannot split a rune.
		key = strings.TrimSpace(key[:maxKeyLength])
	}
	return key
}

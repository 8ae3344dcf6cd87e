package shared

import (
	"strings"
	"unicode"
)

// titlePunctuation lists the characters stripped by [NormalizeTitle].
const titlePunctuation = ",.()?':&’%!"

// NormalizeTitle removes common punctuation from a track or artist name and collapses whitespace.
//
// The result is deterministic and idempotent.
func NormalizeTitle(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(titlePunctuation, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(stripped), " ")
}

// SanitizeFilename keeps letters, digits, spaces, hyphens and underscores and drops everything else.
//
// Spaces are kept as they are, so "Song / Name" becomes "Song  Name".
func SanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}

// TrackKey builds the "{name} - {artist}" key used both for duplicate detection and as the
// downloaded file's base name.
func TrackKey(name, artist string) string {
	return SanitizeFilename(name) + " - " + SanitizeFilename(artist)
}

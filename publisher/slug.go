package publisher

import (
	"strings"
	"time"
	"unicode"
)

// DefaultSlugLen is the default maximum slug length in characters.
const DefaultSlugLen = 80

// TimestampLayout sorts lexicographically in chronological order.
const TimestampLayout = "20060102_150405"

// Slugify is SlugifyN with DefaultSlugLen.
func Slugify(text string) string {
	return SlugifyN(text, DefaultSlugLen)
}

// SlugifyN lower-cases text, drops everything except word characters,
// whitespace and hyphens, collapses runs of whitespace/underscore/hyphen into a
// single hyphen and truncates to maxLen characters. Word characters are
// Unicode letters, marks, digits and underscore. Text without any word
// character yields "".
func SlugifyN(text string, maxLen int) string {
	text = strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	pendingSep := false
	for _, r := range text {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingSep = true
		case isWordRune(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if maxLen >= 0 {
		runes := []rune(slug)
		if len(runes) > maxLen {
			slug = strings.TrimRight(string(runes[:maxLen]), "-")
		}
	}
	return slug
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// Timestamp formats the current local time with TimestampLayout.
func Timestamp() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp formats t in local time with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

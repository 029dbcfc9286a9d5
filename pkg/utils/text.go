package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncateRunes returns at most limit runes of s. A limit <= 0 returns s
// unchanged.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

// CollapseWhitespace replaces every run of whitespace with a single space
// and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Excerpt returns a whitespace-collapsed window of roughly width bytes
// centred on s[start:end], cut on rune boundaries.
func Excerpt(s string, start, end, width int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		start = end
	}
	pad := (width - (end - start)) / 2
	if pad < 0 {
		pad = 0
	}
	from := start - pad
	to := end + pad
	if from < 0 {
		to -= from
		from = 0
	}
	if to > len(s) {
		from -= to - len(s)
		to = len(s)
		if from < 0 {
			from = 0
		}
	}
	for from > 0 && !utf8.RuneStart(s[from]) {
		from--
	}
	for to < len(s) && !utf8.RuneStart(s[to]) {
		to++
	}
	return CollapseWhitespace(s[from:to])
}

// IsWordRune reports whether r counts as part of a word for boundary
// matching.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Slugify turns free text into a lower-case, hyphen separated file name
// fragment of at most limit runes.
func Slugify(s string, limit int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(TruncateRunes(b.String(), limit), "-")
	if out == "" {
		return "note"
	}
	return out
}

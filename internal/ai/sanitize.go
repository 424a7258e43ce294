package ai

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxInputRunes caps user-provided text sent to the model.
const MaxInputRunes = 8000

var (
	tagLike    = regexp.MustCompile(`</?\s*[a-zA-Z_][\w:-]*[^<>]*>`)
	whitespace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips control characters and tag-like delimiters from untrusted
// text, collapses whitespace and truncates to MaxInputRunes.
func Sanitize(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, input)
	cleaned = tagLike.ReplaceAllString(cleaned, " ")
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	cleaned = blankLines.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > MaxInputRunes {
		cleaned = strings.TrimSpace(string(runes[:MaxInputRunes]))
	}
	return cleaned
}

// wrapInput fences sanitized user content so instructions inside it are
// treated as data.
func wrapInput(input string) string {
	return "<input>\n" + Sanitize(input) + "\n</input>"
}

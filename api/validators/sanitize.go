package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString cleans free text from clients: control characters other than
// newlines are dropped, runs of spaces and tabs collapse to one space, and the
// result is trimmed and cut to at most maxLen runes.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace, lineStart := false, true
	for _, r := range input {
		switch {
		case r == '\n':
			pendingSpace, lineStart = false, true
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\r':
			pendingSpace = true
		case unicode.IsControl(r) || r == utf8.RuneError:
		default:
			if pendingSpace && !lineStart {
				b.WriteByte(' ')
			}
			pendingSpace, lineStart = false, false
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		out = strings.TrimSpace(string([]rune(out)[:maxLen]))
	}
	return out
}

// SanitizePtr applies SanitizeString to an optional field. Blank input becomes nil.
func SanitizePtr(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	out := SanitizeString(*input, maxLen)
	if out == "" {
		return nil
	}
	return &out
}

package translate

import (
	"strings"
	"unicode"
)

// Scrub strips control characters and collapses whitespace runs so no
// malformed bytes reach a delivery channel. A whitespace run containing a
// newline collapses to a single newline, any other run to a single space;
// leading and trailing whitespace is dropped.
func Scrub(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	sawNewline := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
			if r == '\n' || r == '\r' {
				sawNewline = true
			}
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			// Dropped entirely.
		default:
			if inSpace && b.Len() > 0 {
				if sawNewline {
					b.WriteRune('\n')
				} else {
					b.WriteRune(' ')
				}
			}
			inSpace = false
			sawNewline = false
			b.WriteRune(r)
		}
	}

	return b.String()
}

package ingest

import "strings"

// Preprocess normalizes extracted text before chunking: trims the ends and
// collapses runs of whitespace into single spaces, keeping newlines so the
// chunker can treat them as soft sentence separators.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	for _, r := range text {
		switch r {
		case '\r':
			// dropped so CRLF input normalizes to bare newlines
		case ' ', '\t':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case '\n':
			b.WriteRune('\n')
			lastSpace = true
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

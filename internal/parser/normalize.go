package parser

import "strings"

// normalizeSignature collapses every run of whitespace (including
// newlines) in raw to a single space and trims the result. This is the
// one normalization rule every language extractor applies, so a
// signature is round-trip stable: the same declaration bytes always
// normalize to the same signature string.
func normalizeSignature(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inSpace := false
	for _, r := range raw {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !inSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// headerUpTo returns the normalized signature for the source bytes up
// to (but not including) the first occurrence of any byte in stopAt,
// or the whole text if none is found.
func headerUpTo(text []byte, stopAt string) string {
	for i, b := range text {
		if strings.IndexByte(stopAt, b) >= 0 {
			return normalizeSignature(string(text[:i]))
		}
	}
	return normalizeSignature(string(text))
}

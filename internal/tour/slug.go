package tour

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify converts a title to a URL-safe slug: lowercase, every run of
// characters outside [a-z0-9] collapsed to a single hyphen, no leading or
// trailing hyphens. Accents are folded first ("Café" -> "cafe"). Input without
// any alphanumeric character yields "".
func Slugify(s string) string {
	s = strings.ToLower(s)
	// Transformer chains carry state, so build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	sep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}

// UniqueSlug returns the n-th candidate for base: base itself for n <= 1,
// then base-2, base-3, ...
func UniqueSlug(base string, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// Package normalize cleans labels read from the dataset and turns them into stable slugs.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Slugify converts a label to a URL and DOM safe slug.
// "Romantic Comedy" -> "romantic-comedy".
// "Pedro Almodóvar" -> "pedro-almodovar".
// "Black Comedy/Drama" -> "black-comedy-drama".
func Slugify(s string) string {
	// Decompose so accents become separate marks, then drop everything non-ASCII.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// Label trims a raw cell and collapses internal whitespace runs to one space.
// The text is composed to NFC so visually equal names compare equal.
func Label(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return whitespaceRun.ReplaceAllString(s, " ")
}

// Slugs slugifies every label, keeping order.
func Slugs(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = Slugify(l)
	}
	return out
}

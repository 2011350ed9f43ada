package identity

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TitlePolicy selects how titles are canonicalized for the author+title dedup key.
type TitlePolicy string

const (
	// TitleWhitespace lowercases, trims and collapses whitespace runs. Punctuation is kept,
	// so "Go: part 1" and "Go part 1" stay distinct.
	TitleWhitespace TitlePolicy = "whitespace"
	// TitleAlphanumeric additionally drops every rune that is not a letter or digit.
	TitleAlphanumeric TitlePolicy = "alphanumeric"
)

func ParseTitlePolicy(s string) (TitlePolicy, error) {
	switch TitlePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TitleWhitespace:
		return TitleWhitespace, nil
	case TitleAlphanumeric:
		return TitleAlphanumeric, nil
	default:
		return "", fmt.Errorf("unknown title normalization policy: %q", s)
	}
}

// NormalizeTitle returns the canonical title used in the author+title dedup key.
// Titles are NFC-normalized first so composed and decomposed Hangul compare equal.
func NormalizeTitle(title string, policy TitlePolicy) string {
	s := strings.ToLower(norm.NFC.String(title))

	if policy == TitleAlphanumeric {
		s = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
				return r
			}
			return -1
		}, s)
	}

	return strings.Join(strings.Fields(s), " ")
}

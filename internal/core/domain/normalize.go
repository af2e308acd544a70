package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeExaminationLabel folds a free-text examination label into the form
// stored in the alias table: lowercase, unaccented, hyphens as spaces, and
// only ASCII letters, digits and whitespace kept.
func NormalizeExaminationLabel(label string) string {
	s := strings.ToLower(label)
	s = stripAccents(s)
	s = strings.ReplaceAll(s, "ð", "o")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, s)
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningDiacritic)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isCombiningDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036f
}

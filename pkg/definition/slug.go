package definition

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify derives a machine name from a human label: accents are folded,
// anything that is not a letter, digit or separator is dropped, and runs of
// whitespace, hyphens and underscores collapse to a single underscore.
//
//	Slugify("What... is your quest?") == "what_is_your_quest"
func Slugify(label string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range norm.NFKD.String(label) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

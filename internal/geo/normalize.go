package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.Und)

// Normalize cleans a place name: NFC, collapsed whitespace, and title case
// when the source is entirely upper or lower case. Mixed-case names such as
// "'s-Hertogenbosch" are kept as written.
func Normalize(name string) string {
	s := strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	if s == "" {
		return s
	}
	if s == strings.ToLower(s) || s == strings.ToUpper(s) {
		return titleCaser.String(s)
	}
	return s
}

// latinFold spells out lowercase letters that have no canonical
// decomposition into an ASCII base letter.
var latinFold = strings.NewReplacer(
	"ł", "l", "ø", "o", "ß", "ss", "æ", "ae", "œ", "oe",
	"đ", "d", "ð", "d", "þ", "th", "ı", "i", "ħ", "h",
)

// Slug folds a name to a lowercase ASCII, hyphenated key.
// "São Paulo" and "SAO  PAULO" both become "sao-paulo", "Łódź" becomes "lodz".
// Runes outside [a-z0-9] after folding act as separators.
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = latinFold.Replace(strings.ToLower(folded))

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

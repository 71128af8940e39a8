package database

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeSearchText normalizes text for searching (lowercase, no diacritics,
// spaces for dashes, single spaces).
func NormalizeSearchText(s string) string {
	s = RemoveDiacritics(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// SearchKey builds the stored search key of a class from its name and subject.
func SearchKey(name, subject string) string {
	return NormalizeSearchText(name + " " + subject)
}

// LikePattern turns a search query into a LIKE pattern matching it anywhere.
// Wildcards in the query are escaped with a backslash.
func LikePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(NormalizeSearchText(search)) + "%"
}

package geocode

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reformulate returns the query formulations tried for a place name, in
// order: the name as given, the name with diacritics stripped, and the
// name suffixed with "city" to bias Nominatim toward municipal boundaries.
// Duplicates are dropped so ASCII names do not query twice.
func Reformulate(place string) []string {
	place = strings.TrimSpace(place)
	candidates := []string{
		place,
		stripDiacritics(place),
		place + " city",
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// stripDiacritics removes combining marks, so "São Paulo" becomes "Sao Paulo".
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

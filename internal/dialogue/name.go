package dialogue

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidName is returned for names that are empty or contain anything
// other than letters and spaces.
var ErrInvalidName = errors.New("name must contain only letters and spaces")

// NormalizeName validates a customer's first name and capitalises each word.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return "", ErrInvalidName
		}
	}
	// A Caser is stateful, so each call gets its own.
	titler := cases.Title(language.English)
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = titler.String(w)
	}
	return strings.Join(words, " "), nil
}

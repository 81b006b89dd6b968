package intent

import (
	"math"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio scores how alike a and b are on a 0–100 scale using the indel
// (insert/delete only) Levenshtein ratio:
//
//	round(100 * 2*LCS(a, b) / (len(a) + len(b)))
//
// Lengths are in runes and halves round to even. Empty input scores 0.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	lcs := edlib.LCS(a, b)
	return int(math.RoundToEven(100 * (float64(2*lcs) / float64(total))))
}

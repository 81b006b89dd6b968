// Package nlp contains the text plumbing shared by intent recognition:
// synonym folding, cleanup, tokenisation and keyword sentiment.
package nlp

import (
	"regexp"
	"strings"

	"support-assistant/internal/knowledge"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	tokenRe      = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)
)

// Normalizer folds synonym phrases into canonical tokens.
//
// Synonyms are applied in table order, each as a literal replacement over
// the whole text. Later entries see the output of earlier ones, so a
// canonical token that contains another phrase is rewritten again:
// "phone number" becomes "phone_number", then the "number" entry turns it
// into "phone_phone_number".
type Normalizer struct {
	synonyms []knowledge.Synonym
}

func NewNormalizer(synonyms []knowledge.Synonym) *Normalizer {
	return &Normalizer{synonyms: append([]knowledge.Synonym(nil), synonyms...)}
}

// Normalize substitutes synonyms on the raw text, then lower-cases it.
// Matching is case-sensitive because it runs before lower-casing.
func (n *Normalizer) Normalize(text string) string {
	for _, s := range n.synonyms {
		if s.Phrase == "" {
			continue
		}
		text = strings.ReplaceAll(text, s.Phrase, s.Canonical)
	}
	return strings.ToLower(text)
}

// Preprocess is Normalize followed by whitespace collapsing and replacing
// every non-word character with a space. It is the form used for lookup,
// classification and similarity scoring.
func (n *Normalizer) Preprocess(text string) string {
	text = n.Normalize(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = nonWordRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tokenize splits text into lower-cased word tokens of two or more
// characters. Single-character words such as "i" carry no signal.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

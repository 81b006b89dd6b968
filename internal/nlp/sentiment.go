package nlp

import "strings"

type Sentiment string

const (
	Negative Sentiment = "negative"
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
)

// SentimentTagger is a keyword-presence classifier. Keywords match as
// substrings of the lower-cased text.
type SentimentTagger struct {
	negative []string
	positive []string
}

func NewSentimentTagger(negative, positive []string) *SentimentTagger {
	return &SentimentTagger{
		negative: lowerAll(negative),
		positive: lowerAll(positive),
	}
}

// Detect returns Negative if any negative keyword occurs, else Positive if
// any positive keyword occurs, else Neutral. Negative wins ties.
func (t *SentimentTagger) Detect(text string) Sentiment {
	m := strings.ToLower(text)
	if containsAny(m, t.negative) {
		return Negative
	}
	if containsAny(m, t.positive) {
		return Positive
	}
	return Neutral
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(w))
	}
	return out
}

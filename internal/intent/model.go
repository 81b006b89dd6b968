package intent

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"support-assistant/internal/knowledge"
	"support-assistant/internal/nlp"
)

// DefaultAlpha is the additive (Laplace) smoothing used by FromCorpus.
const DefaultAlpha = 1.0

// Document is a tokenised training example.
type Document struct {
	Tokens []string
	Label  Label
}

// IntentModel is a multinomial naive Bayes classifier over token counts.
// It is immutable once built and safe for concurrent use.
type IntentModel struct {
	classes  []Label
	vocab    map[string]int
	logPrior []float64
	// logProb[c][f] is log P(feature f | class c).
	logProb [][]float64

	// references are the preprocessed corpus utterances, used as the
	// similarity pool by the classifier's confidence gate.
	references []string
}

// Prediction is the model's verdict for one document.
type Prediction struct {
	Label  Label
	Scores map[Label]float64
}

// Fit trains a model on docs with additive smoothing alpha.
func Fit(docs []Document, alpha float64) (*IntentModel, error) {
	if len(docs) == 0 {
		return nil, errors.New("fit: no training documents")
	}
	if alpha <= 0 {
		return nil, fmt.Errorf("fit: smoothing must be positive, got %v", alpha)
	}

	classIdx := map[Label]int{}
	vocab := map[string]int{}
	for _, d := range docs {
		if !d.Label.Trainable() {
			return nil, fmt.Errorf("fit: label %q cannot be trained on", d.Label)
		}
		classIdx[d.Label] = 0
		for _, tok := range d.Tokens {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = len(vocab)
			}
		}
	}
	classes := make([]Label, 0, len(classIdx))
	for l := range classIdx {
		classes = append(classes, l)
	}
	// Sorted so ties resolve the same way on every run.
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	for i, l := range classes {
		classIdx[l] = i
	}

	docCount := make([]float64, len(classes))
	counts := make([][]float64, len(classes))
	for i := range counts {
		counts[i] = make([]float64, len(vocab))
	}
	for _, d := range docs {
		c := classIdx[d.Label]
		docCount[c]++
		for _, tok := range d.Tokens {
			counts[c][vocab[tok]]++
		}
	}

	m := &IntentModel{
		classes:  classes,
		vocab:    vocab,
		logPrior: make([]float64, len(classes)),
		logProb:  make([][]float64, len(classes)),
	}
	for c := range classes {
		m.logPrior[c] = math.Log(docCount[c] / float64(len(docs)))
		var total float64
		for _, n := range counts[c] {
			total += n
		}
		denom := total + alpha*float64(len(vocab))
		m.logProb[c] = make([]float64, len(vocab))
		for f, n := range counts[c] {
			m.logProb[c][f] = math.Log((n + alpha) / denom)
		}
	}
	return m, nil
}

// FromCorpus preprocesses the knowledge base corpus with n and fits a model
// on it. The preprocessed utterances are kept as the similarity pool.
func FromCorpus(corpus []knowledge.Example, n *nlp.Normalizer) (*IntentModel, error) {
	docs := make([]Document, 0, len(corpus))
	refs := make([]string, 0, len(corpus))
	for i, ex := range corpus {
		label, err := ParseLabel(ex.Intent)
		if err != nil {
			return nil, fmt.Errorf("corpus entry %d: %w", i, err)
		}
		text := n.Preprocess(ex.Text)
		docs = append(docs, Document{Tokens: nlp.Tokenize(text), Label: label})
		refs = append(refs, text)
	}
	m, err := Fit(docs, DefaultAlpha)
	if err != nil {
		return nil, err
	}
	m.references = refs
	return m, nil
}

// Classes returns the labels the model can predict, in tie-break order.
func (m *IntentModel) Classes() []Label {
	return append([]Label(nil), m.classes...)
}

// Predict returns the most probable class for tokens. Tokens outside the
// training vocabulary are ignored, so an empty or fully unknown document
// falls back to the class priors.
func (m *IntentModel) Predict(tokens []string) Prediction {
	scores := make([]float64, len(m.classes))
	copy(scores, m.logPrior)
	for _, tok := range tokens {
		f, ok := m.vocab[tok]
		if !ok {
			continue
		}
		for c := range m.classes {
			scores[c] += m.logProb[c][f]
		}
	}

	best := 0
	out := Prediction{Scores: make(map[Label]float64, len(m.classes))}
	for c, l := range m.classes {
		out.Scores[l] = scores[c]
		if scores[c] > scores[best] {
			best = c
		}
	}
	out.Label = m.classes[best]
	return out
}

// BestRatio returns the highest similarity between text and any reference
// utterance, together with that reference.
func (m *IntentModel) BestRatio(text string) (int, string) {
	best, match := 0, ""
	for _, ref := range m.references {
		if score := Ratio(text, ref); score > best {
			best, match = score, ref
		}
	}
	return best, match
}

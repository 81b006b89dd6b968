// Package intent turns a raw utterance into an intent label.
//
// Classification flow:
//  1. Preprocess the utterance and look it up in the smalltalk table.
//  2. Predict a label with the naive Bayes model.
//  3. Accept the prediction only if some corpus utterance is lexically close
//     enough (the similarity gate); otherwise answer Unknown.
//  4. Optionally, when the gate rejects, ask a Resolver (an LLM) to pick a
//     label from the closed set.
package intent

import (
	"context"

	"go.uber.org/zap"

	"support-assistant/internal/knowledge"
	"support-assistant/internal/nlp"
)

// DefaultThreshold is the similarity a prediction must strictly exceed.
const DefaultThreshold = 70

// Result is the outcome of classifying one utterance.
type Result struct {
	Label Label
	// Response holds the literal reply for Smalltalk results.
	Response string
	// Predicted is the model's label before the gate, empty for Smalltalk.
	Predicted Label
	// Score is the best similarity against the corpus (100 for Smalltalk).
	Score int
	// Match is the corpus utterance that produced Score.
	Match string
	// Resolved is set when the label came from the Resolver.
	Resolved bool
}

// Resolver picks a label for an utterance the similarity gate rejected.
type Resolver interface {
	Resolve(ctx context.Context, utterance string, labels []Label) (Resolution, error)
}

type Resolution struct {
	Label      Label   `json:"intent"`
	Confidence float64 `json:"confidence"`
}

type Option func(*Classifier)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(threshold int) Option {
	return func(c *Classifier) { c.threshold = threshold }
}

// WithResolver consults r when the gate rejects a prediction and accepts
// its answer when the confidence is at least minConfidence.
func WithResolver(r Resolver, minConfidence float64) Option {
	return func(c *Classifier) {
		c.resolver = r
		c.minConfidence = minConfidence
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Classifier is read-only after construction and safe for concurrent use.
type Classifier struct {
	model      *IntentModel
	normalizer *nlp.Normalizer
	smalltalk  map[string]string

	threshold     int
	resolver      Resolver
	minConfidence float64
	logger        *zap.Logger
}

// NewClassifier wires a fitted model to the normalizer used to build it and
// the smalltalk table. Smalltalk phrases are preprocessed the same way as
// utterances so lookups compare like with like.
func NewClassifier(model *IntentModel, normalizer *nlp.Normalizer, smalltalk []knowledge.Smalltalk, opts ...Option) *Classifier {
	c := &Classifier{
		model:      model,
		normalizer: normalizer,
		smalltalk:  make(map[string]string, len(smalltalk)),
		threshold:  DefaultThreshold,
		logger:     zap.NewNop(),
	}
	for _, s := range smalltalk {
		c.smalltalk[normalizer.Preprocess(s.Phrase)] = s.Response
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build assembles the normalizer, model and classifier for a knowledge base.
func Build(base *knowledge.Base, opts ...Option) (*Classifier, error) {
	normalizer := nlp.NewNormalizer(base.Synonyms)
	model, err := FromCorpus(base.Corpus, normalizer)
	if err != nil {
		return nil, err
	}
	return NewClassifier(model, normalizer, base.Smalltalk, opts...), nil
}

// Classify never fails: low confidence is reported as Unknown.
func (c *Classifier) Classify(ctx context.Context, raw string) Result {
	text := c.normalizer.Preprocess(raw)
	if resp, ok := c.smalltalk[text]; ok {
		return Result{Label: Smalltalk, Response: resp, Score: 100, Match: text}
	}

	pred := c.model.Predict(nlp.Tokenize(text))
	score, match := c.model.BestRatio(text)
	res := Result{Label: pred.Label, Predicted: pred.Label, Score: score, Match: match}
	if score > c.threshold {
		return res
	}

	res.Label = Unknown
	if c.resolver == nil {
		return res
	}
	r, err := c.resolver.Resolve(ctx, raw, c.model.Classes())
	if err != nil {
		c.logger.Warn("intent resolver failed", zap.Error(err))
		return res
	}
	if r.Label.Trainable() && r.Confidence >= c.minConfidence {
		c.logger.Debug("intent resolved by fallback",
			zap.String("label", r.Label.String()),
			zap.Float64("confidence", r.Confidence))
		res.Label = r.Label
		res.Resolved = true
	}
	return res
}

// Preprocess exposes the normalizer used for classification.
func (c *Classifier) Preprocess(raw string) string {
	return c.normalizer.Preprocess(raw)
}

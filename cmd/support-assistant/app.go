package main

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"support-assistant/internal/config"
	"support-assistant/internal/dialogue"
	"support-assistant/internal/intent"
	"support-assistant/internal/knowledge"
)

type app struct {
	classifier *intent.Classifier
	manager    *dialogue.Manager
}

// buildApp loads the knowledge base, fits the classifier once and validates
// the dialogue wiring. Any failure here stops the process before the first
// prompt.
func buildApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := knowledge.Load(cfg.KnowledgeFile)
	if err != nil {
		return nil, err
	}

	copts := []intent.Option{
		intent.WithThreshold(cfg.SimilarityThreshold),
		intent.WithLogger(logger),
	}
	switch {
	case cfg.LLMFallbackReady():
		client := openai.NewClient(cfg.OpenAIAPIKey)
		copts = append(copts, intent.WithResolver(intent.NewLLMResolver(client, cfg.Model), cfg.LLMMinConfidence))
		logger.Info("llm fallback enabled", zap.String("model", cfg.Model))
	case cfg.LLMFallbackEnabled:
		logger.Warn("LLM_FALLBACK_ENABLED is set but OPENAI_API_KEY is empty; fallback disabled")
	}

	classifier, err := intent.Build(base, copts...)
	if err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}
	manager, err := dialogue.NewManager(classifier, base, dialogue.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("validating dialogue: %w", err)
	}
	logger.Debug("knowledge base loaded",
		zap.String("source", sourceName(cfg.KnowledgeFile)),
		zap.Int("examples", len(base.Corpus)),
		zap.Int("smalltalk", len(base.Smalltalk)))
	return &app{classifier: classifier, manager: manager}, nil
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

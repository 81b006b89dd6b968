package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	// KnowledgeFile replaces the embedded knowledge base when set.
	KnowledgeFile       string
	SimilarityThreshold int
	TypingDelayMin      time.Duration
	TypingDelayMax      time.Duration
	SessionTTL          time.Duration
	SessionMaxTurns     int
	// LLM fallback for utterances the similarity gate rejects
	LLMFallbackEnabled bool
	OpenAIAPIKey       string
	Model              string
	LLMMinConfidence   float64
	LogLevel           string
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                getEnvDefault("PORT", "8080"),
		AllowedOrigin:       getEnvDefault("ALLOWED_ORIGIN", "*"),
		KnowledgeFile:       os.Getenv("KNOWLEDGE_FILE"),
		SimilarityThreshold: getEnvIntDefault("SIMILARITY_THRESHOLD", 70),
		TypingDelayMin:      getEnvDurationDefault("TYPING_DELAY_MIN", 1500*time.Millisecond),
		TypingDelayMax:      getEnvDurationDefault("TYPING_DELAY_MAX", 2500*time.Millisecond),
		SessionTTL:          getEnvDurationDefault("SESSION_TTL", 15*time.Minute),
		SessionMaxTurns:     getEnvIntDefault("SESSION_MAX_TURNS", 40),
		LLMFallbackEnabled:  getEnvBoolDefault("LLM_FALLBACK_ENABLED", false),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		Model:               getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		LLMMinConfidence:    getEnvFloatDefault("LLM_FALLBACK_MIN_CONFIDENCE", 0.8),
		LogLevel:            getEnvDefault("LOG_LEVEL", "info"),
	}
}

// LLMFallbackReady reports whether the fallback is enabled and usable.
func (c Config) LLMFallbackReady() bool {
	return c.LLMFallbackEnabled && strings.TrimSpace(c.OpenAIAPIKey) != ""
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatDefault(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getEnvDurationDefault accepts Go durations ("1.5s", "15m") or a bare
// number of seconds ("1.5").
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

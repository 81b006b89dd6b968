package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultResolverTimeout bounds a single resolver round trip.
const DefaultResolverTimeout = 10 * time.Second

// chatCompleter is the part of *openai.Client the resolver needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMResolver asks a chat model to choose an intent from the closed label
// set when the similarity gate has rejected the statistical prediction.
type LLMResolver struct {
	client  chatCompleter
	model   string
	timeout time.Duration
}

func NewLLMResolver(client *openai.Client, model string) *LLMResolver {
	return &LLMResolver{client: client, model: model, timeout: DefaultResolverTimeout}
}

const resolverSystem = `You classify customer-support messages for an online shop.
Pick exactly one intent from this list, or "unknown" if none fits:
%s

Output ONLY a JSON object: {"intent": "<intent>", "confidence": <0.0-1.0>}`

func (r *LLMResolver) Resolve(ctx context.Context, utterance string, labels []Label) (Resolution, error) {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, "- "+l.String())
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		MaxTokens:   60,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(resolverSystem, strings.Join(names, "\n"))},
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve intent: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Resolution{}, errors.New("resolve intent: no choices")
	}
	return parseResolution(resp.Choices[0].Message.Content)
}

// parseResolution decodes the model output, tolerating prose or code fences
// around the JSON object.
func parseResolution(raw string) (Resolution, error) {
	var out Resolution
	err := json.Unmarshal([]byte(raw), &out)
	if err != nil {
		first := strings.IndexByte(raw, '{')
		last := strings.LastIndexByte(raw, '}')
		if first < 0 || last <= first {
			return Resolution{}, fmt.Errorf("parse resolution: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[first:last+1]), &out); err != nil {
			return Resolution{}, fmt.Errorf("parse resolution: %w", err)
		}
	}
	if !out.Label.Valid() {
		return Resolution{}, fmt.Errorf("parse resolution: unknown intent %q", out.Label)
	}
	return out, nil
}

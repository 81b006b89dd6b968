package dialogue

import (
	"fmt"

	"support-assistant/internal/intent"
)

// Suggestions maps an intent to follow-up topics worth offering next.
type Suggestions struct {
	table map[intent.Label][]string
}

// NewSuggestions validates the keys of a raw suggestion table.
func NewSuggestions(raw map[string][]string) (*Suggestions, error) {
	table := make(map[intent.Label][]string, len(raw))
	for k, topics := range raw {
		label, err := intent.ParseLabel(k)
		if err != nil {
			return nil, fmt.Errorf("suggestions: %w", err)
		}
		table[label] = append([]string(nil), topics...)
	}
	return &Suggestions{table: table}, nil
}

// For returns the suggestions for label, or an empty slice.
func (s *Suggestions) For(label intent.Label) []string {
	return append([]string{}, s.table[label]...)
}

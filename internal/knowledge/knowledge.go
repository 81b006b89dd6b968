// Package knowledge holds the static data the assistant runs on: synonyms,
// smalltalk replies, the training corpus, follow-up suggestions, response
// templates, the menu and user-facing messages.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultYAML []byte

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid knowledge base")

type Synonym struct {
	Phrase    string `yaml:"phrase"`
	Canonical string `yaml:"canonical"`
}

type Smalltalk struct {
	Phrase   string `yaml:"phrase"`
	Response string `yaml:"response"`
}

type Sentiment struct {
	Negative []string `yaml:"negative"`
	Positive []string `yaml:"positive"`
}

// Example is one labelled training utterance.
type Example struct {
	Text   string `yaml:"text"`
	Intent string `yaml:"intent"`
}

// Response is the template shown for an intent.
type Response struct {
	Text     string `yaml:"text"`
	ShowMenu bool   `yaml:"show_menu"`
}

type MenuOption struct {
	Key    string `yaml:"key"`
	Title  string `yaml:"title"`
	Intent string `yaml:"intent"`
}

type Messages struct {
	Welcome           string `yaml:"welcome"`
	NamePrompt        string `yaml:"name_prompt"`
	InvalidName       string `yaml:"invalid_name"`
	Greeting          string `yaml:"greeting"`
	DefaultName       string `yaml:"default_name"`
	InputPrompt       string `yaml:"input_prompt"`
	EmptyInput        string `yaml:"empty_input"`
	InputError        string `yaml:"input_error"`
	Acknowledgment    string `yaml:"acknowledgment"`
	MenuHeader        string `yaml:"menu_header"`
	SuggestionsHeader string `yaml:"suggestions_header"`
	Typing            string `yaml:"typing"`
}

// Base is a parsed knowledge file.
type Base struct {
	Synonyms    []Synonym           `yaml:"synonyms"`
	Smalltalk   []Smalltalk         `yaml:"smalltalk"`
	Sentiment   Sentiment           `yaml:"sentiment"`
	Corpus      []Example           `yaml:"corpus"`
	Suggestions map[string][]string `yaml:"suggestions"`
	Responses   map[string]Response `yaml:"responses"`
	Menu        []MenuOption        `yaml:"menu"`
	Messages    Messages            `yaml:"messages"`
}

// Default returns the knowledge base compiled into the binary.
func Default() (*Base, error) {
	return Parse(defaultYAML)
}

// Load reads a knowledge base from a YAML file on disk. An empty path
// selects the embedded default.
func Load(path string) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	base, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return base, nil
}

// Parse decodes and validates a YAML knowledge base.
func Parse(b []byte) (*Base, error) {
	var base Base
	if err := yaml.Unmarshal(b, &base); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	return &base, nil
}

// Validate checks the structural invariants of the knowledge base. Intent
// names are checked against the closed label set by the packages that own
// those labels.
func (b *Base) Validate() error {
	if len(b.Corpus) == 0 {
		return fmt.Errorf("%w: corpus is empty", ErrInvalid)
	}
	for i, ex := range b.Corpus {
		if strings.TrimSpace(ex.Text) == "" || strings.TrimSpace(ex.Intent) == "" {
			return fmt.Errorf("%w: corpus entry %d needs text and intent", ErrInvalid, i)
		}
	}
	for i, s := range b.Synonyms {
		if s.Phrase == "" {
			return fmt.Errorf("%w: synonym %d has an empty phrase", ErrInvalid, i)
		}
	}
	seenPhrase := make(map[string]bool, len(b.Smalltalk))
	for _, s := range b.Smalltalk {
		if strings.TrimSpace(s.Phrase) == "" {
			return fmt.Errorf("%w: smalltalk entry with empty phrase", ErrInvalid)
		}
		if seenPhrase[s.Phrase] {
			return fmt.Errorf("%w: duplicate smalltalk phrase %q", ErrInvalid, s.Phrase)
		}
		seenPhrase[s.Phrase] = true
	}
	seenKey := make(map[string]bool, len(b.Menu))
	for _, opt := range b.Menu {
		if opt.Key == "" || opt.Intent == "" {
			return fmt.Errorf("%w: menu option %q needs key and intent", ErrInvalid, opt.Title)
		}
		if seenKey[opt.Key] {
			return fmt.Errorf("%w: duplicate menu key %q", ErrInvalid, opt.Key)
		}
		seenKey[opt.Key] = true
	}
	return nil
}

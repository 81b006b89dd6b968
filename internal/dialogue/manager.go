// Package dialogue runs the conversation: it maps each utterance to an
// intent, renders the response for that intent, attaches follow-up
// suggestions and advances the session.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"support-assistant/internal/intent"
	"support-assistant/internal/knowledge"
	"support-assistant/internal/nlp"
)

var (
	// ErrEmptyInput rejects blank utterances. The session is unchanged.
	ErrEmptyInput = errors.New("empty input")
	// ErrSessionTerminated is returned for turns on a finished session.
	ErrSessionTerminated = errors.New("session terminated")
	// ErrMissingTemplate is returned by NewManager when a label that can be
	// produced has no response template.
	ErrMissingTemplate = errors.New("missing response template")
)

// Classifier is what the manager needs from intent recognition.
type Classifier interface {
	Classify(ctx context.Context, raw string) intent.Result
}

type MenuOption struct {
	Key    string       `json:"key"`
	Title  string       `json:"title"`
	Intent intent.Label `json:"intent"`
}

// Inspection is everything the manager decides about an utterance before
// rendering a response.
type Inspection struct {
	Utterance string
	Sentiment nlp.Sentiment
	Label     intent.Label
	Predicted intent.Label
	Score     int
	Match     string
	FromMenu  bool
	Resolved  bool
	// Literal is the smalltalk reply, if any.
	Literal string
}

// Reply is the output of one turn, ready for a presentation layer.
type Reply struct {
	Inspection
	// Acknowledgment is shown before Text when the sentiment is negative.
	Acknowledgment string
	Text           string
	Suggestions    []string
	ShowMenu       bool
	Terminated     bool
}

type responseTemplate struct {
	tmpl     *template.Template
	showMenu bool
}

type templateData struct {
	Name    string
	Literal string
}

func (t responseTemplate) render(data templateData) (string, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

type Option func(*Manager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is the dialogue state machine. It holds no per-session state and
// is safe for concurrent use.
type Manager struct {
	classifier  Classifier
	sentiment   *nlp.SentimentTagger
	templates   map[intent.Label]responseTemplate
	greeting    responseTemplate
	menu        []MenuOption
	menuIntents map[string]intent.Label
	suggestions *Suggestions
	messages    knowledge.Messages
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager validates the knowledge base against the closed label set and
// fails if any label the classifier or menu can produce lacks a template.
func NewManager(classifier Classifier, base *knowledge.Base, opts ...Option) (*Manager, error) {
	m := &Manager{
		classifier:  classifier,
		sentiment:   nlp.NewSentimentTagger(base.Sentiment.Negative, base.Sentiment.Positive),
		templates:   make(map[intent.Label]responseTemplate, len(base.Responses)),
		menuIntents: make(map[string]intent.Label, len(base.Menu)),
		messages:    base.Messages,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	for key, resp := range base.Responses {
		label, err := intent.ParseLabel(key)
		if err != nil {
			return nil, fmt.Errorf("responses: %w", err)
		}
		tmpl, err := template.New(key).Option("missingkey=error").Parse(resp.Text)
		if err != nil {
			return nil, fmt.Errorf("responses: parse %s: %w", key, err)
		}
		m.templates[label] = responseTemplate{tmpl: tmpl, showMenu: resp.ShowMenu}
	}

	required := []intent.Label{intent.Smalltalk, intent.Unknown}
	for _, ex := range base.Corpus {
		label, err := intent.ParseLabel(ex.Intent)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		required = append(required, label)
	}
	for _, opt := range base.Menu {
		label, err := intent.ParseLabel(opt.Intent)
		if err != nil {
			return nil, fmt.Errorf("menu %s: %w", opt.Key, err)
		}
		m.menu = append(m.menu, MenuOption{Key: opt.Key, Title: opt.Title, Intent: label})
		m.menuIntents[opt.Key] = label
		required = append(required, label)
	}
	for _, label := range required {
		if _, ok := m.templates[label]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingTemplate, label)
		}
	}

	suggestions, err := NewSuggestions(base.Suggestions)
	if err != nil {
		return nil, err
	}
	m.suggestions = suggestions

	greeting, err := template.New("greeting").Parse(base.Messages.Greeting)
	if err != nil {
		return nil, fmt.Errorf("messages: parse greeting: %w", err)
	}
	m.greeting = responseTemplate{tmpl: greeting, showMenu: true}
	return m, nil
}

// Greet opens a conversation with the session's name and the menu.
func (m *Manager) Greet(sess Session) (Reply, error) {
	text, err := m.greeting.render(templateData{Name: sess.Name})
	if err != nil {
		return Reply{}, fmt.Errorf("render greeting: %w", err)
	}
	return Reply{Text: text, ShowMenu: true}, nil
}

// Inspect tags sentiment and resolves the intent of utterance without
// touching any session. A menu key maps straight to its intent and skips
// the classifier.
func (m *Manager) Inspect(ctx context.Context, utterance string) Inspection {
	text := strings.TrimSpace(utterance)
	in := Inspection{Utterance: text, Sentiment: m.sentiment.Detect(text)}
	if label, ok := m.menuIntents[text]; ok {
		in.Label = label
		in.FromMenu = true
		return in
	}
	res := m.classifier.Classify(ctx, text)
	in.Label = res.Label
	in.Predicted = res.Predicted
	in.Score = res.Score
	in.Match = res.Match
	in.Resolved = res.Resolved
	in.Literal = res.Response
	return in
}

// Handle runs one turn and returns the advanced session. Blank input
// returns ErrEmptyInput with sess unchanged.
func (m *Manager) Handle(ctx context.Context, sess Session, utterance string) (Session, Reply, error) {
	if sess.Terminated() {
		return sess, Reply{}, ErrSessionTerminated
	}
	if strings.TrimSpace(utterance) == "" {
		return sess, Reply{}, ErrEmptyInput
	}

	reply := Reply{Inspection: m.Inspect(ctx, utterance)}
	if reply.Sentiment == nlp.Negative {
		reply.Acknowledgment = m.messages.Acknowledgment
	}

	tmpl, ok := m.templates[reply.Label]
	if ok {
		reply.Suggestions = m.suggestions.For(reply.Label)
	} else {
		tmpl = m.templates[intent.Unknown]
	}
	text, err := tmpl.render(templateData{Name: sess.Name, Literal: reply.Literal})
	if err != nil {
		return sess, Reply{}, fmt.Errorf("render %s response: %w", reply.Label, err)
	}
	reply.Text = text
	reply.ShowMenu = tmpl.showMenu
	reply.Terminated = reply.Label.Terminal()

	next := sess
	next.LastIntent = reply.Label
	next.Turns++
	next.UpdatedAt = m.now()
	if reply.Terminated {
		next.State = StateTerminated
	}

	m.logger.Debug("turn handled",
		zap.String("session", sess.ID),
		zap.String("label", reply.Label.String()),
		zap.String("predicted", reply.Predicted.String()),
		zap.Int("score", reply.Score),
		zap.String("sentiment", string(reply.Sentiment)),
		zap.Bool("menu", reply.FromMenu),
		zap.Bool("terminated", reply.Terminated))
	return next, reply, nil
}

// Menu returns the numbered options in display order.
func (m *Manager) Menu() []MenuOption {
	return append([]MenuOption(nil), m.menu...)
}

// Messages returns the fixed user-facing strings.
func (m *Manager) Messages() knowledge.Messages {
	return m.messages
}

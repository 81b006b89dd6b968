// Package console is the line-oriented front end: it asks for the
// customer's name, shows the menu and relays each line to the dialogue
// manager until the conversation ends.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-assistant/internal/dialogue"
)

type Option func(*Console)

func WithTypist(t *Typist) Option {
	return func(c *Console) { c.typist = t }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type Console struct {
	manager *dialogue.Manager
	in      *bufio.Reader
	out     io.Writer
	styles  Styles
	typist  *Typist
	logger  *zap.Logger
}

func New(manager *dialogue.Manager, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		manager: manager,
		in:      bufio.NewReader(in),
		out:     out,
		styles:  NewStyles(out),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.typist != nil && c.typist.Style == nil {
		c.typist.Style = c.styles.Typing.Render
	}
	return c
}

// Run holds one conversation. It returns nil when the conversation ends
// normally (a terminal intent or end of input) and ctx.Err() if cancelled.
// Other read errors are reported and the prompt is shown again.
func (c *Console) Run(ctx context.Context) error {
	msgs := c.manager.Messages()
	c.banner(msgs.Welcome)

	name, ok, err := c.askName(ctx)
	if err != nil || !ok {
		return err
	}

	sess := dialogue.NewSession(uuid.NewString(), name)
	greeting, err := c.manager.Greet(sess)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out)
	c.println(c.styles.Reply, greeting.Text)
	c.printMenu()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.out, "\n"+msgs.InputPrompt)
		line, err := c.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			c.logger.Debug("input closed", zap.String("session", sess.ID))
			return nil
		}
		if err != nil {
			c.readFailed(sess.ID, err)
			continue
		}

		next, reply, err := c.manager.Handle(ctx, sess, line)
		switch {
		case errors.Is(err, dialogue.ErrEmptyInput):
			c.println(c.styles.Warning, msgs.EmptyInput)
			continue
		case err != nil:
			c.println(c.styles.Warning, msgs.InputError+" "+err.Error())
			continue
		}
		sess = next

		if err := c.render(ctx, reply); err != nil {
			return err
		}
		if reply.Terminated {
			return nil
		}
	}
}

func (c *Console) askName(ctx context.Context) (string, bool, error) {
	msgs := c.manager.Messages()
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		fmt.Fprint(c.out, msgs.NamePrompt)
		line, err := c.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return "", false, nil
		}
		if err != nil {
			c.readFailed("", err)
			continue
		}
		name, err := dialogue.NormalizeName(line)
		if err != nil {
			c.println(c.styles.Warning, msgs.InvalidName)
			continue
		}
		return name, true, nil
	}
}

func (c *Console) readFailed(session string, err error) {
	c.logger.Warn("read failed", zap.String("session", session), zap.Error(err))
	c.println(c.styles.Warning, c.manager.Messages().InputError+" "+err.Error())
}

func (c *Console) render(ctx context.Context, reply dialogue.Reply) error {
	if reply.Acknowledgment != "" {
		if err := c.typist.Type(ctx, c.out); err != nil {
			return err
		}
		c.println(c.styles.Reply, reply.Acknowledgment)
	}
	if err := c.typist.Type(ctx, c.out); err != nil {
		return err
	}
	c.println(c.styles.Reply, reply.Text)
	if reply.ShowMenu {
		c.printMenu()
	}
	if len(reply.Suggestions) > 0 {
		fmt.Fprintln(c.out)
		c.println(c.styles.MenuHeader, c.manager.Messages().SuggestionsHeader)
		for _, s := range reply.Suggestions {
			fmt.Fprintln(c.out, " - "+c.styles.Suggestion.Render(s))
		}
	}
	return nil
}

func (c *Console) banner(title string) {
	rule := c.styles.Rule.Render(strings.Repeat("=", 60))
	fmt.Fprintln(c.out, rule)
	c.println(c.styles.Banner, title)
	fmt.Fprintln(c.out, rule)
}

func (c *Console) printMenu() {
	fmt.Fprintln(c.out)
	c.println(c.styles.MenuHeader, c.manager.Messages().MenuHeader)
	for _, opt := range c.manager.Menu() {
		fmt.Fprintf(c.out, "%s %s\n", c.styles.MenuKey.Render(opt.Key+"."), opt.Title)
	}
}

func (c *Console) println(style lipgloss.Style, s string) {
	fmt.Fprintln(c.out, style.Render(s))
}

// readLine returns one line without its terminator. A final line without a
// newline is returned before io.EOF.
func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

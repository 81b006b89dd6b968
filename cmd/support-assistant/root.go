package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"support-assistant/internal/config"
	"support-assistant/internal/console"
	"support-assistant/internal/server"
	"support-assistant/internal/store"
	"support-assistant/internal/types"
)

type options struct {
	knowledge string
	noTyping  bool
	verbose   bool
	port      string
	asJSON    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "support-assistant",
		Short: "E-Shop customer support assistant",
		Long: `A rule-and-statistics hybrid support assistant.

Each message is normalised, tagged for sentiment and classified into one of a
fixed set of intents; low-confidence matches fall back to the menu.

Run without arguments to start an interactive chat.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.Load()
			if opts.knowledge != "" {
				opts.cfg.KnowledgeFile = opts.knowledge
			}
			if opts.port != "" {
				opts.cfg.Port = opts.port
			}
			if opts.noTyping {
				opts.cfg.TypingDelayMin, opts.cfg.TypingDelayMax = 0, 0
			}
			logger, err := newLogger(cmd.Name(), opts.cfg.LogLevel, opts.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.knowledge, "knowledge", "k", "", "Knowledge base YAML (default: embedded)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.Flags().BoolVar(&opts.noTyping, "no-typing", false, "Disable the typing indicator")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
	chatCmd.Flags().BoolVar(&opts.noTyping, "no-typing", false, "Disable the typing indicator")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	serveCmd.Flags().StringVarP(&opts.port, "port", "p", "", "Listen port (default: $PORT or 8080)")

	classifyCmd := &cobra.Command{
		Use:   "classify [utterance]",
		Short: "Show how an utterance is classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, strings.Join(args, " "))
		},
	}
	classifyCmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")

	root.AddCommand(chatCmd, serveCmd, classifyCmd)
	return root
}

// newLogger keeps the terminal commands quiet unless asked: the console
// owns stdout, so their logs go to stderr and only with --verbose.
func newLogger(command, level string, verbose bool) (*zap.Logger, error) {
	if command != "serve" {
		if !verbose {
			return zap.NewNop(), nil
		}
		zcfg := zap.NewDevelopmentConfig()
		zcfg.OutputPaths = []string{"stderr"}
		return zcfg.Build()
	}

	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, opts *options) error {
	a, err := buildApp(opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var copts []console.Option
	copts = append(copts, console.WithLogger(opts.logger))
	if opts.cfg.TypingDelayMax > 0 {
		typist := console.NewTypist(opts.cfg.TypingDelayMin, opts.cfg.TypingDelayMax, a.manager.Messages().Typing)
		copts = append(copts, console.WithTypist(typist))
	}
	err = console.New(a.manager, cmd.InOrStdin(), cmd.OutOrStdout(), copts...).Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func runServe(cmd *cobra.Command, opts *options) error {
	a, err := buildApp(opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	sessions := store.NewMemoryStore(opts.cfg.SessionTTL, opts.cfg.SessionMaxTurns)
	s := server.NewServer(opts.cfg, a.manager, a.classifier, sessions, opts.logger)
	return s.Serve(ctx, ":"+opts.cfg.Port)
}

func runClassify(cmd *cobra.Command, opts *options, utterance string) error {
	a, err := buildApp(opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	in := a.manager.Inspect(cmd.Context(), utterance)
	resp := types.ClassifyResponse{
		Message:      in.Utterance,
		Preprocessed: a.classifier.Preprocess(in.Utterance),
		Intent:       in.Label.String(),
		Predicted:    in.Predicted.String(),
		Score:        in.Score,
		Match:        in.Match,
		Sentiment:    string(in.Sentiment),
		FromMenu:     in.FromMenu,
		Resolved:     in.Resolved,
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(out, "message:      %s\n", resp.Message)
	fmt.Fprintf(out, "preprocessed: %s\n", resp.Preprocessed)
	fmt.Fprintf(out, "intent:       %s\n", resp.Intent)
	if resp.FromMenu {
		fmt.Fprintln(out, "source:       menu")
	} else {
		fmt.Fprintf(out, "predicted:    %s\n", resp.Predicted)
		fmt.Fprintf(out, "score:        %d\n", resp.Score)
		fmt.Fprintf(out, "match:        %s\n", resp.Match)
	}
	if resp.Resolved {
		fmt.Fprintln(out, "source:       llm fallback")
	}
	fmt.Fprintf(out, "sentiment:    %s\n", resp.Sentiment)
	return nil
}

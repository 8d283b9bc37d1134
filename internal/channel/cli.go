package channel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"auroraqa/internal/corpus"
	"auroraqa/internal/domain"
	"auroraqa/internal/pipeline"
)

// CLI is an interactive terminal REPL over the question pipeline.
type CLI struct {
	answerer Answerer
	corpus   CorpusStats
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	debug    bool
}

type CLIConfig struct {
	Answerer Answerer
	Corpus   CorpusStats
	Debug    bool
	Logger   *slog.Logger
	In       io.Reader
	Out      io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		answerer: cfg.Answerer,
		corpus:   cfg.Corpus,
		logger:   cfg.Logger.With("component", "cli"),
		in:       cfg.In,
		out:      cfg.Out,
		debug:    cfg.Debug,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL until EOF, /quit or ctx cancellation.
func (c *CLI) Start(ctx context.Context) error {
	_, _ = fmt.Fprintln(c.out, "AuroraQA. Ask a question about member messages. Commands: /stats, /debug, /quit")
	c.prompt()

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit", "/q":
			c.logger.Info("user requested quit")
			return nil
		case "/debug":
			c.debug = !c.debug
			_, _ = fmt.Fprintf(c.out, "debug output %s\n", onOff(c.debug))
		case "/stats":
			c.printStats(ctx)
		default:
			if err := c.ask(ctx, line); err != nil {
				return err
			}
		}
		c.prompt()
	}
}

func (c *CLI) prompt() { _, _ = fmt.Fprint(c.out, "You> ") }

// ask returns an error only when ctx was cancelled.
func (c *CLI) ask(ctx context.Context, line string) error {
	question, err := pipeline.ValidateQuestion(line)
	if err != nil {
		_, _ = fmt.Fprintln(c.out, validationMessage(err))
		return nil
	}

	result, err := c.answerer.AnswerQuestion(pipeline.WithChannel(ctx, "cli"), question)
	switch {
	case err == nil:
		_, _ = fmt.Fprintln(c.out, FormatAnswer(result, c.debug))
	case ctx.Err() != nil:
		return nil
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		_, _ = fmt.Fprintln(c.out, "The member messages service is unavailable. Try again in a moment.")
	default:
		_, _ = fmt.Fprintln(c.out, failureMessage(err))
	}
	return nil
}

func (c *CLI) printStats(ctx context.Context) {
	if c.corpus == nil {
		_, _ = fmt.Fprintln(c.out, "statistics are not available")
		return
	}
	st, err := c.corpus.Stats(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(c.out, "cannot load statistics: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(c.out, FormatStats(st))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// FormatAnswer renders an answer for a terminal, optionally with its
// analysis details.
func FormatAnswer(r *domain.AnswerResult, debug bool) string {
	if !debug {
		return r.Answer
	}
	var b strings.Builder
	b.WriteString(r.Answer)
	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "type:       %s (confidence %.1f)\n", r.QuestionType, r.Confidence)
	fmt.Fprintf(&b, "intent:     %s\n", r.DebugInfo.Intent)
	fmt.Fprintf(&b, "entities:   %s\n", joinOrDash(r.TargetEntities))
	fmt.Fprintf(&b, "keywords:   %s\n", joinOrDash(r.DebugInfo.Keywords))
	fmt.Fprintf(&b, "temporal:   %s\n", joinOrDash(r.DebugInfo.TemporalIndicators))
	fmt.Fprintf(&b, "quantity:   %s\n", joinOrDash(r.DebugInfo.QuantityIndicators))
	fmt.Fprintf(&b, "location:   %s\n", joinOrDash(r.DebugInfo.LocationIndicators))
	fmt.Fprintf(&b, "evidence:   %d messages\n", r.MessagesSearched)
	fmt.Fprintf(&b, "took:       %.2fms", r.DebugInfo.ProcessingTimeMs)
	return b.String()
}

// FormatStats renders corpus statistics as plain text.
func FormatStats(st corpus.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", st.Source)
	fmt.Fprintf(&b, "Messages: %d\n", st.TotalMessages)
	fmt.Fprintf(&b, "Members: %d\n", st.UniqueSenders)
	if st.Earliest != "" {
		fmt.Fprintf(&b, "Range: %s to %s\n", st.Earliest, st.Latest)
	}
	fmt.Fprintf(&b, "Cache age: %.0fs", st.CacheAgeSeconds)
	return b.String()
}

func joinOrDash(xs []string) string {
	if len(xs) == 0 {
		return "-"
	}
	return strings.Join(xs, ", ")
}

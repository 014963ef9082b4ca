// Package channel hosts the user-facing input surfaces: the interactive
// CLI, the Telegram bot (text and voice notes), and the websocket
// transcription push endpoint. Channels publish inbound commands on the
// command bus and print replies routed back to them.
package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"voxdesk/internal/domain"
)

// VoiceControl is the slice of the engine the CLI drives for its slash
// commands. Kept as an interface so the channel stays testable.
type VoiceControl interface {
	StartVoice(ctx context.Context) bool
	StopVoice()
	SetActiveCategory(c domain.Category)
	Visible() []*domain.Message
	Draft() *domain.Draft
	CollectInteractiveDraft(ctx context.Context, req domain.InteractiveDraftRequest)
	SendDraft(ctx context.Context, recipients []string)
	MetricsSnapshot() map[string]int64
}

// CLI implements domain.Channel for interactive terminal sessions.
type CLI struct {
	bus    domain.CommandBus
	engine VoiceControl
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
}

type CLIConfig struct {
	Engine VoiceControl
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{
		engine: cfg.Engine,
		logger: cfg.Logger,
		in:     cfg.In,
		out:    cfg.Out,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive loop and blocks until the context is
// cancelled or input ends.
func (c *CLI) Start(ctx context.Context, bus domain.CommandBus) error {
	c.bus = bus

	bus.OnReply("cli", func(reply domain.OutboundReply) {
		fmt.Fprintln(c.out, reply.Text)
		fmt.Fprint(c.out, "You> ")
	})

	fmt.Fprintln(c.out, "voxdesk. Type a command, /voice to speak, /quit to exit.")
	fmt.Fprint(c.out, "You> ")

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
		if line == "" {
			fmt.Fprint(c.out, "You> ")
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := c.handleSlash(ctx, line); quit {
				return nil
			}
			fmt.Fprint(c.out, "You> ")
			continue
		}

		c.bus.Publish(domain.InboundCommand{
			Channel:   "cli",
			ChatID:    "local",
			Text:      line,
			Source:    domain.SourceTyped,
			Timestamp: time.Now(),
		})
	}
}

func (c *CLI) handleSlash(ctx context.Context, line string) (quit bool) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/voice":
		if arg == "stop" {
			c.engine.StopVoice()
			fmt.Fprintln(c.out, "(voice stopped, transcript discarded)")
			return false
		}
		if c.engine.StartVoice(ctx) {
			fmt.Fprintln(c.out, "(listening...)")
		}
	case "/category":
		if arg == "" {
			arg = string(domain.CategoryAll)
		}
		c.engine.SetActiveCategory(domain.Category(arg))
		fmt.Fprintf(c.out, "(filter: %s)\n", arg)
	case "/log":
		for _, m := range c.engine.Visible() {
			fmt.Fprintf(c.out, "[%s] %s\n", m.Sender, m.Content)
		}
	case "/draft":
		if d := c.engine.Draft(); d != nil {
			fmt.Fprintf(c.out, "%s: %s\n%s\n", d.Type, d.Subject, d.Body)
		} else {
			fmt.Fprintln(c.out, "(no draft)")
		}
	case "/compose":
		if arg == "" {
			fmt.Fprintln(c.out, "usage: /compose <purpose>")
			return false
		}
		c.engine.CollectInteractiveDraft(ctx, domain.InteractiveDraftRequest{Purpose: arg})
		c.printNewLogTail()
	case "/stats":
		snap := c.engine.MetricsSnapshot()
		if len(snap) == 0 {
			fmt.Fprintln(c.out, "(no activity yet)")
			return false
		}
		names := make([]string, 0, len(snap))
		for name := range snap {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(c.out, "%-26s %d\n", name, snap[name])
		}
	case "/send":
		var recipients []string
		for _, r := range strings.Split(arg, ",") {
			if r = strings.TrimSpace(r); r != "" {
				recipients = append(recipients, r)
			}
		}
		c.engine.SendDraft(ctx, recipients)
		c.printNewLogTail()
	default:
		fmt.Fprintf(c.out, "unknown command: %s\n", cmd)
	}
	return false
}

// printNewLogTail echoes the latest log entry after a direct engine call
// that bypasses the bus reply path.
func (c *CLI) printNewLogTail() {
	visible := c.engine.Visible()
	if len(visible) > 0 {
		fmt.Fprintln(c.out, visible[len(visible)-1].Content)
	}
}

func (c *CLI) Stop() error { return nil }

// Package dispatch serializes commands to the backend command endpoint,
// normalizes replies into a tagged outcome, and triggers side effects
// (placeholder lifecycle, spoken playback of short textual replies).
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"voxdesk/internal/bus"
	"voxdesk/internal/domain"
	"voxdesk/internal/metrics"
	"voxdesk/internal/msglog"
)

// TransportFailureMessage is the fixed user-facing text for a command
// that got no reply. Transport failures are never retried automatically.
const TransportFailureMessage = "Could not reach the assistant service. Please check your connection and try again."

// MalformedReplyMessage is appended when the backend violates the
// needs_interactive/needs_recipients exclusivity contract.
const MalformedReplyMessage = "The assistant returned a malformed reply. Please try again."

const pendingPlaceholderText = "Thinking..."

// Outcome is the dispatcher's normalized interpretation of one submission.
type Outcome struct {
	Result *domain.CommandResult
	Kind   ResultKind
	// Draft is the parsed payload for draft-shaped results.
	Draft *domain.Draft
	// Confirmation is set when the result requests a destructive-action
	// confirmation.
	Confirmation *domain.PendingConfirmation
	// NeedsInteractive / NeedsRecipients pre-empt tag-based rendering.
	NeedsInteractive bool
	NeedsRecipients  bool
	// TransportFailed marks a synthesized plain-failure result.
	TransportFailed bool
}

// Config wires a Dispatcher.
type Config struct {
	Client        domain.CommandClient
	Log           *msglog.Log
	Speaker       domain.Speaker
	Events        *bus.EventBus
	Metrics       *metrics.Collector
	Logger        *slog.Logger
	SpeakMaxChars int
}

// Dispatcher is the single path from a command string to a rendered log
// entry. It owns the pending placeholder lifecycle and the speak-back
// side effect.
type Dispatcher struct {
	client        domain.CommandClient
	log           *msglog.Log
	speaker       domain.Speaker
	events        *bus.EventBus
	metrics       *metrics.Collector
	logger        *slog.Logger
	speakMaxChars int
}

func New(cfg Config) *Dispatcher {
	if cfg.SpeakMaxChars <= 0 {
		cfg.SpeakMaxChars = 280
	}
	return &Dispatcher{
		client:        cfg.Client,
		log:           cfg.Log,
		speaker:       cfg.Speaker,
		events:        cfg.Events,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		speakMaxChars: cfg.SpeakMaxChars,
	}
}

// Submit sends one command and interprets the reply. A visible pending
// placeholder lives in the log exactly while the request is outstanding.
// confirmationData, when non-nil, is a stored confirmation payload echoed
// back verbatim.
func (d *Dispatcher) Submit(ctx context.Context, command string, confirmationData json.RawMessage) Outcome {
	d.metrics.Inc(metrics.CommandsSubmitted)
	d.events.Emit(bus.Event{
		Type:    bus.EventCommandSubmitted,
		Source:  "dispatch",
		Payload: map[string]any{"command": command},
	})

	placeholderID := d.log.AppendPending(pendingPlaceholderText)

	result, err := d.client.Submit(ctx, command, confirmationData)
	d.log.Resolve(placeholderID)

	if err != nil {
		d.logger.Warn("command transport failure", "err", err)
		d.metrics.Inc(metrics.TransportFailures)
		result = &domain.CommandResult{Success: false, Message: TransportFailureMessage}
		d.log.Append(result.Message, false, domain.SenderSystem)
		d.events.Emit(bus.Event{
			Type:    bus.EventCommandFailed,
			Source:  "dispatch",
			Payload: map[string]any{"command": command, "error": err.Error()},
		})
		return Outcome{Result: result, Kind: KindPlain, TransportFailed: true}
	}

	outcome := d.interpret(ctx, command, result)

	d.events.Emit(bus.Event{
		Type:   bus.EventCommandCompleted,
		Source: "dispatch",
		Payload: map[string]any{
			"command":  command,
			"action":   result.Action,
			"success":  result.Success,
			"response": result.Message,
		},
	})
	return outcome
}

// interpret is the total mapping from a reply to a rendering/side-effect
// branch.
func (d *Dispatcher) interpret(ctx context.Context, command string, result *domain.CommandResult) Outcome {
	if result.Malformed() {
		d.logger.Error("backend reply sets both needs_interactive and needs_recipients",
			"command", command,
		)
		d.log.Append(MalformedReplyMessage, false, domain.SenderSystem)
		return Outcome{Result: result, Kind: KindPlain}
	}

	// The two collection flags pre-empt tag-based dispatch entirely.
	if !result.Success && result.NeedsInteractive {
		d.log.Append(orDefault(result.Message, "Let's build that draft together."), false, domain.SenderBot)
		d.events.Emit(bus.Event{Type: bus.EventInteractiveRequested, Source: "dispatch"})
		return Outcome{Result: result, Kind: KindDraft, NeedsInteractive: true}
	}
	if !result.Success && result.NeedsRecipients {
		d.log.Append(orDefault(result.Message, "Who should receive this?"), false, domain.SenderBot)
		d.events.Emit(bus.Event{Type: bus.EventRecipientsRequested, Source: "dispatch"})
		return Outcome{Result: result, Kind: KindDraft, NeedsRecipients: true}
	}

	kind := KindOf(result.Action)
	content, fragment := Render(kind, result)
	d.log.Append(content, fragment, domain.SenderBot)

	outcome := Outcome{Result: result, Kind: kind}

	if kind == KindConfirmRequest && result.ConfirmationType != "" {
		outcome.Confirmation = &domain.PendingConfirmation{
			Type: result.ConfirmationType,
			Data: result.Data,
		}
	}
	if kind == KindDraft {
		if parsed, ok := DecodeDraft(result.Data); ok {
			outcome.Draft = parsed
		}
	}

	d.maybeSpeak(ctx, result)
	return outcome
}

// maybeSpeak narrates short successful textual replies. Failures are
// swallowed: a narration glitch must never block rendering.
func (d *Dispatcher) maybeSpeak(ctx context.Context, result *domain.CommandResult) {
	if d.speaker == nil || !result.Success {
		return
	}
	msg := result.Message
	if msg == "" || len(msg) > d.speakMaxChars {
		return
	}
	if strings.Contains(msg, "```") {
		return
	}
	if result.Action == "help" {
		return
	}

	go func() {
		if err := d.speaker.Speak(ctx, msg); err != nil {
			d.logger.Warn("text-to-speech failed", "err", err)
			d.metrics.Inc(metrics.SpeakFailures)
			return
		}
		d.metrics.Inc(metrics.RepliesSpoken)
		d.events.Emit(bus.Event{Type: bus.EventReplySpoken, Source: "dispatch"})
	}()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

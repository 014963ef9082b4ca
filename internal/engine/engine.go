// Package engine wires the conversational command interaction engine: two
// input channels (speech and typed text), one shared command pipeline, a
// confirmation-guarded destructive flow, a single draft slot, and the
// filtered message log. All session state lives on the Session object;
// there are no ambient globals, so independent sessions coexist and tests
// stay deterministic.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"voxdesk/internal/bus"
	"voxdesk/internal/config"
	"voxdesk/internal/confirm"
	"voxdesk/internal/dispatch"
	"voxdesk/internal/domain"
	"voxdesk/internal/draft"
	"voxdesk/internal/metrics"
	"voxdesk/internal/msglog"
	"voxdesk/internal/voice"
)

// DraftFlows is the slice of the backend client the engine drives
// directly for the two collection flows.
type DraftFlows interface {
	CollectInteractiveDraft(ctx context.Context, req domain.InteractiveDraftRequest) (*domain.CommandResult, error)
	SendDraft(ctx context.Context, recipients []string) (*domain.CommandResult, error)
}

// Config wires a Session.
type Config struct {
	Client            domain.CommandClient
	Flows             DraftFlows // may be nil; collection flows then report unavailability
	Recognizer        domain.Recognizer
	ConfirmRecognizer domain.Recognizer // defaults to Recognizer
	Speaker           domain.Speaker
	Events            *bus.EventBus
	Metrics           *metrics.Collector
	Logger            *slog.Logger
	Lexicon           *config.Lexicon
	MaxReprompts      int
	SpeakMaxChars     int
}

// Session is one conversational session: the owner of the message log,
// the single draft slot, the single pending-confirmation slot, the active
// category, and the input-authority token.
type Session struct {
	ID string

	log        *msglog.Log
	drafts     *draft.Store
	machine    *confirm.Machine
	voice      *voice.Adapter
	dispatcher *dispatch.Dispatcher
	flows      DraftFlows

	authority *Authority
	events    *bus.EventBus
	metrics   *metrics.Collector
	logger    *slog.Logger
}

func NewSession(cfg Config) *Session {
	if cfg.Lexicon == nil {
		cfg.Lexicon = config.DefaultLexicon()
	}
	if cfg.ConfirmRecognizer == nil {
		cfg.ConfirmRecognizer = cfg.Recognizer
	}

	s := &Session{
		ID:        uuid.NewString(),
		log:       msglog.New(cfg.Lexicon),
		drafts:    draft.NewStore(),
		flows:     cfg.Flows,
		authority: NewAuthority(),
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}

	s.dispatcher = dispatch.New(dispatch.Config{
		Client:        cfg.Client,
		Log:           s.log,
		Speaker:       cfg.Speaker,
		Events:        cfg.Events,
		Metrics:       cfg.Metrics,
		Logger:        cfg.Logger,
		SpeakMaxChars: cfg.SpeakMaxChars,
	})

	var listener *confirm.Listener
	if cfg.ConfirmRecognizer != nil {
		listener = confirm.NewListener(cfg.ConfirmRecognizer, cfg.Logger)
	}
	s.machine = confirm.NewMachine(confirm.Config{
		Gate:     s.authority,
		Listener: listener,
		Submit: func(ctx context.Context, command string, data json.RawMessage) {
			s.route(ctx, s.dispatcher.Submit(ctx, command, data))
		},
		Notify:       s.notify,
		Events:       cfg.Events,
		Metrics:      cfg.Metrics,
		Logger:       cfg.Logger,
		Lexicon:      cfg.Lexicon,
		MaxReprompts: cfg.MaxReprompts,
	})

	s.voice = voice.NewAdapter(voice.Config{
		Recognizer: cfg.Recognizer,
		Gate:       s.authority,
		Submit: func(ctx context.Context, transcript string) {
			s.SubmitText(ctx, transcript)
		},
		Notify:  s.notify,
		Events:  cfg.Events,
		Metrics: cfg.Metrics,
		Logger:  cfg.Logger,
	})

	return s
}

// SubmitText is the typed/transcribed entry into the command pipeline.
// While a confirmation is pending the text is routed to the confirmation
// machine instead of being dispatched as a new top-level command.
func (s *Session) SubmitText(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.log.Append(text, false, domain.SenderUser)

	if s.machine.Active() {
		s.machine.HandleUtterance(ctx, text)
		return
	}

	if !s.authority.Acquire(domain.OwnerCommand) {
		s.notify("Still working on the previous input. Please wait a moment.")
		return
	}
	outcome := s.dispatcher.Submit(ctx, text, nil)
	s.authority.Release(domain.OwnerCommand)

	s.route(ctx, outcome)
}

// route applies an outcome's side effects: draft replacement, draft
// clearing, and entry into the confirmation flow.
func (s *Session) route(ctx context.Context, outcome dispatch.Outcome) {
	if outcome.Confirmation != nil {
		s.machine.Begin(ctx, *outcome.Confirmation)
		return
	}

	switch {
	case outcome.Draft != nil:
		s.drafts.Set(*outcome.Draft)
		s.events.Emit(bus.Event{
			Type:    bus.EventDraftUpdated,
			Source:  "engine",
			Payload: map[string]any{"type": outcome.Draft.Type, "affordance": s.drafts.SendAffordance()},
		})
	case outcome.Kind == dispatch.KindDraftCleared:
		s.drafts.Clear()
		s.events.Emit(bus.Event{Type: bus.EventDraftCleared, Source: "engine"})
	case outcome.Kind == dispatch.KindDraftSent && outcome.Result.Success:
		s.drafts.Clear()
		s.events.Emit(bus.Event{Type: bus.EventDraftCleared, Source: "engine"})
	}
}

// StartVoice starts the main speech channel. Returns false when the host
// is unsupported or a pending confirmation (or other input owner) gates
// it; the rejection is always user-visible.
func (s *Session) StartVoice(ctx context.Context) bool {
	return s.voice.Start(ctx)
}

// StopVoice aborts the current recognition session, discarding any
// accumulated transcript.
func (s *Session) StopVoice() {
	s.voice.Stop()
}

// VoiceState reports the main adapter's lifecycle state.
func (s *Session) VoiceState() domain.VoiceState {
	return s.voice.State()
}

// HandleTranscription is the alternate input path from the real-time
// transcription push channel.
func (s *Session) HandleTranscription(ctx context.Context, text string) {
	s.events.Emit(bus.Event{
		Type:    bus.EventTranscriptionReceived,
		Source:  "engine",
		Payload: map[string]any{"text": text},
	})
	s.SubmitText(ctx, text)
}

// HandleTranscriptionError surfaces a push-channel error event inline.
func (s *Session) HandleTranscriptionError(message string) {
	if message == "" {
		message = "Transcription failed."
	}
	s.notify(message)
}

// CollectInteractiveDraft drives the interactive draft collection flow;
// the resulting draft fully replaces the stored one.
func (s *Session) CollectInteractiveDraft(ctx context.Context, req domain.InteractiveDraftRequest) {
	if s.flows == nil {
		s.notify("Interactive drafting is not available.")
		return
	}
	result, err := s.flows.CollectInteractiveDraft(ctx, req)
	if err != nil {
		s.logger.Warn("interactive draft collection failed", "err", err)
		s.notify(dispatch.TransportFailureMessage)
		return
	}

	content, fragment := dispatch.Render(dispatch.KindDraft, result)
	s.log.Append(content, fragment, domain.SenderBot)
	if parsed, ok := dispatch.DecodeDraft(result.Data); ok {
		s.drafts.Set(*parsed)
		s.events.Emit(bus.Event{
			Type:    bus.EventDraftUpdated,
			Source:  "engine",
			Payload: map[string]any{"type": parsed.Type, "affordance": s.drafts.SendAffordance()},
		})
	}
}

// SendDraft attaches recipients and sends the current draft.
func (s *Session) SendDraft(ctx context.Context, recipients []string) {
	if s.flows == nil {
		s.notify("Sending is not available.")
		return
	}
	if s.drafts.Current() == nil {
		s.notify("There is no draft to send.")
		return
	}
	result, err := s.flows.SendDraft(ctx, recipients)
	if err != nil {
		s.logger.Warn("send draft failed", "err", err)
		s.notify(dispatch.TransportFailureMessage)
		return
	}

	s.log.Append(orDefault(result.Message, "Draft sent."), false, domain.SenderBot)
	if result.Success {
		s.drafts.Clear()
		s.events.Emit(bus.Event{Type: bus.EventDraftCleared, Source: "engine"})
	}
}

// Draft returns the current draft, or nil.
func (s *Session) Draft() *domain.Draft {
	return s.drafts.Current()
}

// ConfirmationPending reports whether a destructive confirmation gates
// input.
func (s *Session) ConfirmationPending() bool {
	return s.machine.Active()
}

// SetActiveCategory changes the log filter.
func (s *Session) SetActiveCategory(c domain.Category) {
	s.log.SetActiveCategory(c)
}

// ActiveCategory returns the current filter.
func (s *Session) ActiveCategory() domain.Category {
	return s.log.ActiveCategory()
}

// Visible returns the filtered view over the message log.
func (s *Session) Visible() []*domain.Message {
	return s.log.Visible()
}

// Log exposes the session message log.
func (s *Session) Log() *msglog.Log {
	return s.log
}

// InputOwner reports the current holder of the input-authority token.
func (s *Session) InputOwner() domain.InputOwner {
	return s.authority.Owner()
}

// MetricsSnapshot returns the session counter values.
func (s *Session) MetricsSnapshot() map[string]int64 {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Snapshot()
}

// Close aborts any pending confirmation and in-progress listening.
func (s *Session) Close() {
	s.voice.Stop()
	s.machine.Abort()
}

// Run consumes the command bus until ctx is cancelled, processing inbound
// commands sequentially so at most one submission is outstanding at a
// time. New log entries produced by each command are echoed back to the
// originating channel.
func (s *Session) Run(ctx context.Context, cmdBus domain.CommandBus) {
	inbound := cmdBus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-inbound:
			if !ok {
				return
			}
			before := s.log.Len()
			switch {
			case cmd.Source == domain.SourcePush && cmd.Error:
				s.HandleTranscriptionError(cmd.Text)
			case cmd.Source == domain.SourcePush:
				s.HandleTranscription(ctx, cmd.Text)
			default:
				s.SubmitText(ctx, cmd.Text)
			}
			if reply := s.replySince(before); reply != "" {
				cmdBus.SendReply(domain.OutboundReply{
					Channel: cmd.Channel,
					ChatID:  cmd.ChatID,
					Text:    reply,
				})
			}
		}
	}
}

// replySince collects the non-user messages appended after the given log
// position into one reply body.
func (s *Session) replySince(position int) string {
	all := s.log.All()
	if position > len(all) {
		position = len(all)
	}
	var parts []string
	for _, m := range all[position:] {
		if m.Sender == domain.SenderUser || m.Pending {
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

func (s *Session) notify(text string) {
	s.log.Append(text, false, domain.SenderSystem)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

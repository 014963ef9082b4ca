// Package voice wraps a speech-to-text host into the main speech channel:
// a single-shot transcription producer whose final transcript is
// auto-submitted as a command. Starting is gated by the shared
// input-authority token, so a pending confirmation always rejects it.
package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"voxdesk/internal/bus"
	"voxdesk/internal/domain"
	"voxdesk/internal/metrics"
)

// SubmitFunc forwards a final transcript into the command pipeline.
type SubmitFunc func(ctx context.Context, transcript string)

// NotifyFunc appends a user-visible system message.
type NotifyFunc func(text string)

const unsupportedMessage = "Speech recognition is not available in this environment."
const confirmationGateMessage = "Please answer the pending confirmation first (yes or no)."
const busyMessage = "The microphone is busy. Please wait for the current input to finish."

// Config wires an Adapter.
type Config struct {
	Recognizer domain.Recognizer
	Gate       domain.InputGate
	Submit     SubmitFunc
	Notify     NotifyFunc
	Events     *bus.EventBus
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// Adapter is the main speech channel. One recognition session at a time;
// stopping mid-listen is an abort, not a commit.
type Adapter struct {
	rec     domain.Recognizer
	gate    domain.InputGate
	submit  SubmitFunc
	notify  NotifyFunc
	events  *bus.EventBus
	metrics *metrics.Collector
	logger  *slog.Logger

	mu      sync.Mutex
	state   domain.VoiceState
	cancel  context.CancelFunc
	aborted bool
}

func NewAdapter(cfg Config) *Adapter {
	return &Adapter{
		rec:     cfg.Recognizer,
		gate:    cfg.Gate,
		submit:  cfg.Submit,
		notify:  cfg.Notify,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		state:   domain.VoiceIdle,
	}
}

// State returns the adapter lifecycle state.
func (a *Adapter) State() domain.VoiceState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start begins one recognition session. Returns false — with a visible
// rejection message — when the host is unsupported or the input authority
// is held elsewhere (most notably by a pending confirmation).
func (a *Adapter) Start(ctx context.Context) bool {
	if a.rec == nil || !a.rec.Supported() {
		a.notify(unsupportedMessage)
		return false
	}

	if !a.gate.Acquire(domain.OwnerVoice) {
		if a.gate.Owner() == domain.OwnerConfirmation {
			a.notify(confirmationGateMessage)
		} else {
			a.notify(busyMessage)
		}
		return false
	}

	listenCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.state = domain.VoiceListening
	a.cancel = cancel
	a.aborted = false
	a.mu.Unlock()

	a.metrics.Inc(metrics.VoiceSessions)
	a.events.Emit(bus.Event{Type: bus.EventVoiceStarted, Source: "voice"})

	go a.run(ctx, listenCtx)
	return true
}

// Stop forces the current session to end without waiting for a final
// result. Any transcript accumulated before the stop is discarded.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.state != domain.VoiceListening {
		a.mu.Unlock()
		return
	}
	a.aborted = true
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (a *Adapter) run(parentCtx, listenCtx context.Context) {
	var (
		final    string
		hasFinal bool
		errored  bool
	)

	err := a.rec.Listen(listenCtx, domain.SpeechEvents{
		OnInterim: func(text string) {
			a.events.Emit(bus.Event{
				Type:    bus.EventVoiceInterim,
				Source:  "voice",
				Payload: map[string]any{"text": text},
			})
		},
		OnFinal: func(text string) {
			final = strings.TrimSpace(text)
			hasFinal = final != ""
		},
		OnError: func(code domain.SpeechErrorCode, err error) {
			errored = true
			a.logger.Warn("speech recognition error", "code", code, "err", err)
			a.metrics.Inc(metrics.VoiceErrors)
			a.notify(code.UserMessage())
			a.events.Emit(bus.Event{
				Type:    bus.EventVoiceError,
				Source:  "voice",
				Payload: map[string]any{"code": string(code)},
			})
		},
	})
	if err != nil && listenCtx.Err() == nil {
		a.logger.Warn("speech recognition session failed", "err", err)
		errored = true
		a.notify(domain.SpeechErrOther.UserMessage())
	}

	a.mu.Lock()
	aborted := a.aborted
	a.state = domain.VoiceIdle
	a.cancel = nil
	a.mu.Unlock()

	a.gate.Release(domain.OwnerVoice)
	a.events.Emit(bus.Event{Type: bus.EventVoiceStopped, Source: "voice"})

	if aborted || errored || !hasFinal {
		return
	}
	a.submit(parentCtx, final)
}

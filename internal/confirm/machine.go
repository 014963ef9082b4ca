// Package confirm guards entry into destructive flows. The state machine
// holds the single pending confirmation payload and, while one exists, is
// the sole arbiter of whether new voice/text input is accepted.
package confirm

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"voxdesk/internal/bus"
	"voxdesk/internal/config"
	"voxdesk/internal/domain"
	"voxdesk/internal/metrics"
)

// State is the confirmation machine state. EXECUTING and CANCELLED are
// transient; both return to NONE.
type State int

const (
	StateNone State = iota
	StateAwaiting
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting_response"
	case StateExecuting:
		return "executing"
	default:
		return "none"
	}
}

// Resolution is the outcome of handling one utterance.
type Resolution int

const (
	ResolutionNotPending Resolution = iota
	ResolutionConfirmed
	ResolutionCancelled
	ResolutionReprompt
	ResolutionExhausted
)

// SubmitFunc resubmits a stored confirmation payload as a distinct
// confirm-action command.
type SubmitFunc func(ctx context.Context, command string, confirmationData json.RawMessage)

// NotifyFunc appends a user-visible system message.
type NotifyFunc func(text string)

const typedFallbackMessage = "I couldn't use the microphone. Please type yes or no."
const repromptExhaustedMessage = "I still didn't catch that. Please type yes or no."
const cancelledMessage = "Okay, cancelled. Nothing was changed."

// Config wires a Machine.
type Config struct {
	Gate         domain.InputGate
	Listener     *Listener // nil disables the voice confirmation path
	Submit       SubmitFunc
	Notify       NotifyFunc
	Events       *bus.EventBus
	Metrics      *metrics.Collector
	Logger       *slog.Logger
	Lexicon      *config.Lexicon
	MaxReprompts int
}

// Machine is the confirmation state machine. It exclusively owns the
// pending confirmation slot.
type Machine struct {
	mu        sync.Mutex
	state     State
	pending   *domain.PendingConfirmation
	reprompts int
	rearm     chan struct{} // signals the voice loop to listen again

	gate         domain.InputGate
	listener     *Listener
	submit       SubmitFunc
	notify       NotifyFunc
	events       *bus.EventBus
	metrics      *metrics.Collector
	logger       *slog.Logger
	lexicon      *config.Lexicon
	maxReprompts int
}

func NewMachine(cfg Config) *Machine {
	if cfg.Lexicon == nil {
		cfg.Lexicon = config.DefaultLexicon()
	}
	if cfg.MaxReprompts <= 0 {
		cfg.MaxReprompts = 3
	}
	return &Machine{
		gate:         cfg.Gate,
		listener:     cfg.Listener,
		submit:       cfg.Submit,
		notify:       cfg.Notify,
		events:       cfg.Events,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		lexicon:      cfg.Lexicon,
		maxReprompts: cfg.MaxReprompts,
	}
}

// State returns the current machine state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active reports whether a confirmation is pending or executing. While
// true, the machine is the only valid input sink.
func (m *Machine) Active() bool {
	return m.State() != StateNone
}

// Pending returns a copy of the stored confirmation, or nil.
func (m *Machine) Pending() *domain.PendingConfirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil
	}
	pc := *m.pending
	return &pc
}

// Begin transitions NONE → AWAITING_RESPONSE: stores the pending
// confirmation, takes the input-authority token, and starts the voice
// confirmation listener. A typed fallback is accepted throughout via
// HandleUtterance. Returns false if a confirmation is already in flight.
func (m *Machine) Begin(ctx context.Context, pc domain.PendingConfirmation) bool {
	m.mu.Lock()
	if m.state != StateNone {
		m.mu.Unlock()
		m.logger.Warn("confirmation requested while one is pending", "type", pc.Type)
		return false
	}
	if !m.gate.Acquire(domain.OwnerConfirmation) {
		m.mu.Unlock()
		m.logger.Warn("confirmation could not take input authority", "holder", m.gate.Owner())
		return false
	}
	m.state = StateAwaiting
	m.pending = &pc
	m.reprompts = 0
	m.rearm = make(chan struct{}, 1)
	m.mu.Unlock()

	m.events.Emit(bus.Event{
		Type:    bus.EventConfirmationRequested,
		Source:  "confirm",
		Payload: map[string]any{"type": pc.Type},
	})

	if m.listener.Available() {
		go m.voiceLoop(ctx)
	}
	return true
}

// HandleUtterance resolves a confirmation utterance (voice or typed).
func (m *Machine) HandleUtterance(ctx context.Context, utterance string) Resolution {
	m.mu.Lock()
	if m.state != StateAwaiting {
		m.mu.Unlock()
		return ResolutionNotPending
	}

	switch Interpret(m.lexicon, utterance) {
	case VerdictAffirm:
		m.state = StateExecuting
		pending := *m.pending
		m.mu.Unlock()
		m.execute(ctx, pending)
		return ResolutionConfirmed

	case VerdictNegate:
		// Discard without contacting the backend.
		m.pending = nil
		m.state = StateNone
		m.mu.Unlock()
		m.gate.Release(domain.OwnerConfirmation)
		m.notify(cancelledMessage)
		m.metrics.Inc(metrics.ConfirmationsResolved)
		m.events.Emit(bus.Event{Type: bus.EventConfirmationCancelled, Source: "confirm"})
		return ResolutionCancelled

	default:
		m.reprompts++
		attempt := m.reprompts
		exhausted := attempt >= m.maxReprompts
		rearm := m.rearm
		m.mu.Unlock()

		m.metrics.Inc(metrics.ConfirmationReprompts)
		m.events.Emit(bus.Event{
			Type:    bus.EventConfirmationReprompted,
			Source:  "confirm",
			Payload: map[string]any{"attempt": attempt},
		})

		if exhausted {
			// Bounded self-loop: stop re-arming voice, keep the typed path.
			m.notify(repromptExhaustedMessage)
			return ResolutionExhausted
		}
		m.notify("Sorry, I didn't catch that. Say yes to confirm or no to cancel.")
		select {
		case rearm <- struct{}{}:
		default:
		}
		return ResolutionReprompt
	}
}

// execute resubmits the stored payload as a confirm-action command. The
// pending slot is cleared on response regardless of whether the confirmed
// action itself succeeded.
func (m *Machine) execute(ctx context.Context, pc domain.PendingConfirmation) {
	m.events.Emit(bus.Event{
		Type:    bus.EventConfirmationConfirmed,
		Source:  "confirm",
		Payload: map[string]any{"type": pc.Type},
	})

	m.submit(ctx, confirmCommandFor(pc.Type), pc.Data)

	m.mu.Lock()
	m.pending = nil
	m.state = StateNone
	m.mu.Unlock()
	m.gate.Release(domain.OwnerConfirmation)
	m.metrics.Inc(metrics.ConfirmationsResolved)
}

// Abort clears a pending confirmation without resolving it (session
// shutdown). No backend call is made.
func (m *Machine) Abort() {
	m.mu.Lock()
	if m.state == StateNone {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.state = StateNone
	m.mu.Unlock()
	m.gate.Release(domain.OwnerConfirmation)
}

// voiceLoop drives the confirmation listener: one single-shot session,
// re-armed only while HandleUtterance keeps asking for a re-prompt. A
// host error ends the loop and falls back to typed input; voice is never
// retried automatically.
func (m *Machine) voiceLoop(ctx context.Context) {
	for {
		if !m.Active() {
			return
		}

		text, err := m.listener.ListenOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.notify(typedFallbackMessage)
			return
		}

		res := m.HandleUtterance(ctx, text)
		if res != ResolutionReprompt {
			return
		}

		m.mu.Lock()
		rearm := m.rearm
		m.mu.Unlock()
		select {
		case <-rearm:
		case <-ctx.Done():
			return
		}
	}
}

// confirmCommandFor maps a confirmation type onto its confirm-action
// command tag.
func confirmCommandFor(confirmationType string) string {
	switch confirmationType {
	case domain.ConfirmationTypeDeleteAllEvents:
		return "confirm_delete_all"
	default:
		return "confirm " + confirmationType
	}
}

package bus

import (
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Event is an internal engine event for pub/sub observation (history
// recorder, metrics, channels showing interim transcripts).
type Event struct {
	Type      string
	Source    string
	Payload   map[string]any
	Timestamp time.Time
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus is a topic-based publish/subscribe system for internal events.
// Use "*" to subscribe to all events. Handlers that panic are recovered so
// an observer can never take down the engine.
type EventBus struct {
	handlers map[string][]namedHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

type namedHandler struct {
	ID      string
	Handler EventHandler
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]namedHandler),
		logger:   logger,
	}
}

// On registers a handler for the given event type and returns its ID for
// unsubscription.
func (eb *EventBus) On(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eventType + "-" + strconv.Itoa(len(eb.handlers[eventType]))
	eb.handlers[eventType] = append(eb.handlers[eventType], namedHandler{ID: id, Handler: handler})
	return id
}

// Off removes a handler by its ID.
func (eb *EventBus) Off(eventType, handlerID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h.ID == handlerID {
			eb.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit publishes an event to all registered handlers synchronously, in
// registration order.
func (eb *EventBus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	handlers := make([]namedHandler, 0)
	if h, ok := eb.handlers[event.Type]; ok {
		handlers = append(handlers, h...)
	}
	if h, ok := eb.handlers["*"]; ok {
		handlers = append(handlers, h...)
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		func(nh namedHandler) {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "event", event.Type, "handler", nh.ID, "panic", r)
				}
			}()
			nh.Handler(event)
		}(h)
	}
}

// EmitAsync publishes an event without blocking the caller.
func (eb *EventBus) EmitAsync(event Event) {
	go eb.Emit(event)
}

// --- Well-known event types ---
const (
	EventCommandSubmitted       = "command.submitted"
	EventCommandCompleted       = "command.completed"
	EventCommandFailed          = "command.failed"
	EventConfirmationRequested  = "confirmation.requested"
	EventConfirmationConfirmed  = "confirmation.confirmed"
	EventConfirmationCancelled  = "confirmation.cancelled"
	EventConfirmationReprompted = "confirmation.reprompted"
	EventDraftUpdated           = "draft.updated"
	EventDraftCleared           = "draft.cleared"
	EventInteractiveRequested   = "draft.interactive_requested"
	EventRecipientsRequested    = "draft.recipients_requested"
	EventVoiceStarted           = "voice.started"
	EventVoiceStopped           = "voice.stopped"
	EventVoiceInterim           = "voice.interim"
	EventVoiceError             = "voice.error"
	EventReplySpoken            = "reply.spoken"
	EventTranscriptionReceived  = "transcription.received"
)

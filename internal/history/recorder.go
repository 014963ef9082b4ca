package history

import (
	"context"
	"log/slog"

	"voxdesk/internal/bus"
)

// Recorder subscribes to the engine's command events and writes one
// history row per completed or failed submission. The engine never reads
// history back, so a write failure only logs.
type Recorder struct {
	store  *SQLiteStore
	logger *slog.Logger
	ids    []subscription
	events *bus.EventBus
}

type subscription struct {
	eventType string
	id        string
}

func NewRecorder(store *SQLiteStore, events *bus.EventBus, logger *slog.Logger) *Recorder {
	r := &Recorder{store: store, logger: logger, events: events}

	r.subscribe(bus.EventCommandCompleted, func(e bus.Event) {
		r.write(Entry{
			Command:  str(e.Payload["command"]),
			Response: str(e.Payload["response"]),
			Action:   str(e.Payload["action"]),
			Success:  boolVal(e.Payload["success"]),
		})
	})
	r.subscribe(bus.EventCommandFailed, func(e bus.Event) {
		r.write(Entry{
			Command:  str(e.Payload["command"]),
			Action:   "error",
			ErrorMsg: str(e.Payload["error"]),
		})
	})
	return r
}

func (r *Recorder) subscribe(eventType string, h bus.EventHandler) {
	id := r.events.On(eventType, h)
	r.ids = append(r.ids, subscription{eventType: eventType, id: id})
}

func (r *Recorder) write(e Entry) {
	if err := r.store.Log(context.Background(), e); err != nil {
		r.logger.Warn("history write failed", "err", err)
	}
}

// Close detaches the recorder from the event bus.
func (r *Recorder) Close() {
	for _, sub := range r.ids {
		r.events.Off(sub.eventType, sub.id)
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolVal(v any) bool {
	b, _ := v.(bool)
	return b
}

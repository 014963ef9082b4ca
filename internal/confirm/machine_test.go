package confirm

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"

	"voxdesk/internal/bus"
	"voxdesk/internal/domain"
	"voxdesk/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeGate struct {
	mu    sync.Mutex
	owner domain.InputOwner
}

func (g *fakeGate) Acquire(owner domain.InputOwner) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner != domain.OwnerNone {
		return false
	}
	g.owner = owner
	return true
}

func (g *fakeGate) Release(owner domain.InputOwner) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == owner {
		g.owner = domain.OwnerNone
	}
}

func (g *fakeGate) Owner() domain.InputOwner {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

type harness struct {
	machine *Machine
	gate    *fakeGate

	mu       sync.Mutex
	submits  []submitCall
	notifies []string
}

type submitCall struct {
	command string
	data    json.RawMessage
}

func newHarness(t *testing.T, maxReprompts int) *harness {
	t.Helper()
	h := &harness{gate: &fakeGate{}}
	h.machine = NewMachine(Config{
		Gate: h.gate,
		Submit: func(ctx context.Context, command string, data json.RawMessage) {
			h.mu.Lock()
			h.submits = append(h.submits, submitCall{command: command, data: data})
			h.mu.Unlock()
		},
		Notify: func(text string) {
			h.mu.Lock()
			h.notifies = append(h.notifies, text)
			h.mu.Unlock()
		},
		Events:       bus.NewEventBus(testLogger()),
		Metrics:      metrics.NewCollector(),
		Logger:       testLogger(),
		MaxReprompts: maxReprompts,
	})
	return h
}

func (h *harness) submitCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.submits)
}

func pendingDeleteAll(data string) domain.PendingConfirmation {
	return domain.PendingConfirmation{
		Type: domain.ConfirmationTypeDeleteAllEvents,
		Data: json.RawMessage(data),
	}
}

func TestMachine_ConfirmResubmitsStoredPayload(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()

	if !h.machine.Begin(ctx, pendingDeleteAll(`{"count":3}`)) {
		t.Fatal("Begin failed")
	}
	if h.gate.Owner() != domain.OwnerConfirmation {
		t.Fatalf("gate owner = %q, want confirmation", h.gate.Owner())
	}

	res := h.machine.HandleUtterance(ctx, "yes please")
	if res != ResolutionConfirmed {
		t.Fatalf("resolution = %v, want confirmed", res)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.submits) != 1 {
		t.Fatalf("submits = %d, want 1", len(h.submits))
	}
	if h.submits[0].command != "confirm_delete_all" {
		t.Errorf("confirm command = %q", h.submits[0].command)
	}
	if string(h.submits[0].data) != `{"count":3}` {
		t.Errorf("stored payload not echoed verbatim: %s", h.submits[0].data)
	}
	if h.machine.Active() {
		t.Error("machine should return to NONE after execution")
	}
	if h.gate.Owner() != domain.OwnerNone {
		t.Error("gate not released after execution")
	}
}

func TestMachine_CancelNeverContactsBackend(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()

	h.machine.Begin(ctx, pendingDeleteAll(`{}`))
	res := h.machine.HandleUtterance(ctx, "nope")
	if res != ResolutionCancelled {
		t.Fatalf("resolution = %v, want cancelled", res)
	}

	if h.submitCount() != 0 {
		t.Error("cancellation must not submit anything")
	}
	if h.machine.Active() {
		t.Error("machine should return to NONE after cancellation")
	}
	if h.gate.Owner() != domain.OwnerNone {
		t.Error("gate not released after cancellation")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.notifies) != 1 || h.notifies[0] != cancelledMessage {
		t.Errorf("expected cancellation notice, got %v", h.notifies)
	}
}

func TestMachine_RepromptBound(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()

	h.machine.Begin(ctx, pendingDeleteAll(`{}`))

	if res := h.machine.HandleUtterance(ctx, "what?"); res != ResolutionReprompt {
		t.Fatalf("attempt 1 = %v, want reprompt", res)
	}
	if res := h.machine.HandleUtterance(ctx, "huh"); res != ResolutionReprompt {
		t.Fatalf("attempt 2 = %v, want reprompt", res)
	}
	if res := h.machine.HandleUtterance(ctx, "banana"); res != ResolutionExhausted {
		t.Fatalf("attempt 3 = %v, want exhausted", res)
	}

	// Exhaustion stops re-prompting but the typed path stays open.
	if !h.machine.Active() {
		t.Fatal("confirmation should still be pending after exhaustion")
	}
	if res := h.machine.HandleUtterance(ctx, "yes"); res != ResolutionConfirmed {
		t.Fatalf("typed yes after exhaustion = %v, want confirmed", res)
	}
	if h.submitCount() != 1 {
		t.Error("expected exactly one submit")
	}
}

func TestMachine_SecondBeginRejected(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()

	if !h.machine.Begin(ctx, pendingDeleteAll(`{}`)) {
		t.Fatal("first Begin failed")
	}
	if h.machine.Begin(ctx, pendingDeleteAll(`{}`)) {
		t.Error("second Begin should fail while one is pending")
	}
}

func TestMachine_BeginFailsWhenGateHeld(t *testing.T) {
	h := newHarness(t, 3)
	h.gate.Acquire(domain.OwnerVoice)

	if h.machine.Begin(context.Background(), pendingDeleteAll(`{}`)) {
		t.Error("Begin should fail while another owner holds the gate")
	}
}

func TestMachine_UtteranceWithoutPending(t *testing.T) {
	h := newHarness(t, 3)
	if res := h.machine.HandleUtterance(context.Background(), "yes"); res != ResolutionNotPending {
		t.Errorf("resolution = %v, want not-pending", res)
	}
	if h.submitCount() != 0 {
		t.Error("nothing should be submitted without a pending confirmation")
	}
}

func TestMachine_AbortReleasesGate(t *testing.T) {
	h := newHarness(t, 3)
	h.machine.Begin(context.Background(), pendingDeleteAll(`{}`))

	h.machine.Abort()

	if h.machine.Active() {
		t.Error("machine still active after Abort")
	}
	if h.gate.Owner() != domain.OwnerNone {
		t.Error("gate not released by Abort")
	}
	if h.submitCount() != 0 {
		t.Error("Abort must not submit")
	}
}

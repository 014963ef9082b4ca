package dispatch

import (
	"encoding/json"
	"strings"
	"testing"

	"voxdesk/internal/domain"
)

func TestKindOf_Vocabulary(t *testing.T) {
	cases := map[string]ResultKind{
		"help":               KindHelp,
		"add_task":           KindTask,
		"list_notes":         KindNote,
		"delete_all_events":  KindEvent,
		"schedule_meet":      KindMeet,
		"show_images":        KindFile,
		"draft_email":        KindDraft,
		"refine_draft":       KindDraft,
		"clear_draft":        KindDraftCleared,
		"send_draft":         KindDraftSent,
		"confirm_delete_all": KindConfirmRequest,
		"login_required":     KindAuth,
		"made_up_action":     KindPlain,
		"":                   KindPlain,
	}
	for action, want := range cases {
		if got := KindOf(action); got != want {
			t.Errorf("KindOf(%q) = %s, want %s", action, got, want)
		}
	}
}

func TestRender_TaskList(t *testing.T) {
	res := &domain.CommandResult{
		Success: true,
		Message: "Here are your tasks:",
		Data:    json.RawMessage(`{"tasks":[{"id":"1","text":"buy milk","due":"tomorrow"},{"id":"2","text":"call mom","completed":true}]}`),
	}
	content, fragment := Render(KindTask, res)
	if !fragment {
		t.Error("expected a rendered fragment")
	}
	if !strings.Contains(content, "[ ] buy milk (due tomorrow)") {
		t.Errorf("missing open task line:\n%s", content)
	}
	if !strings.Contains(content, "[x] call mom") {
		t.Errorf("missing completed task line:\n%s", content)
	}
}

func TestRender_BareArrayPayload(t *testing.T) {
	res := &domain.CommandResult{
		Success: true,
		Data:    json.RawMessage(`[{"id":"1","title":"Standup","date":"2026-09-02","time":"09:00"}]`),
	}
	content, fragment := Render(KindEvent, res)
	if !fragment {
		t.Error("expected a rendered fragment")
	}
	if !strings.Contains(content, "Standup on 2026-09-02 at 09:00") {
		t.Errorf("event line missing:\n%s", content)
	}
}

func TestRender_UnparseableDataFallsBackToMessage(t *testing.T) {
	res := &domain.CommandResult{
		Success: true,
		Message: "3 tasks found",
		Data:    json.RawMessage(`"not an object"`),
	}
	content, fragment := Render(KindTask, res)
	if fragment {
		t.Error("unparseable payload must not produce a fragment")
	}
	if content != "3 tasks found" {
		t.Errorf("content = %q", content)
	}
}

func TestRender_EmptyMessageDefaults(t *testing.T) {
	content, _ := Render(KindPlain, &domain.CommandResult{Success: true})
	if content != "Done." {
		t.Errorf("content = %q", content)
	}
}

func TestRender_DraftShowsAffordance(t *testing.T) {
	withRecipients := &domain.CommandResult{
		Success: true,
		Data:    json.RawMessage(`{"subject":"Hi","body":"Hello","recipients":["a@b.c"],"type":"email"}`),
	}
	content, _ := Render(KindDraft, withRecipients)
	if !strings.Contains(content, "send now") {
		t.Errorf("expected send-now affordance:\n%s", content)
	}

	withoutRecipients := &domain.CommandResult{
		Success: true,
		Data:    json.RawMessage(`{"subject":"Hi","body":"Hello","type":"email"}`),
	}
	content, _ = Render(KindDraft, withoutRecipients)
	if !strings.Contains(content, "No recipients yet") {
		t.Errorf("expected collect-recipients affordance:\n%s", content)
	}
}

func TestDecodeDraft(t *testing.T) {
	d, ok := DecodeDraft(json.RawMessage(`{"subject":"S","body":"B","recipients":["x@y.z"]}`))
	if !ok {
		t.Fatal("expected decode success")
	}
	if !d.HasRecipient {
		t.Error("HasRecipient should be derived from recipients")
	}

	if _, ok := DecodeDraft(json.RawMessage(`{}`)); ok {
		t.Error("empty object should not decode as a draft")
	}
	if _, ok := DecodeDraft(nil); ok {
		t.Error("nil payload should not decode as a draft")
	}
}

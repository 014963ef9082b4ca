package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"voxdesk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key", Logger: testLogger()})
	return client, srv
}

func TestSubmit_RequestShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/command" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if string(body["command"]) != `"add a task"` {
			t.Errorf("command = %s", body["command"])
		}
		if string(body["confirmation_data"]) != `{"count":3}` {
			t.Errorf("confirmation_data = %s", body["confirmation_data"])
		}

		json.NewEncoder(w).Encode(domain.CommandResult{Success: true, Action: "add_task", Message: "done"})
	})

	result, err := client.Submit(context.Background(), "add a task", json.RawMessage(`{"count":3}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Success || result.Action != "add_task" {
		t.Errorf("result = %+v", result)
	}
}

func TestSubmit_OmitsEmptyConfirmationData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&body)
		if _, present := body["confirmation_data"]; present {
			t.Error("confirmation_data should be omitted when nil")
		}
		json.NewEncoder(w).Encode(domain.CommandResult{Success: true})
	})

	if _, err := client.Submit(context.Background(), "help", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestSubmit_DecodesCollectionFlags(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "needs_recipients": true, "message": "Who should receive this?"}`))
	})

	result, err := client.Submit(context.Background(), "send it", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.NeedsRecipients || result.NeedsInteractive {
		t.Errorf("flags = %+v", result)
	}
}

func TestSubmit_Non200IsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := client.Submit(context.Background(), "anything", nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestCollectInteractiveDraft(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/interactive-draft" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req domain.InteractiveDraftRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Purpose != "follow up" || req.Tone != "formal" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(domain.CommandResult{
			Success: true, Action: "draft_email",
			Data: json.RawMessage(`{"subject":"Follow up","body":"...","type":"email"}`),
		})
	})

	result, err := client.CollectInteractiveDraft(context.Background(), domain.InteractiveDraftRequest{
		Purpose: "follow up",
		Tone:    "formal",
	})
	if err != nil {
		t.Fatalf("CollectInteractiveDraft: %v", err)
	}
	if result.Action != "draft_email" {
		t.Errorf("action = %s", result.Action)
	}
}

func TestSendDraft(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/send-draft" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string][]string
		json.NewDecoder(r.Body).Decode(&body)
		if len(body["recipients"]) != 2 {
			t.Errorf("recipients = %v", body["recipients"])
		}
		json.NewEncoder(w).Encode(domain.CommandResult{Success: true, Action: "send_draft", Message: "Sent."})
	})

	result, err := client.SendDraft(context.Background(), []string{"a@b.c", "d@e.f"})
	if err != nil {
		t.Fatalf("SendDraft: %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
}

func TestFriends_ListAndSearch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/friends" && r.Method == http.MethodGet:
			w.Write([]byte(`{"success": true, "data": [{"id":"1","name":"Ada","email":"ada@example.com"}]}`))
		case r.URL.Path == "/api/friends/search":
			if q := r.URL.Query().Get("q"); q != "ada" {
				t.Errorf("q = %q", q)
			}
			w.Write([]byte(`{"success": true, "data": [{"id":"1","name":"Ada","email":"ada@example.com"}]}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	friends, err := client.ListFriends(context.Background())
	if err != nil {
		t.Fatalf("ListFriends: %v", err)
	}
	if len(friends) != 1 || friends[0].Name != "Ada" {
		t.Errorf("friends = %+v", friends)
	}

	found, err := client.SearchFriends(context.Background(), "ada")
	if err != nil {
		t.Fatalf("SearchFriends: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("found = %+v", found)
	}
}

func TestFriends_AddDelete(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/friends":
			var f domain.Friend
			json.NewDecoder(r.Body).Decode(&f)
			if f.Email != "ada@example.com" {
				t.Errorf("email = %s", f.Email)
			}
			w.Write([]byte(`{"success": true, "message": "added"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/friends/1":
			w.Write([]byte(`{"success": true, "message": "deleted"}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	if _, err := client.AddFriend(context.Background(), domain.Friend{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}
	reply, err := client.DeleteFriend(context.Background(), "1")
	if err != nil {
		t.Fatalf("DeleteFriend: %v", err)
	}
	if !reply.Success {
		t.Errorf("reply = %+v", reply)
	}
}

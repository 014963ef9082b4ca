package channel

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxdesk/internal/domain"
)

func dialTestChannel(t *testing.T, b domain.CommandBus) *websocket.Conn {
	t.Helper()

	ws := NewWebSocketChannel(WSConfig{Logger: testLogger()})
	ws.bus = b

	srv := httptest.NewServer(http.HandlerFunc(ws.handleConn))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForCommands(t *testing.T, b *fakeBus, n int) []domain.InboundCommand {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cmds := b.commands(); len(cmds) >= n {
			return cmds
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d commands, got %d", n, len(b.commands()))
	return nil
}

func TestWebSocket_TranscriptionBecomesPushCommand(t *testing.T) {
	b := newFakeBus()
	conn := dialTestChannel(t, b)

	if err := conn.WriteJSON(WSMessage{Type: "transcription", Text: "add a task"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := waitForCommands(t, b, 1)
	if cmds[0].Text != "add a task" {
		t.Errorf("text = %q", cmds[0].Text)
	}
	if cmds[0].Source != domain.SourcePush || cmds[0].Error {
		t.Errorf("command = %+v", cmds[0])
	}
}

func TestWebSocket_ErrorEventFlagged(t *testing.T) {
	b := newFakeBus()
	conn := dialTestChannel(t, b)

	if err := conn.WriteJSON(WSMessage{Type: "error", Message: "audio device lost"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := waitForCommands(t, b, 1)
	if !cmds[0].Error {
		t.Error("error event not flagged")
	}
	if cmds[0].Text != "audio device lost" {
		t.Errorf("text = %q", cmds[0].Text)
	}
}

func TestWebSocket_EmptyTranscriptionIgnored(t *testing.T) {
	b := newFakeBus()
	conn := dialTestChannel(t, b)

	if err := conn.WriteJSON(WSMessage{Type: "transcription", Text: ""}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(WSMessage{Type: "transcription", Text: "real one"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := waitForCommands(t, b, 1)
	if len(cmds) != 1 || cmds[0].Text != "real one" {
		t.Errorf("commands = %+v", cmds)
	}
}

func TestWebSocket_UnknownEventIgnored(t *testing.T) {
	b := newFakeBus()
	conn := dialTestChannel(t, b)

	if err := conn.WriteJSON(WSMessage{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(WSMessage{Type: "transcription", Text: "after"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := waitForCommands(t, b, 1)
	if len(cmds) != 1 || cmds[0].Text != "after" {
		t.Errorf("commands = %+v", cmds)
	}
}

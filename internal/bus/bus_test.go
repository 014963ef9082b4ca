package bus

import (
	"testing"
	"time"

	"voxdesk/internal/domain"
)

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	b := New(4, testEBLogger())
	defer b.Close()

	b.Publish(domain.InboundCommand{Channel: "cli", Text: "add a task", Source: domain.SourceTyped})

	select {
	case cmd := <-b.Subscribe():
		if cmd.Text != "add a task" {
			t.Errorf("text = %q", cmd.Text)
		}
		if cmd.Source != domain.SourceTyped {
			t.Errorf("source = %q", cmd.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("command not delivered")
	}
}

func TestInMemoryBus_ReplyRouting(t *testing.T) {
	b := New(4, testEBLogger())
	defer b.Close()

	got := make(chan domain.OutboundReply, 1)
	b.OnReply("telegram", func(r domain.OutboundReply) { got <- r })

	b.SendReply(domain.OutboundReply{Channel: "telegram", ChatID: "42", Text: "done"})

	select {
	case r := <-got:
		if r.ChatID != "42" || r.Text != "done" {
			t.Errorf("unexpected reply: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("reply not routed")
	}
}

func TestInMemoryBus_ReplyWithoutHandler(t *testing.T) {
	b := New(4, testEBLogger())
	defer b.Close()

	// Must not panic.
	b.SendReply(domain.OutboundReply{Channel: "nobody", Text: "hello"})
}

func TestInMemoryBus_PublishAfterClose(t *testing.T) {
	b := New(4, testEBLogger())
	b.Close()

	// Must not panic.
	b.Publish(domain.InboundCommand{Channel: "cli", Text: "late"})
}

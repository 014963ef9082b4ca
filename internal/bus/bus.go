package bus

import (
	"log/slog"
	"sync"
	"time"

	"voxdesk/internal/domain"
)

const publishTimeout = 10 * time.Second

// InMemoryBus is a Go-channel based command bus routing input-channel
// commands to the engine and replies back. The engine consumes commands
// sequentially, which keeps at most one submission outstanding at a time.
type InMemoryBus struct {
	inbound  chan domain.InboundCommand
	handlers map[string]func(domain.OutboundReply)
	mu       sync.RWMutex
	closed   bool
	logger   *slog.Logger
}

// New creates a new InMemoryBus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &InMemoryBus{
		inbound:  make(chan domain.InboundCommand, bufferSize),
		handlers: make(map[string]func(domain.OutboundReply)),
		logger:   logger,
	}
}

// Publish queues an inbound command. Blocks up to publishTimeout if the
// bus is full instead of dropping.
func (b *InMemoryBus) Publish(cmd domain.InboundCommand) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.inbound <- cmd:
	default:
		b.logger.Warn("inbound bus full, waiting...", "channel", cmd.Channel, "source", cmd.Source)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- cmd:
		case <-timer.C:
			b.logger.Error("command dropped: bus full",
				"channel", cmd.Channel,
				"source", cmd.Source,
			)
		}
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.InboundCommand {
	return b.inbound
}

func (b *InMemoryBus) SendReply(reply domain.OutboundReply) {
	b.mu.RLock()
	handler, ok := b.handlers[reply.Channel]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("no reply handler registered for channel", "channel", reply.Channel)
		return
	}

	handler(reply)
}

func (b *InMemoryBus) OnReply(channelName string, handler func(domain.OutboundReply)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channelName] = handler
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}

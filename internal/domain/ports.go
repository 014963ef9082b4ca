package domain

import (
	"context"
	"encoding/json"
	"io"
)

// SpeechEvents receives the event sequence of one recognition session:
// zero or more interim transcripts followed by exactly one of final
// transcript, error, or silent end.
type SpeechEvents struct {
	OnInterim func(text string)
	OnFinal   func(text string)
	OnError   func(code SpeechErrorCode, err error)
	OnEnd     func()
}

// Recognizer is a host speech-to-text capability driving one recognition
// session per Listen call. Listen blocks until the session ends or ctx is
// cancelled; cancellation is an abort, not a commit.
type Recognizer interface {
	// Supported reports whether the host environment can recognize speech.
	Supported() bool
	Listen(ctx context.Context, ev SpeechEvents) error
}

// Speaker is a host text-to-speech capability.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Transcriber converts recorded audio (voice notes, uploads) to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// CommandClient submits natural-language commands to the backend command
// endpoint. confirmationData, when non-nil, is the pending confirmation
// payload echoed back verbatim.
type CommandClient interface {
	Submit(ctx context.Context, command string, confirmationData json.RawMessage) (*CommandResult, error)
}

// CommandBus routes commands between input channels and the engine.
type CommandBus interface {
	Publish(cmd InboundCommand)
	Subscribe() <-chan InboundCommand
	SendReply(reply OutboundReply)
	OnReply(channelName string, handler func(OutboundReply))
	Close()
}

// Channel is a user-facing input surface (CLI, Telegram, websocket push).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus CommandBus) error
	Stop() error
}

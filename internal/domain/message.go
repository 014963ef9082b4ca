package domain

import "time"

// Sender identifies who produced a log message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Category is a derived classification tag used only for client-side
// message filtering, never for storage or business logic.
type Category string

const (
	CategoryAll      Category = "all"
	CategoryTasks    Category = "tasks"
	CategoryNotes    Category = "notes"
	CategoryCalendar Category = "calendar"
	CategoryGallery  Category = "gallery"
)

// Message is an immutable log entry once appended. Category is computed
// once at append time and never recomputed afterward.
type Message struct {
	ID        string
	Content   string
	Fragment  bool // Content is a rendered fragment rather than plain text
	Sender    Sender
	Category  Category
	Pending   bool // placeholder for an in-flight command, removed on resolution
	Timestamp time.Time
}

// InboundCommand is a command arriving from an input channel, before it
// reaches the engine.
type InboundCommand struct {
	Channel   string
	ChatID    string
	SenderID  string
	Text      string
	Source    InputSource
	Error     bool // push-channel error event; Text is the error message
	Timestamp time.Time
}

// OutboundReply carries a rendered reply back to the channel it came from.
type OutboundReply struct {
	Channel string
	ChatID  string
	Text    string
}

// InputSource distinguishes how a command entered the system.
type InputSource string

const (
	SourceTyped InputSource = "typed"
	SourceVoice InputSource = "voice"
	SourcePush  InputSource = "push" // real-time transcription push channel
)

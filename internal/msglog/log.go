// Package msglog holds the append-only conversation log and its derived
// category filter view. Categories are computed once at append time from a
// keyword heuristic and never recomputed afterward; changing the active
// category only re-evaluates visibility over the existing entries.
package msglog

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxdesk/internal/config"
	"voxdesk/internal/domain"
)

// Log is the session message log. Entries are appended in completion
// order and are immutable once appended; the single exception is the
// pending placeholder a dispatch inserts while a command is in flight,
// which is removed in place on resolution.
type Log struct {
	mu       sync.RWMutex
	entries  []*domain.Message
	active   domain.Category
	lexicon  *config.Lexicon
}

func New(lexicon *config.Lexicon) *Log {
	if lexicon == nil {
		lexicon = config.DefaultLexicon()
	}
	return &Log{
		active:  domain.CategoryAll,
		lexicon: lexicon,
	}
}

// Append adds a message, deriving its category from content and sender.
// Returns the stored entry (with ID and timestamp filled in).
func (l *Log) Append(content string, fragment bool, sender domain.Sender) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Fragment:  fragment,
		Sender:    sender,
		Category:  l.classify(content, sender),
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()
	return msg
}

// AppendPending inserts the in-flight placeholder for a submitted command
// and returns its ID for later resolution.
func (l *Log) AppendPending(text string) string {
	msg := &domain.Message{
		ID:        uuid.NewString(),
		Content:   text,
		Sender:    domain.SenderSystem,
		Category:  domain.CategoryAll,
		Pending:   true,
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()
	return msg.ID
}

// Resolve removes the placeholder with the given ID. Returns false if no
// such placeholder exists (already resolved, or never inserted).
func (l *Log) Resolve(placeholderID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.entries {
		if m.ID == placeholderID && m.Pending {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// SetActiveCategory changes the filter. Idempotent; never re-derives
// stored categories.
func (l *Log) SetActiveCategory(c domain.Category) {
	l.mu.Lock()
	l.active = c
	l.mu.Unlock()
}

func (l *Log) ActiveCategory() domain.Category {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Visible returns the entries passing the active filter, in original
// append order. The slice is fresh but the entries are shared views;
// callers must not mutate them.
func (l *Log) Visible() []*domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.active == domain.CategoryAll {
		out := make([]*domain.Message, len(l.entries))
		copy(out, l.entries)
		return out
	}

	var out []*domain.Message
	for _, m := range l.entries {
		// User messages stay visible under every filter to preserve
		// conversational context.
		if m.Sender == domain.SenderUser || m.Category == l.active {
			out = append(out, m)
		}
	}
	return out
}

// All returns every entry regardless of the active filter.
func (l *Log) All() []*domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*domain.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// classify derives the category at write time. User messages are always
// "all"; bot/system messages take the first keyword group that matches.
// This is a heuristic, not a semantic classifier; misclassification is
// accepted.
func (l *Log) classify(content string, sender domain.Sender) domain.Category {
	if sender == domain.SenderUser {
		return domain.CategoryAll
	}

	lower := strings.ToLower(content)
	for _, group := range l.lexicon.Categories {
		for _, kw := range group.Keywords {
			if strings.Contains(lower, kw) {
				return domain.Category(group.Name)
			}
		}
	}
	return domain.CategoryAll
}

// Package draft holds the single in-flight composable artifact. Every
// draft-producing or draft-refining backend result fully replaces the
// stored draft; fields are never merged.
package draft

import (
	"sync"

	"voxdesk/internal/domain"
)

// Store owns the single draft slot. No other component mutates it.
type Store struct {
	mu      sync.RWMutex
	current *domain.Draft
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces any prior draft in full.
func (s *Store) Set(d domain.Draft) {
	s.mu.Lock()
	s.current = &d
	s.mu.Unlock()
}

// Clear discards the stored draft.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns a copy of the stored draft, or nil if none exists.
func (s *Store) Current() *domain.Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	d := *s.current
	return &d
}

// SendAffordance names the path to sending the current draft: "send_now"
// when recipients are attached, "collect_recipients" otherwise, "" when
// no draft exists.
func (s *Store) SendAffordance() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.current == nil:
		return ""
	case s.current.HasRecipient:
		return "send_now"
	default:
		return "collect_recipients"
	}
}

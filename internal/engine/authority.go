package engine

import (
	"sync"

	"voxdesk/internal/domain"
)

// Authority is the single input-authority token of a session. The main
// speech adapter, the confirmation machine and the command dispatcher
// each acquire it before acting, which replaces the original's implicit
// shared-flag convention with an explicit, testable invariant.
type Authority struct {
	mu    sync.Mutex
	owner domain.InputOwner
}

func NewAuthority() *Authority {
	return &Authority{owner: domain.OwnerNone}
}

// Acquire takes the token. A held token is never re-granted, not even to
// the same owner.
func (a *Authority) Acquire(owner domain.InputOwner) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner != domain.OwnerNone {
		return false
	}
	a.owner = owner
	return true
}

// Release frees the token if owner currently holds it.
func (a *Authority) Release(owner domain.InputOwner) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner == owner {
		a.owner = domain.OwnerNone
	}
}

// Owner reports the current holder.
func (a *Authority) Owner() domain.InputOwner {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}

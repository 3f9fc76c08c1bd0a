// Package auth delegates sign-in to Google OAuth and exposes the current
// identity as an observable value.
package auth

import (
	"sync"

	"github.com/mockmate/mockmate/internal/domain"
)

// Notifier fans identity changes out to event-feed subscribers. Every
// subscription and publish carries a scope (the UI instance the change
// belongs to); a change is only delivered within its scope, so one
// user's sign-in is never pushed to another user's feed. A signed-out
// user is published as the zero Identity.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]chan domain.Identity
	next int
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[int]chan domain.Identity)}
}

// Subscribe registers a listener for the given scope. The returned
// cancel function must be called when the listener goes away (e.g. the
// UI disconnects).
func (n *Notifier) Subscribe(scope string) (<-chan domain.Identity, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan domain.Identity, 8)
	if n.subs[scope] == nil {
		n.subs[scope] = make(map[int]chan domain.Identity)
	}
	n.subs[scope][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[scope][id]; ok {
			delete(n.subs[scope], id)
			if len(n.subs[scope]) == 0 {
				delete(n.subs, scope)
			}
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an identity change to the subscribers of one scope.
// Sends never block; a subscriber that has fallen behind misses
// intermediate values.
func (n *Notifier) Publish(scope string, identity domain.Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[scope] {
		select {
		case ch <- identity:
		default:
		}
	}
}

// Subscribers returns the subscriber count for a scope.
func (n *Notifier) Subscribers(scope string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[scope])
}

package session

import (
	"sync"

	"github.com/qcheck-dev/qcheck/internal/domain/user"
)

// Tracker broadcasts sign-in state transitions to subscribers. It is the
// server-side analog of an auth state listener: SignedIn/SignedOut fire the
// callbacks with the user or nil, and Subscribe returns an unsubscribe
// handle. A Tracker with no subscribers is a safe no-op.
type Tracker struct {
	mu    sync.RWMutex
	next  int
	subs  map[int]func(*user.User)
	state map[string]user.User // currently signed-in users by id
}

func NewTracker() *Tracker {
	return &Tracker{
		subs:  make(map[int]func(*user.User)),
		state: make(map[string]user.User),
	}
}

// Subscribe registers a callback for every future transition. The returned
// func removes the subscription and is safe to call more than once.
func (t *Tracker) Subscribe(cb func(*user.User)) func() {
	if t == nil || cb == nil {
		return func() {}
	}

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = cb
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) SignedIn(u user.User) {
	if t == nil {
		return
	}

	t.mu.Lock()
	t.state[u.ID] = u
	subs := t.snapshot()
	t.mu.Unlock()

	for _, cb := range subs {
		cb(&u)
	}
}

func (t *Tracker) SignedOut(userID string) {
	if t == nil {
		return
	}

	t.mu.Lock()
	delete(t.state, userID)
	subs := t.snapshot()
	t.mu.Unlock()

	for _, cb := range subs {
		cb(nil)
	}
}

// Active reports whether the given user currently has a session the tracker
// has seen sign in and not yet sign out.
func (t *Tracker) Active(userID string) bool {
	if t == nil {
		return false
	}

	t.mu.RLock()
	_, ok := t.state[userID]
	t.mu.RUnlock()

	return ok
}

// caller must hold mu
func (t *Tracker) snapshot() []func(*user.User) {
	out := make([]func(*user.User), 0, len(t.subs))

	for _, cb := range t.subs {
		out = append(out, cb)
	}

	return out
}

package thread

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/push"
)

// Watcher owns at most one live session for a viewer. It models the
// conversation view: switching to another counterpart or product always tears
// the previous session down before the next one subscribes, so two
// subscriptions are never active at once and a superseded history fetch can
// never leak into the new thread's list.
type Watcher struct {
	store  Store
	feed   Feed
	pusher push.Sender
	viewer uuid.UUID

	mu      sync.Mutex
	current *Session
}

func NewWatcher(store Store, feed Feed, pusher push.Sender, viewer uuid.UUID) *Watcher {
	return &Watcher{
		store:  store,
		feed:   feed,
		pusher: pusher,
		viewer: viewer,
	}
}

// Switch closes the current session, then opens one for the new triple.
func (w *Watcher) Switch(ctx context.Context, counterpart uuid.UUID, productID *uuid.UUID) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil {
		w.current.Close()
		w.current = nil
	}

	s := NewSession(w.store, w.feed, w.pusher, w.viewer, counterpart, productID)
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	w.current = s
	return s, nil
}

// Current returns the live session, or nil when no thread is open.
func (w *Watcher) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close tears down the live session, if any.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.current.Close()
		w.current = nil
	}
}

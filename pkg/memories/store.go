package memories

import (
	"context"
	"sync"
)

// Store is the persistence capability the application depends on. Remote
// and local implementations are interchangeable and chosen once at startup.
type Store interface {
	// List returns every valid record, newest CreatedAt first.
	List(ctx context.Context) ([]Memory, error)
	// Insert persists a new record. Invalid records are rejected with
	// ErrInvalidRecord before anything is sent.
	Insert(ctx context.Context, m Memory) error
	// Update replaces the record with the same id.
	Update(ctx context.Context, m Memory) error
	// Remove deletes the record and reports whether the deletion is confirmed.
	Remove(ctx context.Context, id string) (bool, error)
	// Subscribe registers a bare "something changed" callback. The returned
	// function unsubscribes and may be called any number of times.
	Subscribe(onChange func()) (unsubscribe func())
}

// Notifier fans a change signal out to subscribers.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

// Subscribe adds fn and returns an idempotent unsubscribe function.
func (n *Notifier) Subscribe(fn func()) func() {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Notify invokes every subscriber. Callbacks run outside the lock so they
// may subscribe or unsubscribe.
func (n *Notifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len reports the number of live subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

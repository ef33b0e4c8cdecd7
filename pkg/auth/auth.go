// Package auth gates journal writes behind a single account. The remote
// store enforces the actual permissions; this package only obtains and
// tracks the session.
package auth

import (
	"context"
	"errors"
	"sync"
)

// State is the session state seen by the application.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrNotConfigured      = errors.New("authentication is not configured")
	ErrUnavailable        = errors.New("authentication service unavailable")
)

// Result is the outcome of a login attempt. Err is suitable for showing to
// the user.
type Result struct {
	Success bool
	Err     error
}

// Authenticator is implemented by every auth backend.
type Authenticator interface {
	Login(ctx context.Context, password string) Result
	Logout(ctx context.Context) error
	// CheckSession reports whether a live session exists.
	CheckSession(ctx context.Context) bool
	// OnSessionChange registers fn for state transitions. The returned
	// function unsubscribes and may be called more than once.
	OnSessionChange(fn func(State)) (unsubscribe func())
	Configured() bool
}

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(State)
}

func (l *listeners) add(fn func(State)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(State))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) fire(s State) {
	l.mu.Lock()
	fns := make([]func(State), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
	"github.com/unowned-ai/wayfarer/pkg/remote"
	"go.uber.org/zap"
)

const (
	defaultWatchInterval = 30 * time.Second
	refreshMargin        = 2 * time.Minute
)

// Session is the part of a provider session the adapter tracks.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider is the identity service behind SupabaseAuth.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	SignOut(ctx context.Context) error
}

// SupabaseAuth signs a fixed account in with a password and keeps the
// session fresh in the background once Watch is running.
type SupabaseAuth struct {
	provider Provider
	email    string
	logger   *zap.Logger
	now      func() time.Time
	interval time.Duration

	mu      sync.Mutex
	session *Session

	changes listeners

	watchMu sync.Mutex
	stop    context.CancelFunc
	done    chan struct{}
}

// NewSupabaseAuth returns an adapter logging in as email.
func NewSupabaseAuth(provider Provider, email string, logger *zap.Logger) *SupabaseAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseAuth{
		provider: provider,
		email:    email,
		logger:   logger,
		now:      time.Now,
		interval: defaultWatchInterval,
	}
}

func (a *SupabaseAuth) Configured() bool {
	return a.provider != nil && a.email != ""
}

func (a *SupabaseAuth) Login(ctx context.Context, password string) Result {
	if !a.Configured() {
		return Result{Err: ErrNotConfigured}
	}
	if password == "" {
		return Result{Err: ErrInvalidCredentials}
	}
	s, err := a.provider.SignIn(ctx, a.email, password)
	if err != nil {
		a.logger.Info("sign-in failed", zap.String("email", a.email), zap.Error(err))
		return Result{Err: userFacing(err)}
	}

	a.mu.Lock()
	a.session = &s
	a.mu.Unlock()

	a.logger.Info("signed in", zap.String("email", a.email), zap.Time("expires_at", s.ExpiresAt))
	a.changes.fire(Authenticated)
	return Result{Success: true}
}

// Logout ends the session locally even when the provider call fails.
func (a *SupabaseAuth) Logout(ctx context.Context) error {
	if !a.Configured() {
		return nil
	}
	err := a.provider.SignOut(ctx)
	if a.clear() {
		a.changes.fire(Anonymous)
	}
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (a *SupabaseAuth) CheckSession(ctx context.Context) bool {
	a.check(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

func (a *SupabaseAuth) OnSessionChange(fn func(State)) func() {
	return a.changes.add(fn)
}

// Watch periodically refreshes the session and reports expiry as a
// transition to Anonymous. Close stops it.
func (a *SupabaseAuth) Watch(ctx context.Context) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.stop = cancel
	a.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.check(ctx)
			}
		}
	}(a.done)
}

func (a *SupabaseAuth) Close() {
	a.watchMu.Lock()
	stop, done := a.stop, a.done
	a.stop, a.done = nil, nil
	a.watchMu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// check refreshes a session close to expiry and drops one that has expired.
func (a *SupabaseAuth) check(ctx context.Context) {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return
	}

	now := a.now()
	if now.Add(refreshMargin).Before(s.ExpiresAt) {
		return
	}

	if s.RefreshToken != "" {
		fresh, err := a.provider.Refresh(ctx, s.RefreshToken)
		if err == nil {
			a.mu.Lock()
			if a.session == s {
				a.session = &fresh
			}
			a.mu.Unlock()
			a.logger.Debug("session refreshed", zap.Time("expires_at", fresh.ExpiresAt))
			return
		}
		a.logger.Warn("session refresh failed", zap.Error(err))
	}

	if now.Before(s.ExpiresAt) {
		return
	}
	a.mu.Lock()
	expired := a.session == s
	if expired {
		a.session = nil
	}
	a.mu.Unlock()
	if expired {
		a.logger.Info("session expired")
		a.changes.fire(Anonymous)
	}
}

func (a *SupabaseAuth) clear() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	had := a.session != nil
	a.session = nil
	return had
}

// userFacing maps provider errors onto messages fit for the login form.
func userFacing(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid_grant"),
		strings.Contains(msg, "invalid login credentials"),
		strings.Contains(msg, "invalid_credentials"):
		return ErrInvalidCredentials
	case strings.Contains(msg, "email not confirmed"):
		return errors.New("account email is not confirmed")
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return errors.New("too many login attempts, try again later")
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// SupabaseProvider adapts a supabase client. Signing in installs the access
// token on the client, so the remote store sharing it writes as that user.
// Every call holds the client exclusively, since each one replaces the
// session headers that remote requests read.
type SupabaseProvider struct {
	client  *remote.Client
	anonKey string
}

func NewSupabaseProvider(client *remote.Client, anonKey string) *SupabaseProvider {
	return &SupabaseProvider{client: client, anonKey: anonKey}
}

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	var s types.Session
	err := p.client.Exclusive(func(sc *supabase.Client) error {
		var err error
		s, err = sc.SignInWithEmailPassword(email, password)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return sessionOf(s), nil
}

func (p *SupabaseProvider) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	var s types.Session
	err := p.client.Exclusive(func(sc *supabase.Client) error {
		resp, err := sc.Auth.RefreshToken(refreshToken)
		if err != nil {
			return err
		}
		s = resp.Session
		sc.UpdateAuthSession(s)
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return sessionOf(s), nil
}

// SignOut revokes the session and puts the anon key back on the client.
func (p *SupabaseProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.client.Exclusive(func(sc *supabase.Client) error {
		err := sc.Auth.Logout()
		sc.UpdateAuthSession(types.Session{AccessToken: p.anonKey})
		return err
	})
}

func sessionOf(s types.Session) Session {
	expires := time.Unix(s.ExpiresAt, 0)
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		expires = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    expires,
	}
}

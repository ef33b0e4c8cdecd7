package auth

import (
	"context"
	"crypto/subtle"
)

// StaticAuth compares against a password held in configuration. It keeps no
// session and offers no real protection: anyone with the binary and the
// config can write. Use it only for local, single-user journals.
type StaticAuth struct {
	password string
}

func NewStaticAuth(password string) *StaticAuth {
	return &StaticAuth{password: password}
}

func (a *StaticAuth) Login(ctx context.Context, password string) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}
	if a.password == "" {
		return Result{Err: ErrNotConfigured}
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return Result{Err: ErrInvalidCredentials}
	}
	return Result{Success: true}
}

func (a *StaticAuth) Logout(context.Context) error { return nil }

func (a *StaticAuth) CheckSession(context.Context) bool { return false }

// OnSessionChange never fires.
func (a *StaticAuth) OnSessionChange(func(State)) func() { return func() {} }

func (a *StaticAuth) Configured() bool { return a.password != "" }

package app

import (
	"errors"
	"fmt"

	"github.com/unowned-ai/wayfarer/pkg/auth"
	"github.com/unowned-ai/wayfarer/pkg/localstore"
	"github.com/unowned-ai/wayfarer/pkg/memories"
	"github.com/unowned-ai/wayfarer/pkg/remote"
	"go.uber.org/zap"
)

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a message for the user. Err carries the underlying cause, if
// any.
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

// SetNoticeSink routes notices to fn. Notices raised before a sink is set
// are only logged.
func (c *Coordinator) SetNoticeSink(fn func(Notice)) {
	c.mu.Lock()
	c.sink = fn
	c.mu.Unlock()
}

func (c *Coordinator) notify(n Notice) {
	fields := []zap.Field{zap.String("level", n.Level.String())}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}
	c.logger.Info(n.Message, fields...)

	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notice sink panicked", zap.Any("panic", r))
		}
	}()
	sink(n)
}

// writeFailure turns a failed save or delete into a notice worded for the
// cause.
func writeFailure(action string, err error) Notice {
	var msg string
	switch {
	case errors.Is(err, localstore.ErrStorageFull):
		msg = "Local storage is full. Configure remote storage or delete some memories."
	case errors.Is(err, remote.ErrNotPermitted):
		msg = fmt.Sprintf("Could not %s the memory: permission denied. Try signing in again.", action)
	case errors.Is(err, memories.ErrInvalidRecord):
		msg = fmt.Sprintf("Could not %s the memory: it has no valid location.", action)
	default:
		msg = fmt.Sprintf("Could not %s the memory. Please try again.", action)
	}
	return Notice{Level: NoticeError, Message: msg, Err: err}
}

func loginFailure(res auth.Result) Notice {
	msg := "Login failed."
	if res.Err != nil {
		msg = "Login failed: " + res.Err.Error()
	}
	return Notice{Level: NoticeError, Message: msg, Err: res.Err}
}

// recoverAction converts a panic inside an action into a notice and an
// error return.
func (c *Coordinator) recoverAction(action string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("%w: %s: %v", ErrUnexpected, action, r)
	c.logger.Error("action panicked", zap.String("action", action), zap.Any("panic", r), zap.Stack("stack"))
	c.notify(Notice{Level: NoticeError, Message: "Something went wrong. Please try again.", Err: err})
	if errp != nil {
		*errp = err
	}
}

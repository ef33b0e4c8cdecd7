// Package remote adapts the hosted memories table to memories.Store.
//
// Reads never fail: when the remote service is unreachable (or the circuit
// breaker is open) List answers from the local fallback store. Writes are
// never retried and never fall back; their failures are returned as
// *WriteError so the caller can tell the user.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/unowned-ai/wayfarer/pkg/memories"
	"github.com/unowned-ai/wayfarer/pkg/metrics"
	"go.uber.org/zap"
)

// ErrNotPermitted means the remote accepted the request but changed no row,
// which is how row-level security reports a denied write. A missing row
// looks the same.
var ErrNotPermitted = errors.New("not permitted or no such row")

// IsPermissionError reports whether err is the service refusing a request
// it received: a row-level security violation or an expired token.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotPermitted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// PostgREST reports errors as "(<code>) <message>".
var permissionMarkers = []string{
	"(42501)",
	"(pgrst301)",
	"(pgrst302)",
	"row-level security",
	"permission denied",
	"jwt expired",
}

// WriteError reports a failed remote write.
type WriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("remote %s of memory %s failed: %v", e.Op, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Fallback is the local store consulted when remote reads fail.
type Fallback interface {
	ReadAll(ctx context.Context) []memories.Memory
	Prune(ctx context.Context, id string) error
}

// Store is a memories.Store backed by a remote Table.
type Store struct {
	table    Table
	fallback Fallback
	// Reads and writes trip independently.
	reads    *gobreaker.CircuitBreaker
	writes   *gobreaker.CircuitBreaker
	logger   *zap.Logger
	metrics  *metrics.Collector
	feed     *Feed

	changes memories.Notifier

	watchMu sync.Mutex
	stop    context.CancelFunc
	done    chan struct{}
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(s *Store) { s.metrics = c }
}

// WithFeed attaches a change feed so that writes by other clients reach
// subscribers. Without one, only this Store's own writes are signalled.
func WithFeed(f *Feed) Option {
	return func(s *Store) { s.feed = f }
}

// WithBreaker replaces the default circuit breaker settings. Reads and
// writes each get their own breaker built from settings.
func WithBreaker(settings gobreaker.Settings) Option {
	return func(s *Store) { s.reads, s.writes = newBreakers(settings) }
}

func newBreakers(settings gobreaker.Settings) (reads, writes *gobreaker.CircuitBreaker) {
	name := settings.Name
	if name == "" {
		name = "remote-store"
	}
	settings.Name = name + "-reads"
	reads = gobreaker.NewCircuitBreaker(settings)
	settings.Name = name + "-writes"
	writes = gobreaker.NewCircuitBreaker(settings)
	return reads, writes
}

// DefaultBreakerSettings trips after five consecutive failures and probes
// again after thirty seconds. Cancellations and permission errors are not
// failures.
func DefaultBreakerSettings(logger *zap.Logger) gobreaker.Settings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || IsPermissionError(err)
		},
	}
}

// New returns a Store over table that falls back to fallback for reads.
func New(table Table, fallback Fallback, opts ...Option) *Store {
	s := &Store{
		table:    table,
		fallback: fallback,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reads == nil {
		s.reads, s.writes = newBreakers(DefaultBreakerSettings(s.logger))
	}
	return s
}

// List returns every remote record, newest first. Invalid rows are dropped.
// If the remote read fails for any reason the local fallback is returned
// instead and the error is only logged.
func (s *Store) List(ctx context.Context) ([]memories.Memory, error) {
	res, err := s.reads.Execute(func() (interface{}, error) {
		return s.table.Select(ctx)
	})
	if err != nil {
		s.metrics.ObserveRemote("list", metrics.StatusError)
		s.metrics.RemoteFallback()
		s.logger.Warn("remote list failed, using local fallback", zap.Error(err))
		local := s.fallback.ReadAll(ctx)
		memories.SortNewestFirst(local)
		return local, nil
	}
	s.metrics.ObserveRemote("list", metrics.StatusOK)

	rows, _ := res.([]Row)
	out := make([]memories.Memory, 0, len(rows))
	for _, r := range rows {
		m, ok := memoryOf(r)
		if !ok || !memories.IsValid(m) {
			s.logger.Debug("dropping invalid remote row", zap.String("id", r.ID))
			continue
		}
		out = append(out, m)
	}
	memories.SortNewestFirst(out)
	return out, nil
}

// Insert writes m as a new row.
func (s *Store) Insert(ctx context.Context, m memories.Memory) error {
	if err := memories.Validate(m); err != nil {
		return err
	}
	_, err := s.writes.Execute(func() (interface{}, error) {
		return nil, s.table.Insert(ctx, rowOf(m))
	})
	if err != nil {
		return s.writeFailed("insert", m.ID, err)
	}
	s.metrics.ObserveRemote("insert", metrics.StatusOK)
	s.changes.Notify()
	return nil
}

// Update replaces the row with m's id. A write that affects no row is an
// error wrapping ErrNotPermitted.
func (s *Store) Update(ctx context.Context, m memories.Memory) error {
	if err := memories.Validate(m); err != nil {
		return err
	}
	res, err := s.writes.Execute(func() (interface{}, error) {
		return s.table.Update(ctx, rowOf(m))
	})
	if err != nil {
		return s.writeFailed("update", m.ID, err)
	}
	if rows, _ := res.([]Row); !containsID(rows, m.ID) {
		return s.writeRejected("update", m.ID)
	}
	s.metrics.ObserveRemote("update", metrics.StatusOK)
	s.changes.Notify()
	return nil
}

// Remove deletes the row with id. It reports true only when the remote
// confirms the row is gone, and then also drops id from the local blob.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.writes.Execute(func() (interface{}, error) {
		return s.table.Delete(ctx, id)
	})
	if err != nil {
		return false, s.writeFailed("delete", id, err)
	}
	if rows, _ := res.([]Row); !containsID(rows, id) {
		return false, s.writeRejected("delete", id)
	}
	s.metrics.ObserveRemote("delete", metrics.StatusOK)

	if err := s.fallback.Prune(ctx, id); err != nil {
		s.logger.Warn("could not prune deleted memory from local store",
			zap.String("id", id), zap.Error(err))
	}
	s.changes.Notify()
	return true, nil
}

// Subscribe registers onChange for every change signal: this Store's own
// confirmed writes and, once Watch is running, writes by any client.
func (s *Store) Subscribe(onChange func()) func() {
	return s.changes.Subscribe(onChange)
}

// Watch starts relaying the change feed to subscribers. It is a no-op
// without a feed or when already watching.
func (s *Store) Watch(ctx context.Context) {
	if s.feed == nil {
		return
	}
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stop != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		if err := s.feed.Run(ctx, s.changes.Notify); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("change feed stopped", zap.Error(err))
		}
	}(s.done)
}

// Close stops the change feed and waits for it to exit.
func (s *Store) Close() {
	s.watchMu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.watchMu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

func (s *Store) writeFailed(op, id string, err error) error {
	s.metrics.ObserveRemote(op, metrics.StatusError)
	s.logger.Warn("remote write failed", zap.String("op", op), zap.String("id", id), zap.Error(err))
	return &WriteError{Op: op, ID: id, Err: err}
}

func (s *Store) writeRejected(op, id string) error {
	s.metrics.ObserveRemote(op, metrics.StatusRejected)
	s.logger.Warn("remote write changed no rows", zap.String("op", op), zap.String("id", id))
	return &WriteError{Op: op, ID: id, Err: ErrNotPermitted}
}

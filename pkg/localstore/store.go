// Package localstore keeps the journal as a single JSON blob in a local
// key/value store. It is the offline fallback used when no remote backend is
// configured, and the read fallback when the remote backend is unreachable.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/unowned-ai/wayfarer/pkg/db"
	"github.com/unowned-ai/wayfarer/pkg/memories"
	"go.uber.org/zap"
)

// DefaultKey is the key holding the JSON-encoded record list.
const DefaultKey = "wayfarer-memories"

var (
	// ErrStorageFull means the local quota is exhausted. Callers should
	// advise configuring remote storage or deleting records.
	ErrStorageFull = errors.New("local storage is full")
	// ErrLocalSaveFailed wraps any other local write failure.
	ErrLocalSaveFailed = errors.New("local save failed")
)

// KeyValue is the persistence the store writes its blob into.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store is a memories.Store backed by one key of a KeyValue.
type Store struct {
	kv     KeyValue
	key    string
	logger *zap.Logger

	// mu serializes read-modify-write cycles within this process. Other
	// processes sharing the same database are not coordinated: last writer wins.
	mu      sync.Mutex
	changes memories.Notifier
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// New returns a Store persisting into kv.
func New(kv KeyValue, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{kv: kv, key: DefaultKey, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storedMemory mirrors memories.Memory with pointer coordinates so that a
// null or missing lat/lng in the blob is distinguishable from 0.
type storedMemory struct {
	ID           string           `json:"id"`
	Lat          *float64         `json:"lat"`
	Lng          *float64         `json:"lng"`
	LocationName string           `json:"locationName"`
	Description  string           `json:"description"`
	Photos       []memories.Photo `json:"photos"`
	Date         int64            `json:"date"`
	CreatedAt    int64            `json:"createdAt"`
}

// ReadAll returns every valid record in the blob, in stored order. It never
// fails: a missing, unreadable or corrupt blob reads as empty, and records
// that fail validation are skipped.
func (s *Store) ReadAll(ctx context.Context) []memories.Memory {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("local store read failed", zap.String("key", s.key), zap.Error(err))
		return []memories.Memory{}
	}
	if !ok || raw == "" {
		return []memories.Memory{}
	}
	return decode(raw, s.logger)
}

func decode(raw string, logger *zap.Logger) []memories.Memory {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn("local store blob is corrupt, treating as empty", zap.Error(err))
		return []memories.Memory{}
	}

	out := make([]memories.Memory, 0, len(items))
	for i, item := range items {
		var sm storedMemory
		if err := json.Unmarshal(item, &sm); err != nil {
			logger.Debug("skipping undecodable local record", zap.Int("index", i), zap.Error(err))
			continue
		}
		if sm.Lat == nil || sm.Lng == nil {
			logger.Debug("skipping local record without coordinates", zap.String("id", sm.ID))
			continue
		}
		m := memories.Memory{
			ID:           sm.ID,
			Lat:          *sm.Lat,
			Lng:          *sm.Lng,
			LocationName: sm.LocationName,
			Description:  sm.Description,
			Photos:       sm.Photos,
			Date:         sm.Date,
			CreatedAt:    sm.CreatedAt,
		}
		if m.Photos == nil {
			m.Photos = []memories.Photo{}
		}
		if err := memories.Validate(m); err != nil {
			logger.Debug("skipping invalid local record", zap.String("id", sm.ID), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out
}

// WriteAll replaces the blob with records. Invalid records are dropped.
// Capacity exhaustion is reported as ErrStorageFull, anything else as
// ErrLocalSaveFailed.
func (s *Store) WriteAll(ctx context.Context, records []memories.Memory) error {
	valid := memories.KeepValid(records)
	if dropped := len(records) - len(valid); dropped > 0 {
		s.logger.Warn("dropping invalid records before local write", zap.Int("dropped", dropped))
	}

	blob, err := json.Marshal(valid)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalSaveFailed, err)
	}
	if err := s.kv.Set(ctx, s.key, string(blob)); err != nil {
		if errors.Is(err, ErrStorageFull) || db.IsFull(err) {
			s.logger.Warn("local storage quota exhausted", zap.Int("bytes", len(blob)))
			return fmt.Errorf("%w: %v", ErrStorageFull, err)
		}
		return fmt.Errorf("%w: %v", ErrLocalSaveFailed, err)
	}
	return nil
}

// List implements memories.Store.
func (s *Store) List(ctx context.Context) ([]memories.Memory, error) {
	records := s.ReadAll(ctx)
	memories.SortNewestFirst(records)
	return records, nil
}

// Insert implements memories.Store.
func (s *Store) Insert(ctx context.Context, m memories.Memory) error {
	if err := memories.Validate(m); err != nil {
		return err
	}
	err := s.modify(ctx, func(records []memories.Memory) ([]memories.Memory, error) {
		for _, r := range records {
			if r.ID == m.ID {
				return nil, fmt.Errorf("%w: memory %s already exists", ErrLocalSaveFailed, m.ID)
			}
		}
		return append(records, memories.Clone(m)), nil
	})
	if err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

// Update implements memories.Store.
func (s *Store) Update(ctx context.Context, m memories.Memory) error {
	if err := memories.Validate(m); err != nil {
		return err
	}
	err := s.modify(ctx, func(records []memories.Memory) ([]memories.Memory, error) {
		for i, r := range records {
			if r.ID == m.ID {
				updated := memories.Clone(m)
				updated.CreatedAt = r.CreatedAt
				records[i] = updated
				return records, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", memories.ErrNotFound, m.ID)
	})
	if err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}

// Remove implements memories.Store. The deletion is confirmed once the new
// blob has been written.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := s.prune(ctx, id)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, fmt.Errorf("%w: %s", memories.ErrNotFound, id)
	}
	s.changes.Notify()
	return true, nil
}

// Prune removes id from the blob if present, without notifying subscribers.
// The remote adapter calls it after a confirmed remote delete.
func (s *Store) Prune(ctx context.Context, id string) error {
	_, err := s.prune(ctx, id)
	return err
}

func (s *Store) prune(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.modify(ctx, func(records []memories.Memory) ([]memories.Memory, error) {
		out := records[:0]
		for _, r := range records {
			if r.ID == id {
				removed = true
				continue
			}
			out = append(out, r)
		}
		if !removed {
			return nil, errUnchanged
		}
		return out, nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	return removed, err
}

// Subscribe implements memories.Store. Subscribers hear about writes made
// through this Store only.
func (s *Store) Subscribe(onChange func()) func() {
	return s.changes.Subscribe(onChange)
}

var errUnchanged = errors.New("unchanged")

func (s *Store) modify(ctx context.Context, fn func([]memories.Memory) ([]memories.Memory, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := fn(s.ReadAll(ctx))
	if err != nil {
		return err
	}
	return s.WriteAll(ctx, records)
}

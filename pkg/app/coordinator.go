// Package app holds the Coordinator: the single owner of the in-memory
// journal and of the view state every front end renders.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unowned-ai/wayfarer/pkg/auth"
	"github.com/unowned-ai/wayfarer/pkg/geo"
	"github.com/unowned-ai/wayfarer/pkg/images"
	"github.com/unowned-ai/wayfarer/pkg/memories"
	"go.uber.org/zap"
)

var (
	ErrActionPending    = errors.New("action already in progress")
	ErrNotFound         = errors.New("memory not found")
	ErrWrongView        = errors.New("not available in the current view")
	ErrNotAuthenticated = errors.New("login required")
	ErrUnexpected       = errors.New("unexpected failure")
	ErrClosed           = errors.New("coordinator closed")
)

type View int

const (
	ViewMap View = iota
	ViewDetail
	ViewEdit
	ViewAlbum
)

func (v View) String() string {
	switch v {
	case ViewDetail:
		return "detail"
	case ViewEdit:
		return "edit"
	case ViewAlbum:
		return "album"
	default:
		return "map"
	}
}

// Status tracks whether a record's last write was confirmed.
type Status int

const (
	StatusSynced Status = iota
	StatusPending
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	default:
		return "synced"
	}
}

// Action names the operations that may not run twice concurrently.
type Action string

const (
	ActionLogin   Action = "login"
	ActionSave    Action = "save"
	ActionDelete  Action = "delete"
	ActionRefresh Action = "refresh"
	ActionUpload  Action = "upload"
)

// Uploader turns image bytes into a photo URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (images.Result, error)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer func(ctx context.Context, prompt string) bool

// Deps are the Coordinator's collaborators.
type Deps struct {
	Store    memories.Store
	Auth     auth.Authenticator
	Uploader Uploader
	Geocoder geo.Geocoder
	Logger   *zap.Logger
	// RequireAuth makes writes fail with ErrNotAuthenticated until a login
	// succeeds.
	RequireAuth bool
	Now         func() time.Time
}

// State is a snapshot of the view state.
type State struct {
	View       View
	SelectedID string
	// EditPoint and EditingID describe the open form; EditingID is empty
	// when capturing a new memory.
	EditPoint       geo.Point
	EditingID       string
	PickingLocation bool
	Repositioning   bool
	DragPoint       geo.Point
	Authenticated   bool
}

// Coordinator serializes access to the journal. Its lock is never held
// across store, auth or upload calls.
type Coordinator struct {
	store       memories.Store
	auth        auth.Authenticator
	uploader    Uploader
	geocoder    geo.Geocoder
	logger      *zap.Logger
	now         func() time.Time
	requireAuth bool

	mu            sync.Mutex
	records       []memories.Memory
	status        map[string]Status
	state         State
	busy          map[Action]bool
	refreshQueued bool
	sink          func(Notice)

	ctx     context.Context
	cancel  context.CancelFunc
	unsubs  []func()
	signals sync.WaitGroup
	started bool
	closed  bool
}

func New(deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		store:       deps.Store,
		auth:        deps.Auth,
		uploader:    deps.Uploader,
		geocoder:    deps.Geocoder,
		logger:      logger,
		now:         now,
		requireAuth: deps.RequireAuth,
		records:     []memories.Memory{},
		status:      make(map[string]Status),
		busy:        make(map[Action]bool),
	}
}

// Start subscribes to store and session changes, picks up an existing
// session and loads the journal.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	unsubStore := c.store.Subscribe(c.onStoreChange)
	var unsubAuth func()
	if c.auth != nil {
		unsubAuth = c.auth.OnSessionChange(c.onSessionChange)
	}
	c.mu.Lock()
	c.unsubs = append(c.unsubs, unsubStore)
	if unsubAuth != nil {
		c.unsubs = append(c.unsubs, unsubAuth)
	}
	c.mu.Unlock()

	if c.auth != nil && c.auth.CheckSession(ctx) {
		c.setAuthenticated(true)
	}
	return c.Refresh(ctx)
}

// Close drops subscriptions. Requests already in flight finish but their
// results are discarded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = nil
	cancel := c.cancel
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	c.signals.Wait()
}

func (c *Coordinator) onStoreChange() {
	c.mu.Lock()
	if c.closed || c.ctx == nil {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.signals.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.signals.Done()
		err := c.Refresh(ctx)
		if err != nil && !errors.Is(err, ErrActionPending) && !errors.Is(err, context.Canceled) {
			c.logger.Warn("refresh after change signal failed", zap.Error(err))
		}
	}()
}

func (c *Coordinator) onSessionChange(s auth.State) {
	was := c.setAuthenticated(s == auth.Authenticated)
	if was && s == auth.Anonymous {
		c.notify(Notice{Level: NoticeWarning, Message: "Your session ended. Log in again to make changes."})
	}
}

func (c *Coordinator) setAuthenticated(v bool) (was bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	was = c.state.Authenticated
	c.state.Authenticated = v
	return was
}

// Refresh replaces the journal with the store's current contents. A refresh
// requested while one is running is queued behind it rather than dropped.
func (c *Coordinator) Refresh(ctx context.Context) (err error) {
	defer c.recoverAction("refresh", &err)
	if !c.begin(ActionRefresh) {
		c.mu.Lock()
		c.refreshQueued = true
		c.mu.Unlock()
		return ErrActionPending
	}
	defer c.end(ActionRefresh)

	for {
		list, err := c.store.List(ctx)
		if err != nil {
			c.notify(Notice{Level: NoticeWarning, Message: "Could not load memories.", Err: err})
			return err
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		c.records = list
		c.status = make(map[string]Status, len(list))
		again := c.refreshQueued
		c.refreshQueued = false
		c.fixViewLocked()
		c.mu.Unlock()

		if !again {
			return nil
		}
	}
}

// fixViewLocked leaves views that point at a record that no longer exists.
func (c *Coordinator) fixViewLocked() {
	switch c.state.View {
	case ViewDetail:
		if c.indexLocked(c.state.SelectedID) < 0 {
			c.resetViewLocked(ViewMap)
		}
	case ViewEdit:
		if c.state.EditingID != "" && c.indexLocked(c.state.EditingID) < 0 {
			c.resetViewLocked(ViewMap)
		}
	}
}

// Busy reports whether action is in flight.
func (c *Coordinator) Busy(action Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[action]
}

func (c *Coordinator) begin(action Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[action] {
		return false
	}
	c.busy[action] = true
	return true
}

func (c *Coordinator) end(action Action) {
	c.mu.Lock()
	delete(c.busy, action)
	c.mu.Unlock()
}

// Records returns the journal in store order (newest first).
func (c *Coordinator) Records() []memories.Memory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]memories.Memory, len(c.records))
	for i, m := range c.records {
		out[i] = memories.Clone(m)
	}
	return out
}

// Filter returns the records matching query; see memories.Filter.
func (c *Coordinator) Filter(query string) []memories.Memory {
	return memories.Filter(c.Records(), query)
}

// Album returns the records ordered by trip date.
func (c *Coordinator) Album() []memories.Memory {
	records := c.Records()
	memories.SortByTripDate(records)
	return records
}

func (c *Coordinator) Get(id string) (memories.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return memories.Memory{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return memories.Clone(c.records[i]), nil
}

// StatusOf reports the sync status of id. Records loaded by a refresh are
// always StatusSynced.
func (c *Coordinator) StatusOf(id string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[id]
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) indexLocked(id string) int {
	for i, m := range c.records {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (c *Coordinator) resetViewLocked(v View) {
	authenticated := c.state.Authenticated
	c.state = State{View: v, Authenticated: authenticated}
}

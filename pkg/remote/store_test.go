package remote

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unowned-ai/wayfarer/pkg/memories"
	"github.com/unowned-ai/wayfarer/pkg/metrics"
)

var errOffline = errors.New("dial tcp: connection refused")

// fakeTable keeps rows in memory. Setting err makes every call fail;
// denyWrites mimics row-level security by silently changing nothing.
type fakeTable struct {
	mu         sync.Mutex
	rows       []Row
	err        error
	denyWrites bool
	calls      int
}

func (f *fakeTable) Select(context.Context) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]Row(nil), f.rows...), nil
}

func (f *fakeTable) Insert(_ context.Context, row Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if !f.denyWrites {
		f.rows = append(f.rows, row)
	}
	return nil
}

func (f *fakeTable) Update(_ context.Context, row Row) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.denyWrites {
		return []Row{}, nil
	}
	for i := range f.rows {
		if f.rows[i].ID == row.ID {
			f.rows[i] = row
			return []Row{row}, nil
		}
	}
	return []Row{}, nil
}

func (f *fakeTable) Delete(_ context.Context, id string) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.denyWrites {
		return []Row{}, nil
	}
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return []Row{r}, nil
		}
	}
	return []Row{}, nil
}

type fakeFallback struct {
	records []memories.Memory
	pruned  []string
}

func (f *fakeFallback) ReadAll(context.Context) []memories.Memory {
	return append([]memories.Memory(nil), f.records...)
}

func (f *fakeFallback) Prune(_ context.Context, id string) error {
	f.pruned = append(f.pruned, id)
	return nil
}

func memory(id string, createdAt int64) memories.Memory {
	return memories.Memory{
		ID:           id,
		Lat:          -18.14,
		Lng:          178.44,
		LocationName: "Suva",
		Photos:       []memories.Photo{},
		Date:         createdAt,
		CreatedAt:    createdAt,
	}
}

func ptr(f float64) *float64 { return &f }

func TestList_ReturnsValidRowsNewestFirst(t *testing.T) {
	table := &fakeTable{rows: []Row{
		rowOf(memory("old", 1)),
		{ID: "nolat", Lng: ptr(1), CreatedAt: 5},
		{ID: "", Lat: ptr(1), Lng: ptr(1), CreatedAt: 6},
		{ID: "inf", Lat: ptr(math.Inf(1)), Lng: ptr(1), CreatedAt: 7},
		rowOf(memory("new", 2)),
	}}
	store := New(table, &fakeFallback{})

	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
	assert.NotNil(t, got[0].Photos)
}

func TestList_FallsBackOnRemoteFailure(t *testing.T) {
	c := metrics.NewCollector()
	fallback := &fakeFallback{records: []memories.Memory{memory("a", 1), memory("b", 2)}}
	store := New(&fakeTable{err: errOffline}, fallback, WithMetrics(c))

	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemoteFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemoteOperations.WithLabelValues("list", metrics.StatusError)))
}

func TestList_OpenBreakerFallsBackWithoutCallingRemote(t *testing.T) {
	table := &fakeTable{err: errOffline}
	fallback := &fakeFallback{records: []memories.Memory{memory("local", 1)}}
	settings := DefaultBreakerSettings(nil)
	settings.Timeout = time.Hour
	settings.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 }
	store := New(table, fallback, WithBreaker(settings))

	_, err := store.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, table.calls)

	table.err = nil
	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.calls, "open breaker must not reach the remote")
	require.Len(t, got, 1)
	assert.Equal(t, "local", got[0].ID)

	require.NoError(t, store.Insert(context.Background(), memory("x", 3)))
	assert.Equal(t, 2, table.calls)
}

// writeFailingTable serves reads from fakeTable but fails every insert.
type writeFailingTable struct {
	fakeTable
	insertErr error
}

func (w *writeFailingTable) Insert(context.Context, Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return w.insertErr
}

func TestList_DeniedWritesDoNotTripReads(t *testing.T) {
	table := &writeFailingTable{
		fakeTable: fakeTable{rows: []Row{rowOf(memory("remote-row", 1))}},
		insertErr: errors.New(`(42501) new row violates row-level security policy for table "memories"`),
	}
	fallback := &fakeFallback{records: []memories.Memory{memory("stale-local", 1)}}
	store := New(table, fallback)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		err := store.Insert(ctx, memory("x", 2))
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState), "insert %d", i)
	}
	assert.Equal(t, 6, table.calls)

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "remote-row", got[0].ID)
}

func TestList_OpenWriteBreakerLeavesReadsAlone(t *testing.T) {
	table := &writeFailingTable{
		fakeTable: fakeTable{rows: []Row{rowOf(memory("remote-row", 1))}},
		insertErr: errOffline,
	}
	store := New(table, &fakeFallback{records: []memories.Memory{memory("stale-local", 1)}})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.True(t, errors.Is(store.Insert(ctx, memory("x", 2)), errOffline))
	}
	err := store.Insert(ctx, memory("x", 2))
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 5, table.calls)

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "remote-row", got[0].ID)
}

func TestIsPermissionError(t *testing.T) {
	assert.True(t, IsPermissionError(errors.New(`insert into memories: (42501) new row violates row-level security policy`)))
	assert.True(t, IsPermissionError(errors.New("select from memories: (PGRST301) JWT expired")))
	assert.True(t, IsPermissionError(&WriteError{Op: "update", ID: "a", Err: ErrNotPermitted}))
	assert.False(t, IsPermissionError(errOffline))
	assert.False(t, IsPermissionError(nil))
}

func TestInsert_RejectsInvalidBeforeRemote(t *testing.T) {
	table := &fakeTable{}
	store := New(table, &fakeFallback{})

	bad := memory("a", 1)
	bad.Lat = math.NaN()
	err := store.Insert(context.Background(), bad)
	assert.True(t, errors.Is(err, memories.ErrInvalidRecord))

	err = store.Insert(context.Background(), memory("", 1))
	assert.True(t, errors.Is(err, memories.ErrInvalidRecord))
	assert.Zero(t, table.calls)
}

func TestInsert_FailureIsReportedNotRetried(t *testing.T) {
	table := &fakeTable{err: errOffline}
	store := New(table, &fakeFallback{})

	err := store.Insert(context.Background(), memory("a", 1))
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "insert", werr.Op)
	assert.Equal(t, "a", werr.ID)
	assert.True(t, errors.Is(err, errOffline))
	assert.Equal(t, 1, table.calls)
}

func TestInsertUpdateRemove_NotifySubscribers(t *testing.T) {
	table := &fakeTable{}
	fallback := &fakeFallback{}
	store := New(table, fallback)

	signals := 0
	unsubscribe := store.Subscribe(func() { signals++ })

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, memory("a", 1)))

	edited := memory("a", 1)
	edited.Description = "reef"
	require.NoError(t, store.Update(ctx, edited))
	assert.Equal(t, "reef", table.rows[0].Description)

	ok, err := store.Remove(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, fallback.pruned)
	assert.Equal(t, 3, signals)

	unsubscribe()
	unsubscribe()
	require.NoError(t, store.Insert(ctx, memory("b", 2)))
	assert.Equal(t, 3, signals)
}

func TestUpdate_ZeroRowsIsFailure(t *testing.T) {
	table := &fakeTable{rows: []Row{rowOf(memory("a", 1))}, denyWrites: true}
	store := New(table, &fakeFallback{})

	err := store.Update(context.Background(), memory("a", 1))
	assert.True(t, errors.Is(err, ErrNotPermitted))

	table.denyWrites = false
	err = store.Update(context.Background(), memory("missing", 1))
	assert.True(t, errors.Is(err, ErrNotPermitted))
}

func TestRemove_UnconfirmedKeepsRecord(t *testing.T) {
	table := &fakeTable{rows: []Row{rowOf(memory("a", 1))}, denyWrites: true}
	fallback := &fakeFallback{}
	store := New(table, fallback)

	ok, err := store.Remove(context.Background(), "a")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrNotPermitted))
	assert.Empty(t, fallback.pruned)

	table.denyWrites = false
	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestRemove_RemoteErrorReturnsFalse(t *testing.T) {
	store := New(&fakeTable{err: errOffline}, &fakeFallback{})

	ok, err := store.Remove(context.Background(), "a")
	assert.False(t, ok)
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "delete", werr.Op)
}

func TestWatch_WithoutFeedIsNoop(t *testing.T) {
	store := New(&fakeTable{}, &fakeFallback{})
	store.Watch(context.Background())
	store.Close()
	store.Close()
}

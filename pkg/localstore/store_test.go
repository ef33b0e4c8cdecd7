package localstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unowned-ai/wayfarer/pkg/db"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

func setupStore(t *testing.T, quotaBytes int64) (*Store, *db.KV) {
	t.Helper()
	conn, err := db.Open(":memory:", false, "NORMAL", quotaBytes, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	kv := db.NewKV(conn)
	return New(kv, nil), kv
}

type failingKV struct {
	getErr error
	setErr error
}

func (f failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, f.getErr
}

func (f failingKV) Set(context.Context, string, string) error {
	return f.setErr
}

func sampleMemory(id string, createdAt int64) memories.Memory {
	return memories.Memory{
		ID:           id,
		Lat:          48.8566,
		Lng:          2.3522,
		LocationName: "Paris",
		Description:  "Seine walk",
		Photos:       []memories.Photo{{ID: id + "-p", URL: "https://img/" + id + ".jpg", Caption: "bridge"}},
		Date:         createdAt - 1000,
		CreatedAt:    createdAt,
	}
}

func TestWriteAllReadAll_RoundTrip(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	records := []memories.Memory{sampleMemory("a", 1), sampleMemory("b", 2)}
	records[1].Photos = []memories.Photo{}
	require.NoError(t, store.WriteAll(ctx, records))

	assert.Equal(t, records, store.ReadAll(ctx))
}

func TestReadAll_MissingBlobIsEmpty(t *testing.T) {
	store, _ := setupStore(t, 0)
	got := store.ReadAll(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadAll_CorruptBlobIsEmpty(t *testing.T) {
	store, kv := setupStore(t, 0)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, DefaultKey, "{not json"))

	assert.Empty(t, store.ReadAll(ctx))
}

func TestReadAll_ReadErrorIsEmpty(t *testing.T) {
	store := New(failingKV{getErr: errors.New("disk on fire")}, nil)
	assert.Empty(t, store.ReadAll(context.Background()))
}

func TestReadAll_DropsInvalidRecords(t *testing.T) {
	store, kv := setupStore(t, 0)
	ctx := context.Background()

	// JSON has no NaN; browsers serialize it as null.
	blob := `[
		{"id":"ok","lat":1,"lng":2,"locationName":"Good","photos":[],"date":1,"createdAt":1},
		{"id":"nan","lat":null,"lng":2,"locationName":"NaN lat"},
		{"lat":3,"lng":4,"locationName":"No id"},
		{"id":"nolng","lat":3,"locationName":"Missing lng"},
		{"id":"typo","lat":"north","lng":4},
		{"id":"far","lat":5,"lng":725.5,"locationName":"Out of range is tolerated"}
	]`
	require.NoError(t, kv.Set(ctx, DefaultKey, blob))

	got := store.ReadAll(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].ID)
	assert.Equal(t, "far", got[1].ID)
	assert.Equal(t, 725.5, got[1].Lng)
	assert.NotNil(t, got[1].Photos)
}

func TestWriteAll_StorageFull(t *testing.T) {
	store, _ := setupStore(t, 64*1024)
	ctx := context.Background()

	big := sampleMemory("big", 1)
	big.Photos = []memories.Photo{{ID: "p", URL: "data:image/jpeg;base64," + strings.Repeat("A", 512*1024)}}

	err := store.WriteAll(ctx, []memories.Memory{big})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageFull), "got %v", err)
	assert.False(t, errors.Is(err, ErrLocalSaveFailed))
}

func TestWriteAll_GenericFailure(t *testing.T) {
	store := New(failingKV{setErr: errors.New("read-only filesystem")}, nil)

	err := store.WriteAll(context.Background(), []memories.Memory{sampleMemory("a", 1)})
	assert.True(t, errors.Is(err, ErrLocalSaveFailed), "got %v", err)
	assert.False(t, errors.Is(err, ErrStorageFull))
}

func TestWriteAll_DropsInvalidRecords(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.WriteAll(ctx, []memories.Memory{sampleMemory("a", 1), {Lat: 1, Lng: 1}}))
	got := store.ReadAll(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestStore_InsertListRemove(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	changes := 0
	unsubscribe := store.Subscribe(func() { changes++ })
	defer unsubscribe()

	require.NoError(t, store.Insert(ctx, sampleMemory("old", 100)))
	require.NoError(t, store.Insert(ctx, sampleMemory("new", 200)))
	assert.Equal(t, 2, changes)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "new", listed[0].ID, "newest createdAt first")
	assert.Equal(t, "old", listed[1].ID)

	ok, err := store.Remove(ctx, "old")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, changes)

	listed, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "new", listed[0].ID)

	ok, err = store.Remove(ctx, "old")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, memories.ErrNotFound))
}

func TestStore_InsertRejectsInvalidAndDuplicates(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	err := store.Insert(ctx, memories.Memory{Lat: 1, Lng: 2})
	assert.True(t, errors.Is(err, memories.ErrInvalidRecord))

	require.NoError(t, store.Insert(ctx, sampleMemory("a", 1)))
	err = store.Insert(ctx, sampleMemory("a", 1))
	assert.True(t, errors.Is(err, ErrLocalSaveFailed))
}

func TestStore_UpdatePreservesCreatedAt(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, sampleMemory("a", 1000)))

	edited := sampleMemory("a", 9999)
	edited.LocationName = "Montmartre"
	require.NoError(t, store.Update(ctx, edited))

	got := store.ReadAll(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "Montmartre", got[0].LocationName)
	assert.Equal(t, int64(1000), got[0].CreatedAt)

	err := store.Update(ctx, sampleMemory("ghost", 1))
	assert.True(t, errors.Is(err, memories.ErrNotFound))
}

func TestStore_PruneIsSilent(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, sampleMemory("a", 1)))

	changes := 0
	defer store.Subscribe(func() { changes++ })()

	require.NoError(t, store.Prune(ctx, "a"))
	require.NoError(t, store.Prune(ctx, "missing"))
	assert.Empty(t, store.ReadAll(ctx))
	assert.Zero(t, changes)
}

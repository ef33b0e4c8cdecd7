package remote

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeed_InvalidURL(t *testing.T) {
	_, err := NewFeed("postgres://user@host:notaport/db", nil)
	assert.Error(t, err)
}

func TestFeed_RunStopsWithContext(t *testing.T) {
	// Nothing listens on port 1, so every connect fails fast and Run sits in
	// its backoff until the context ends.
	feed, err := NewFeed("postgres://wayfarer@127.0.0.1:1/wayfarer?connect_timeout=1", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = feed.Run(ctx, func() { t.Error("unexpected notification") })
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestStore_WatchAndClose(t *testing.T) {
	feed, err := NewFeed("postgres://wayfarer@127.0.0.1:1/wayfarer?connect_timeout=1", nil)
	require.NoError(t, err)

	store := New(&fakeTable{}, &fakeFallback{}, WithFeed(feed))
	store.Watch(context.Background())
	store.Watch(context.Background())

	done := make(chan struct{})
	go func() {
		store.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop the feed")
	}
}

func TestSchema_DeclaresTriggerChannel(t *testing.T) {
	assert.True(t, strings.Contains(Schema, "pg_notify('"+DefaultChannel+"'"))
	assert.True(t, strings.Contains(Schema, `"createdAt"`))
}

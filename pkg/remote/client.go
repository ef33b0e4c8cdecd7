package remote

import (
	"sync"

	"github.com/supabase-community/supabase-go"
)

// Client shares one supabase client between the table and the auth
// adapter. Installing a session rewrites headers that in-flight requests
// read, so requests hold the read lock and session changes the write lock.
type Client struct {
	mu sync.RWMutex
	sc *supabase.Client
}

func NewClient(sc *supabase.Client) *Client {
	return &Client{sc: sc}
}

// Do runs a request against the client.
func (c *Client) Do(fn func(*supabase.Client) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(c.sc)
}

// Exclusive runs fn with no request in flight. Anything that changes the
// client's session goes through here.
func (c *Client) Exclusive(fn func(*supabase.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.sc)
}

package remote

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// PostgrestTable talks to a Supabase project's REST endpoint. Requests carry
// whatever session the client holds, so writes made after a successful
// sign-in are authorized as that user.
type PostgrestTable struct {
	client *Client
	name   string
}

// NewPostgrestTable returns a Table for name (DefaultTable when empty).
func NewPostgrestTable(client *Client, name string) *PostgrestTable {
	if name == "" {
		name = DefaultTable
	}
	return &PostgrestTable{client: client, name: name}
}

// postgrest-go has no context support, so cancellation is only honoured
// between requests.

func (t *PostgrestTable) Select(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []Row
	err := t.client.Do(func(sc *supabase.Client) error {
		_, err := sc.From(t.name).
			Select("*", "", false).
			Order("createdAt", &postgrest.OrderOpts{Ascending: false}).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", t.name, err)
	}
	return rows, nil
}

func (t *PostgrestTable) Insert(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := t.client.Do(func(sc *supabase.Client) error {
		_, _, err := sc.From(t.name).
			Insert(row, false, "", "minimal", "").
			Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("insert into %s: %w", t.name, err)
	}
	return nil
}

func (t *PostgrestTable) Update(ctx context.Context, row Row) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []Row
	err := t.client.Do(func(sc *supabase.Client) error {
		_, err := sc.From(t.name).
			Update(row, "representation", "").
			Eq("id", row.ID).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", t.name, err)
	}
	return rows, nil
}

func (t *PostgrestTable) Delete(ctx context.Context, id string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []Row
	err := t.client.Do(func(sc *supabase.Client) error {
		_, err := sc.From(t.name).
			Delete("representation", "").
			Eq("id", id).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete from %s: %w", t.name, err)
	}
	return rows, nil
}

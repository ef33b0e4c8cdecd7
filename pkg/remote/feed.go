package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DefaultChannel is the NOTIFY channel the schema's trigger publishes on.
const DefaultChannel = "memories_changed"

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = time.Minute
)

// Feed listens for change notifications from the remote database over a
// direct Postgres connection.
type Feed struct {
	config  *pgx.ConnConfig
	channel string
	logger  *zap.Logger
}

// NewFeed parses databaseURL and returns a Feed on DefaultChannel.
func NewFeed(databaseURL string, logger *zap.Logger) (*Feed, error) {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{config: config, channel: DefaultChannel, logger: logger}, nil
}

// Run calls onChange once per notification until ctx is done, reconnecting
// with exponential backoff when the connection drops. It returns ctx's error.
func (f *Feed) Run(ctx context.Context, onChange func()) error {
	delay := minReconnectDelay
	for {
		err := f.listen(ctx, onChange, func() { delay = minReconnectDelay })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("change feed disconnected",
			zap.String("channel", f.channel), zap.Duration("retry_in", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (f *Feed) listen(ctx context.Context, onChange func(), connected func()) error {
	conn, err := pgx.ConnectConfig(ctx, f.config.Copy())
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen on %s: %w", f.channel, err)
	}
	connected()
	f.logger.Info("listening for remote changes", zap.String("channel", f.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		f.logger.Debug("remote change", zap.String("channel", n.Channel), zap.String("payload", n.Payload))
		onChange()
	}
}

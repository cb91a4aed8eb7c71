package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

// DefaultChannel matches the channel the store notifies on.
const DefaultChannel = "clerb_changes"

// ErrBadPayload marks a notification that is not a JSON change.
var ErrBadPayload = errors.New("bad change payload")

// PGListener republishes PostgreSQL notifications into a broker so that
// writes made by other instances reach local subscribers.
type PGListener struct {
	url            string
	channel        string
	reconnectDelay time.Duration
	broker         *Broker
	log            logger.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewPGListener creates a listener for the given connection string.
func NewPGListener(url string, broker *Broker, opts ...ListenerOption) *PGListener {
	l := &PGListener{
		url:            url,
		channel:        DefaultChannel,
		reconnectDelay: 2 * time.Second,
		broker:         broker,
		log:            logger.Named("pg_listener"),
		stopChan:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start runs the listen loop in the background until ctx ends or Stop.
func (l *PGListener) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		select {
		case <-ctx.Done():
		case <-l.stopChan:
		}
		cancel()
	}()
	go func() {
		defer l.wg.Done()
		defer cancel()
		l.run(ctx)
	}()
}

// Stop ends the listen loop and waits for it.
func (l *PGListener) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
}

func (l *PGListener) run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		metrics.RecordErrorByComponent("changefeed", "listen")
		l.log.Warn(ctx, "listener disconnected, retrying",
			logger.Error(err), logger.Duration("delay", l.reconnectDelay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.url)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info(ctx, "listening for changes", logger.String("channel", l.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := l.handle(n.Payload); err != nil {
			l.log.Warn(ctx, "dropping notification", logger.Error(err))
		}
	}
}

func (l *PGListener) handle(payload string) error {
	c, err := decodeChange(payload)
	if err != nil {
		return err
	}
	l.broker.Publish(c)
	return nil
}

func decodeChange(payload string) (model.Change, error) {
	var c model.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return model.Change{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if c.ID == "" || c.Table == "" {
		return model.Change{}, fmt.Errorf("%w: missing id or table", ErrBadPayload)
	}
	return c, nil
}

// Package notify fans PostgreSQL change notifications out to in-process
// subscribers.
//
// Database triggers publish '<collection>:<key>' on the playkeeper_changes
// channel. A Notifier keeps one dedicated connection listening on it and
// wakes every subscriber registered for the payload's topic. Wake-ups
// coalesce: a subscriber that has not consumed the previous signal does not
// get a second one, it re-reads its state once either way.
package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sethvargo/go-retry"
)

const Channel = "playkeeper_changes"

const (
	reconnectBase = 200 * time.Millisecond
	reconnectCap  = 10 * time.Second
)

// Topic builds the payload the triggers send for a collection key.
func Topic(collection, key string) string {
	return collection + ":" + key
}

// Conn is the part of *pgx.Conn the listener uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type Dialer func(ctx context.Context) (Conn, error)

// PgxDialer opens a plain pgx connection to dsn. LISTEN needs a connection
// of its own, outside the database/sql pool.
func PgxDialer(dsn string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

type subscriber struct {
	ch chan struct{}
}

type Notifier struct {
	dial   Dialer
	logger logging.Logger
	subs   *xsync.MapOf[string, []*subscriber]
}

func NewNotifier(dial Dialer, logger logging.Logger) *Notifier {
	return &Notifier{
		dial:   dial,
		logger: logger.With("module", "notify"),
		subs:   xsync.NewMapOf[string, []*subscriber](),
	}
}

// Subscribe registers interest in topic. The returned channel receives a
// signal after each change; cancel unregisters it and is safe to call more
// than once.
func (n *Notifier) Subscribe(topic string) (<-chan struct{}, func()) {
	sub := &subscriber{ch: make(chan struct{}, 1)}

	n.subs.Compute(topic, func(old []*subscriber, _ bool) ([]*subscriber, bool) {
		return append(slices.Clone(old), sub), false
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.subs.Compute(topic, func(old []*subscriber, loaded bool) ([]*subscriber, bool) {
				if !loaded {
					return nil, true
				}
				rest := slices.DeleteFunc(slices.Clone(old), func(s *subscriber) bool { return s == sub })
				return rest, len(rest) == 0
			})
		})
	}
	return sub.ch, cancel
}

// Publish wakes the subscribers of topic.
func (n *Notifier) Publish(topic string) {
	subs, ok := n.subs.Load(topic)
	if !ok {
		return
	}
	for _, s := range subs {
		wake(s)
	}
}

// wakeAll is used after a reconnect, when notifications may have been lost.
func (n *Notifier) wakeAll() {
	n.subs.Range(func(_ string, subs []*subscriber) bool {
		for _, s := range subs {
			wake(s)
		}
		return true
	})
}

func wake(s *subscriber) {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Subscribers returns the number of registered subscribers of topic.
func (n *Notifier) Subscribers(topic string) int {
	subs, _ := n.subs.Load(topic)
	return len(subs)
}

func backoff() retry.Backoff {
	b := retry.NewExponential(reconnectBase)
	b = retry.WithCappedDuration(reconnectCap, b)
	return retry.WithJitterPercent(20, b)
}

// Run listens until ctx is cancelled, reconnecting with backoff whenever the
// connection fails.
func (n *Notifier) Run(ctx context.Context) error {
	b := backoff()
	for {
		connected, err := n.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			b = backoff()
		}

		delay, _ := b.Next()
		n.logger.Warn(ctx, "listener connection lost", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (n *Notifier) listen(ctx context.Context) (bool, error) {
	conn, err := n.dial(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = conn.Close(cctx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return false, fmt.Errorf("failed to listen: %w", err)
	}
	n.logger.Info(ctx, "listening for changes", "channel", Channel)

	// Anything that changed while we were disconnected went unnoticed.
	n.wakeAll()

	for {
		msg, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		if msg.Channel != Channel {
			continue
		}
		n.logger.Debug(ctx, "change", "topic", msg.Payload)
		n.Publish(msg.Payload)
	}
}

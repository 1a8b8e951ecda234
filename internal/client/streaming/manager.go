// Package streaming mirrors the social collections (friends, invites, group
// memberships and groups) from long-lived remote subscriptions into the
// local store, and flushes friend and group invites created offline.
//
// Every snapshot is the full current content of its collection. Applying it
// upserts each item and prunes the rows previously written by the same
// subscription, so rows created offline are never touched.
package streaming

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
)

const DefaultFlushInterval = 30 * time.Second

// rootSubscriptions are started for every session. Group subscriptions are
// added and removed as the memberships snapshot changes.
var rootSubscriptions = []Subscription{
	{Collection: models.SourceFriends},
	{Collection: models.SourceInvitesIncoming},
	{Collection: models.SourceInvitesOutgoing},
	{Collection: models.SourceMemberships},
}

// Manager owns the subscriptions of one signed-in identity.
type Manager struct {
	remote        Remote
	store         Store
	logger        logging.Logger
	metrics       *Metrics
	flushInterval time.Duration

	// startMu orders Start and Stop so a restart cannot leave two sessions.
	startMu sync.Mutex
	mu      sync.Mutex
	cur     *session
	errs    chan error

	flushMu sync.Mutex
}

type session struct {
	identity string
	ctx      context.Context
	cancel   context.CancelFunc
	g        errgroup.Group

	// applyMu serialises snapshot writes of one session, so a group child
	// cancelled by a memberships snapshot cannot write its group back.
	applyMu sync.Mutex

	mu     sync.Mutex
	groups map[string]context.CancelFunc
}

func NewManager(remote Remote, store Store, logger logging.Logger) *Manager {
	return &Manager{
		remote:        remote,
		store:         store,
		logger:        logger.With("module", "streaming"),
		flushInterval: DefaultFlushInterval,
		errs:          make(chan error, 16),
	}
}

func (m *Manager) WithMetrics(metrics *Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithFlushInterval sets how often the offline queue is flushed while a
// session runs. A non-positive interval flushes only on Start.
func (m *Manager) WithFlushInterval(d time.Duration) *Manager {
	m.flushInterval = d
	return m
}

// Errors reports subscription failures. A failed subscription stays closed
// until the next Start. Errors are dropped when nobody reads them.
func (m *Manager) Errors() <-chan error {
	return m.errs
}

// Running returns the identity of the active session, or "".
func (m *Manager) Running() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.identity
}

// Start opens every subscription for identity and flushes the offline
// queue. A running session is stopped first, so calling Start again is the
// way to restart failed subscriptions.
func (m *Manager) Start(ctx context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("%w: empty identity", common.ErrInvalidArgument)
	}

	m.startMu.Lock()
	defer m.startMu.Unlock()

	m.stop()

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		identity: identity,
		ctx:      sctx,
		cancel:   cancel,
		groups:   map[string]context.CancelFunc{},
	}

	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()

	for _, sub := range rootSubscriptions {
		m.spawn(sctx, s, sub)
	}
	s.g.Go(func() error {
		m.flushLoop(sctx, identity)
		return nil
	})

	m.logger.Info(ctx, "streaming started", "identity", identity)
	return nil
}

// Stop cancels every subscription of the running session and waits for
// them to return.
func (m *Manager) Stop() {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	m.stop()
}

func (m *Manager) stop() {
	m.mu.Lock()
	s := m.cur
	m.cur = nil
	m.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	_ = s.g.Wait()
	m.logger.Info(context.Background(), "streaming stopped", "identity", s.identity)
}

func (m *Manager) spawn(ctx context.Context, s *session, sub Subscription) {
	s.g.Go(func() error {
		err := m.run(ctx, s, sub)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		m.metrics.failure(sub.Collection)
		m.logger.Error(ctx, "subscription failed", "source", sub.Source(), "error", err)
		select {
		case m.errs <- err:
		default:
		}
		return err
	})
}

func (m *Manager) run(ctx context.Context, s *session, sub Subscription) error {
	snaps, errs := m.remote.Subscribe(ctx, sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				if err := <-errs; err != nil {
					return fmt.Errorf("subscription %s: %w", sub.Source(), err)
				}
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: subscription %s closed", common.ErrTransientNetwork, sub.Source())
			}
			if err := m.apply(ctx, s, sub, snap); err != nil {
				return fmt.Errorf("%w: failed to apply %s snapshot: %w", common.ErrLocalStore, sub.Source(), err)
			}
			m.metrics.snapshot(sub.Collection)
		}
	}
}

func (m *Manager) apply(ctx context.Context, s *session, sub Subscription, snap Snapshot) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if ctx.Err() != nil {
		return nil
	}

	switch sub.Collection {
	case models.SourceFriends:
		return m.store.ApplyFriendSnapshot(ctx, sub.Source(), snap.Friends)
	case models.SourceInvitesIncoming, models.SourceInvitesOutgoing:
		return m.store.ApplyInviteSnapshot(ctx, sub.Source(), snap.Invites)
	case models.SourceMemberships:
		m.reconcileGroups(s, snap.Groups)
		removed, err := m.store.ApplyMembershipSnapshot(ctx, sub.Source(), snap.Groups)
		if err != nil {
			return err
		}
		for _, id := range removed {
			m.logger.Info(ctx, "left group", "group_id", id)
		}
		return nil
	case CollectionGroup:
		if snap.Group == nil {
			return m.store.RemoveGroup(ctx, sub.GroupID)
		}
		return m.store.ApplyGroupSnapshot(ctx, sub.Source(), *snap.Group, snap.Members)
	default:
		return fmt.Errorf("%w: unknown collection %q", common.ErrInvalidArgument, sub.Collection)
	}
}

// reconcileGroups starts a child subscription for every group new in
// groups and cancels the children of groups no longer listed.
func (m *Manager) reconcileGroups(s *session, groups []models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		want[g.GroupID] = struct{}{}
	}

	for id, cancel := range s.groups {
		if _, ok := want[id]; !ok {
			cancel()
			delete(s.groups, id)
		}
	}
	for id := range want {
		if _, ok := s.groups[id]; ok {
			continue
		}
		gctx, cancel := context.WithCancel(s.ctx)
		s.groups[id] = cancel
		m.spawn(gctx, s, Subscription{Collection: CollectionGroup, GroupID: id})
	}
}

func (m *Manager) flushLoop(ctx context.Context, identity string) {
	var tick <-chan time.Time
	if m.flushInterval > 0 {
		t := time.NewTicker(m.flushInterval)
		defer t.Stop()
		tick = t.C
	}
	for {
		if _, err := m.Flush(ctx, identity); err != nil && ctx.Err() == nil {
			m.logger.Warn(ctx, "flush failed", "error", err)
		}
		if tick == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}
	}
}

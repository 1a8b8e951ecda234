package streaming

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/social"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *social.SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return social.NewSQLiteRepository(db)
}

type fakeStream struct {
	ctx   context.Context
	snaps chan Snapshot
	errs  chan error
}

// fail ends the stream with err, the way a transport drop does.
func (s *fakeStream) fail(err error) {
	s.errs <- err
	close(s.errs)
	close(s.snaps)
}

type fakeRemote struct {
	mu      sync.Mutex
	streams map[string][]*fakeStream

	outgoing map[string]models.FriendRelation
	sendErr  map[string]error
	sent     []string

	invites   map[string]models.GroupInvite
	inviteErr map[string]error
	invited   []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		streams:   map[string][]*fakeStream{},
		outgoing:  map[string]models.FriendRelation{},
		sendErr:   map[string]error{},
		invites:   map[string]models.GroupInvite{},
		inviteErr: map[string]error{},
	}
}

func (f *fakeRemote) Subscribe(ctx context.Context, sub Subscription) (<-chan Snapshot, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeStream{ctx: ctx, snaps: make(chan Snapshot), errs: make(chan error, 1)}
	f.streams[sub.Source()] = append(f.streams[sub.Source()], s)
	return s.snaps, s.errs
}

func (f *fakeRemote) subscriptions(source string) []*fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeStream(nil), f.streams[source]...)
}

// latest waits for the newest subscription of source.
func (f *fakeRemote) latest(t *testing.T, source string) *fakeStream {
	t.Helper()
	var s *fakeStream
	require.Eventually(t, func() bool {
		subs := f.subscriptions(source)
		if len(subs) == 0 {
			return false
		}
		s = subs[len(subs)-1]
		return true
	}, time.Second, 5*time.Millisecond, "no subscription for %s", source)
	return s
}

func (f *fakeRemote) send(t *testing.T, source string, snap Snapshot) {
	t.Helper()
	s := f.latest(t, source)
	select {
	case s.snaps <- snap:
	case <-time.After(time.Second):
		t.Fatalf("snapshot for %s not consumed", source)
	}
}

func (f *fakeRemote) SendFriendInvite(_ context.Context, code string, createdAt time.Time) (models.FriendRelation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[code]; err != nil {
		return models.FriendRelation{}, err
	}
	f.sent = append(f.sent, code)
	rel := models.FriendRelation{RemoteUserID: "user-" + code, Code: code, Status: models.FriendPendingOutgoing,
		CreatedAt: createdAt}
	f.outgoing[code] = rel
	return rel, nil
}

func (f *fakeRemote) FindOutgoingInvite(_ context.Context, code string) (*models.FriendRelation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[code]; err != nil {
		return nil, err
	}
	rel, ok := f.outgoing[code]
	if !ok {
		return nil, nil
	}
	return &rel, nil
}

func (f *fakeRemote) InviteToGroup(_ context.Context, groupID, toID string, createdAt time.Time) (models.GroupInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := models.InviteID(groupID, toID)
	if err := f.inviteErr[id]; err != nil {
		return models.GroupInvite{}, err
	}
	f.invited = append(f.invited, id)
	inv := models.GroupInvite{InviteID: id, GroupID: groupID, ToID: toID, Status: models.InvitePending, CreatedAt: createdAt}
	f.invites[id] = inv
	return inv, nil
}

func (f *fakeRemote) GetGroupInvite(_ context.Context, inviteID string) (*models.GroupInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.inviteErr[inviteID]; err != nil {
		return nil, err
	}
	inv, ok := f.invites[inviteID]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

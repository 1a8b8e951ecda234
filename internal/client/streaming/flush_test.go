package streaming

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejected(err error) error {
	return errors.Join(common.ErrRemoteRejected, err)
}

func TestFlush_FriendInvites(t *testing.T) {
	store := setupStore(t)
	remote := newFakeRemote()
	metrics := NewMetrics(prometheus.NewRegistry())
	m := NewManager(remote, store, logging.Nop()).WithMetrics(metrics)
	ctx := context.Background()

	for i, code := range []string{"OK", "GONE", "FLAKY", "KNOWN"} {
		require.NoError(t, store.InsertFriend(ctx, models.FriendRelation{LocalID: "l-" + code, Code: code,
			Status: models.FriendPendingOutgoingLocal, CreatedAt: time.Unix(int64(i+1), 0)}))
	}
	remote.sendErr["GONE"] = rejected(common.ErrorNotFound)
	remote.sendErr["FLAKY"] = common.ErrTransientNetwork
	remote.outgoing["KNOWN"] = models.FriendRelation{RemoteUserID: "u-known", Code: "KNOWN",
		Status: models.FriendAccepted}

	res, err := m.Flush(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Sent: 2, Dropped: 1, Kept: 1}, res)
	assert.Equal(t, []string{"OK"}, remote.sent, "an invite the server already has is not sent again")

	list, err := store.ListFriends(ctx)
	require.NoError(t, err)
	byCode := map[string]models.FriendRelation{}
	for _, f := range list {
		byCode[f.Code] = f
	}
	require.Len(t, byCode, 3)
	assert.NotContains(t, byCode, "GONE")
	assert.Equal(t, "user-OK", byCode["OK"].RemoteUserID)
	assert.Equal(t, models.FriendPendingOutgoing, byCode["OK"].Status)
	assert.Equal(t, models.SourceFriends, byCode["OK"].Source)
	assert.Equal(t, "u-known", byCode["KNOWN"].RemoteUserID)
	assert.Equal(t, models.FriendAccepted, byCode["KNOWN"].Status)
	assert.Equal(t, models.FriendPendingOutgoingLocal, byCode["FLAKY"].Status)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Flushed.WithLabelValues("friend", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Flushed.WithLabelValues("friend", "dropped")))

	delete(remote.sendErr, "FLAKY")
	res, err = m.Flush(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Sent: 1}, res)

	pending, err := store.PendingLocalFriends(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFlush_GroupInvites(t *testing.T) {
	store := setupStore(t)
	remote := newFakeRemote()
	m := NewManager(remote, store, logging.Nop())
	ctx := context.Background()

	for _, to := range []string{"u2", "u3", "u4", "u5"} {
		require.NoError(t, store.InsertLocalInvite(ctx, models.GroupInvite{InviteID: models.InviteID("g1", to),
			GroupID: "g1", FromID: "u1", ToID: to, Status: models.InvitePending}))
	}
	remote.inviteErr[models.InviteID("g1", "u3")] = rejected(common.ErrNotMember)
	remote.inviteErr[models.InviteID("g1", "u4")] = common.ErrTransientNetwork
	remote.invites[models.InviteID("g1", "u5")] = models.GroupInvite{InviteID: models.InviteID("g1", "u5")}

	res, err := m.Flush(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Sent: 2, Dropped: 1, Kept: 1}, res)
	assert.Equal(t, []string{"g1_u2"}, remote.invited)

	pending, err := store.PendingLocalInvites(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "g1_u4", pending[0].InviteID)

	all, err := store.ListInvites(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type brokenStore struct {
	Store
}

func (brokenStore) AdoptLocalFriends(context.Context, string) error {
	return nil
}

func (brokenStore) PendingLocalFriends(context.Context, string) ([]models.FriendRelation, error) {
	return nil, errors.New("database is locked")
}

func TestFlush_LocalStoreFailure(t *testing.T) {
	m := NewManager(newFakeRemote(), brokenStore{}, logging.Nop())
	_, err := m.Flush(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrLocalStore)
}

func TestFlush_RequiresIdentity(t *testing.T) {
	m := NewManager(newFakeRemote(), brokenStore{}, logging.Nop())
	_, err := m.Flush(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestFlush_RefusedSessionKeepsQueue(t *testing.T) {
	for _, cause := range []error{common.ErrTokenExpired, common.ErrInvalidToken, common.ErrorUnauthorized} {
		t.Run(cause.Error(), func(t *testing.T) {
			store := setupStore(t)
			remote := newFakeRemote()
			m := NewManager(remote, store, logging.Nop())
			ctx := context.Background()

			require.NoError(t, store.InsertFriend(ctx, models.FriendRelation{LocalID: "l1", Code: "C1",
				Status: models.FriendPendingOutgoingLocal, QueuedBy: "u1"}))
			inv := models.GroupInvite{InviteID: models.InviteID("g1", "u2"), GroupID: "g1", FromID: "u1", ToID: "u2",
				Status: models.InvitePending}
			require.NoError(t, store.InsertLocalInvite(ctx, inv))
			remote.sendErr["C1"] = rejected(cause)
			remote.inviteErr[inv.InviteID] = rejected(cause)

			res, err := m.Flush(ctx, "u1")
			require.ErrorIs(t, err, cause)
			assert.Equal(t, FlushResult{}, res)

			friends, err := store.PendingLocalFriends(ctx, "u1")
			require.NoError(t, err)
			assert.Len(t, friends, 1)
			invites, err := store.PendingLocalInvites(ctx, "u1")
			require.NoError(t, err)
			assert.Len(t, invites, 1)

			// the group queue is flushed once the friend queue gets through
			delete(remote.sendErr, "C1")
			_, err = m.Flush(ctx, "u1")
			require.ErrorIs(t, err, cause)
			invites, err = store.PendingLocalInvites(ctx, "u1")
			require.NoError(t, err)
			assert.Len(t, invites, 1)
			assert.Empty(t, remote.invited)
		})
	}
}

func TestFlush_OnlySendsQueueOfIdentity(t *testing.T) {
	store := setupStore(t)
	remote := newFakeRemote()
	m := NewManager(remote, store, logging.Nop())
	ctx := context.Background()

	require.NoError(t, store.InsertFriend(ctx, models.FriendRelation{LocalID: "la", Code: "ABC123",
		Status: models.FriendPendingOutgoingLocal, QueuedBy: "userA"}))
	require.NoError(t, store.InsertFriend(ctx, models.FriendRelation{LocalID: "ln", Code: "NOBODY",
		Status: models.FriendPendingOutgoingLocal}))
	require.NoError(t, store.InsertLocalInvite(ctx, models.GroupInvite{InviteID: models.InviteID("groupOfA", "friendOfA"),
		GroupID: "groupOfA", FromID: "userA", ToID: "friendOfA", Status: models.InvitePending}))

	res, err := m.Flush(ctx, "userB")
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Sent: 1}, res)
	assert.Equal(t, []string{"NOBODY"}, remote.sent, "invites queued signed out go with the next identity")
	assert.Empty(t, remote.invited)

	res, err = m.Flush(ctx, "userA")
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Sent: 2}, res)
	assert.Equal(t, []string{"NOBODY", "ABC123"}, remote.sent)
	assert.Equal(t, []string{"groupOfA_friendOfA"}, remote.invited)
}

func TestFlush_CancelledContext(t *testing.T) {
	store := setupStore(t)
	remote := newFakeRemote()
	m := NewManager(remote, store, logging.Nop())

	require.NoError(t, store.InsertFriend(context.Background(), models.FriendRelation{LocalID: "l1", Code: "C1",
		Status: models.FriendPendingOutgoingLocal}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Flush(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, remote.sent)
}

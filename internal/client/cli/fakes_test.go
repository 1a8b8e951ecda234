package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/streaming"
	"github.com/dmitrijs2005/playkeeper/internal/common"
)

// fakeRemote accepts everything and remembers what it was sent.
type fakeRemote struct {
	mu sync.Mutex

	token   string
	records map[string]models.Record

	friendInvites []string
	groupInvites  []string

	calls []string

	groupsFailures int
	groupCalls     int

	subscribed chan streaming.Subscription
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records:    map[string]models.Record{},
		subscribed: make(chan streaming.Subscription, 16),
	}
}

func (f *fakeRemote) Register(_ context.Context, username, _ string) (string, string, error) {
	return "id-" + username, "ABCD2345", nil
}

func (f *fakeRemote) Login(_ context.Context, username, password string) (string, error) {
	if password != "pw" {
		return "", fmt.Errorf("%w: bad credentials", common.ErrorUnauthorized)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = "token-" + username
	return "id-" + username, nil
}

func (f *fakeRemote) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeRemote) SetAccessToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeRemote) Ping(context.Context) error { return nil }

func (f *fakeRemote) AllocateCode(context.Context) (string, error) { return "WXYZ6789", nil }

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) Upsert(_ context.Context, _ models.Domain, rec models.Record) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	return rec.UpdatedAt, nil
}

func (f *fakeRemote) SoftDelete(_ context.Context, _ models.Domain, id string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.records[id]
	rec.IsDeleted = true
	f.records[id] = rec
	return time.Now().UTC(), nil
}

func (f *fakeRemote) FetchChangedSince(context.Context, models.Domain, models.Partition, models.Keyset, int) ([]models.Record, error) {
	return nil, nil
}

func (f *fakeRemote) GroupIDsFor(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCalls++
	if f.groupsFailures > 0 {
		f.groupsFailures--
		return nil, fmt.Errorf("%w: connection reset", common.ErrTransientNetwork)
	}
	return nil, nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, sub streaming.Subscription) (<-chan streaming.Snapshot, <-chan error) {
	f.subscribed <- sub
	snaps, errs := make(chan streaming.Snapshot), make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(snaps)
		<-ctx.Done()
	}()
	return snaps, errs
}

func (f *fakeRemote) SendFriendInvite(_ context.Context, code string, createdAt time.Time) (models.FriendRelation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friendInvites = append(f.friendInvites, code)
	return models.FriendRelation{RemoteUserID: "id-" + code, Code: code, Status: models.FriendPendingOutgoing, CreatedAt: createdAt}, nil
}

func (f *fakeRemote) FindOutgoingInvite(context.Context, string) (*models.FriendRelation, error) {
	return nil, nil
}

func (f *fakeRemote) InviteToGroup(_ context.Context, groupID, toID string, createdAt time.Time) (models.GroupInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := models.InviteID(groupID, toID)
	f.groupInvites = append(f.groupInvites, id)
	return models.GroupInvite{InviteID: id, GroupID: groupID, ToID: toID, Status: models.InvitePending, CreatedAt: createdAt}, nil
}

func (f *fakeRemote) GetGroupInvite(context.Context, string) (*models.GroupInvite, error) {
	return nil, nil
}

func (f *fakeRemote) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeRemote) AcceptFriend(_ context.Context, id string) error { return f.record("accept-friend " + id) }
func (f *fakeRemote) RejectFriend(_ context.Context, id string) error { return f.record("reject-friend " + id) }
func (f *fakeRemote) RemoveFriend(_ context.Context, id string) error { return f.record("remove-friend " + id) }

func (f *fakeRemote) CreateGroup(_ context.Context, name string) (models.Group, error) {
	_ = f.record("create-group " + name)
	return models.Group{GroupID: "g-" + name, Name: name}, nil
}

func (f *fakeRemote) AcceptGroupInvite(_ context.Context, id string) error {
	if id == "gone" {
		return fmt.Errorf("%w: no such invite", common.ErrRemoteRejected)
	}
	return f.record("accept-invite " + id)
}

func (f *fakeRemote) CancelGroupInvite(_ context.Context, id string) error {
	return f.record("cancel-invite " + id)
}

func (f *fakeRemote) LeaveGroup(_ context.Context, id string) error { return f.record("leave-group " + id) }

func (f *fakeRemote) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

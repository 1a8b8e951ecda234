package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/dmitrijs2005/playkeeper/internal/server/auth"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/notify"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/server/services"
	"github.com/dmitrijs2005/playkeeper/internal/wire"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "secret"

type fakeUsers struct{}

func (fakeUsers) Register(_ context.Context, username, password string) (*models.User, string, error) {
	if username == "" || password == "" {
		return nil, "", common.ErrInvalidArgument
	}
	return &models.User{ID: "id-" + username, UserName: username}, "ABCD2345", nil
}

func (fakeUsers) Login(_ context.Context, username, password string) (string, string, error) {
	if password != "pw" {
		return "", "", common.ErrorUnauthorized
	}
	token, err := auth.GenerateToken("id-"+username, []byte(testSecret), time.Minute)
	return "id-" + username, token, err
}

func (fakeUsers) AllocateCode(_ context.Context, userID string) (string, error) {
	return "CODE-" + userID, nil
}

type fakeRecords struct {
	mu      sync.Mutex
	upserts []*models.Record
	feeds   []records.Feed
	err     error
}

func (f *fakeRecords) Upsert(_ context.Context, _ string, rec *models.Record) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, f.err
	}
	f.upserts = append(f.upserts, rec)
	return rec.ClientUpdatedAt.Add(time.Second), nil
}

func (f *fakeRecords) Delete(context.Context, string, string, string) (time.Time, error) {
	return time.Time{}, f.err
}

func (f *fakeRecords) ChangedSince(_ context.Context, userID string, feed records.Feed) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds = append(f.feeds, feed)
	return []models.Record{{ID: "r1", OwnerID: userID, Scope: feed.Scope, UpdatedAt: feed.After.Add(time.Second)}}, f.err
}

// fakeSocial answers snapshots from a mutable friend list.
type fakeSocial struct {
	mu      sync.Mutex
	friends []models.FriendRelation
	invite  *models.GroupInvite
	err     error
}

func (f *fakeSocial) addFriend(rel models.FriendRelation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friends = append(f.friends, rel)
}

func (f *fakeSocial) SendFriendInvite(_ context.Context, userID, code string, createdAt time.Time) (*models.FriendRelation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.FriendRelation{UserID: userID, FriendID: "id-" + code, Code: code,
		Status: models.FriendPendingOutgoing, CreatedAt: createdAt}, nil
}

func (f *fakeSocial) AcceptFriend(context.Context, string, string) error { return f.err }
func (f *fakeSocial) RejectFriend(context.Context, string, string) error { return f.err }
func (f *fakeSocial) RemoveFriend(context.Context, string, string) error { return f.err }

func (f *fakeSocial) FindOutgoingInvite(context.Context, string, string) (*models.FriendRelation, error) {
	return nil, f.err
}

func (f *fakeSocial) CreateGroup(_ context.Context, userID, name string) (*models.Group, error) {
	return &models.Group{ID: "g1", Name: name, OwnerID: userID}, f.err
}

func (f *fakeSocial) ListGroups(context.Context, string) ([]models.Group, error) {
	return []models.Group{{ID: "g1", Name: "Friday"}}, f.err
}

func (f *fakeSocial) InviteToGroup(_ context.Context, userID, groupID, toID string, createdAt time.Time) (*models.GroupInvite, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.GroupInvite{ID: models.InviteID(groupID, toID), GroupID: groupID, FromID: userID, ToID: toID,
		Status: models.InvitePending, CreatedAt: createdAt}, nil
}

func (f *fakeSocial) GetGroupInvite(context.Context, string, string) (*models.GroupInvite, error) {
	return f.invite, f.err
}

func (f *fakeSocial) AcceptGroupInvite(context.Context, string, string) error { return f.err }
func (f *fakeSocial) CancelGroupInvite(context.Context, string, string) error { return f.err }
func (f *fakeSocial) LeaveGroup(context.Context, string, string) error       { return f.err }

func (f *fakeSocial) Snapshot(_ context.Context, userID, collection, groupID string) (*services.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := &services.Snapshot{Collection: collection, GroupID: groupID}
	if collection == models.CollectionFriends {
		snap.Friends = append(snap.Friends, f.friends...)
	}
	if collection == models.CollectionGroup {
		snap.Group = &models.Group{ID: groupID, OwnerID: userID}
		snap.Members = []models.GroupMember{{GroupID: groupID, UserID: userID, Role: models.RoleOwner}}
	}
	return snap, nil
}

type testEnv struct {
	client   *wire.Client
	records  *fakeRecords
	social   *fakeSocial
	notifier *notify.Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		records:  &fakeRecords{},
		social:   &fakeSocial{},
		notifier: notify.NewNotifier(nil, logging.Nop()),
	}
	s := NewGRPCServer("bufnet", logging.Nop(), fakeUsers{}, env.records, env.social, env.notifier, testSecret)

	lis := bufconn.Listen(1 << 20)
	srv := s.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env.client = wire.NewClient(conn)
	return env
}

// as returns a context carrying a valid token for userID.
func as(t *testing.T, userID string) context.Context {
	t.Helper()
	token, err := auth.GenerateToken(userID, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/streaming"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// GRPCClient is safe for concurrent use.
type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *wire.Client

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) tokenContext(ctx context.Context) context.Context {
	token := c.AccessToken()
	if token == "" {
		return ctx
	}
	return withAccessToken(ctx, token)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(c.tokenContext(ctx), method, req, reply, cc, opts...)
}

func (c *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(c.tokenContext(ctx), desc, cc, method, opts...)
}

// NewGRPCClient creates a client for endpointURL. The connection is
// established lazily. Extra dial options are appended to the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamAccessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", endpointURL, err)
	}
	c.conn = conn
	c.client = wire.NewClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken restores a token saved by an earlier Login.
func (c *GRPCClient) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Auth.

// Register creates an account. friendCode is empty when the server could
// not allocate one; AllocateCode retries.
func (c *GRPCClient) Register(ctx context.Context, username, password string) (userID, friendCode string, err error) {
	resp, err := c.client.Register(ctx, &wire.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return "", "", mapError(err)
	}
	return resp.UserID, resp.FriendCode, nil
}

// Login authenticates and keeps the access token for later calls.
func (c *GRPCClient) Login(ctx context.Context, username, password string) (userID string, err error) {
	resp, err := c.client.Login(ctx, &wire.LoginRequest{Username: username, Password: password})
	if err != nil {
		return "", mapError(err)
	}
	c.SetAccessToken(resp.AccessToken)
	return resp.UserID, nil
}

func (c *GRPCClient) AllocateCode(ctx context.Context) (string, error) {
	resp, err := c.client.AllocateCode(ctx, &wire.Empty{})
	if err != nil {
		return "", mapError(err)
	}
	return resp.Code, nil
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(ctx, &wire.Empty{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return fmt.Errorf("%w: server status %q", common.ErrTransientNetwork, resp.Status)
	}
	return nil
}

// Records.

func (c *GRPCClient) Upsert(ctx context.Context, domain models.Domain, rec models.Record) (time.Time, error) {
	resp, err := c.client.UpsertRecord(ctx, &wire.UpsertRecordRequest{Domain: string(domain), Record: recordToWire(rec)})
	if err != nil {
		return time.Time{}, mapError(err)
	}
	return utc(resp.UpdatedAt), nil
}

func (c *GRPCClient) SoftDelete(ctx context.Context, domain models.Domain, id string) (time.Time, error) {
	resp, err := c.client.DeleteRecord(ctx, &wire.DeleteRecordRequest{Domain: string(domain), ID: id})
	if err != nil {
		return time.Time{}, mapError(err)
	}
	return utc(resp.UpdatedAt), nil
}

func (c *GRPCClient) FetchChangedSince(ctx context.Context, domain models.Domain, partition models.Partition,
	from models.Keyset, limit int) ([]models.Record, error) {
	resp, err := c.client.ChangedSince(ctx, &wire.ChangedSinceRequest{
		Domain:   string(domain),
		Scope:    string(partition.Scope),
		AnchorID: partition.ID,
		After:    from.After,
		AfterID:  from.AfterID,
		Limit:    limit,
	})
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]models.Record, 0, len(resp.Records))
	for _, r := range resp.Records {
		out = append(out, recordFromWire(r))
	}
	return out, nil
}

// GroupIDsFor lists the groups of the signed-in identity. The server derives
// the identity from the access token.
func (c *GRPCClient) GroupIDsFor(ctx context.Context, identity string) ([]string, error) {
	groups, err := c.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.GroupID)
	}
	return ids, nil
}

// Friends.

func (c *GRPCClient) SendFriendInvite(ctx context.Context, code string, createdAt time.Time) (models.FriendRelation, error) {
	resp, err := c.client.SendFriendInvite(ctx, &wire.SendFriendInviteRequest{Code: code, ClientCreatedAt: createdAt})
	if err != nil {
		return models.FriendRelation{}, mapError(err)
	}
	return friendFromWire(resp.Relation), nil
}

func (c *GRPCClient) FindOutgoingInvite(ctx context.Context, code string) (*models.FriendRelation, error) {
	resp, err := c.client.FindOutgoingInvite(ctx, &wire.FindOutgoingInviteRequest{Code: code})
	if err != nil {
		return nil, mapError(err)
	}
	if !resp.Found {
		return nil, nil
	}
	rel := friendFromWire(resp.Relation)
	return &rel, nil
}

func (c *GRPCClient) AcceptFriend(ctx context.Context, userID string) error {
	_, err := c.client.AcceptFriend(ctx, &wire.FriendRequest{UserID: userID})
	return mapError(err)
}

func (c *GRPCClient) RejectFriend(ctx context.Context, userID string) error {
	_, err := c.client.RejectFriend(ctx, &wire.FriendRequest{UserID: userID})
	return mapError(err)
}

func (c *GRPCClient) RemoveFriend(ctx context.Context, userID string) error {
	_, err := c.client.RemoveFriend(ctx, &wire.FriendRequest{UserID: userID})
	return mapError(err)
}

// Groups.

func (c *GRPCClient) CreateGroup(ctx context.Context, name string) (models.Group, error) {
	resp, err := c.client.CreateGroup(ctx, &wire.CreateGroupRequest{Name: name})
	if err != nil {
		return models.Group{}, mapError(err)
	}
	return groupFromWire(resp.Group), nil
}

func (c *GRPCClient) ListGroups(ctx context.Context) ([]models.Group, error) {
	resp, err := c.client.ListGroups(ctx, &wire.Empty{})
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]models.Group, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		out = append(out, groupFromWire(g))
	}
	return out, nil
}

func (c *GRPCClient) InviteToGroup(ctx context.Context, groupID, toID string, createdAt time.Time) (models.GroupInvite, error) {
	resp, err := c.client.InviteToGroup(ctx, &wire.InviteToGroupRequest{GroupID: groupID, ToID: toID, ClientCreatedAt: createdAt})
	if err != nil {
		return models.GroupInvite{}, mapError(err)
	}
	return inviteFromWire(resp.Invite), nil
}

func (c *GRPCClient) GetGroupInvite(ctx context.Context, inviteID string) (*models.GroupInvite, error) {
	resp, err := c.client.GetGroupInvite(ctx, &wire.GroupInviteRequest{InviteID: inviteID})
	if err != nil {
		return nil, mapError(err)
	}
	if !resp.Found {
		return nil, nil
	}
	inv := inviteFromWire(resp.Invite)
	return &inv, nil
}

func (c *GRPCClient) AcceptGroupInvite(ctx context.Context, inviteID string) error {
	_, err := c.client.AcceptGroupInvite(ctx, &wire.GroupInviteRequest{InviteID: inviteID})
	return mapError(err)
}

func (c *GRPCClient) CancelGroupInvite(ctx context.Context, inviteID string) error {
	_, err := c.client.CancelGroupInvite(ctx, &wire.GroupInviteRequest{InviteID: inviteID})
	return mapError(err)
}

func (c *GRPCClient) LeaveGroup(ctx context.Context, groupID string) error {
	_, err := c.client.LeaveGroup(ctx, &wire.LeaveGroupRequest{GroupID: groupID})
	return mapError(err)
}

// Subscriptions.

// Subscribe opens a snapshot stream. The stream ends when ctx is cancelled
// or the server closes it; failures are classified with mapError.
func (c *GRPCClient) Subscribe(ctx context.Context, sub streaming.Subscription) (<-chan streaming.Snapshot, <-chan error) {
	snaps := make(chan streaming.Snapshot)
	errs := make(chan error, 1)

	go func() {
		defer close(snaps)
		defer close(errs)

		stream, err := c.client.Subscribe(ctx, &wire.SubscribeRequest{Collection: sub.Collection, GroupID: sub.GroupID})
		if err != nil {
			errs <- mapError(err)
			return
		}
		for {
			msg, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return
				}
				errs <- mapError(err)
				return
			}
			select {
			case snaps <- snapshotFromWire(msg):
			case <-ctx.Done():
				return
			}
		}
	}()

	return snaps, errs
}

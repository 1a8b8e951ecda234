package wire

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed PlayKeeper client. Every call is sent with the msgpack
// content-subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *Client, name string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterRequest, RegisterResponse](ctx, c, "Register", in, opts)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginRequest, LoginResponse](ctx, c, "Login", in, opts)
}

func (c *Client) AllocateCode(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*AllocateCodeResponse, error) {
	return invoke[Empty, AllocateCodeResponse](ctx, c, "AllocateCode", in, opts)
}

func (c *Client) Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[Empty, PingResponse](ctx, c, "Ping", in, opts)
}

func (c *Client) UpsertRecord(ctx context.Context, in *UpsertRecordRequest, opts ...grpc.CallOption) (*UpsertRecordResponse, error) {
	return invoke[UpsertRecordRequest, UpsertRecordResponse](ctx, c, "UpsertRecord", in, opts)
}

func (c *Client) DeleteRecord(ctx context.Context, in *DeleteRecordRequest, opts ...grpc.CallOption) (*DeleteRecordResponse, error) {
	return invoke[DeleteRecordRequest, DeleteRecordResponse](ctx, c, "DeleteRecord", in, opts)
}

func (c *Client) ChangedSince(ctx context.Context, in *ChangedSinceRequest, opts ...grpc.CallOption) (*ChangedSinceResponse, error) {
	return invoke[ChangedSinceRequest, ChangedSinceResponse](ctx, c, "ChangedSince", in, opts)
}

func (c *Client) SendFriendInvite(ctx context.Context, in *SendFriendInviteRequest, opts ...grpc.CallOption) (*FriendRelationResponse, error) {
	return invoke[SendFriendInviteRequest, FriendRelationResponse](ctx, c, "SendFriendInvite", in, opts)
}

func (c *Client) AcceptFriend(ctx context.Context, in *FriendRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[FriendRequest, Empty](ctx, c, "AcceptFriend", in, opts)
}

func (c *Client) RejectFriend(ctx context.Context, in *FriendRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[FriendRequest, Empty](ctx, c, "RejectFriend", in, opts)
}

func (c *Client) RemoveFriend(ctx context.Context, in *FriendRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[FriendRequest, Empty](ctx, c, "RemoveFriend", in, opts)
}

func (c *Client) FindOutgoingInvite(ctx context.Context, in *FindOutgoingInviteRequest, opts ...grpc.CallOption) (*FindOutgoingInviteResponse, error) {
	return invoke[FindOutgoingInviteRequest, FindOutgoingInviteResponse](ctx, c, "FindOutgoingInvite", in, opts)
}

func (c *Client) CreateGroup(ctx context.Context, in *CreateGroupRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	return invoke[CreateGroupRequest, GroupResponse](ctx, c, "CreateGroup", in, opts)
}

func (c *Client) ListGroups(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListGroupsResponse, error) {
	return invoke[Empty, ListGroupsResponse](ctx, c, "ListGroups", in, opts)
}

func (c *Client) InviteToGroup(ctx context.Context, in *InviteToGroupRequest, opts ...grpc.CallOption) (*GroupInviteResponse, error) {
	return invoke[InviteToGroupRequest, GroupInviteResponse](ctx, c, "InviteToGroup", in, opts)
}

func (c *Client) GetGroupInvite(ctx context.Context, in *GroupInviteRequest, opts ...grpc.CallOption) (*GroupInviteResponse, error) {
	return invoke[GroupInviteRequest, GroupInviteResponse](ctx, c, "GetGroupInvite", in, opts)
}

func (c *Client) AcceptGroupInvite(ctx context.Context, in *GroupInviteRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[GroupInviteRequest, Empty](ctx, c, "AcceptGroupInvite", in, opts)
}

func (c *Client) CancelGroupInvite(ctx context.Context, in *GroupInviteRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[GroupInviteRequest, Empty](ctx, c, "CancelGroupInvite", in, opts)
}

func (c *Client) LeaveGroup(ctx context.Context, in *LeaveGroupRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[LeaveGroupRequest, Empty](ctx, c, "LeaveGroup", in, opts)
}

// SnapshotStream is the client side of a Subscribe stream.
type SnapshotStream interface {
	Recv() (*Snapshot, error)
}

type snapshotStream struct {
	grpc.ClientStream
}

func (s *snapshotStream) Recv() (*Snapshot, error) {
	m := new(Snapshot)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Subscribe opens a server stream of snapshots for one collection. The
// stream ends when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (SnapshotStream, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod("Subscribe"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &snapshotStream{stream}, nil
}

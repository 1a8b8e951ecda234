package wire

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "playkeeper.v1.PlayKeeper"

// FullMethod returns the gRPC method path of a PlayKeeper method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// Methods that do not require an access token.
var PublicMethods = map[string]bool{
	FullMethod("Register"): true,
	FullMethod("Login"):    true,
	FullMethod("Ping"):     true,
}

// PlayKeeperServer is implemented by the server transport.
type PlayKeeperServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	AllocateCode(context.Context, *Empty) (*AllocateCodeResponse, error)
	Ping(context.Context, *Empty) (*PingResponse, error)

	UpsertRecord(context.Context, *UpsertRecordRequest) (*UpsertRecordResponse, error)
	DeleteRecord(context.Context, *DeleteRecordRequest) (*DeleteRecordResponse, error)
	ChangedSince(context.Context, *ChangedSinceRequest) (*ChangedSinceResponse, error)

	SendFriendInvite(context.Context, *SendFriendInviteRequest) (*FriendRelationResponse, error)
	AcceptFriend(context.Context, *FriendRequest) (*Empty, error)
	RejectFriend(context.Context, *FriendRequest) (*Empty, error)
	RemoveFriend(context.Context, *FriendRequest) (*Empty, error)
	FindOutgoingInvite(context.Context, *FindOutgoingInviteRequest) (*FindOutgoingInviteResponse, error)

	CreateGroup(context.Context, *CreateGroupRequest) (*GroupResponse, error)
	ListGroups(context.Context, *Empty) (*ListGroupsResponse, error)
	InviteToGroup(context.Context, *InviteToGroupRequest) (*GroupInviteResponse, error)
	GetGroupInvite(context.Context, *GroupInviteRequest) (*GroupInviteResponse, error)
	AcceptGroupInvite(context.Context, *GroupInviteRequest) (*Empty, error)
	CancelGroupInvite(context.Context, *GroupInviteRequest) (*Empty, error)
	LeaveGroup(context.Context, *LeaveGroupRequest) (*Empty, error)

	Subscribe(*SubscribeRequest, SnapshotSender) error
}

// SnapshotSender is the server side of a Subscribe stream.
type SnapshotSender interface {
	Send(*Snapshot) error
	Context() context.Context
}

func unary[Req, Resp any](name string, call func(PlayKeeperServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PlayKeeperServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PlayKeeperServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type snapshotSender struct {
	grpc.ServerStream
}

func (s *snapshotSender) Send(m *Snapshot) error {
	return s.ServerStream.SendMsg(m)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PlayKeeperServer).Subscribe(in, &snapshotSender{stream})
}

// ServiceDesc is registered with grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlayKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", PlayKeeperServer.Register),
		unary("Login", PlayKeeperServer.Login),
		unary("AllocateCode", PlayKeeperServer.AllocateCode),
		unary("Ping", PlayKeeperServer.Ping),
		unary("UpsertRecord", PlayKeeperServer.UpsertRecord),
		unary("DeleteRecord", PlayKeeperServer.DeleteRecord),
		unary("ChangedSince", PlayKeeperServer.ChangedSince),
		unary("SendFriendInvite", PlayKeeperServer.SendFriendInvite),
		unary("AcceptFriend", PlayKeeperServer.AcceptFriend),
		unary("RejectFriend", PlayKeeperServer.RejectFriend),
		unary("RemoveFriend", PlayKeeperServer.RemoveFriend),
		unary("FindOutgoingInvite", PlayKeeperServer.FindOutgoingInvite),
		unary("CreateGroup", PlayKeeperServer.CreateGroup),
		unary("ListGroups", PlayKeeperServer.ListGroups),
		unary("InviteToGroup", PlayKeeperServer.InviteToGroup),
		unary("GetGroupInvite", PlayKeeperServer.GetGroupInvite),
		unary("AcceptGroupInvite", PlayKeeperServer.AcceptGroupInvite),
		unary("CancelGroupInvite", PlayKeeperServer.CancelGroupInvite),
		unary("LeaveGroup", PlayKeeperServer.LeaveGroup),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "playkeeper/v1",
}

// RegisterPlayKeeperServer registers srv on s.
func RegisterPlayKeeperServer(s grpc.ServiceRegistrar, srv PlayKeeperServer) {
	s.RegisterService(&ServiceDesc, srv)
}

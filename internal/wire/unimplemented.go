package wire

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnimplementedPlayKeeperServer answers every method with
// codes.Unimplemented. Embed it to implement a subset of the service.
type UnimplementedPlayKeeperServer struct{}

func unimplemented(name string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", name)
}

func (UnimplementedPlayKeeperServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedPlayKeeperServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedPlayKeeperServer) AllocateCode(context.Context, *Empty) (*AllocateCodeResponse, error) {
	return nil, unimplemented("AllocateCode")
}
func (UnimplementedPlayKeeperServer) Ping(context.Context, *Empty) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedPlayKeeperServer) UpsertRecord(context.Context, *UpsertRecordRequest) (*UpsertRecordResponse, error) {
	return nil, unimplemented("UpsertRecord")
}
func (UnimplementedPlayKeeperServer) DeleteRecord(context.Context, *DeleteRecordRequest) (*DeleteRecordResponse, error) {
	return nil, unimplemented("DeleteRecord")
}
func (UnimplementedPlayKeeperServer) ChangedSince(context.Context, *ChangedSinceRequest) (*ChangedSinceResponse, error) {
	return nil, unimplemented("ChangedSince")
}
func (UnimplementedPlayKeeperServer) SendFriendInvite(context.Context, *SendFriendInviteRequest) (*FriendRelationResponse, error) {
	return nil, unimplemented("SendFriendInvite")
}
func (UnimplementedPlayKeeperServer) AcceptFriend(context.Context, *FriendRequest) (*Empty, error) {
	return nil, unimplemented("AcceptFriend")
}
func (UnimplementedPlayKeeperServer) RejectFriend(context.Context, *FriendRequest) (*Empty, error) {
	return nil, unimplemented("RejectFriend")
}
func (UnimplementedPlayKeeperServer) RemoveFriend(context.Context, *FriendRequest) (*Empty, error) {
	return nil, unimplemented("RemoveFriend")
}
func (UnimplementedPlayKeeperServer) FindOutgoingInvite(context.Context, *FindOutgoingInviteRequest) (*FindOutgoingInviteResponse, error) {
	return nil, unimplemented("FindOutgoingInvite")
}
func (UnimplementedPlayKeeperServer) CreateGroup(context.Context, *CreateGroupRequest) (*GroupResponse, error) {
	return nil, unimplemented("CreateGroup")
}
func (UnimplementedPlayKeeperServer) ListGroups(context.Context, *Empty) (*ListGroupsResponse, error) {
	return nil, unimplemented("ListGroups")
}
func (UnimplementedPlayKeeperServer) InviteToGroup(context.Context, *InviteToGroupRequest) (*GroupInviteResponse, error) {
	return nil, unimplemented("InviteToGroup")
}
func (UnimplementedPlayKeeperServer) GetGroupInvite(context.Context, *GroupInviteRequest) (*GroupInviteResponse, error) {
	return nil, unimplemented("GetGroupInvite")
}
func (UnimplementedPlayKeeperServer) AcceptGroupInvite(context.Context, *GroupInviteRequest) (*Empty, error) {
	return nil, unimplemented("AcceptGroupInvite")
}
func (UnimplementedPlayKeeperServer) CancelGroupInvite(context.Context, *GroupInviteRequest) (*Empty, error) {
	return nil, unimplemented("CancelGroupInvite")
}
func (UnimplementedPlayKeeperServer) LeaveGroup(context.Context, *LeaveGroupRequest) (*Empty, error) {
	return nil, unimplemented("LeaveGroup")
}
func (UnimplementedPlayKeeperServer) Subscribe(*SubscribeRequest, SnapshotSender) error {
	return unimplemented("Subscribe")
}

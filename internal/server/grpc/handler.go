package grpc

import (
	"context"

	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/wire"
)

func (s *GRPCServer) Register(ctx context.Context, req *wire.RegisterRequest) (*wire.RegisterResponse, error) {
	user, code, err := s.users.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.fail(ctx, "Register", err)
	}
	return &wire.RegisterResponse{UserID: user.ID, FriendCode: code}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *wire.LoginRequest) (*wire.LoginResponse, error) {
	id, token, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.fail(ctx, "Login", err)
	}
	return &wire.LoginResponse{UserID: id, AccessToken: token}, nil
}

func (s *GRPCServer) AllocateCode(ctx context.Context, _ *wire.Empty) (*wire.AllocateCodeResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "AllocateCode", err)
	}
	code, err := s.users.AllocateCode(ctx, uid)
	if err != nil {
		return nil, s.fail(ctx, "AllocateCode", err)
	}
	return &wire.AllocateCodeResponse{Code: code}, nil
}

func (s *GRPCServer) Ping(context.Context, *wire.Empty) (*wire.PingResponse, error) {
	return &wire.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) UpsertRecord(ctx context.Context, req *wire.UpsertRecordRequest) (*wire.UpsertRecordResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "UpsertRecord", err)
	}
	at, err := s.records.Upsert(ctx, uid, recordFromWire(req.Domain, req.Record))
	if err != nil {
		return nil, s.fail(ctx, "UpsertRecord", err)
	}
	return &wire.UpsertRecordResponse{UpdatedAt: at}, nil
}

func (s *GRPCServer) DeleteRecord(ctx context.Context, req *wire.DeleteRecordRequest) (*wire.DeleteRecordResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "DeleteRecord", err)
	}
	at, err := s.records.Delete(ctx, uid, req.Domain, req.ID)
	if err != nil {
		return nil, s.fail(ctx, "DeleteRecord", err)
	}
	return &wire.DeleteRecordResponse{UpdatedAt: at}, nil
}

func (s *GRPCServer) ChangedSince(ctx context.Context, req *wire.ChangedSinceRequest) (*wire.ChangedSinceResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "ChangedSince", err)
	}
	recs, err := s.records.ChangedSince(ctx, uid, records.Feed{
		Domain:   req.Domain,
		Scope:    req.Scope,
		AnchorID: req.AnchorID,
		After:    req.After,
		AfterID:  req.AfterID,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, s.fail(ctx, "ChangedSince", err)
	}
	return &wire.ChangedSinceResponse{Records: mapSlice(recs, recordToWire)}, nil
}

func (s *GRPCServer) SendFriendInvite(ctx context.Context, req *wire.SendFriendInviteRequest) (*wire.FriendRelationResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "SendFriendInvite", err)
	}
	rel, err := s.social.SendFriendInvite(ctx, uid, req.Code, req.ClientCreatedAt)
	if err != nil {
		return nil, s.fail(ctx, "SendFriendInvite", err)
	}
	return &wire.FriendRelationResponse{Relation: relationToWire(*rel)}, nil
}

// friendAction runs one of the friend transitions that only return an error.
func (s *GRPCServer) friendAction(ctx context.Context, method string, req *wire.FriendRequest,
	fn func(ctx context.Context, userID, friendID string) error) (*wire.Empty, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}
	if err := fn(ctx, uid, req.UserID); err != nil {
		return nil, s.fail(ctx, method, err)
	}
	return &wire.Empty{}, nil
}

func (s *GRPCServer) AcceptFriend(ctx context.Context, req *wire.FriendRequest) (*wire.Empty, error) {
	return s.friendAction(ctx, "AcceptFriend", req, s.social.AcceptFriend)
}

func (s *GRPCServer) RejectFriend(ctx context.Context, req *wire.FriendRequest) (*wire.Empty, error) {
	return s.friendAction(ctx, "RejectFriend", req, s.social.RejectFriend)
}

func (s *GRPCServer) RemoveFriend(ctx context.Context, req *wire.FriendRequest) (*wire.Empty, error) {
	return s.friendAction(ctx, "RemoveFriend", req, s.social.RemoveFriend)
}

func (s *GRPCServer) FindOutgoingInvite(ctx context.Context, req *wire.FindOutgoingInviteRequest) (*wire.FindOutgoingInviteResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "FindOutgoingInvite", err)
	}
	rel, err := s.social.FindOutgoingInvite(ctx, uid, req.Code)
	if err != nil {
		return nil, s.fail(ctx, "FindOutgoingInvite", err)
	}
	if rel == nil {
		return &wire.FindOutgoingInviteResponse{}, nil
	}
	return &wire.FindOutgoingInviteResponse{Found: true, Relation: relationToWire(*rel)}, nil
}

func (s *GRPCServer) CreateGroup(ctx context.Context, req *wire.CreateGroupRequest) (*wire.GroupResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "CreateGroup", err)
	}
	g, err := s.social.CreateGroup(ctx, uid, req.Name)
	if err != nil {
		return nil, s.fail(ctx, "CreateGroup", err)
	}
	return &wire.GroupResponse{Group: groupToWire(*g)}, nil
}

func (s *GRPCServer) ListGroups(ctx context.Context, _ *wire.Empty) (*wire.ListGroupsResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "ListGroups", err)
	}
	groups, err := s.social.ListGroups(ctx, uid)
	if err != nil {
		return nil, s.fail(ctx, "ListGroups", err)
	}
	return &wire.ListGroupsResponse{Groups: mapSlice(groups, groupToWire)}, nil
}

func (s *GRPCServer) InviteToGroup(ctx context.Context, req *wire.InviteToGroupRequest) (*wire.GroupInviteResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "InviteToGroup", err)
	}
	inv, err := s.social.InviteToGroup(ctx, uid, req.GroupID, req.ToID, req.ClientCreatedAt)
	if err != nil {
		return nil, s.fail(ctx, "InviteToGroup", err)
	}
	return &wire.GroupInviteResponse{Found: true, Invite: inviteToWire(*inv)}, nil
}

func (s *GRPCServer) GetGroupInvite(ctx context.Context, req *wire.GroupInviteRequest) (*wire.GroupInviteResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "GetGroupInvite", err)
	}
	inv, err := s.social.GetGroupInvite(ctx, uid, req.InviteID)
	if err != nil {
		return nil, s.fail(ctx, "GetGroupInvite", err)
	}
	if inv == nil {
		return &wire.GroupInviteResponse{}, nil
	}
	return &wire.GroupInviteResponse{Found: true, Invite: inviteToWire(*inv)}, nil
}

func (s *GRPCServer) inviteAction(ctx context.Context, method string, req *wire.GroupInviteRequest,
	fn func(ctx context.Context, userID, inviteID string) error) (*wire.Empty, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}
	if err := fn(ctx, uid, req.InviteID); err != nil {
		return nil, s.fail(ctx, method, err)
	}
	return &wire.Empty{}, nil
}

func (s *GRPCServer) AcceptGroupInvite(ctx context.Context, req *wire.GroupInviteRequest) (*wire.Empty, error) {
	return s.inviteAction(ctx, "AcceptGroupInvite", req, s.social.AcceptGroupInvite)
}

func (s *GRPCServer) CancelGroupInvite(ctx context.Context, req *wire.GroupInviteRequest) (*wire.Empty, error) {
	return s.inviteAction(ctx, "CancelGroupInvite", req, s.social.CancelGroupInvite)
}

func (s *GRPCServer) LeaveGroup(ctx context.Context, req *wire.LeaveGroupRequest) (*wire.Empty, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, s.fail(ctx, "LeaveGroup", err)
	}
	if err := s.social.LeaveGroup(ctx, uid, req.GroupID); err != nil {
		return nil, s.fail(ctx, "LeaveGroup", err)
	}
	return &wire.Empty{}, nil
}

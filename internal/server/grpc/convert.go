package grpc

import (
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/services"
	"github.com/dmitrijs2005/playkeeper/internal/wire"
)

// recordFromWire reads an upsert. The client sends its own edit time in
// UpdatedAt; the server time is stamped by the store.
func recordFromWire(domain string, r wire.Record) *models.Record {
	return &models.Record{
		Domain:          domain,
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Scope:           r.Scope,
		GroupID:         r.GroupID,
		Payload:         r.Payload,
		CreatedAt:       r.CreatedAt,
		ClientUpdatedAt: r.UpdatedAt,
		IsDeleted:       r.IsDeleted,
		DeletedAt:       r.DeletedAt,
	}
}

func recordToWire(r models.Record) wire.Record {
	return wire.Record{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Scope:     r.Scope,
		GroupID:   r.GroupID,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		IsDeleted: r.IsDeleted,
		DeletedAt: r.DeletedAt,
	}
}

// relationToWire is written from the caller's side: UserID names the friend.
func relationToWire(r models.FriendRelation) wire.FriendRelation {
	return wire.FriendRelation{
		UserID:    r.FriendID,
		Code:      r.Code,
		Status:    r.Status,
		Nickname:  r.Nickname,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func groupToWire(g models.Group) wire.Group {
	return wire.Group{
		GroupID:   g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func inviteToWire(i models.GroupInvite) wire.GroupInvite {
	return wire.GroupInvite{
		InviteID:    i.ID,
		GroupID:     i.GroupID,
		GroupName:   i.GroupName,
		FromID:      i.FromID,
		ToID:        i.ToID,
		Status:      i.Status,
		CreatedAt:   i.CreatedAt,
		RespondedAt: i.RespondedAt,
	}
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	if len(in) == 0 {
		return nil
	}
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

func snapshotToWire(s *services.Snapshot) *wire.Snapshot {
	out := &wire.Snapshot{
		Collection: s.Collection,
		GroupID:    s.GroupID,
		Friends:    mapSlice(s.Friends, relationToWire),
		Invites:    mapSlice(s.Invites, inviteToWire),
		Groups:     mapSlice(s.Groups, groupToWire),
		Members: mapSlice(s.Members, func(m models.GroupMember) wire.GroupMember {
			return wire.GroupMember{
				GroupID:  m.GroupID,
				UserID:   m.UserID,
				Nickname: m.Nickname,
				Role:     m.Role,
				JoinedAt: m.JoinedAt,
			}
		}),
	}
	if s.Group != nil {
		g := groupToWire(*s.Group)
		out.Group = &g
	}
	return out
}

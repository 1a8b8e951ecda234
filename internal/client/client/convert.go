package client

import (
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/streaming"
	"github.com/dmitrijs2005/playkeeper/internal/wire"
)

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func recordToWire(r models.Record) wire.Record {
	return wire.Record{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Scope:     string(r.Scope),
		GroupID:   r.GroupID,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		IsDeleted: r.IsDeleted,
		DeletedAt: r.DeletedAt,
	}
}

// recordFromWire returns a pulled record. Local-only fields stay zero.
func recordFromWire(r wire.Record) models.Record {
	return models.Record{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Scope:     models.Scope(r.Scope),
		GroupID:   r.GroupID,
		Payload:   r.Payload,
		CreatedAt: utc(r.CreatedAt),
		UpdatedAt: utc(r.UpdatedAt),
		IsDeleted: r.IsDeleted,
		DeletedAt: utcPtr(r.DeletedAt),
	}
}

func friendFromWire(f wire.FriendRelation) models.FriendRelation {
	return models.FriendRelation{
		LocalID:      f.UserID,
		RemoteUserID: f.UserID,
		Code:         f.Code,
		Status:       models.FriendStatus(f.Status),
		Nickname:     f.Nickname,
		CreatedAt:    utc(f.CreatedAt),
		UpdatedAt:    utc(f.UpdatedAt),
	}
}

func inviteFromWire(i wire.GroupInvite) models.GroupInvite {
	return models.GroupInvite{
		InviteID:          i.InviteID,
		GroupID:           i.GroupID,
		GroupNameSnapshot: i.GroupName,
		FromID:            i.FromID,
		ToID:              i.ToID,
		Status:            models.InviteStatus(i.Status),
		CreatedAt:         utc(i.CreatedAt),
		RespondedAt:       utcPtr(i.RespondedAt),
	}
}

func groupFromWire(g wire.Group) models.Group {
	return models.Group{
		GroupID:   g.GroupID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		CreatedAt: utc(g.CreatedAt),
		UpdatedAt: utc(g.UpdatedAt),
	}
}

func memberFromWire(m wire.GroupMember) models.GroupMember {
	return models.GroupMember{
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Nickname: m.Nickname,
		Role:     m.Role,
		JoinedAt: utc(m.JoinedAt),
	}
}

func snapshotFromWire(s *wire.Snapshot) streaming.Snapshot {
	out := streaming.Snapshot{}
	for _, f := range s.Friends {
		out.Friends = append(out.Friends, friendFromWire(f))
	}
	for _, i := range s.Invites {
		out.Invites = append(out.Invites, inviteFromWire(i))
	}
	for _, g := range s.Groups {
		out.Groups = append(out.Groups, groupFromWire(g))
	}
	if s.Group != nil {
		g := groupFromWire(*s.Group)
		out.Group = &g
	}
	for _, m := range s.Members {
		out.Members = append(out.Members, memberFromWire(m))
	}
	return out
}

package streaming

import (
	"context"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
)

// CollectionGroup is the collection of a per-group subscription.
const CollectionGroup = "group"

// Subscription names one remote collection. GroupID is set only for
// CollectionGroup.
type Subscription struct {
	Collection string
	GroupID    string
}

// Source is the tag written on every local row mirrored from s.
func (s Subscription) Source() string {
	if s.Collection == CollectionGroup {
		return models.GroupSource(s.GroupID)
	}
	return s.Collection
}

// Snapshot is the full current content of one collection. Only the fields
// of the subscribed collection are set.
type Snapshot struct {
	Friends []models.FriendRelation
	Invites []models.GroupInvite
	Groups  []models.Group
	// Group is nil when the group no longer exists or is not visible.
	Group   *models.Group
	Members []models.GroupMember
}

// Remote is the server side of the streaming reconciler.
//
// Subscribe delivers snapshots until ctx is cancelled or the stream fails.
// When the stream ends the snapshot channel is closed; a failure is sent on
// the error channel before that, which is closed as well.
type Remote interface {
	Subscribe(ctx context.Context, sub Subscription) (<-chan Snapshot, <-chan error)

	SendFriendInvite(ctx context.Context, code string, createdAt time.Time) (models.FriendRelation, error)
	// FindOutgoingInvite returns nil when no outgoing relation for code
	// exists.
	FindOutgoingInvite(ctx context.Context, code string) (*models.FriendRelation, error)
	InviteToGroup(ctx context.Context, groupID, toID string, createdAt time.Time) (models.GroupInvite, error)
	// GetGroupInvite returns nil when the invite does not exist.
	GetGroupInvite(ctx context.Context, inviteID string) (*models.GroupInvite, error)
}

// Store is the local mirror of the social collections.
type Store interface {
	ApplyFriendSnapshot(ctx context.Context, source string, items []models.FriendRelation) error
	ApplyInviteSnapshot(ctx context.Context, source string, items []models.GroupInvite) error
	ApplyMembershipSnapshot(ctx context.Context, source string, groups []models.Group) ([]string, error)
	ApplyGroupSnapshot(ctx context.Context, source string, group models.Group, members []models.GroupMember) error
	RemoveGroup(ctx context.Context, groupID string) error

	AdoptLocalFriends(ctx context.Context, identity string) error
	PendingLocalFriends(ctx context.Context, identity string) ([]models.FriendRelation, error)
	ResolveLocalFriend(ctx context.Context, localID, remoteUserID string, status models.FriendStatus, source string) error
	DeleteFriend(ctx context.Context, localID string) error

	PendingLocalInvites(ctx context.Context, identity string) ([]models.GroupInvite, error)
	MarkInvitePushed(ctx context.Context, inviteID, source string) error
	DeleteInvite(ctx context.Context, inviteID string) error
}

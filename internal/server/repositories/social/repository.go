// Package social stores friend relations, groups, memberships and group
// invites on the server.
package social

import (
	"context"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/server/models"
)

type Repository interface {
	GetRelation(ctx context.Context, userID, friendID string) (*models.FriendRelation, error)
	InsertRelationPair(ctx context.Context, fromID, toID string, createdAt time.Time) error
	SetRelationPairStatus(ctx context.Context, userID, friendID, status string) error
	DeleteRelationPair(ctx context.Context, userID, friendID string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]models.FriendRelation, error)
	FindOutgoingByCode(ctx context.Context, userID, code string) (*models.FriendRelation, error)

	CreateGroup(ctx context.Context, name, ownerID string) (*models.Group, error)
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroupsFor(ctx context.Context, userID string) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	AddMember(ctx context.Context, groupID, userID, role string) error
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
	SetOwner(ctx context.Context, groupID, userID string) error

	UpsertInvite(ctx context.Context, inv *models.GroupInvite) error
	GetInvite(ctx context.Context, inviteID string) (*models.GroupInvite, error)
	SetInviteStatus(ctx context.Context, inviteID, status string) error
	ListInvitesTo(ctx context.Context, userID string) ([]models.GroupInvite, error)
	ListInvitesFrom(ctx context.Context, userID string) ([]models.GroupInvite, error)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
)

// Snapshot is the full current content of one subscribed collection.
type Snapshot struct {
	Collection string
	GroupID    string
	Friends    []models.FriendRelation
	Invites    []models.GroupInvite
	Groups     []models.Group
	// Group is nil when the caller is not a member of GroupID.
	Group   *models.Group
	Members []models.GroupMember
}

// SnapshotKey returns the key the change notifications of a collection are
// published under for userID.
func SnapshotKey(userID, collection, groupID string) (string, error) {
	switch collection {
	case models.CollectionFriends, models.CollectionInvitesIncoming,
		models.CollectionInvitesOutgoing, models.CollectionMemberships:
		return userID, nil
	case models.CollectionGroup:
		if groupID == "" {
			return "", fmt.Errorf("%w: group subscription without group id", common.ErrInvalidArgument)
		}
		return groupID, nil
	default:
		return "", fmt.Errorf("%w: collection %q", common.ErrInvalidArgument, collection)
	}
}

// Snapshot builds the current state of collection as seen by userID.
func (s *SocialService) Snapshot(ctx context.Context, userID, collection, groupID string) (*Snapshot, error) {
	repo := s.repomanager.Social(s.db)
	snap := &Snapshot{Collection: collection, GroupID: groupID}

	var err error
	switch collection {
	case models.CollectionFriends:
		snap.Friends, err = repo.ListFriends(ctx, userID)
	case models.CollectionInvitesIncoming:
		snap.Invites, err = repo.ListInvitesTo(ctx, userID)
	case models.CollectionInvitesOutgoing:
		snap.Invites, err = repo.ListInvitesFrom(ctx, userID)
	case models.CollectionMemberships:
		snap.Groups, err = repo.ListGroupsFor(ctx, userID)
	case models.CollectionGroup:
		var member bool
		member, err = repo.IsMember(ctx, groupID, userID)
		if err != nil || !member {
			break
		}
		snap.Group, err = repo.GetGroup(ctx, groupID)
		if errors.Is(err, common.ErrorNotFound) {
			snap.Group, err = nil, nil
			break
		}
		if err != nil {
			break
		}
		snap.Members, err = repo.ListMembers(ctx, groupID)
	default:
		err = fmt.Errorf("%w: collection %q", common.ErrInvalidArgument, collection)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

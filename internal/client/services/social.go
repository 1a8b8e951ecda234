package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/social"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/google/uuid"
)

// SocialService queues friend and group invitations while offline. The
// streaming manager flushes them once the server is reachable.
type SocialService struct {
	store *social.SQLiteRepository
	meta  *metadata.SQLiteRepository
	now   func() time.Time
}

func NewSocialService(store *social.SQLiteRepository, meta *metadata.SQLiteRepository) *SocialService {
	return &SocialService{store: store, meta: meta, now: time.Now}
}

func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("%w: empty friend code", common.ErrInvalidArgument)
	}
	for _, c := range code {
		if !strings.ContainsRune(common.FriendCodeAlphabet, c) {
			return "", fmt.Errorf("%w: friend code %q has invalid character %q", common.ErrInvalidArgument, code, c)
		}
	}
	return code, nil
}

// InviteFriend queues an invite to the owner of code on behalf of the
// signed-in identity. Inviting the same code twice is refused with
// common.ErrAlreadyExists.
func (s *SocialService) InviteFriend(ctx context.Context, code string) (models.FriendRelation, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return models.FriendRelation{}, err
	}

	identity, err := s.meta.Get(ctx, metadata.KeyIdentity)
	if err != nil {
		return models.FriendRelation{}, err
	}
	friends, err := s.store.ListFriends(ctx)
	if err != nil {
		return models.FriendRelation{}, err
	}
	for _, f := range friends {
		if f.Code == code {
			return models.FriendRelation{}, fmt.Errorf("%w: friend code %s", common.ErrAlreadyExists, code)
		}
	}

	now := s.now().UTC()
	rel := models.FriendRelation{
		LocalID:   uuid.NewString(),
		Code:      code,
		Status:    models.FriendPendingOutgoingLocal,
		CreatedAt: now,
		UpdatedAt: now,
		QueuedBy:  string(identity),
	}
	if err := s.store.InsertFriend(ctx, rel); err != nil {
		return models.FriendRelation{}, err
	}
	return rel, nil
}

// InviteToGroup queues an invite of toID into groupID. The invite id is
// derived from both, so repeating the call does nothing.
func (s *SocialService) InviteToGroup(ctx context.Context, groupID, toID string) (models.GroupInvite, error) {
	if groupID == "" || toID == "" {
		return models.GroupInvite{}, fmt.Errorf("%w: group and recipient are required", common.ErrInvalidArgument)
	}
	identity, err := s.meta.Get(ctx, metadata.KeyIdentity)
	if err != nil {
		return models.GroupInvite{}, err
	}
	if len(identity) == 0 {
		return models.GroupInvite{}, common.ErrorUnauthorized
	}

	var name string
	group, err := s.store.GetGroup(ctx, groupID)
	switch {
	case err == nil:
		name = group.Name
	case !errors.Is(err, common.ErrorNotFound):
		return models.GroupInvite{}, err
	}

	inv := models.GroupInvite{
		InviteID:          models.InviteID(groupID, toID),
		GroupID:           groupID,
		GroupNameSnapshot: name,
		FromID:            string(identity),
		ToID:              toID,
		Status:            models.InvitePending,
		CreatedAt:         s.now().UTC(),
		LocalOnly:         true,
	}
	if err := s.store.InsertLocalInvite(ctx, inv); err != nil {
		return models.GroupInvite{}, err
	}
	return inv, nil
}

func (s *SocialService) Friends(ctx context.Context) ([]models.FriendRelation, error) {
	return s.store.ListFriends(ctx)
}

func (s *SocialService) Invites(ctx context.Context) ([]models.GroupInvite, error) {
	return s.store.ListInvites(ctx)
}

func (s *SocialService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.store.ListGroups(ctx)
}

func (s *SocialService) Members(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	return s.store.ListMembers(ctx, groupID)
}

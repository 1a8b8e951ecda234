package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/social"
)

// SocialService owns friend relations, groups and group invites. The server
// is the only writer of their canonical status; clients mirror the
// snapshots built here.
type SocialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewSocialService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *SocialService {
	return &SocialService{db: db, repomanager: m, logger: logger.With("module", "social")}
}

func (s *SocialService) inTx(ctx context.Context, fn func(ctx context.Context, repo social.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Social(tx))
	})
}

// SendFriendInvite invites the owner of code. Repeating an invite returns
// the existing relation; inviting someone who already invited the caller
// accepts their invite.
func (s *SocialService) SendFriendInvite(ctx context.Context, userID, code string, createdAt time.Time) (*models.FriendRelation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: friend code is required", common.ErrInvalidArgument)
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var rel *models.FriendRelation
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		target, err := s.repomanager.Users(tx).GetProfileByCode(ctx, code)
		if err != nil {
			return err
		}
		if target.UserID == userID {
			return fmt.Errorf("%w: cannot befriend yourself", common.ErrInvalidArgument)
		}

		repo := s.repomanager.Social(tx)
		existing, err := repo.GetRelation(ctx, userID, target.UserID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			if err := repo.InsertRelationPair(ctx, userID, target.UserID, createdAt); err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.Status == models.FriendPendingIncoming:
			if err := repo.SetRelationPairStatus(ctx, userID, target.UserID, models.FriendAccepted); err != nil {
				return err
			}
		default:
			rel = existing
			return nil
		}

		rel, err = repo.GetRelation(ctx, userID, target.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *SocialService) AcceptFriend(ctx context.Context, userID, friendID string) error {
	return s.inTx(ctx, func(ctx context.Context, repo social.Repository) error {
		rel, err := repo.GetRelation(ctx, userID, friendID)
		if err != nil {
			return err
		}
		switch rel.Status {
		case models.FriendAccepted:
			return nil
		case models.FriendPendingIncoming:
			return repo.SetRelationPairStatus(ctx, userID, friendID, models.FriendAccepted)
		default:
			return fmt.Errorf("%w: only incoming invites can be accepted", common.ErrInvalidArgument)
		}
	})
}

func (s *SocialService) RejectFriend(ctx context.Context, userID, friendID string) error {
	return s.inTx(ctx, func(ctx context.Context, repo social.Repository) error {
		rel, err := repo.GetRelation(ctx, userID, friendID)
		if err != nil {
			return err
		}
		if rel.Status != models.FriendPendingIncoming {
			return fmt.Errorf("%w: only incoming invites can be rejected", common.ErrInvalidArgument)
		}
		_, err = repo.DeleteRelationPair(ctx, userID, friendID)
		return err
	})
}

// RemoveFriend drops the relation in any status, which also withdraws an
// outgoing invite. Removing an absent relation succeeds.
func (s *SocialService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	_, err := s.repomanager.Social(s.db).DeleteRelationPair(ctx, userID, friendID)
	return err
}

// FindOutgoingInvite returns the caller's relation with the owner of code,
// or nil when there is none.
func (s *SocialService) FindOutgoingInvite(ctx context.Context, userID, code string) (*models.FriendRelation, error) {
	rel, err := s.repomanager.Social(s.db).FindOutgoingByCode(ctx, userID, strings.ToUpper(code))
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return rel, err
}

func (s *SocialService) CreateGroup(ctx context.Context, userID, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", common.ErrInvalidArgument)
	}

	var g *models.Group
	err := s.inTx(ctx, func(ctx context.Context, repo social.Repository) error {
		var err error
		g, err = repo.CreateGroup(ctx, name, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "group created", "group_id", g.ID, "owner_id", userID)
	return g, nil
}

func (s *SocialService) ListGroups(ctx context.Context, userID string) ([]models.Group, error) {
	return s.repomanager.Social(s.db).ListGroupsFor(ctx, userID)
}

// InviteToGroup invites an accepted friend into a group the caller belongs
// to. The invite id is derived from group and recipient, so repeating the
// call is harmless.
func (s *SocialService) InviteToGroup(ctx context.Context, userID, groupID, toID string, createdAt time.Time) (*models.GroupInvite, error) {
	if toID == userID {
		return nil, fmt.Errorf("%w: cannot invite yourself", common.ErrInvalidArgument)
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var inv *models.GroupInvite
	err := s.inTx(ctx, func(ctx context.Context, repo social.Repository) error {
		if _, err := repo.GetGroup(ctx, groupID); err != nil {
			return err
		}
		if err := requireMember(ctx, repo, groupID, userID); err != nil {
			return err
		}

		rel, err := repo.GetRelation(ctx, userID, toID)
		if errors.Is(err, common.ErrorNotFound) || (err == nil && rel.Status != models.FriendAccepted) {
			return fmt.Errorf("%w: only friends can be invited", common.ErrInvalidArgument)
		}
		if err != nil {
			return err
		}

		member, err := repo.IsMember(ctx, groupID, toID)
		if err != nil {
			return err
		}
		if member {
			return fmt.Errorf("%w: already a member", common.ErrAlreadyExists)
		}

		id := models.InviteID(groupID, toID)
		err = repo.UpsertInvite(ctx, &models.GroupInvite{
			ID: id, GroupID: groupID, FromID: userID, ToID: toID, CreatedAt: createdAt,
		})
		if err != nil {
			return err
		}
		inv, err = repo.GetInvite(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetGroupInvite returns an invite the caller sent or received, or nil.
func (s *SocialService) GetGroupInvite(ctx context.Context, userID, inviteID string) (*models.GroupInvite, error) {
	inv, err := s.repomanager.Social(s.db).GetInvite(ctx, inviteID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if inv.FromID != userID && inv.ToID != userID {
		return nil, nil
	}
	return inv, nil
}

func (s *SocialService) AcceptGroupInvite(ctx context.Context, userID, inviteID string) error {
	return s.inTx(ctx, func(ctx context.Context, repo social.Repository) error {
		inv, err := repo.GetInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		if inv.ToID != userID {
			return common.ErrorNotFound
		}
		switch inv.Status {
		case models.InviteAccepted:
			return nil
		case models.InviteCancelled:
			return fmt.Errorf("%w: invite was cancelled", common.ErrInvalidArgument)
		}
		if err := repo.SetInviteStatus(ctx, inviteID, models.InviteAccepted); err != nil {
			return err
		}
		return repo.AddMember(ctx, inv.GroupID, userID, models.RoleMember)
	})
}

// CancelGroupInvite withdraws an invite when called by its sender and
// declines it when called by its recipient.
func (s *SocialService) CancelGroupInvite(ctx context.Context, userID, inviteID string) error {
	return s.inTx(ctx, func(ctx context.Context, repo social.Repository) error {
		inv, err := repo.GetInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		if inv.FromID != userID && inv.ToID != userID {
			return common.ErrorNotFound
		}
		switch inv.Status {
		case models.InviteCancelled:
			return nil
		case models.InviteAccepted:
			return fmt.Errorf("%w: invite was already accepted", common.ErrInvalidArgument)
		}
		return repo.SetInviteStatus(ctx, inviteID, models.InviteCancelled)
	})
}

// LeaveGroup removes the caller from the group. An owner who leaves hands the
// group to the longest-standing remaining member.
func (s *SocialService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	return s.inTx(ctx, func(ctx context.Context, repo social.Repository) error {
		g, err := repo.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		removed, err := repo.RemoveMember(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return common.ErrNotMember
		}
		if g.OwnerID != userID {
			return nil
		}

		members, err := repo.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		return repo.SetOwner(ctx, groupID, members[0].UserID)
	})
}

func requireMember(ctx context.Context, repo social.Repository, groupID, userID string) error {
	ok, err := repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotMember
	}
	return nil
}

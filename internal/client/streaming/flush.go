package streaming

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
)

// FlushResult counts what happened to the offline queue.
type FlushResult struct {
	// Sent were accepted by the server or found to exist there already.
	Sent int
	// Dropped were rejected by the server and removed locally.
	Dropped int
	// Kept failed transiently and stay queued.
	Kept int
}

// Flush pushes the friend invites and group invites identity created
// offline. An item the server already knows is adopted instead of being
// sent again. Transient failures keep the item queued; items the server
// refused are deleted locally. When the session itself is refused the flush
// stops and every remaining item stays queued.
func (m *Manager) Flush(ctx context.Context, identity string) (FlushResult, error) {
	if identity == "" {
		return FlushResult{}, common.ErrorUnauthorized
	}

	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	var res FlushResult
	if err := m.flushFriends(ctx, identity, &res); err != nil {
		return res, err
	}
	if err := m.flushInvites(ctx, identity, &res); err != nil {
		return res, err
	}
	if res.Sent+res.Dropped+res.Kept > 0 {
		m.logger.Info(ctx, "offline queue flushed", "sent", res.Sent, "dropped", res.Dropped, "kept", res.Kept)
	}
	return res, nil
}

func (m *Manager) flushFriends(ctx context.Context, identity string, res *FlushResult) error {
	if err := m.store.AdoptLocalFriends(ctx, identity); err != nil {
		return fmt.Errorf("%w: %w", common.ErrLocalStore, err)
	}
	pending, err := m.store.PendingLocalFriends(ctx, identity)
	if err != nil {
		return fmt.Errorf("%w: failed to list local friend invites: %w", common.ErrLocalStore, err)
	}

	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := m.remote.FindOutgoingInvite(ctx, f.Code)
		if err == nil && rel == nil {
			var sent models.FriendRelation
			sent, err = m.remote.SendFriendInvite(ctx, f.Code, f.CreatedAt)
			rel = &sent
		}

		switch {
		case err == nil:
			err = m.store.ResolveLocalFriend(ctx, f.LocalID, rel.RemoteUserID, rel.Status, models.SourceFriends)
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: failed to resolve friend invite %s: %w", common.ErrLocalStore, f.LocalID, err)
			}
			res.Sent++
			m.metrics.flushed("friend", "sent")
		case common.IsAuthFailure(err):
			return fmt.Errorf("friend invite %s: %w", f.Code, err)
		case errors.Is(err, common.ErrRemoteRejected):
			m.logger.Warn(ctx, "friend invite rejected", "code", f.Code, "error", err)
			if err := m.store.DeleteFriend(ctx, f.LocalID); err != nil {
				return fmt.Errorf("%w: %w", common.ErrLocalStore, err)
			}
			res.Dropped++
			m.metrics.flushed("friend", "dropped")
		default:
			m.logger.Debug(ctx, "friend invite kept", "code", f.Code, "error", err)
			res.Kept++
			m.metrics.flushed("friend", "kept")
		}
	}
	return nil
}

func (m *Manager) flushInvites(ctx context.Context, identity string, res *FlushResult) error {
	pending, err := m.store.PendingLocalInvites(ctx, identity)
	if err != nil {
		return fmt.Errorf("%w: failed to list local group invites: %w", common.ErrLocalStore, err)
	}

	for _, inv := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		existing, err := m.remote.GetGroupInvite(ctx, inv.InviteID)
		if err == nil && existing == nil {
			_, err = m.remote.InviteToGroup(ctx, inv.GroupID, inv.ToID, inv.CreatedAt)
		}

		switch {
		case err == nil:
			if err := m.store.MarkInvitePushed(ctx, inv.InviteID, models.SourceInvitesOutgoing); err != nil {
				return fmt.Errorf("%w: %w", common.ErrLocalStore, err)
			}
			res.Sent++
			m.metrics.flushed("group_invite", "sent")
		case common.IsAuthFailure(err):
			return fmt.Errorf("group invite %s: %w", inv.InviteID, err)
		case errors.Is(err, common.ErrRemoteRejected):
			m.logger.Warn(ctx, "group invite rejected", "invite_id", inv.InviteID, "error", err)
			if err := m.store.DeleteInvite(ctx, inv.InviteID); err != nil {
				return fmt.Errorf("%w: %w", common.ErrLocalStore, err)
			}
			res.Dropped++
			m.metrics.flushed("group_invite", "dropped")
		default:
			m.logger.Debug(ctx, "group invite kept", "invite_id", inv.InviteID, "error", err)
			res.Kept++
			m.metrics.flushed("group_invite", "kept")
		}
	}
	return nil
}

// Package social stores the locally mirrored social graph: friend
// relations, group invites, groups and their members.
//
// Rows written by the streaming reconciler carry the name of the
// subscription that produced them (the source column). Applying a snapshot
// upserts its items and prunes only rows of the same source, which keeps
// rows created offline (empty source) out of reach until the server has
// seen them.
package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/timex"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) conn(ctx context.Context) dbx.DBTX {
	return dbx.From(ctx, r.db)
}

func (r *SQLiteRepository) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, _ dbx.DBTX) error {
		return fn(ctx)
	})
}

// notIn renders "AND column NOT IN (?, ...)" for ids, or "" when ids is
// empty so that every row matches.
func notIn(column string, ids []string) (string, []any) {
	if len(ids) == 0 {
		return "", nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return " AND " + column + " NOT IN (?" + strings.Repeat(", ?", len(ids)-1) + ")", args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMicros(t time.Time) sql.NullInt64 {
	return sql.NullInt64{Int64: timex.ToMicros(t), Valid: !t.IsZero()}
}

type scanner interface {
	Scan(dest ...any) error
}

// Friends.

const friendColumns = `local_id, remote_user_id, code, status, nickname, created_at, updated_at, source, queued_by`

func scanFriend(s scanner) (models.FriendRelation, error) {
	var (
		f                    models.FriendRelation
		remoteID, code       sql.NullString
		status               string
		createdAt, updatedAt sql.NullInt64
	)
	if err := s.Scan(&f.LocalID, &remoteID, &code, &status, &f.Nickname, &createdAt, &updatedAt, &f.Source, &f.QueuedBy); err != nil {
		return f, err
	}
	f.RemoteUserID = remoteID.String
	f.Code = code.String
	f.Status = models.FriendStatus(status)
	f.CreatedAt = timex.FromMicros(createdAt.Int64)
	f.UpdatedAt = timex.FromMicros(updatedAt.Int64)
	return f, nil
}

func (r *SQLiteRepository) listFriends(ctx context.Context, where string, args ...any) ([]models.FriendRelation, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT `+friendColumns+` FROM friends `+where+` ORDER BY created_at, local_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select friends: %w", err)
	}
	defer rows.Close()

	var result []models.FriendRelation
	for rows.Next() {
		f, err := scanFriend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend row: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friend rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) ListFriends(ctx context.Context) ([]models.FriendRelation, error) {
	return r.listFriends(ctx, "")
}

// PendingLocalFriends returns the invites identity created offline, and
// those queued while nobody was signed in, oldest first.
func (r *SQLiteRepository) PendingLocalFriends(ctx context.Context, identity string) ([]models.FriendRelation, error) {
	return r.listFriends(ctx, `WHERE status = 'PENDING_OUTGOING_LOCAL' AND queued_by IN (?, '')`, identity)
}

// AdoptLocalFriends assigns invites queued while signed out to identity.
func (r *SQLiteRepository) AdoptLocalFriends(ctx context.Context, identity string) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE friends SET queued_by = ? WHERE status = 'PENDING_OUTGOING_LOCAL' AND queued_by = ''`, identity)
	if err != nil {
		return fmt.Errorf("failed to adopt local friend invites: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertFriend(ctx context.Context, f models.FriendRelation) error {
	_, err := r.conn(ctx).ExecContext(ctx, `INSERT INTO friends (`+friendColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.LocalID, nullString(f.RemoteUserID), nullString(f.Code), string(f.Status), f.Nickname,
		nullMicros(f.CreatedAt), nullMicros(f.UpdatedAt), f.Source, f.QueuedBy)
	if err != nil {
		return fmt.Errorf("failed to insert friend %s: %w", f.LocalID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteFriend(ctx context.Context, localID string) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM friends WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("failed to delete friend %s: %w", localID, err)
	}
	return nil
}

// ResolveLocalFriend attaches the server identifiers to an invite created
// offline. When a snapshot already mirrored the same relation, the local row
// is simply dropped.
func (r *SQLiteRepository) ResolveLocalFriend(ctx context.Context, localID, remoteUserID string, status models.FriendStatus, source string) error {
	return r.atomically(ctx, func(ctx context.Context) error {
		var existing string
		err := r.conn(ctx).QueryRowContext(ctx,
			`SELECT local_id FROM friends WHERE remote_user_id = ? AND local_id <> ?`, remoteUserID, localID).Scan(&existing)
		switch {
		case err == nil:
			return r.DeleteFriend(ctx, localID)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up friend %s: %w", remoteUserID, err)
		}

		res, err := r.conn(ctx).ExecContext(ctx, `
			UPDATE friends SET remote_user_id = ?, status = ?, source = ?
			WHERE local_id = ? AND status = 'PENDING_OUTGOING_LOCAL'`,
			remoteUserID, string(status), source, localID)
		if err != nil {
			return fmt.Errorf("failed to resolve friend %s: %w", localID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return common.ErrorNotFound
		}
		return nil
	})
}

// ApplyFriendSnapshot mirrors a full friends snapshot of source. Relations
// are keyed by remote user id. A local-only invite survives unless the
// snapshot carries a relation with the same code, which replaces it.
func (r *SQLiteRepository) ApplyFriendSnapshot(ctx context.Context, source string, items []models.FriendRelation) error {
	return r.atomically(ctx, func(ctx context.Context) error {
		db := r.conn(ctx)
		keep := make([]string, 0, len(items))
		for _, f := range items {
			if f.RemoteUserID == "" {
				continue
			}
			keep = append(keep, f.RemoteUserID)

			if f.Code != "" {
				if _, err := db.ExecContext(ctx,
					`DELETE FROM friends WHERE status = 'PENDING_OUTGOING_LOCAL' AND code = ?`, f.Code); err != nil {
					return fmt.Errorf("failed to supersede local invite %s: %w", f.Code, err)
				}
			}

			_, err := db.ExecContext(ctx, `
				INSERT INTO friends (`+friendColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, '')
				ON CONFLICT(remote_user_id) DO UPDATE SET
					code = excluded.code,
					status = excluded.status,
					nickname = excluded.nickname,
					created_at = excluded.created_at,
					updated_at = excluded.updated_at,
					source = excluded.source`,
				f.RemoteUserID, f.RemoteUserID, nullString(f.Code), string(f.Status), f.Nickname,
				nullMicros(f.CreatedAt), nullMicros(f.UpdatedAt), source)
			if err != nil {
				return fmt.Errorf("failed to upsert friend %s: %w", f.RemoteUserID, err)
			}
		}

		clause, args := notIn("remote_user_id", keep)
		_, err := db.ExecContext(ctx,
			`DELETE FROM friends WHERE source = ? AND status <> 'PENDING_OUTGOING_LOCAL'`+clause,
			append([]any{source}, args...)...)
		if err != nil {
			return fmt.Errorf("failed to prune friends of %s: %w", source, err)
		}
		return nil
	})
}

// Group invites.

const inviteColumns = `invite_id, group_id, group_name_snapshot, from_id, to_id, status,
	created_at, responded_at, local_only, source`

func scanInvite(s scanner) (models.GroupInvite, error) {
	var (
		inv                    models.GroupInvite
		status                 string
		createdAt, respondedAt sql.NullInt64
		localOnly              int
	)
	if err := s.Scan(&inv.InviteID, &inv.GroupID, &inv.GroupNameSnapshot, &inv.FromID, &inv.ToID, &status,
		&createdAt, &respondedAt, &localOnly, &inv.Source); err != nil {
		return inv, err
	}
	inv.Status = models.InviteStatus(status)
	inv.CreatedAt = timex.FromMicros(createdAt.Int64)
	if respondedAt.Valid {
		t := timex.FromMicros(respondedAt.Int64)
		inv.RespondedAt = &t
	}
	inv.LocalOnly = localOnly != 0
	return inv, nil
}

func (r *SQLiteRepository) listInvites(ctx context.Context, where string, args ...any) ([]models.GroupInvite, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT `+inviteColumns+` FROM group_invites `+where+` ORDER BY created_at, invite_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select group invites: %w", err)
	}
	defer rows.Close()

	var result []models.GroupInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group invite row: %w", err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group invite rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) ListInvites(ctx context.Context) ([]models.GroupInvite, error) {
	return r.listInvites(ctx, "")
}

// PendingLocalInvites returns the group invites identity created offline.
func (r *SQLiteRepository) PendingLocalInvites(ctx context.Context, identity string) ([]models.GroupInvite, error) {
	return r.listInvites(ctx, `WHERE local_only = 1 AND from_id = ?`, identity)
}

func (r *SQLiteRepository) upsertInvite(ctx context.Context, inv models.GroupInvite, localOnly bool, source string) error {
	var respondedAt sql.NullInt64
	if inv.RespondedAt != nil {
		respondedAt = nullMicros(*inv.RespondedAt)
	}
	lo := 0
	if localOnly {
		lo = 1
	}
	_, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO group_invites (`+inviteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(invite_id) DO UPDATE SET
			group_id = excluded.group_id,
			group_name_snapshot = excluded.group_name_snapshot,
			from_id = excluded.from_id,
			to_id = excluded.to_id,
			status = excluded.status,
			created_at = excluded.created_at,
			responded_at = excluded.responded_at,
			local_only = excluded.local_only,
			source = excluded.source`,
		inv.InviteID, inv.GroupID, inv.GroupNameSnapshot, inv.FromID, inv.ToID, string(inv.Status),
		nullMicros(inv.CreatedAt), respondedAt, lo, source)
	if err != nil {
		return fmt.Errorf("failed to upsert group invite %s: %w", inv.InviteID, err)
	}
	return nil
}

// InsertLocalInvite queues an invite created offline. Re-creating the same
// invite (same group and recipient) is a no-op.
func (r *SQLiteRepository) InsertLocalInvite(ctx context.Context, inv models.GroupInvite) error {
	_, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO group_invites (`+inviteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 1, '')
		ON CONFLICT(invite_id) DO NOTHING`,
		inv.InviteID, inv.GroupID, inv.GroupNameSnapshot, inv.FromID, inv.ToID, string(inv.Status), nullMicros(inv.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert group invite %s: %w", inv.InviteID, err)
	}
	return nil
}

// MarkInvitePushed hands a local invite over to the subscription source.
func (r *SQLiteRepository) MarkInvitePushed(ctx context.Context, inviteID, source string) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE group_invites SET local_only = 0, source = ? WHERE invite_id = ? AND local_only = 1`, source, inviteID)
	if err != nil {
		return fmt.Errorf("failed to mark group invite %s pushed: %w", inviteID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteInvite(ctx context.Context, inviteID string) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM group_invites WHERE invite_id = ?`, inviteID); err != nil {
		return fmt.Errorf("failed to delete group invite %s: %w", inviteID, err)
	}
	return nil
}

// ApplyInviteSnapshot mirrors a full invites snapshot of source. Local-only
// invites with the same id are superseded; other local-only invites stay.
func (r *SQLiteRepository) ApplyInviteSnapshot(ctx context.Context, source string, items []models.GroupInvite) error {
	return r.atomically(ctx, func(ctx context.Context) error {
		keep := make([]string, 0, len(items))
		for _, inv := range items {
			keep = append(keep, inv.InviteID)
			if err := r.upsertInvite(ctx, inv, false, source); err != nil {
				return err
			}
		}
		clause, args := notIn("invite_id", keep)
		_, err := r.conn(ctx).ExecContext(ctx,
			`DELETE FROM group_invites WHERE source = ? AND local_only = 0`+clause,
			append([]any{source}, args...)...)
		if err != nil {
			return fmt.Errorf("failed to prune group invites of %s: %w", source, err)
		}
		return nil
	})
}

// Groups.

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT group_id, name, owner_id, created_at, updated_at, source FROM groups ORDER BY name, group_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select groups: %w", err)
	}
	defer rows.Close()

	var result []models.Group
	for rows.Next() {
		var (
			g                    models.Group
			createdAt, updatedAt sql.NullInt64
		)
		if err := rows.Scan(&g.GroupID, &g.Name, &g.OwnerID, &createdAt, &updatedAt, &g.Source); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		g.CreatedAt = timex.FromMicros(createdAt.Int64)
		g.UpdatedAt = timex.FromMicros(updatedAt.Int64)
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var (
		g                    models.Group
		createdAt, updatedAt sql.NullInt64
	)
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT group_id, name, owner_id, created_at, updated_at, source FROM groups WHERE group_id = ?`, groupID).
		Scan(&g.GroupID, &g.Name, &g.OwnerID, &createdAt, &updatedAt, &g.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", groupID, err)
	}
	g.CreatedAt = timex.FromMicros(createdAt.Int64)
	g.UpdatedAt = timex.FromMicros(updatedAt.Int64)
	return &g, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT group_id, user_id, nickname, role, joined_at, source FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to select members of %s: %w", groupID, err)
	}
	defer rows.Close()

	var result []models.GroupMember
	for rows.Next() {
		var (
			m        models.GroupMember
			joinedAt sql.NullInt64
		)
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Nickname, &m.Role, &joinedAt, &m.Source); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		m.JoinedAt = timex.FromMicros(joinedAt.Int64)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) upsertGroup(ctx context.Context, g models.Group, source string) error {
	_, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO groups (group_id, name, owner_id, created_at, updated_at, source) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			name = excluded.name,
			owner_id = excluded.owner_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		g.GroupID, g.Name, g.OwnerID, nullMicros(g.CreatedAt), nullMicros(g.UpdatedAt), source)
	if err != nil {
		return fmt.Errorf("failed to upsert group %s: %w", g.GroupID, err)
	}
	return nil
}

// RemoveGroup drops a group and its members from the mirror.
func (r *SQLiteRepository) RemoveGroup(ctx context.Context, groupID string) error {
	return r.atomically(ctx, func(ctx context.Context) error {
		db := r.conn(ctx)
		if _, err := db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, groupID); err != nil {
			return fmt.Errorf("failed to delete members of %s: %w", groupID, err)
		}
		if _, err := db.ExecContext(ctx, `DELETE FROM groups WHERE group_id = ?`, groupID); err != nil {
			return fmt.Errorf("failed to delete group %s: %w", groupID, err)
		}
		return nil
	})
}

// ApplyMembershipSnapshot mirrors the groups the identity belongs to and
// returns the ids of groups it no longer belongs to; those are removed
// together with their members.
func (r *SQLiteRepository) ApplyMembershipSnapshot(ctx context.Context, source string, groups []models.Group) ([]string, error) {
	var removed []string
	err := r.atomically(ctx, func(ctx context.Context) error {
		keep := make([]string, 0, len(groups))
		for _, g := range groups {
			keep = append(keep, g.GroupID)
			if err := r.upsertGroup(ctx, g, source); err != nil {
				return err
			}
		}

		clause, args := notIn("group_id", keep)
		rows, err := r.conn(ctx).QueryContext(ctx,
			`SELECT group_id FROM groups WHERE source = ?`+clause, append([]any{source}, args...)...)
		if err != nil {
			return fmt.Errorf("failed to select stale groups: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan stale group: %w", err)
			}
			removed = append(removed, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate stale groups: %w", err)
		}

		for _, id := range removed {
			if err := r.RemoveGroup(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ApplyGroupSnapshot mirrors one group's metadata and member list. Members
// are keyed by (group id, user id) and tagged with source.
func (r *SQLiteRepository) ApplyGroupSnapshot(ctx context.Context, source string, group models.Group, members []models.GroupMember) error {
	return r.atomically(ctx, func(ctx context.Context) error {
		db := r.conn(ctx)
		if err := r.upsertGroup(ctx, group, models.SourceMemberships); err != nil {
			return err
		}

		keep := make([]string, 0, len(members))
		for _, m := range members {
			keep = append(keep, m.UserID)
			_, err := db.ExecContext(ctx, `
				INSERT INTO group_members (group_id, user_id, nickname, role, joined_at, source) VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(group_id, user_id) DO UPDATE SET
					nickname = excluded.nickname,
					role = excluded.role,
					joined_at = excluded.joined_at,
					source = excluded.source`,
				group.GroupID, m.UserID, m.Nickname, m.Role, nullMicros(m.JoinedAt), source)
			if err != nil {
				return fmt.Errorf("failed to upsert member %s of %s: %w", m.UserID, group.GroupID, err)
			}
		}

		clause, args := notIn("user_id", keep)
		_, err := db.ExecContext(ctx,
			`DELETE FROM group_members WHERE group_id = ? AND source = ?`+clause,
			append([]any{group.GroupID, source}, args...)...)
		if err != nil {
			return fmt.Errorf("failed to prune members of %s: %w", group.GroupID, err)
		}
		return nil
	})
}

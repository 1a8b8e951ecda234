package models

import "time"

// FriendStatus is the canonical state of a friend relation.
type FriendStatus string

const (
	FriendAccepted        FriendStatus = "ACCEPTED"
	FriendPendingIncoming FriendStatus = "PENDING_INCOMING"
	FriendPendingOutgoing FriendStatus = "PENDING_OUTGOING"
	// FriendPendingOutgoingLocal is an invite created offline that the server
	// has not seen yet. It is the only status a failed flush may delete.
	FriendPendingOutgoingLocal FriendStatus = "PENDING_OUTGOING_LOCAL"
)

// FriendRelation mirrors one of the identity's friend relations.
type FriendRelation struct {
	LocalID string
	// RemoteUserID is empty until the server resolves the relation.
	RemoteUserID string
	// Code is the friend code the invite was addressed to, if any.
	Code      string
	Status    FriendStatus
	Nickname  string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Source is the subscription that mirrored the row; empty for rows that
	// exist only locally.
	Source string
	// QueuedBy is the identity that created an offline invite. Empty when
	// it was queued signed out; the next identity to flush adopts it.
	QueuedBy string
}

// InviteStatus is the state of a group invite.
type InviteStatus string

const (
	InvitePending   InviteStatus = "PENDING"
	InviteAccepted  InviteStatus = "ACCEPTED"
	InviteCancelled InviteStatus = "CANCELLED"
)

// GroupInvite is an invitation of ToID into GroupID.
type GroupInvite struct {
	InviteID          string
	GroupID           string
	GroupNameSnapshot string
	FromID            string
	ToID              string
	Status            InviteStatus
	CreatedAt         time.Time
	RespondedAt       *time.Time
	// LocalOnly marks an invite created offline and not yet pushed.
	LocalOnly bool
	Source    string
}

// InviteID builds the deterministic invite id for a group and recipient, so
// re-creating the same invite is idempotent.
func InviteID(groupID, toID string) string {
	return groupID + "_" + toID
}

// Group is the mirrored metadata of a group the identity belongs to.
type Group struct {
	GroupID   string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Source    string
}

// GroupMember is one member of a mirrored group.
type GroupMember struct {
	GroupID  string
	UserID   string
	Nickname string
	Role     string
	JoinedAt time.Time
	Source   string
}

// Subscription sources. Every mirrored row is tagged with the subscription
// that wrote it, so a snapshot only prunes its own rows.
const (
	SourceFriends         = "friends"
	SourceInvitesIncoming = "invites_incoming"
	SourceInvitesOutgoing = "invites_outgoing"
	SourceMemberships     = "memberships"
)

// GroupSource is the source tag of the per-group subscription.
func GroupSource(groupID string) string {
	return "group:" + groupID
}

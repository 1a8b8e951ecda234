package models

import "time"

const (
	FriendAccepted        = "ACCEPTED"
	FriendPendingIncoming = "PENDING_INCOMING"
	FriendPendingOutgoing = "PENDING_OUTGOING"
)

const (
	InvitePending   = "PENDING"
	InviteAccepted  = "ACCEPTED"
	InviteCancelled = "CANCELLED"
)

const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

// FriendRelation is one side of a friendship, as seen by UserID. Every
// relation is stored twice, once per side.
type FriendRelation struct {
	UserID   string
	FriendID string
	// Code and Nickname describe the friend.
	Code      string
	Nickname  string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Group struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GroupMember struct {
	GroupID  string
	UserID   string
	Nickname string
	Role     string
	JoinedAt time.Time
}

type GroupInvite struct {
	ID          string
	GroupID     string
	GroupName   string
	FromID      string
	ToID        string
	Status      string
	CreatedAt   time.Time
	RespondedAt *time.Time
}

// InviteID is the deterministic id of the invite of toID into groupID.
func InviteID(groupID, toID string) string {
	return groupID + "_" + toID
}

// Collections a client can subscribe to.
const (
	CollectionFriends         = "friends"
	CollectionInvitesIncoming = "invites_incoming"
	CollectionInvitesOutgoing = "invites_outgoing"
	CollectionMemberships     = "memberships"
	CollectionGroup           = "group"
)

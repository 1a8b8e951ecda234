package wire

import "time"

// Subscription collections.
const (
	CollectionFriends         = "friends"
	CollectionInvitesIncoming = "invites_incoming"
	CollectionInvitesOutgoing = "invites_outgoing"
	CollectionMemberships     = "memberships"
	CollectionGroup           = "group"
)

type Empty struct{}

type Record struct {
	ID        string
	OwnerID   string
	Scope     string
	GroupID   string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

type UpsertRecordRequest struct {
	Domain string
	Record Record
}

// UpsertRecordResponse carries the timestamp the server stored.
type UpsertRecordResponse struct {
	UpdatedAt time.Time
}

type DeleteRecordRequest struct {
	Domain string
	ID     string
}

type DeleteRecordResponse struct {
	UpdatedAt time.Time
}

// ChangedSinceRequest asks for one page of records of a partition changed
// after the keyset (After, AfterID). An empty AfterID means strictly after
// After.
type ChangedSinceRequest struct {
	Domain   string
	Scope    string
	AnchorID string
	After    time.Time
	AfterID  string
	Limit    int
}

type ChangedSinceResponse struct {
	Records []Record
}

type RegisterRequest struct {
	Username string
	Password string
}

type RegisterResponse struct {
	UserID string
	// FriendCode is empty when allocation failed; AllocateCode retries it.
	FriendCode string
}

type LoginRequest struct {
	Username string
	Password string
}

type LoginResponse struct {
	UserID      string
	AccessToken string
}

type AllocateCodeResponse struct {
	Code string
}

type PingResponse struct {
	Status string
}

type FriendRelation struct {
	UserID    string
	Code      string
	Status    string
	Nickname  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SendFriendInviteRequest struct {
	Code            string
	ClientCreatedAt time.Time
}

type FriendRelationResponse struct {
	Relation FriendRelation
}

type FriendRequest struct {
	UserID string
}

type FindOutgoingInviteRequest struct {
	Code string
}

type FindOutgoingInviteResponse struct {
	Found    bool
	Relation FriendRelation
}

type Group struct {
	GroupID   string
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
	InviteID    string
	GroupID     string
	GroupName   string
	FromID      string
	ToID        string
	Status      string
	CreatedAt   time.Time
	RespondedAt *time.Time
}

type CreateGroupRequest struct {
	Name string
}

type GroupResponse struct {
	Group Group
}

type ListGroupsResponse struct {
	Groups []Group
}

type InviteToGroupRequest struct {
	GroupID         string
	ToID            string
	ClientCreatedAt time.Time
}

type GroupInviteRequest struct {
	InviteID string
}

type GroupInviteResponse struct {
	Found  bool
	Invite GroupInvite
}

type LeaveGroupRequest struct {
	GroupID string
}

type SubscribeRequest struct {
	Collection string
	GroupID    string
}

// Snapshot is the full current content of one subscribed collection.
type Snapshot struct {
	Collection string
	GroupID    string
	Friends    []FriendRelation
	Invites    []GroupInvite
	Groups     []Group
	// Group and Members are set for the group collection.
	Group   *Group
	Members []GroupMember
}

// Package models defines client-side data models used by the PlayKeeper
// engine and CLI.
package models

import (
	"time"
)

// SyncStatus is the lifecycle state of a locally cached record.
type SyncStatus string

const (
	// StatusClean means the local copy matches the last observed remote copy.
	StatusClean SyncStatus = "CLEAN"
	// StatusPending marks a local edit not yet acknowledged by the server.
	StatusPending SyncStatus = "PENDING"
	// StatusDeleted marks a local deletion waiting to be pushed.
	StatusDeleted SyncStatus = "DELETED"
	// StatusConflict is set by a pull that found a newer remote version of a
	// pending record. Only explicit resolution clears it.
	StatusConflict SyncStatus = "CONFLICT"
)

// Scope tells whether a record is anchored to a user or to a group.
type Scope string

const (
	ScopePersonal Scope = "PERSONAL"
	ScopeGroup    Scope = "GROUP"
)

// Domain names a batch-reconciled record collection. It doubles as the local
// table name and the remote collection name.
type Domain string

const (
	DomainSessions     Domain = "sessions"
	DomainLibraryItems Domain = "library_items"
)

// Domains lists every batch domain in the order the scheduler syncs them.
var Domains = []Domain{DomainSessions, DomainLibraryItems}

// Valid reports whether d is a known batch domain.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// Record is the envelope shared by every batch domain. The domain payload is
// kept msgpack-encoded so that stores and reconcilers stay payload agnostic.
type Record struct {
	// ID is stable across local and remote copies.
	ID string
	// OwnerID is empty for records created before authentication.
	OwnerID string
	Scope   Scope
	// GroupID is set iff Scope is ScopeGroup.
	GroupID string

	Payload []byte

	// CreatedAt and UpdatedAt stay zero until first set.
	CreatedAt time.Time
	UpdatedAt time.Time

	IsDeleted bool
	DeletedAt *time.Time

	SyncStatus SyncStatus

	// ConflictPayload and ConflictUpdatedAt keep the remote version that
	// flagged the record as CONFLICT, so it can be resolved offline.
	ConflictPayload   []byte
	ConflictUpdatedAt time.Time
}

// Anchor returns the owner or group id the record is pushed under, or ""
// when it has none yet.
func (r *Record) Anchor() string {
	if r.Scope == ScopeGroup {
		return r.GroupID
	}
	return r.OwnerID
}

// Partition identifies one pull stream of a domain: the identity's personal
// records or one group's records.
type Partition struct {
	Scope Scope
	// ID is the owner id for personal partitions, the group id otherwise.
	ID string
}

// PersonalPartitionKey is the cursor key used for the personal partition.
const PersonalPartitionKey = "personal"

// Key returns the cursor store key for the partition.
func (p Partition) Key() string {
	if p.Scope == ScopeGroup {
		return p.ID
	}
	return PersonalPartitionKey
}

// PullAction is what a pull does with one incoming remote record.
type PullAction int

const (
	PullSkip PullAction = iota
	PullInsert
	PullOverwrite
	PullMarkConflict
	PullHardDelete
)

func (a PullAction) String() string {
	switch a {
	case PullInsert:
		return "insert"
	case PullOverwrite:
		return "overwrite"
	case PullMarkConflict:
		return "conflict"
	case PullHardDelete:
		return "hard_delete"
	default:
		return "skip"
	}
}

// Keyset is a position in a partition's change feed ordered by
// (UpdatedAt, ID). An empty AfterID means strictly after After.
type Keyset struct {
	After   time.Time
	AfterID string
}

// CursorKey addresses one persisted pull cursor.
type CursorKey struct {
	Identity  string
	Domain    Domain
	Partition string
}

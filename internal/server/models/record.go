package models

import "time"

const (
	ScopePersonal = "PERSONAL"
	ScopeGroup    = "GROUP"
)

const (
	DomainSessions     = "sessions"
	DomainLibraryItems = "library_items"
)

// ValidDomain reports whether domain names a record collection the server
// stores.
func ValidDomain(domain string) bool {
	return domain == DomainSessions || domain == DomainLibraryItems
}

// Record is the stored copy of a batch domain record. UpdatedAt is stamped
// by the server and orders the change feed; ClientUpdatedAt is the edit
// time the client sent and decides last-writer-wins.
type Record struct {
	Domain          string
	ID              string
	OwnerID         string
	Scope           string
	GroupID         string
	Payload         []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClientUpdatedAt time.Time
	IsDeleted       bool
	DeletedAt       *time.Time
}

// Anchor is the owner of a personal record or the group of a group record.
func (r *Record) Anchor() string {
	if r.Scope == ScopeGroup {
		return r.GroupID
	}
	return r.OwnerID
}

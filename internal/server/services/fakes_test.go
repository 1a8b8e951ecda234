package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/playkeeper/internal/codes"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/dbx"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/social"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// store is an in-memory stand-in for the Postgres schema. Every fake
// repository shares it, whatever DBTX it was bound to.
type store struct {
	mu sync.Mutex

	users    map[string]*models.User
	profiles map[string]*models.Profile
	codes    map[string]string

	records   map[string]*models.Record
	relations map[[2]string]*models.FriendRelation
	groups    map[string]*models.Group
	members   map[string][]models.GroupMember
	invites   map[string]*models.GroupInvite
	locked    []string

	clock   time.Time
	nextID  int
	takeFor int
	codeErr error
}

func newStore() *store {
	return &store{
		users:     map[string]*models.User{},
		profiles:  map[string]*models.Profile{},
		codes:     map[string]string{},
		records:   map[string]*models.Record{},
		relations: map[[2]string]*models.FriendRelation{},
		groups:    map[string]*models.Group{},
		members:   map[string][]models.GroupMember{},
		invites:   map[string]*models.GroupInvite{},
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *store) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%d", prefix, s.nextID)
}

type fakeManager struct{ s *store }

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository            { return (*fakeUsers)(m.s) }
func (m *fakeManager) Records(dbx.DBTX) records.Repository        { return (*fakeRecords)(m.s) }
func (m *fakeManager) Social(dbx.DBTX) social.Repository          { return (*fakeSocial)(m.s) }
func (m *fakeManager) CodeIndex(*sql.DB) codes.Index              { return (*fakeCodes)(m.s) }

type fakeUsers store

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.UserName == u.UserName {
			return nil, common.ErrAlreadyExists
		}
	}
	u.ID = "id-" + u.UserName
	u.CreatedAt = s.tick()
	cp := *u
	s.users[u.ID] = &cp
	s.profiles[u.ID] = &models.Profile{UserID: u.ID, Nickname: u.UserName}
	return u, nil
}

func (f *fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UserName == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeUsers) GetProfileByCode(_ context.Context, code string) (*models.Profile, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.FriendCode != "" && p.FriendCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeCodes store

func (f *fakeCodes) Claim(_ context.Context, code, ownerID string) error {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codeErr != nil {
		return s.codeErr
	}
	if s.takeFor > 0 {
		s.takeFor--
		return common.ErrCodeTaken
	}
	if _, taken := s.codes[code]; taken {
		return common.ErrCodeTaken
	}
	s.codes[code] = ownerID
	s.profiles[ownerID].FriendCode = code
	return nil
}

type fakeRecords store

func recordKey(domain, id string) string { return domain + "/" + id }

func (f *fakeRecords) Get(_ context.Context, domain, id string) (*models.Record, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordKey(domain, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) LockPartition(_ context.Context, domain, scope, anchorID string) error {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = append(s.locked, domain+"/"+scope+"/"+anchorID)
	return nil
}

func (f *fakeRecords) Upsert(_ context.Context, rec *models.Record) (time.Time, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey(rec.Domain, rec.ID)
	if stored, ok := s.records[key]; ok && stored.ClientUpdatedAt.After(rec.ClientUpdatedAt) {
		return time.Time{}, common.ErrVersionConflict
	}
	cp := *rec
	cp.UpdatedAt = s.tick()
	cp.IsDeleted, cp.DeletedAt = false, nil
	s.records[key] = &cp
	return cp.UpdatedAt, nil
}

func (f *fakeRecords) SoftDelete(_ context.Context, domain, id string) (time.Time, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordKey(domain, id)]
	if !ok {
		return time.Time{}, common.ErrorNotFound
	}
	rec.UpdatedAt = s.tick()
	rec.IsDeleted = true
	at := rec.UpdatedAt
	rec.DeletedAt = &at
	return rec.UpdatedAt, nil
}

func (f *fakeRecords) ChangedSince(_ context.Context, feed records.Feed) ([]models.Record, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Record
	for _, rec := range s.records {
		if rec.Domain != feed.Domain || rec.Scope != feed.Scope || rec.Anchor() != feed.AnchorID {
			continue
		}
		if rec.UpdatedAt.After(feed.After) || (feed.AfterID != "" && rec.UpdatedAt.Equal(feed.After) && rec.ID > feed.AfterID) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > feed.Limit {
		out = out[:feed.Limit]
	}
	return out, nil
}

type fakeSocial store

func (f *fakeSocial) relation(userID, friendID string) *models.FriendRelation {
	s := (*store)(f)
	rel, ok := s.relations[[2]string{userID, friendID}]
	if !ok {
		return nil
	}
	cp := *rel
	if p := s.profiles[friendID]; p != nil {
		cp.Code, cp.Nickname = p.FriendCode, p.Nickname
	}
	return &cp
}

func (f *fakeSocial) GetRelation(_ context.Context, userID, friendID string) (*models.FriendRelation, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if rel := f.relation(userID, friendID); rel != nil {
		return rel, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSocial) InsertRelationPair(_ context.Context, fromID, toID string, createdAt time.Time) error {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	s.relations[[2]string{fromID, toID}] = &models.FriendRelation{UserID: fromID, FriendID: toID, Status: models.FriendPendingOutgoing, CreatedAt: createdAt, UpdatedAt: now}
	s.relations[[2]string{toID, fromID}] = &models.FriendRelation{UserID: toID, FriendID: fromID, Status: models.FriendPendingIncoming, CreatedAt: createdAt, UpdatedAt: now}
	return nil
}

func (f *fakeSocial) SetRelationPairStatus(_ context.Context, userID, friendID, status string) error {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, k := range [][2]string{{userID, friendID}, {friendID, userID}} {
		if rel, ok := s.relations[k]; ok {
			rel.Status = status
			found = true
		}
	}
	if !found {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeSocial) DeleteRelationPair(_ context.Context, userID, friendID string) (bool, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.relations[[2]string{userID, friendID}]
	delete(s.relations, [2]string{userID, friendID})
	delete(s.relations, [2]string{friendID, userID})
	return ok, nil
}

func (f *fakeSocial) ListFriends(_ context.Context, userID string) ([]models.FriendRelation, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FriendRelation
	for k := range s.relations {
		if k[0] == userID {
			out = append(out, *f.relation(k[0], k[1]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FriendID < out[j].FriendID })
	return out, nil
}

func (f *fakeSocial) FindOutgoingByCode(_ context.Context, userID, code string) (*models.FriendRelation, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.relations {
		if k[0] != userID {
			continue
		}
		if p := s.profiles[k[1]]; p != nil && p.FriendCode == code {
			return f.relation(k[0], k[1]), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSocial) CreateGroup(_ context.Context, name, ownerID string) (*models.Group, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	g := &models.Group{ID: s.id("g"), Name: name, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	s.groups[g.ID] = g
	s.members[g.ID] = []models.GroupMember{{GroupID: g.ID, UserID: ownerID, Role: models.RoleOwner, JoinedAt: now}}
	cp := *g
	return &cp, nil
}

func (f *fakeSocial) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeSocial) ListGroupsFor(_ context.Context, userID string) ([]models.Group, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Group
	for id, members := range s.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, *s.groups[id])
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSocial) ListMembers(_ context.Context, groupID string) ([]models.GroupMember, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GroupMember(nil), s.members[groupID]...), nil
}

func (f *fakeSocial) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[groupID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSocial) AddMember(ctx context.Context, groupID, userID, role string) error {
	if ok, _ := f.IsMember(ctx, groupID, userID); ok {
		return nil
	}
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[groupID] = append(s.members[groupID], models.GroupMember{GroupID: groupID, UserID: userID, Role: role, JoinedAt: s.tick()})
	return nil
}

func (f *fakeSocial) RemoveMember(_ context.Context, groupID, userID string) (bool, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[groupID]
	for i, m := range members {
		if m.UserID == userID {
			s.members[groupID] = append(members[:i:i], members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSocial) SetOwner(_ context.Context, groupID, userID string) error {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return common.ErrorNotFound
	}
	g.OwnerID = userID
	for i := range s.members[groupID] {
		m := &s.members[groupID][i]
		m.Role = models.RoleMember
		if m.UserID == userID {
			m.Role = models.RoleOwner
		}
	}
	return nil
}

func (f *fakeSocial) UpsertInvite(_ context.Context, inv *models.GroupInvite) error {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.invites[inv.ID]; ok && stored.Status == models.InvitePending {
		return nil
	}
	cp := *inv
	cp.Status = models.InvitePending
	cp.RespondedAt = nil
	cp.GroupName = s.groups[inv.GroupID].Name
	s.invites[inv.ID] = &cp
	return nil
}

func (f *fakeSocial) GetInvite(_ context.Context, inviteID string) (*models.GroupInvite, error) {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[inviteID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeSocial) SetInviteStatus(_ context.Context, inviteID, status string) error {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[inviteID]
	if !ok {
		return common.ErrorNotFound
	}
	at := s.tick()
	inv.Status, inv.RespondedAt = status, &at
	return nil
}

func (f *fakeSocial) listInvites(match func(*models.GroupInvite) bool) []models.GroupInvite {
	s := (*store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GroupInvite
	for _, inv := range s.invites {
		if inv.Status == models.InvitePending && match(inv) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeSocial) ListInvitesTo(_ context.Context, userID string) ([]models.GroupInvite, error) {
	return f.listInvites(func(inv *models.GroupInvite) bool { return inv.ToID == userID }), nil
}

func (f *fakeSocial) ListInvitesFrom(_ context.Context, userID string) ([]models.GroupInvite, error) {
	return f.listInvites(func(inv *models.GroupInvite) bool { return inv.FromID == userID }), nil
}

// newTxDB returns a sqlmock database that accepts any number of
// transactions. The fakes ignore the handle they are bound to.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 64; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

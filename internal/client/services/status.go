package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/records"
)

// Status is all the UI is told about syncing: how many local changes wait
// for a push, when every domain last synced completely and whether the
// latest run of any domain failed.
type Status struct {
	Pending int
	// LastSuccessfulSync is the oldest of the per-domain timestamps, zero
	// when some domain never completed a run.
	LastSuccessfulSync time.Time
	LastRunFailed      bool
}

type StatusService struct {
	repos map[models.Domain]*records.SQLiteRepository
	meta  *metadata.SQLiteRepository
}

func NewStatusService(repos map[models.Domain]*records.SQLiteRepository, meta *metadata.SQLiteRepository) *StatusService {
	return &StatusService{repos: repos, meta: meta}
}

func (s *StatusService) Status(ctx context.Context) (Status, error) {
	var st Status

	v, err := s.meta.Get(ctx, metadata.KeyIdentity)
	if err != nil {
		return st, err
	}
	identity := string(v)

	first := true
	for _, d := range models.Domains {
		repo, ok := s.repos[d]
		if !ok {
			continue
		}
		n, err := repo.CountPending(ctx, identity)
		if err != nil {
			return st, err
		}
		st.Pending += n

		if identity == "" {
			continue
		}
		last, err := s.meta.LastSuccessfulSync(ctx, identity, string(d))
		if err != nil {
			return st, err
		}
		if first || last.Before(st.LastSuccessfulSync) {
			st.LastSuccessfulSync = last
			first = false
		}
		failed, err := s.meta.LastRunFailed(ctx, identity, string(d))
		if err != nil {
			return st, err
		}
		st.LastRunFailed = st.LastRunFailed || failed
	}
	return st, nil
}

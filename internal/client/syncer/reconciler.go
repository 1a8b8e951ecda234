// Package syncer implements the sync state machine and the incremental batch
// reconciler for owner- and group-scoped records.
//
// One Reconciler serves one domain. A run adopts records created before
// login, pushes local changes best-effort and then pulls remote changes per
// partition (the identity's personal records, then each group), advancing
// the partition cursor only after the whole partition was applied.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
)

const DefaultPageSize = 200

// Result summarises one Sync run.
type Result struct {
	Adopted        int
	Pushed         int
	PushFailed     int
	PulledPersonal int
	PulledByGroup  map[string]int
	Conflicts      int
}

// Complete reports whether every pending record was pushed.
func (r Result) Complete() bool {
	return r.PushFailed == 0
}

type Reconciler struct {
	domain   models.Domain
	local    LocalStore
	remote   RemoteStore
	groups   GroupMembership
	cursors  CursorStore
	runs     RunRecorder
	metrics  *Metrics
	pageSize int
	logger   logging.Logger
	now      func() time.Time
}

func NewReconciler(domain models.Domain, local LocalStore, remote RemoteStore, groups GroupMembership,
	cursors CursorStore, logger logging.Logger) *Reconciler {
	return &Reconciler{
		domain:   domain,
		local:    local,
		remote:   remote,
		groups:   groups,
		cursors:  cursors,
		pageSize: DefaultPageSize,
		logger:   logger.With("module", "syncer", "domain", string(domain)),
		now:      time.Now,
	}
}

func (r *Reconciler) WithPageSize(n int) *Reconciler {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

func (r *Reconciler) WithMetrics(m *Metrics) *Reconciler {
	r.metrics = m
	return r
}

func (r *Reconciler) WithRunRecorder(rr RunRecorder) *Reconciler {
	r.runs = rr
	return r
}

func (r *Reconciler) Domain() models.Domain { return r.domain }

// ErrIncomplete is recorded for runs that left records unpushed.
var ErrIncomplete = errors.New("some records were not pushed")

func localErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", common.ErrLocalStore, op, err)
}

// Sync runs one push-then-pull cycle for identity. Per-record push failures
// are counted in Result.PushFailed and do not fail the run. Local store
// failures and pull failures abort the run; cursors of partitions not fully
// applied stay where they were.
//
// Sync must not run concurrently for the same identity and domain.
func (r *Reconciler) Sync(ctx context.Context, identity string) (Result, error) {
	started := r.now()
	res := Result{PulledByGroup: map[string]int{}}

	err := r.sync(ctx, identity, &res)

	r.metrics.observe(string(r.domain), res, r.now().Sub(started).Seconds(), err)

	if r.runs != nil && identity != "" {
		runErr := err
		if runErr == nil && !res.Complete() {
			runErr = fmt.Errorf("%w: %d failed", ErrIncomplete, res.PushFailed)
		}
		if recErr := r.runs.RecordRun(ctx, identity, string(r.domain), r.now(), runErr); recErr != nil {
			r.logger.Warn(ctx, "failed to record sync run", "error", recErr)
		}
	}

	if err != nil {
		r.logger.Error(ctx, "sync failed", "identity", identity, "error", err)
		return res, err
	}
	r.logger.Info(ctx, "sync finished",
		"identity", identity,
		"adopted", res.Adopted,
		"pushed", res.Pushed,
		"push_failed", res.PushFailed,
		"pulled_personal", res.PulledPersonal,
		"groups", len(res.PulledByGroup),
		"conflicts", res.Conflicts)
	return res, nil
}

func (r *Reconciler) sync(ctx context.Context, identity string, res *Result) error {
	if identity == "" {
		return fmt.Errorf("%w: empty identity", common.ErrInvalidArgument)
	}

	adopted, err := r.local.AdoptOrphans(ctx, identity)
	if err != nil {
		return localErr("adopt orphans", err)
	}
	res.Adopted = adopted

	if err := r.push(ctx, identity, res); err != nil {
		return err
	}

	n, conflicts, err := r.pull(ctx, identity, models.Partition{Scope: models.ScopePersonal, ID: identity})
	res.PulledPersonal = n
	res.Conflicts += conflicts
	if err != nil {
		return err
	}

	groupIDs, err := r.groups.GroupIDsFor(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	for _, gid := range groupIDs {
		n, conflicts, err := r.pull(ctx, identity, models.Partition{Scope: models.ScopeGroup, ID: gid})
		res.PulledByGroup[gid] = n
		res.Conflicts += conflicts
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) push(ctx context.Context, identity string, res *Result) error {
	pending, err := r.local.GetPending(ctx, identity)
	if err != nil {
		return localErr("list pending records", err)
	}

	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.Anchor() == "" {
			r.logger.Debug(ctx, "skipping record without anchor", "id", rec.ID, "error", common.ErrNoOwnerAnchor)
			continue
		}

		var (
			serverTS time.Time
			pushErr  error
		)
		if rec.SyncStatus == models.StatusDeleted {
			serverTS, pushErr = r.remote.SoftDelete(ctx, r.domain, rec.ID)
		} else {
			serverTS, pushErr = r.remote.Upsert(ctx, r.domain, rec)
		}
		if pushErr != nil {
			res.PushFailed++
			r.logger.Warn(ctx, "push failed", "domain", string(r.domain), "id", rec.ID, "error", pushErr)
			continue
		}

		if err := r.local.MarkPushed(ctx, rec, serverTS); err != nil {
			return localErr("mark record pushed", err)
		}
		res.Pushed++
	}
	return nil
}

// pull applies every change of one partition newer than its cursor and
// returns how many remote records it applied.
func (r *Reconciler) pull(ctx context.Context, identity string, p models.Partition) (applied, conflicts int, err error) {
	key := models.CursorKey{Identity: identity, Domain: r.domain, Partition: p.Key()}
	cursor, err := r.cursors.Get(ctx, key)
	if err != nil {
		return 0, 0, localErr("read cursor", err)
	}

	from := models.Keyset{After: cursor}
	newest := cursor
	for {
		page, err := r.remote.FetchChangedSince(ctx, r.domain, p, from, r.pageSize)
		if err != nil {
			return applied, conflicts, fmt.Errorf("failed to fetch %s changes of %s: %w", r.domain, p.Key(), err)
		}

		for _, remote := range page {
			action, err := r.local.ApplyRemote(ctx, remote, DecidePull)
			if err != nil {
				return applied, conflicts, localErr("apply remote record "+remote.ID, err)
			}
			applied++
			if action == models.PullMarkConflict {
				conflicts++
				r.logger.Warn(ctx, "record in conflict", "id", remote.ID)
			} else {
				r.logger.Debug(ctx, "applied remote record", "id", remote.ID, "action", action.String())
			}
			if remote.UpdatedAt.After(newest) {
				newest = remote.UpdatedAt
			}
			from = models.Keyset{After: remote.UpdatedAt, AfterID: remote.ID}
		}

		if len(page) < r.pageSize {
			break
		}
	}

	if newest.After(cursor) {
		if err := r.cursors.Advance(ctx, key, newest); err != nil {
			return applied, conflicts, localErr("advance cursor", err)
		}
	}
	return applied, conflicts, nil
}

package matching

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// recheckFunc re-runs the full check for one dependent and returns the
// labeled copy with the match case behind its label.
type recheckFunc[T any] func(ctx context.Context, dependent *T) (*T, models.MatchCase, error)

type lockFunc[T any] func(ctx context.Context, record *T) (func(context.Context) error, error)

// ReevaluateAccountDependents re-checks every account in the project whose
// duplicate_of points at updatedID and persists the new labels. Failures do
// not stop siblings; they are returned together as a *CascadeError alongside
// the result of every dependent that succeeded.
func (s *Service) ReevaluateAccountDependents(ctx context.Context, updatedID string, projectID string) (*CascadeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.ReevaluateAccountDependents")
	defer span.End()

	spec := accountSpec()
	opts := s.cfg.DefaultOptions()
	recheck := func(ctx context.Context, dep *models.Account) (*models.Account, models.MatchCase, error) {
		result, err := s.CheckAccount(ctx, dep, &opts)
		if err != nil {
			return nil, models.MatchCaseNone, err
		}
		return result.Record, result.MatchCase(), nil
	}
	dispositionOf := func(a *models.Account) models.Disposition { return a.Disposition }

	return reevaluate(ctx, s, spec, s.stores.Accounts, updatedID, projectID, dispositionOf, s.LockAccount, recheck)
}

// ReevaluateContactDependents re-checks every contact in the project whose
// duplicate_of points at updatedID and persists the new labels, with the same
// failure policy as ReevaluateAccountDependents.
func (s *Service) ReevaluateContactDependents(ctx context.Context, updatedID string, projectID string) (*CascadeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.ReevaluateContactDependents")
	defer span.End()

	spec := contactSpec()
	opts := s.cfg.DefaultOptions()
	recheck := func(ctx context.Context, dep *models.Contact) (*models.Contact, models.MatchCase, error) {
		result, err := s.CheckContact(ctx, dep, &opts)
		if err != nil {
			return nil, models.MatchCaseNone, err
		}
		return result.Record, result.MatchCase(), nil
	}
	dispositionOf := func(c *models.Contact) models.Disposition { return c.Disposition }

	return reevaluate(ctx, s, spec, s.stores.Contacts, updatedID, projectID, dispositionOf, s.LockContact, recheck)
}

func reevaluate[T, K, S any](
	ctx context.Context,
	s *Service,
	spec kindSpec[T, K, S],
	store RecordStore[T],
	updatedID string,
	projectID string,
	dispositionOf func(*T) models.Disposition,
	lock lockFunc[T],
	recheck recheckFunc[T],
) (*CascadeResult, error) {
	log := s.log.WithContext(ctx).WithFields(map[string]any{
		"kind":       spec.kind,
		"record_id":  updatedID,
		"project_id": projectID,
	})

	dependents, err := store.ListByDuplicateOf(ctx, projectID, updatedID)
	if err != nil {
		log.WithError(err).Error("Failed to list dependents")
		return nil, dedupeFailure(spec.kind, "listing dependents", err)
	}

	result := &CascadeResult{
		Kind:       spec.kind,
		RecordID:   updatedID,
		ProjectID:  projectID,
		Dependents: len(dependents),
		Relabeled:  make([]Relabel, 0, len(dependents)),
	}
	if len(dependents) == 0 {
		return result, nil
	}

	var (
		mu       sync.Mutex
		failures []DependentFailure
		g        errgroup.Group
	)
	g.SetLimit(s.cfg.cascadeLimit())

	for i := range dependents {
		dep := &dependents[i]
		g.Go(func() error {
			relabel, err := reevaluateOne(ctx, s, spec, store, dep, dispositionOf, lock, recheck)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.RecordCascadeDependent(string(spec.kind), "failed")
				log.WithError(err).WithField("dependent_id", spec.idOf(dep)).Warn("Failed to re-evaluate dependent")
				failures = append(failures, DependentFailure{ID: spec.idOf(dep), Err: err})
				return nil
			}

			status := "unchanged"
			if relabel.Changed() {
				status = "relabeled"
			}
			metrics.RecordCascadeDependent(string(spec.kind), status)
			result.Relabeled = append(result.Relabeled, relabel)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Relabeled, func(i, j int) bool { return result.Relabeled[i].ID < result.Relabeled[j].ID })

	log.WithFields(map[string]any{
		"dependents": len(dependents),
		"succeeded":  len(result.Relabeled),
		"failed":     len(failures),
	}).Info("Re-evaluated dependents")

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })
		return result, &CascadeError{Kind: spec.kind, RecordID: updatedID, Failures: failures}
	}
	return result, nil
}

// reevaluateOne checks and persists one dependent while holding its key locks.
// Nothing is persisted once ctx is done.
func reevaluateOne[T, K, S any](
	ctx context.Context,
	s *Service,
	spec kindSpec[T, K, S],
	store RecordStore[T],
	dep *T,
	dispositionOf func(*T) models.Disposition,
	lock lockFunc[T],
	recheck recheckFunc[T],
) (Relabel, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.reevaluateOne")
	defer span.End()

	if s.cfg.CascadeItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CascadeItemTimeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return Relabel{}, err
	}

	release, err := lock(ctx, dep)
	if err != nil {
		return Relabel{}, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("Failed to release dependent key locks")
		}
	}()

	before := dispositionOf(dep)

	labeled, matchCase, err := recheck(ctx, dep)
	if err != nil {
		return Relabel{}, err
	}

	if err := ctx.Err(); err != nil {
		return Relabel{}, err
	}
	if err := store.UpdateDisposition(ctx, labeled); err != nil {
		return Relabel{}, err
	}

	return Relabel{
		ID:        spec.idOf(dep),
		Before:    before,
		After:     dispositionOf(labeled),
		MatchCase: matchCase,
	}, nil
}

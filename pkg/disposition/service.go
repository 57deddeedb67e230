// Package disposition saves accounts and contacts with the label the matching
// service assigns them and re-evaluates the records that pointed at them.
package disposition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/redis"
)

// Matcher labels records and re-evaluates their dependents
type Matcher interface {
	CheckAccount(ctx context.Context, account *models.Account, opts *matching.CheckOptions) (*matching.AccountCheckResult, error)
	CheckContact(ctx context.Context, contact *models.Contact, opts *matching.CheckOptions) (*matching.ContactCheckResult, error)
	LockAccount(ctx context.Context, account *models.Account) (func(context.Context) error, error)
	LockContact(ctx context.Context, contact *models.Contact) (func(context.Context) error, error)
	ReevaluateAccountDependents(ctx context.Context, updatedID string, projectID string) (*matching.CascadeResult, error)
	ReevaluateContactDependents(ctx context.Context, updatedID string, projectID string) (*matching.CascadeResult, error)
}

// AccountStore persists accounts
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
}

// ContactStore persists contacts
type ContactStore interface {
	FindByID(ctx context.Context, id string) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) (*models.Contact, error)
}

// Transactor begins the transaction a save is persisted in
type Transactor interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// Emitter publishes disposition events
type Emitter interface {
	EmitRecordLabeled(ctx context.Context, l events.Labeled) error
	EmitRecordsRelabeled(ctx context.Context, result *matching.CascadeResult) error
}

// Service saves records with their check outcome
type Service struct {
	matcher  Matcher
	accounts AccountStore
	contacts ContactStore
	tx       Transactor
	emitter  Emitter
	logger   ectologger.Logger
}

// NewService creates a new disposition service
func NewService(matcher Matcher, accounts AccountStore, contacts ContactStore, tx Transactor, emitter Emitter, logger ectologger.Logger) *Service {
	return &Service{
		matcher:  matcher,
		accounts: accounts,
		contacts: contacts,
		tx:       tx,
		emitter:  emitter,
		logger:   logger,
	}
}

// Cascade is the outcome of re-evaluating a saved record's dependents. Err
// lists the dependents that failed and never fails the save itself.
type Cascade struct {
	Result   *matching.CascadeResult `json:"result,omitempty"`
	Failures []CascadeFailure        `json:"failures,omitempty"`
	Err      error                   `json:"-"`
}

// CascadeFailure is one dependent that kept its previous label
type CascadeFailure struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// Failed reports whether any dependent could not be re-evaluated
func (c *Cascade) Failed() bool {
	return c != nil && c.Err != nil
}

// inTx runs fn in a transaction carried by ctx, committing when it succeeds.
// Nothing is committed once ctx is done.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, tx, err := s.tx.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) release(ctx context.Context, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to release key locks")
	}
}

func (s *Service) emitLabeled(ctx context.Context, l events.Labeled) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitRecordLabeled(ctx, l); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("record_id", l.RecordID).Warn("Saved record but failed to emit event")
	}
}

func (s *Service) emitRelabeled(ctx context.Context, result *matching.CascadeResult) {
	if s.emitter == nil || result == nil {
		return
	}
	if err := s.emitter.EmitRecordsRelabeled(ctx, result); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("record_id", result.RecordID).Warn("Re-evaluated dependents but failed to emit events")
	}
}

// cascade re-evaluates dependents, keeping their failures apart from the
// caller's own outcome.
func (s *Service) cascade(ctx context.Context, kind models.Kind, run func(ctx context.Context) (*matching.CascadeResult, error)) *Cascade {
	result, err := run(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("kind", kind).Warn("Dependents were not all re-evaluated")
	}
	s.emitRelabeled(ctx, result)
	return &Cascade{Result: result, Failures: failures(err), Err: err}
}

func failures(err error) []CascadeFailure {
	if err == nil {
		return nil
	}

	var cascadeErr *matching.CascadeError
	if !errors.As(err, &cascadeErr) {
		return []CascadeFailure{{Error: err.Error()}}
	}

	out := make([]CascadeFailure, 0, len(cascadeErr.Failures))
	for _, f := range cascadeErr.Failures {
		out = append(out, CascadeFailure{ID: f.ID, Error: f.Err.Error()})
	}
	return out
}

func operation(created bool) string {
	if created {
		return "create"
	}
	return "update"
}

func recordSave(kind models.Kind, created bool, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordSave(string(kind), operation(created), status)
}

// lockFailure reports contention as a conflict the caller may retry
func lockFailure(kind models.Kind, err error) error {
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("%s keys are locked by another save", kind))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to lock %s keys", kind))
}

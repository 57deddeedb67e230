// Package matching decides whether a record is new, a duplicate of another
// record in its project, or suppressed by a client exclusion list.
package matching

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Stores groups the collaborators the service reads from and relabels
type Stores struct {
	Accounts            RecordStore[models.Account]
	Contacts            RecordStore[models.Contact]
	SuppressionAccounts SuppressionStore[models.SuppressionAccount]
	SuppressionContacts ContactSuppressionStore
	Scopes              ScopeResolver
}

// Service runs checks and reference cascades for accounts and contacts
type Service struct {
	log    ectologger.Logger
	keys   KeyBuilder
	stores Stores
	locker KeyLocker
	cfg    Config
}

// NewService creates a new matching service. A nil locker disables key locking.
func NewService(log ectologger.Logger, keys KeyBuilder, stores Stores, locker KeyLocker, cfg Config) *Service {
	if locker == nil {
		locker = NoopLocker()
	}
	return &Service{
		log:    log,
		keys:   keys,
		stores: stores,
		locker: locker,
		cfg:    cfg,
	}
}

// Config returns the configuration the service was built with
func (s *Service) Config() Config {
	return s.cfg
}

// Options resolves caller options against the configured defaults and
// validates them for kind. Absent flags take the configured default.
func (s *Service) Options(kind models.Kind, opts *CheckOptions) (CheckOptions, error) {
	if opts == nil {
		return s.cfg.DefaultOptions(), nil
	}
	if err := opts.Validate(kind); err != nil {
		return CheckOptions{}, err
	}
	return opts.withDefaults(s.cfg.DefaultOptions()), nil
}

// CheckAccount labels a working copy of account. The caller's account is not
// modified. Nil opts checks every gate and dimension.
func (s *Service) CheckAccount(ctx context.Context, account *models.Account, opts *CheckOptions) (*AccountCheckResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.CheckAccount")
	defer span.End()

	start := time.Now()
	result, err := s.checkAccount(ctx, account, opts)
	if err != nil {
		s.observeError(ctx, models.KindAccount, account.ID, err, start)
		return nil, err
	}

	metrics.RecordCheck(string(models.KindAccount), string(result.Record.Label), time.Since(start).Seconds())
	s.log.WithContext(ctx).WithFields(map[string]any{
		"account_id": result.Record.ID,
		"project_id": result.Record.ProjectID,
		"label":      result.Record.Label,
		"match_case": result.MatchCase(),
	}).Debug("Checked account")

	return result, nil
}

func (s *Service) checkAccount(ctx context.Context, account *models.Account, opts *CheckOptions) (*AccountCheckResult, error) {
	spec := accountSpec()

	o, err := s.Options(spec.kind, opts)
	if err != nil {
		return nil, err
	}

	if account.ID != "" {
		if _, err := findExisting(ctx, spec, s.stores.Accounts, account.ID); err != nil {
			return nil, err
		}
	}

	working := *account
	working.AccountKeys = s.keys.AccountKeys(&working)
	result := &AccountCheckResult{Record: &working}

	if o.duplicateEnabled() {
		dup, err := findDuplicate(ctx, spec, s.stores.Accounts, &working, o)
		if err != nil {
			return nil, dedupeFailure(spec.kind, "finding duplicate", err)
		}
		result.Duplicate = dup
		if dup.IsDuplicate && dup.MatchWith.ID != working.ID {
			working.Disposition = duplicateOf(dup.MatchWith.ID)
			return result, nil
		}
	}
	working.DuplicateOf = nil

	if o.suppressionEnabled() {
		fileIDs, err := s.stores.Scopes.ListFileIDsForProject(ctx, working.ProjectID)
		if err != nil {
			return nil, suppressionFailure(spec.kind, "listing suppression files", err)
		}

		sup, err := findSuppression(ctx, spec, s.stores.SuppressionAccounts, &working, fileIDs, o)
		if err != nil {
			return nil, suppressionFailure(spec.kind, "finding suppression entry", err)
		}
		result.Suppression = sup
		if sup.IsSuppressed {
			working.Label = models.LabelSuppressed
			return result, nil
		}
	}

	working.Label = models.LabelInclusion
	return result, nil
}

// CheckContact labels a working copy of contact. The caller's contact is not
// modified. Nil opts checks every gate and dimension, with partial matching
// following the configured default.
func (s *Service) CheckContact(ctx context.Context, contact *models.Contact, opts *CheckOptions) (*ContactCheckResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.CheckContact")
	defer span.End()

	start := time.Now()
	result, err := s.checkContact(ctx, contact, opts)
	if err != nil {
		s.observeError(ctx, models.KindContact, contact.ID, err, start)
		return nil, err
	}

	metrics.RecordCheck(string(models.KindContact), string(result.Record.Label), time.Since(start).Seconds())
	s.log.WithContext(ctx).WithFields(map[string]any{
		"contact_id":       result.Record.ID,
		"project_id":       result.Record.ProjectID,
		"label":            result.Record.Label,
		"match_case":       result.MatchCase(),
		"fuzzy_match_case": result.Suppression.FuzzyMatchCase,
	}).Debug("Checked contact")

	return result, nil
}

func (s *Service) checkContact(ctx context.Context, contact *models.Contact, opts *CheckOptions) (*ContactCheckResult, error) {
	spec := contactSpec()

	o, err := s.Options(spec.kind, opts)
	if err != nil {
		return nil, err
	}

	if contact.ID != "" {
		if _, err := findExisting(ctx, spec, s.stores.Contacts, contact.ID); err != nil {
			return nil, err
		}
	}

	working := *contact
	working.ContactKeys = s.keys.ContactKeys(&working)
	result := &ContactCheckResult{Record: &working}

	if o.duplicateEnabled() {
		dup, err := findDuplicate(ctx, spec, s.stores.Contacts, &working, o)
		if err != nil {
			return nil, dedupeFailure(spec.kind, "finding duplicate", err)
		}
		result.Duplicate = dup
		if dup.IsDuplicate && dup.MatchWith.ID != working.ID {
			working.Disposition = duplicateOf(dup.MatchWith.ID)
			return result, nil
		}
	}
	working.DuplicateOf = nil

	if o.suppressionEnabled() {
		fileIDs, err := s.stores.Scopes.ListFileIDsForProject(ctx, working.ProjectID)
		if err != nil {
			return nil, suppressionFailure(spec.kind, "listing suppression files", err)
		}

		sup, err := findSuppression(ctx, spec, s.stores.SuppressionContacts, &working, fileIDs, o)
		if err != nil {
			return nil, suppressionFailure(spec.kind, "finding suppression entry", err)
		}
		result.Suppression.SuppressionResult = sup
		if sup.IsSuppressed {
			working.Label = models.LabelSuppressed
			return result, nil
		}

		if o.fuzzyEnabled() {
			fuzzy, err := findFuzzySuppression(ctx, s.stores.SuppressionContacts, &working, fileIDs)
			if err != nil {
				return nil, suppressionFailure(spec.kind, "finding partial suppression match", err)
			}
			fuzzy.SuppressionResult = sup
			result.Suppression = fuzzy
			if fuzzy.IsFuzzySuppressed {
				working.Label = models.LabelFuzzySuppressed
				return result, nil
			}
		}
	}

	working.Label = models.LabelInclusion
	return result, nil
}

// LockAccount takes the key locks for account's current keys
func (s *Service) LockAccount(ctx context.Context, account *models.Account) (func(context.Context) error, error) {
	working := *account
	working.AccountKeys = s.keys.AccountKeys(&working)
	return s.locker.Lock(ctx, accountSpec().lockKeys(&working))
}

// LockContact takes the key locks for contact's current keys
func (s *Service) LockContact(ctx context.Context, contact *models.Contact) (func(context.Context) error, error) {
	working := *contact
	working.ContactKeys = s.keys.ContactKeys(&working)
	return s.locker.Lock(ctx, contactSpec().lockKeys(&working))
}

func (s *Service) observeError(ctx context.Context, kind models.Kind, id string, err error, start time.Time) {
	code := "UNKNOWN"
	var checkErr *CheckError
	if errors.As(err, &checkErr) {
		code = string(checkErr.Code)
	}
	metrics.RecordCheckError(string(kind), code, time.Since(start).Seconds())

	log := s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"kind":      kind,
		"record_id": id,
		"code":      code,
	})
	if checkErr != nil && checkErr.StatusCode() < 500 {
		log.Warn("Check rejected")
		return
	}
	log.Error("Check failed")
}

func duplicateOf(id string) models.Disposition {
	return models.Disposition{Label: models.LabelDuplicate, DuplicateOf: &id}
}

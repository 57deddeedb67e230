package disposition

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// AccountSaveResult is a saved account with the check that labeled it
type AccountSaveResult struct {
	Account   *models.Account              `json:"account"`
	Created   bool                         `json:"created"`
	MatchCase models.MatchCase             `json:"match_case,omitempty"`
	Check     *matching.AccountCheckResult `json:"check"`
	Cascade   *Cascade                     `json:"cascade,omitempty"`
}

// SaveAccount checks account and creates or updates it with the resulting
// label. The check and the write run under the account's key locks. When an
// update changes the fields its keys derive from, the accounts that pointed
// at it are re-evaluated once the locks are released.
func (s *Service) SaveAccount(ctx context.Context, account *models.Account, opts *matching.CheckOptions) (*AccountSaveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "disposition.Service.SaveAccount")
	defer span.End()

	created := account.ID == ""
	result, prev, err := s.saveAccount(ctx, account, opts)
	recordSave(models.KindAccount, created, err)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	saved := result.Account
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": saved.ID,
		"project_id": saved.ProjectID,
		"label":      saved.Label,
		"match_case": result.MatchCase,
		"created":    created,
	}).Info("Saved account")

	s.emitLabeled(ctx, events.Labeled{
		Kind:        models.KindAccount,
		RecordID:    saved.ID,
		ProjectID:   saved.ProjectID,
		ClientID:    saved.ClientID,
		Disposition: saved.Disposition,
		MatchCase:   result.MatchCase,
		Created:     created,
	})

	if !created && saved.IdentityChanged(prev) {
		result.Cascade = s.cascade(ctx, models.KindAccount, func(ctx context.Context) (*matching.CascadeResult, error) {
			return s.matcher.ReevaluateAccountDependents(ctx, saved.ID, saved.ProjectID)
		})
	}

	return result, nil
}

func (s *Service) saveAccount(ctx context.Context, account *models.Account, opts *matching.CheckOptions) (*AccountSaveResult, *models.Account, error) {
	release, err := s.matcher.LockAccount(ctx, account)
	if err != nil {
		return nil, nil, lockFailure(models.KindAccount, err)
	}
	defer s.release(ctx, release)

	check, err := s.matcher.CheckAccount(ctx, account, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	result := &AccountSaveResult{
		Created:   account.ID == "",
		MatchCase: check.MatchCase(),
		Check:     check,
	}

	var prev *models.Account
	err = s.inTx(ctx, func(ctx context.Context) error {
		if result.Created {
			saved, err := s.accounts.Create(ctx, check.Record)
			result.Account = saved
			return err
		}

		prev, err = s.accounts.FindByID(ctx, account.ID)
		if err != nil {
			return err
		}
		if prev == nil {
			return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("account %s not found", account.ID))
		}
		saved, err := s.accounts.Update(ctx, check.Record)
		result.Account = saved
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return result, prev, nil
}

// ReevaluateAccount re-checks every account that points at id
func (s *Service) ReevaluateAccount(ctx context.Context, id string) (*Cascade, error) {
	ctx, span := tracing.StartSpan(ctx, "disposition.Service.ReevaluateAccount")
	defer span.End()

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("account %s not found", id))
	}

	return s.cascade(ctx, models.KindAccount, func(ctx context.Context) (*matching.CascadeResult, error) {
		return s.matcher.ReevaluateAccountDependents(ctx, account.ID, account.ProjectID)
	}), nil
}

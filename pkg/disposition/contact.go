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

// ContactSaveResult is a saved contact with the check that labeled it
type ContactSaveResult struct {
	Contact        *models.Contact              `json:"contact"`
	Created        bool                         `json:"created"`
	MatchCase      models.MatchCase             `json:"match_case,omitempty"`
	FuzzyMatchCase models.FuzzyMatchCase        `json:"fuzzy_match_case,omitempty"`
	Check          *matching.ContactCheckResult `json:"check"`
	Cascade        *Cascade                     `json:"cascade,omitempty"`
}

// SaveContact checks contact and creates or updates it with the resulting
// label. The check and the write run under the contact's key locks. When an
// update changes the fields its keys derive from, the contacts that pointed
// at it are re-evaluated once the locks are released.
func (s *Service) SaveContact(ctx context.Context, contact *models.Contact, opts *matching.CheckOptions) (*ContactSaveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "disposition.Service.SaveContact")
	defer span.End()

	created := contact.ID == ""
	result, prev, err := s.saveContact(ctx, contact, opts)
	recordSave(models.KindContact, created, err)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	saved := result.Contact
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id":       saved.ID,
		"project_id":       saved.ProjectID,
		"label":            saved.Label,
		"match_case":       result.MatchCase,
		"fuzzy_match_case": result.FuzzyMatchCase,
		"created":          created,
	}).Info("Saved contact")

	s.emitLabeled(ctx, events.Labeled{
		Kind:           models.KindContact,
		RecordID:       saved.ID,
		ProjectID:      saved.ProjectID,
		ClientID:       saved.ClientID,
		Disposition:    saved.Disposition,
		MatchCase:      result.MatchCase,
		FuzzyMatchCase: result.FuzzyMatchCase,
		Created:        created,
	})

	if !created && saved.IdentityChanged(prev) {
		result.Cascade = s.cascade(ctx, models.KindContact, func(ctx context.Context) (*matching.CascadeResult, error) {
			return s.matcher.ReevaluateContactDependents(ctx, saved.ID, saved.ProjectID)
		})
	}

	return result, nil
}

func (s *Service) saveContact(ctx context.Context, contact *models.Contact, opts *matching.CheckOptions) (*ContactSaveResult, *models.Contact, error) {
	release, err := s.matcher.LockContact(ctx, contact)
	if err != nil {
		return nil, nil, lockFailure(models.KindContact, err)
	}
	defer s.release(ctx, release)

	check, err := s.matcher.CheckContact(ctx, contact, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	result := &ContactSaveResult{
		Created:        contact.ID == "",
		MatchCase:      check.MatchCase(),
		FuzzyMatchCase: check.Suppression.FuzzyMatchCase,
		Check:          check,
	}

	var prev *models.Contact
	err = s.inTx(ctx, func(ctx context.Context) error {
		if result.Created {
			saved, err := s.contacts.Create(ctx, check.Record)
			result.Contact = saved
			return err
		}

		prev, err = s.contacts.FindByID(ctx, contact.ID)
		if err != nil {
			return err
		}
		if prev == nil {
			return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %s not found", contact.ID))
		}
		saved, err := s.contacts.Update(ctx, check.Record)
		result.Contact = saved
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return result, prev, nil
}

// ReevaluateContact re-checks every contact that points at id
func (s *Service) ReevaluateContact(ctx context.Context, id string) (*Cascade, error) {
	ctx, span := tracing.StartSpan(ctx, "disposition.Service.ReevaluateContact")
	defer span.End()

	contact, err := s.contacts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %s not found", id))
	}

	return s.cascade(ctx, models.KindContact, func(ctx context.Context) (*matching.CascadeResult, error) {
		return s.matcher.ReevaluateContactDependents(ctx, contact.ID, contact.ProjectID)
	}), nil
}

package matching

import "github.com/Ramsey-B/thistle/pkg/models"

// DuplicateResult is the outcome of a duplicate lookup
type DuplicateResult[T any] struct {
	IsDuplicate bool             `json:"is_duplicate"`
	MatchCase   models.MatchCase `json:"match_case,omitempty"`
	MatchWith   *T               `json:"match_with,omitempty"`
}

// SuppressionResult is the outcome of an exact suppression lookup
type SuppressionResult[S any] struct {
	IsSuppressed bool             `json:"is_suppressed"`
	MatchCase    models.MatchCase `json:"match_case,omitempty"`
	MatchWith    *S               `json:"match_with,omitempty"`
}

// ContactSuppressionResult extends the exact outcome with the partial-match phase
type ContactSuppressionResult struct {
	SuppressionResult[models.SuppressionContact]
	IsFuzzySuppressed bool                        `json:"is_fuzzy_suppressed"`
	FuzzyMatchCase    models.FuzzyMatchCase       `json:"fuzzy_match_case,omitempty"`
	FuzzyMatches      []models.SuppressionContact `json:"fuzzy_matches,omitempty"`
}

// AccountCheckResult holds the labeled working copy of an account plus the
// raw gate results, so callers can label from either.
type AccountCheckResult struct {
	Record      *models.Account                              `json:"record"`
	Duplicate   DuplicateResult[models.Account]              `json:"duplicate"`
	Suppression SuppressionResult[models.SuppressionAccount] `json:"suppression"`
}

// MatchCase returns the match case that produced the record's label
func (r *AccountCheckResult) MatchCase() models.MatchCase {
	switch r.Record.Label {
	case models.LabelDuplicate:
		return r.Duplicate.MatchCase
	case models.LabelSuppressed:
		return r.Suppression.MatchCase
	}
	return models.MatchCaseNone
}

// ContactCheckResult holds the labeled working copy of a contact plus the
// raw gate results.
type ContactCheckResult struct {
	Record      *models.Contact                 `json:"record"`
	Duplicate   DuplicateResult[models.Contact] `json:"duplicate"`
	Suppression ContactSuppressionResult        `json:"suppression"`
}

// MatchCase returns the match case that produced the record's label
func (r *ContactCheckResult) MatchCase() models.MatchCase {
	switch r.Record.Label {
	case models.LabelDuplicate:
		return r.Duplicate.MatchCase
	case models.LabelSuppressed:
		return r.Suppression.MatchCase
	}
	return models.MatchCaseNone
}

// Relabel is the before and after state of one re-evaluated dependent
type Relabel struct {
	ID        string             `json:"id"`
	Before    models.Disposition `json:"before"`
	After     models.Disposition `json:"after"`
	MatchCase models.MatchCase   `json:"match_case,omitempty"`
}

// Changed reports whether the dependent's disposition moved
func (r Relabel) Changed() bool {
	if r.Before.Label != r.After.Label {
		return true
	}
	return derefID(r.Before.DuplicateOf) != derefID(r.After.DuplicateOf)
}

// CascadeResult lists the dependents re-evaluated after a record changed
type CascadeResult struct {
	Kind       models.Kind `json:"kind"`
	RecordID   string      `json:"record_id"`
	ProjectID  string      `json:"project_id"`
	Dependents int         `json:"dependents"`
	Relabeled  []Relabel   `json:"relabeled"`
}

func derefID(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

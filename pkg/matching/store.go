package matching

import (
	"context"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// DuplicateQuery finds one non-duplicate record in a project matching any
// clause. ExcludeID is empty for records that are not yet persisted.
type DuplicateQuery struct {
	ProjectID string
	ExcludeID string
	Clauses   []KeyClause
}

// SuppressionQuery finds one suppression entry in any of the given files
// matching any clause.
type SuppressionQuery struct {
	FileIDs []string
	Clauses []KeyClause
}

// FuzzyQuery finds every contact suppression entry in the given files with
// the same email domain key whose email name key contains NameFragment,
// compared case-insensitively.
type FuzzyQuery struct {
	FileIDs              []string
	EmailDomainDedupeKey string
	NameFragment         string
}

// RecordStore reads and relabels records of one kind.
// FindByID and FindDuplicate return nil without error when nothing matches.
type RecordStore[T any] interface {
	FindByID(ctx context.Context, id string) (*T, error)
	FindDuplicate(ctx context.Context, q DuplicateQuery) (*T, error)
	ListByDuplicateOf(ctx context.Context, projectID string, id string) ([]T, error)
	UpdateDisposition(ctx context.Context, record *T) error
}

// SuppressionStore reads suppression entries of one kind.
// FindMatch returns nil without error when nothing matches.
type SuppressionStore[S any] interface {
	FindMatch(ctx context.Context, q SuppressionQuery) (*S, error)
}

// ContactSuppressionStore adds the partial-match lookup used for contacts
type ContactSuppressionStore interface {
	SuppressionStore[models.SuppressionContact]
	FindFuzzy(ctx context.Context, q FuzzyQuery) ([]models.SuppressionContact, error)
}

// ScopeResolver lists the suppression files a project subscribes to
type ScopeResolver interface {
	ListFileIDsForProject(ctx context.Context, projectID string) ([]string, error)
}

// KeyBuilder derives dedupe keys from business fields. Implementations must
// be pure and return empty strings for absent keys.
type KeyBuilder interface {
	AccountKeys(account *models.Account) models.AccountKeys
	ContactKeys(contact *models.Contact) models.ContactKeys
}

// KeyLocker serializes check-and-persist sequences over overlapping keys.
// The returned release func must be called once the label is persisted.
type KeyLocker interface {
	Lock(ctx context.Context, keys []string) (release func(context.Context) error, err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, []string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// NoopLocker returns a KeyLocker that never blocks
func NoopLocker() KeyLocker {
	return noopLocker{}
}

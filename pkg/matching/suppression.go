package matching

import (
	"context"

	"github.com/Ramsey-B/thistle/pkg/dedupekeys"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// findSuppression looks for one entry in the given suppression files sharing
// an enabled, present key. Suppression entries are never filtered by id or
// duplicate state.
func findSuppression[T, K, S any](ctx context.Context, spec kindSpec[T, K, S], store SuppressionStore[S], candidate *T, fileIDs []string, opts CheckOptions) (SuppressionResult[S], error) {
	if len(fileIDs) == 0 {
		return SuppressionResult[S]{}, nil
	}

	keys := spec.keysOf(candidate)
	clauses := buildClauses(spec.dims, keys, opts)
	if len(clauses) == 0 {
		return SuppressionResult[S]{}, nil
	}

	found, err := store.FindMatch(ctx, SuppressionQuery{FileIDs: fileIDs, Clauses: clauses})
	if err != nil {
		return SuppressionResult[S]{}, err
	}
	if found == nil {
		return SuppressionResult[S]{}, nil
	}

	matchCase, ok := resolveMatchCase(spec.dims, keys, spec.entryKeysOf(found), opts)
	if !ok {
		return SuppressionResult[S]{}, nil
	}

	return SuppressionResult[S]{
		IsSuppressed: true,
		MatchCase:    matchCase,
		MatchWith:    found,
	}, nil
}

type fuzzyStep struct {
	matchCase models.FuzzyMatchCase
	name      string
}

// findFuzzySuppression tries the last name, then the first name, against
// entries with the same email domain key. The first step with any match wins
// and every matching entry is returned.
func findFuzzySuppression(ctx context.Context, store ContactSuppressionStore, contact *models.Contact, fileIDs []string) (ContactSuppressionResult, error) {
	domain := contact.EmailDomainDedupeKey
	if len(fileIDs) == 0 || !present(domain) {
		return ContactSuppressionResult{}, nil
	}

	steps := []fuzzyStep{
		{matchCase: models.FuzzyMatchCaseLastNameEmailDomain, name: contact.LastName},
		{matchCase: models.FuzzyMatchCaseFirstNameEmailDomain, name: contact.FirstName},
	}

	for _, step := range steps {
		// normalized the same way as email name dedupe keys
		fragment := dedupekeys.Alphanumeric(step.name)
		if fragment == "" {
			continue
		}

		matches, err := store.FindFuzzy(ctx, FuzzyQuery{
			FileIDs:              fileIDs,
			EmailDomainDedupeKey: domain,
			NameFragment:         fragment,
		})
		if err != nil {
			return ContactSuppressionResult{}, err
		}
		if len(matches) > 0 {
			return ContactSuppressionResult{
				IsFuzzySuppressed: true,
				FuzzyMatchCase:    step.matchCase,
				FuzzyMatches:      matches,
			}, nil
		}
	}

	return ContactSuppressionResult{}, nil
}

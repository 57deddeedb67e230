package matching

import "context"

// findDuplicate looks for one non-duplicate record in the candidate's project
// sharing an enabled, present key. No lookup is issued without clauses.
func findDuplicate[T, K, S any](ctx context.Context, spec kindSpec[T, K, S], store RecordStore[T], candidate *T, opts CheckOptions) (DuplicateResult[T], error) {
	keys := spec.keysOf(candidate)
	clauses := buildClauses(spec.dims, keys, opts)
	if len(clauses) == 0 {
		return DuplicateResult[T]{}, nil
	}

	found, err := store.FindDuplicate(ctx, DuplicateQuery{
		ProjectID: spec.projectOf(candidate),
		ExcludeID: spec.idOf(candidate),
		Clauses:   clauses,
	})
	if err != nil {
		return DuplicateResult[T]{}, err
	}
	if found == nil {
		return DuplicateResult[T]{}, nil
	}

	matchCase, ok := resolveMatchCase(spec.dims, keys, spec.keysOf(found), opts)
	if !ok {
		return DuplicateResult[T]{}, nil
	}

	return DuplicateResult[T]{
		IsDuplicate: true,
		MatchCase:   matchCase,
		MatchWith:   found,
	}, nil
}

package matching

import "context"

// findExisting resolves the persisted state of a record being edited.
// A missing record fails the check before any match lookup runs.
func findExisting[T, K, S any](ctx context.Context, spec kindSpec[T, K, S], store RecordStore[T], id string) (*T, error) {
	existing, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, dedupeFailure(spec.kind, "looking up existing record", err)
	}
	if existing == nil {
		return nil, badReference(spec.kind, id)
	}
	return existing, nil
}

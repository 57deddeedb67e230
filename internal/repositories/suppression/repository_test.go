package suppression

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/matching"
)

func TestBuildFindMatch(t *testing.T) {
	query, args := buildFindMatch(contactTable, contactColumns, matching.SuppressionQuery{
		FileIDs: []string{"file-1", "file-2"},
		Clauses: []matching.KeyClause{
			{Column: "email_key", Value: "a@b.com"},
			{Column: "phone_dedupe_key", Value: "annsmith5551234"},
		},
	})

	assert.Contains(t, query, "FROM suppression_contacts")
	assert.Contains(t, query, "suppression_file_id IN ($1, $2)")
	assert.Contains(t, query, "(email_key = $3 OR phone_dedupe_key = $4)")
	assert.Contains(t, query, "ORDER BY CASE WHEN email_key = $5 THEN 0 WHEN phone_dedupe_key = $6 THEN 1 ELSE 2 END, created_at, id")
	assert.Contains(t, query, "LIMIT")
	assert.NotContains(t, query, "duplicate_of")
	assert.Subset(t, args, []any{"file-1", "file-2", "a@b.com", "annsmith5551234"})
}

func TestBuildFindFuzzy(t *testing.T) {
	query, args := buildFindFuzzy(matching.FuzzyQuery{
		FileIDs:              []string{"file-1"},
		EmailDomainDedupeKey: "b.com",
		NameFragment:         "o_neil",
	})

	assert.Contains(t, query, "suppression_file_id IN ($1)")
	assert.Contains(t, query, "email_domain_dedupe_key = $2")
	assert.Contains(t, query, "LOWER(email_name_dedupe_key) LIKE $3")
	assert.NotContains(t, query, "LIMIT")
	assert.Equal(t, []any{"file-1", "b.com", `%o\_neil%`}, args)
}

func TestBuildListFileIDs(t *testing.T) {
	query, args := buildListFileIDs("project-1")

	assert.Equal(t, "SELECT suppression_file_id FROM project_suppression_files WHERE project_id = $1 ORDER BY suppression_file_id", query)
	assert.Equal(t, []any{"project-1"}, args)
}

func TestFindWithoutScopeSkipsQuery(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	ctx := context.Background()

	// a nil db panics if a query is attempted
	accounts := NewAccountRepository(nil, logger)
	entry, err := accounts.FindMatch(ctx, matching.SuppressionQuery{
		Clauses: []matching.KeyClause{{Column: "domain", Value: "acme.com"}},
	})
	require.NoError(t, err)
	assert.Nil(t, entry)

	contacts := NewContactRepository(nil, logger)
	matches, err := contacts.FindFuzzy(ctx, matching.FuzzyQuery{
		FileIDs:      []string{"file-1"},
		NameFragment: "smith",
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

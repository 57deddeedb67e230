package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestBuildFindDuplicate(t *testing.T) {
	query, args := buildFindDuplicate(matching.DuplicateQuery{
		ProjectID: "project-1",
		Clauses: []matching.KeyClause{
			{Column: "email_key", Value: "jane@acme.com"},
			{Column: "phone_dedupe_key", Value: "janedoe5550102000"},
		},
	})

	assert.Contains(t, query, "FROM contacts")
	assert.Contains(t, query, "project_id = $1 AND duplicate_of IS NULL AND (email_key = $2 OR phone_dedupe_key = $3)")
	assert.NotContains(t, query, "id <>")
	assert.Contains(t, query, "CASE WHEN email_key = $4 THEN 0 WHEN phone_dedupe_key = $5 THEN 1 ELSE 2 END")
	assert.Subset(t, args, []any{"project-1", "jane@acme.com", "janedoe5550102000"})
}

func TestBuildUpdateDisposition(t *testing.T) {
	query, args := buildUpdateDisposition(&models.Contact{
		ID:          "c",
		ContactKeys: models.ContactKeys{Email: "jane@acme.com", EmailDomainDedupeKey: "acme.com"},
		Disposition: models.Disposition{Label: models.LabelFuzzySuppressed},
	})

	assert.Contains(t, query, "UPDATE contacts SET email_key = $1")
	assert.Contains(t, query, "label = $7")
	assert.Contains(t, query, "duplicate_of = $8")
	assert.Contains(t, query, "WHERE id = $10")
	assert.Equal(t, "jane@acme.com", args[0])
	assert.Equal(t, "acme.com", args[5])
	assert.Equal(t, models.LabelFuzzySuppressed, args[6])
	assert.Equal(t, "c", args[9])
}

func TestBuildCreate(t *testing.T) {
	query, args := buildCreate(&models.Contact{ID: "c", ProjectID: "project-1", EmailAddr: "Jane@Acme.com"})

	assert.Contains(t, query, "INSERT INTO contacts (id, project_id, client_id, account_id, first_name")
	assert.Len(t, args, len(columns))
	assert.Equal(t, "Jane@Acme.com", args[6])
}

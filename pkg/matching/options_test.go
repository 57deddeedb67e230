package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestCheckOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.Kind
		dims    []models.MatchCase
		wantErr bool
	}{
		{name: "all dimensions", kind: models.KindAccount},
		{name: "account subset", kind: models.KindAccount, dims: []models.MatchCase{models.MatchCaseDomain, models.MatchCaseTokens}},
		{name: "contact subset", kind: models.KindContact, dims: []models.MatchCase{models.MatchCasePhoneDedupeKey}},
		{name: "contact case on account", kind: models.KindAccount, dims: []models.MatchCase{models.MatchCaseEmail}, wantErr: true},
		{name: "account case on contact", kind: models.KindContact, dims: []models.MatchCase{models.MatchCaseDomain}, wantErr: true},
		{name: "repeated dimension", kind: models.KindAccount, dims: []models.MatchCase{models.MatchCaseDomain, models.MatchCaseDomain}, wantErr: true},
		{name: "blank dimension", kind: models.KindAccount, dims: []models.MatchCase{""}, wantErr: true},
		{name: "unknown dimension", kind: models.KindContact, dims: []models.MatchCase{"fax"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultCheckOptions()
			opts.Dimensions = tt.dims
			err := opts.Validate(tt.kind)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsCode(err, ErrCodeInvalidOptions))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_DefaultOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultCheckOptions(), cfg.DefaultOptions())

	cfg.CheckFuzzy = false
	opts := cfg.DefaultOptions()
	assert.True(t, opts.duplicateEnabled())
	assert.True(t, opts.suppressionEnabled())
	assert.False(t, opts.fuzzyEnabled())
}

func TestService_OptionsFillsAbsentFlags(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		checkFuzzy      bool
		wantDuplicate   bool
		wantSuppression bool
		wantFuzzy       bool
	}{
		{name: "only duplicate disabled", body: `{"check_duplicate": false}`, checkFuzzy: true, wantSuppression: true, wantFuzzy: true},
		{name: "empty object", body: `{}`, checkFuzzy: true, wantDuplicate: true, wantSuppression: true, wantFuzzy: true},
		{name: "fuzzy follows config", body: `{"check_suppression": true}`, wantDuplicate: true, wantSuppression: true},
		{name: "explicit fuzzy beats config", body: `{"check_fuzzy": true}`, wantDuplicate: true, wantSuppression: true, wantFuzzy: true},
		{name: "everything disabled", body: `{"check_duplicate": false, "check_suppression": false, "check_fuzzy": false}`, checkFuzzy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CheckFuzzy = tt.checkFuzzy
			svc := NewService(testLogger(), passthroughKeys{}, Stores{}, nil, cfg)

			var opts CheckOptions
			require.NoError(t, json.Unmarshal([]byte(tt.body), &opts))

			got, err := svc.Options(models.KindContact, &opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDuplicate, got.duplicateEnabled())
			assert.Equal(t, tt.wantSuppression, got.suppressionEnabled())
			assert.Equal(t, tt.wantFuzzy, got.fuzzyEnabled())
		})
	}
}

func TestConfig_CascadeLimit(t *testing.T) {
	assert.Equal(t, 1, Config{}.cascadeLimit())
	assert.Equal(t, 1, Config{CascadeConcurrency: -3}.cascadeLimit())
	assert.Equal(t, 8, Config{CascadeConcurrency: 8}.cascadeLimit())
}

func TestBuildClauses(t *testing.T) {
	keys := models.AccountKeys{Domain: "acme.com", ScrubbedName: " ", Tokens: "acme"}

	clauses := buildClauses(AccountDimensions(), keys, DefaultCheckOptions())
	assert.Equal(t, []KeyClause{
		{Column: "domain", Value: "acme.com"},
		{Column: "tokens", Value: "acme"},
	}, clauses)

	opts := DefaultCheckOptions()
	opts.Dimensions = []models.MatchCase{models.MatchCaseScrubbedName}
	assert.Empty(t, buildClauses(AccountDimensions(), keys, opts))
}

func TestResolveMatchCase(t *testing.T) {
	candidate := models.ContactKeys{Email: "a@b.com", PhoneDedupeKey: "annsmith5550100"}
	found := models.ContactKeys{Email: "x@b.com", PhoneDedupeKey: "annsmith5550100"}

	got, ok := resolveMatchCase(ContactDimensions(), candidate, found, DefaultCheckOptions())
	require.True(t, ok)
	assert.Equal(t, models.MatchCasePhoneDedupeKey, got)

	opts := DefaultCheckOptions()
	opts.Dimensions = []models.MatchCase{models.MatchCaseEmail}
	_, ok = resolveMatchCase(ContactDimensions(), candidate, found, opts)
	assert.False(t, ok)

	_, ok = resolveMatchCase(ContactDimensions(), models.ContactKeys{}, models.ContactKeys{}, DefaultCheckOptions())
	assert.False(t, ok, "empty keys never match")
}

func TestLockKeys(t *testing.T) {
	c := contact("c1", models.ContactKeys{Email: "a@b.com", CompanyDedupeKey: "annsmithacme", EmailNameDedupeKey: "ann"})

	assert.Equal(t, []string{
		"contact:project-1:email_key:a@b.com",
		"contact:project-1:company_dedupe_key:annsmithacme",
	}, contactSpec().lockKeys(&c))
}

package matching

import (
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Dimension is one key a record can match on. Dimension lists are ordered
// from highest to lowest match-case priority.
type Dimension[K any] struct {
	Case   models.MatchCase
	Column string
	Value  func(K) string
}

// AccountDimensions returns the account dimensions in priority order
func AccountDimensions() []Dimension[models.AccountKeys] {
	return []Dimension[models.AccountKeys]{
		{Case: models.MatchCaseDomain, Column: "domain", Value: func(k models.AccountKeys) string { return k.Domain }},
		{Case: models.MatchCaseScrubbedName, Column: "scrubbed_name", Value: func(k models.AccountKeys) string { return k.ScrubbedName }},
		{Case: models.MatchCaseAliasName, Column: "alias_name", Value: func(k models.AccountKeys) string { return k.AliasName }},
		{Case: models.MatchCaseTokens, Column: "tokens", Value: func(k models.AccountKeys) string { return k.Tokens }},
	}
}

// ContactDimensions returns the contact dimensions in priority order
func ContactDimensions() []Dimension[models.ContactKeys] {
	return []Dimension[models.ContactKeys]{
		{Case: models.MatchCaseEmail, Column: "email_key", Value: func(k models.ContactKeys) string { return k.Email }},
		{Case: models.MatchCaseEmailDedupeKey, Column: "email_dedupe_key", Value: func(k models.ContactKeys) string { return k.EmailDedupeKey }},
		{Case: models.MatchCasePhoneDedupeKey, Column: "phone_dedupe_key", Value: func(k models.ContactKeys) string { return k.PhoneDedupeKey }},
		{Case: models.MatchCaseCompanyDedupeKey, Column: "company_dedupe_key", Value: func(k models.ContactKeys) string { return k.CompanyDedupeKey }},
	}
}

// KeyClause is one equality condition of an OR-set lookup
type KeyClause struct {
	Column string
	Value  string
}

func present(v string) bool {
	return strings.TrimSpace(v) != ""
}

// buildClauses returns one clause per enabled dimension whose key is present.
// An empty result means no lookup may be issued.
func buildClauses[K any](dims []Dimension[K], keys K, opts CheckOptions) []KeyClause {
	clauses := make([]KeyClause, 0, len(dims))
	for _, d := range dims {
		if !opts.enabled(d.Case) {
			continue
		}
		if v := d.Value(keys); present(v) {
			clauses = append(clauses, KeyClause{Column: d.Column, Value: v})
		}
	}
	return clauses
}

// resolveMatchCase walks dims in priority order and returns the first
// enabled dimension on which candidate and found hold the same present key.
func resolveMatchCase[K any](dims []Dimension[K], candidate, found K, opts CheckOptions) (models.MatchCase, bool) {
	for _, d := range dims {
		if !opts.enabled(d.Case) {
			continue
		}
		v := d.Value(candidate)
		if present(v) && v == d.Value(found) {
			return d.Case, true
		}
	}
	return models.MatchCaseNone, false
}

func casesOf[K any](dims []Dimension[K]) []models.MatchCase {
	cases := make([]models.MatchCase, len(dims))
	for i, d := range dims {
		cases[i] = d.Case
	}
	return cases
}

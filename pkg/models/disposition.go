package models

// Kind identifies which record table a record belongs to
type Kind string

const (
	KindAccount Kind = "account"
	KindContact Kind = "contact"
)

// Label is the disposition assigned to a record by a check pass
type Label string

const (
	LabelInclusion       Label = "inclusion"
	LabelDuplicate       Label = "duplicate"
	LabelSuppressed      Label = "suppressed"
	LabelFuzzySuppressed Label = "fuzzySuppressed"
)

// MatchCase names the key dimension that produced a match
type MatchCase string

const (
	MatchCaseNone MatchCase = ""

	// Account dimensions, highest priority first
	MatchCaseDomain       MatchCase = "domain"
	MatchCaseScrubbedName MatchCase = "scrubbedName"
	MatchCaseAliasName    MatchCase = "aliasName"
	MatchCaseTokens       MatchCase = "tokens"

	// Contact dimensions, highest priority first
	MatchCaseEmail            MatchCase = "email"
	MatchCaseEmailDedupeKey   MatchCase = "emailDedupeKey"
	MatchCasePhoneDedupeKey   MatchCase = "phoneDedupeKey"
	MatchCaseCompanyDedupeKey MatchCase = "companyDedupeKey"
)

// FuzzyMatchCase names the partial-match rule that suppressed a contact
type FuzzyMatchCase string

const (
	FuzzyMatchCaseNone                 FuzzyMatchCase = ""
	FuzzyMatchCaseLastNameEmailDomain  FuzzyMatchCase = "LAST_NAME_EMAIL_DOMAIN"
	FuzzyMatchCaseFirstNameEmailDomain FuzzyMatchCase = "FIRST_NAME_EMAIL_DOMAIN"
)

// Disposition is the label state written back onto a record
type Disposition struct {
	Label       Label   `json:"label" db:"label"`
	DuplicateOf *string `json:"duplicate_of,omitempty" db:"duplicate_of"`
}

// IsDuplicate reports whether the record currently points at another record
func (d Disposition) IsDuplicate() bool {
	return d.DuplicateOf != nil && *d.DuplicateOf != ""
}

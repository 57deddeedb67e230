package models

import "time"

// AccountKeys are the dedupe keys derived from an account's business fields.
// An empty string means the key is absent.
type AccountKeys struct {
	Domain       string `json:"domain" db:"domain"`
	ScrubbedName string `json:"scrubbed_name" db:"scrubbed_name"`
	AliasName    string `json:"alias_name" db:"alias_name"`
	Tokens       string `json:"tokens" db:"tokens"`
}

// Account is a company record within a project
type Account struct {
	ID        string `json:"id" db:"id"`
	ProjectID string `json:"project_id" db:"project_id"`
	ClientID  string `json:"client_id" db:"client_id"`

	Name    string  `json:"name" db:"name"`
	Website string  `json:"website" db:"website"`
	Alias   *string `json:"alias,omitempty" db:"alias"`

	AccountKeys
	Disposition

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IdentityChanged reports whether any field feeding the dedupe keys differs
// between two versions of the same account.
func (a *Account) IdentityChanged(prev *Account) bool {
	if prev == nil {
		return false
	}
	return a.Name != prev.Name || a.Website != prev.Website || derefString(a.Alias) != derefString(prev.Alias)
}

// SuppressionAccount is an entry of a client-level account suppression file
type SuppressionAccount struct {
	ID                string `json:"id" db:"id"`
	SuppressionFileID string `json:"suppression_file_id" db:"suppression_file_id"`
	ClientID          string `json:"client_id" db:"client_id"`

	Name    string `json:"name" db:"name"`
	Website string `json:"website" db:"website"`

	AccountKeys

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UpsertAccountRequest is the request body for creating or updating an account
type UpsertAccountRequest struct {
	ProjectID string  `json:"project_id" validate:"required"`
	ClientID  string  `json:"client_id" validate:"required"`
	Name      string  `json:"name" validate:"required_without=Website"`
	Website   string  `json:"website" validate:"required_without=Name"`
	Alias     *string `json:"alias,omitempty"`
}

// ToAccount builds an account from the request, keeping the given id
func (r UpsertAccountRequest) ToAccount(id string) *Account {
	return &Account{
		ID:        id,
		ProjectID: r.ProjectID,
		ClientID:  r.ClientID,
		Name:      r.Name,
		Website:   r.Website,
		Alias:     r.Alias,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package models

import "time"

// ContactKeys are the dedupe keys derived from a contact's business fields.
// EmailNameDedupeKey and EmailDomainDedupeKey are only used by fuzzy
// suppression.
type ContactKeys struct {
	Email                string `json:"email_key" db:"email_key"`
	EmailDedupeKey       string `json:"email_dedupe_key" db:"email_dedupe_key"`
	PhoneDedupeKey       string `json:"phone_dedupe_key" db:"phone_dedupe_key"`
	CompanyDedupeKey     string `json:"company_dedupe_key" db:"company_dedupe_key"`
	EmailNameDedupeKey   string `json:"email_name_dedupe_key" db:"email_name_dedupe_key"`
	EmailDomainDedupeKey string `json:"email_domain_dedupe_key" db:"email_domain_dedupe_key"`
}

// Contact is a person record within a project
type Contact struct {
	ID        string  `json:"id" db:"id"`
	ProjectID string  `json:"project_id" db:"project_id"`
	ClientID  string  `json:"client_id" db:"client_id"`
	AccountID *string `json:"account_id,omitempty" db:"account_id"`

	FirstName   string `json:"first_name" db:"first_name"`
	LastName    string `json:"last_name" db:"last_name"`
	EmailAddr   string `json:"email" db:"email"`
	Phone       string `json:"phone" db:"phone"`
	CompanyName string `json:"company_name" db:"company_name"`

	ContactKeys
	Disposition

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IdentityChanged reports whether any field feeding the dedupe keys differs
// between two versions of the same contact.
func (c *Contact) IdentityChanged(prev *Contact) bool {
	if prev == nil {
		return false
	}
	return c.FirstName != prev.FirstName ||
		c.LastName != prev.LastName ||
		c.EmailAddr != prev.EmailAddr ||
		c.Phone != prev.Phone ||
		c.CompanyName != prev.CompanyName
}

// SuppressionContact is an entry of a client-level contact suppression file
type SuppressionContact struct {
	ID                string `json:"id" db:"id"`
	SuppressionFileID string `json:"suppression_file_id" db:"suppression_file_id"`
	ClientID          string `json:"client_id" db:"client_id"`

	FirstName   string `json:"first_name" db:"first_name"`
	LastName    string `json:"last_name" db:"last_name"`
	EmailAddr   string `json:"email" db:"email"`
	Phone       string `json:"phone" db:"phone"`
	CompanyName string `json:"company_name" db:"company_name"`

	ContactKeys

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UpsertContactRequest is the request body for creating or updating a contact
type UpsertContactRequest struct {
	ProjectID   string  `json:"project_id" validate:"required"`
	ClientID    string  `json:"client_id" validate:"required"`
	AccountID   *string `json:"account_id,omitempty" validate:"omitempty,uuid"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email" validate:"omitempty,email"`
	Phone       string  `json:"phone"`
	CompanyName string  `json:"company_name"`
}

// ToContact builds a contact from the request, keeping the given id
func (r UpsertContactRequest) ToContact(id string) *Contact {
	return &Contact{
		ID:          id,
		ProjectID:   r.ProjectID,
		ClientID:    r.ClientID,
		AccountID:   r.AccountID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		EmailAddr:   r.Email,
		Phone:       r.Phone,
		CompanyName: r.CompanyName,
	}
}

// Package dedupekeys derives the comparison keys stored on accounts and
// contacts. Every key is a pure function of the record's business fields and
// an empty string means the key is absent.
package dedupekeys

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// MinPhoneDigits is the shortest phone number that yields a phone key
const MinPhoneDigits = 7

// Builder computes dedupe keys for accounts and contacts
type Builder struct{}

// NewBuilder creates a new key builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AccountKeys derives the keys for an account
func (b *Builder) AccountKeys(a *models.Account) models.AccountKeys {
	scrubbed := ScrubName(a.Name)

	var alias string
	if a.Alias != nil {
		alias = ScrubName(*a.Alias)
	}

	return models.AccountKeys{
		Domain:       Host(a.Website),
		ScrubbedName: scrubbed,
		AliasName:    alias,
		Tokens:       tokens(scrubbed),
	}
}

// ContactKeys derives the keys for a contact
func (b *Builder) ContactKeys(c *models.Contact) models.ContactKeys {
	email := NormalizeEmail(c.EmailAddr)
	local, domain := SplitEmail(email)
	name := Alphanumeric(c.FirstName) + Alphanumeric(c.LastName)
	fullName := Alphanumeric(c.FirstName) != "" && Alphanumeric(c.LastName) != ""

	keys := models.ContactKeys{
		Email:                email,
		EmailNameDedupeKey:   Alphanumeric(local),
		EmailDomainDedupeKey: domain,
	}
	if !fullName {
		return keys
	}

	if domain != "" {
		keys.EmailDedupeKey = name + domain
	}
	if digits := DigitsOnly(c.Phone); len(digits) >= MinPhoneDigits {
		keys.PhoneDedupeKey = name + digits
	}
	if company := strings.ReplaceAll(ScrubName(c.CompanyName), " ", ""); company != "" {
		keys.CompanyDedupeKey = name + company
	}
	return keys
}

func tokens(scrubbed string) string {
	words := strings.Fields(scrubbed)
	if len(words) == 0 {
		return ""
	}
	sort.Strings(words)

	unique := words[:1]
	for _, w := range words[1:] {
		if w != unique[len(unique)-1] {
			unique = append(unique, w)
		}
	}
	return strings.Join(unique, " ")
}

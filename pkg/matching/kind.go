package matching

import (
	"fmt"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// kindSpec binds the generic gates to one record kind
type kindSpec[T, K, S any] struct {
	kind        models.Kind
	dims        []Dimension[K]
	keysOf      func(*T) K
	entryKeysOf func(*S) K
	idOf        func(*T) string
	projectOf   func(*T) string
}

func accountSpec() kindSpec[models.Account, models.AccountKeys, models.SuppressionAccount] {
	return kindSpec[models.Account, models.AccountKeys, models.SuppressionAccount]{
		kind:        models.KindAccount,
		dims:        AccountDimensions(),
		keysOf:      func(a *models.Account) models.AccountKeys { return a.AccountKeys },
		entryKeysOf: func(s *models.SuppressionAccount) models.AccountKeys { return s.AccountKeys },
		idOf:        func(a *models.Account) string { return a.ID },
		projectOf:   func(a *models.Account) string { return a.ProjectID },
	}
}

func contactSpec() kindSpec[models.Contact, models.ContactKeys, models.SuppressionContact] {
	return kindSpec[models.Contact, models.ContactKeys, models.SuppressionContact]{
		kind:        models.KindContact,
		dims:        ContactDimensions(),
		keysOf:      func(c *models.Contact) models.ContactKeys { return c.ContactKeys },
		entryKeysOf: func(s *models.SuppressionContact) models.ContactKeys { return s.ContactKeys },
		idOf:        func(c *models.Contact) string { return c.ID },
		projectOf:   func(c *models.Contact) string { return c.ProjectID },
	}
}

// lockKeys names every present key of the record within its project.
// Two records that could match each other always share at least one name.
func (k kindSpec[T, K, S]) lockKeys(record *T) []string {
	keys := k.keysOf(record)
	names := make([]string, 0, len(k.dims))
	for _, d := range k.dims {
		if v := d.Value(keys); present(v) {
			names = append(names, fmt.Sprintf("%s:%s:%s:%s", k.kind, k.projectOf(record), d.Column, v))
		}
	}
	return names
}

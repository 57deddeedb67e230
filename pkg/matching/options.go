package matching

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/thistle/pkg/models"
)

var validate = validator.New()

// CheckOptions selects which gates and key dimensions a check evaluates.
// A gate runs unless its flag is explicitly false. An empty Dimensions list
// enables every dimension of the record's kind.
type CheckOptions struct {
	CheckDuplicate   *bool              `json:"check_duplicate,omitempty"`
	CheckSuppression *bool              `json:"check_suppression,omitempty"`
	CheckFuzzy       *bool              `json:"check_fuzzy,omitempty"`
	Dimensions       []models.MatchCase `json:"dimensions,omitempty" validate:"omitempty,unique,dive,required"`
}

// DefaultCheckOptions enables every gate and every dimension
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		CheckDuplicate:   Bool(true),
		CheckSuppression: Bool(true),
		CheckFuzzy:       Bool(true),
	}
}

// Bool returns a pointer to v for setting option flags
func Bool(v bool) *bool {
	return &v
}

// withDefaults fills every absent flag from defaults
func (o CheckOptions) withDefaults(defaults CheckOptions) CheckOptions {
	if o.CheckDuplicate == nil {
		o.CheckDuplicate = defaults.CheckDuplicate
	}
	if o.CheckSuppression == nil {
		o.CheckSuppression = defaults.CheckSuppression
	}
	if o.CheckFuzzy == nil {
		o.CheckFuzzy = defaults.CheckFuzzy
	}
	return o
}

func (o CheckOptions) duplicateEnabled() bool {
	return flagEnabled(o.CheckDuplicate)
}

func (o CheckOptions) suppressionEnabled() bool {
	return flagEnabled(o.CheckSuppression)
}

func (o CheckOptions) fuzzyEnabled() bool {
	return flagEnabled(o.CheckFuzzy)
}

func flagEnabled(v *bool) bool {
	return v == nil || *v
}

// Validate checks the options against the dimensions known for kind
func (o CheckOptions) Validate(kind models.Kind) error {
	if err := validate.Struct(o); err != nil {
		return &CheckError{Code: ErrCodeInvalidOptions, Desc: err.Error()}
	}

	known := dimensionCases(kind)
	for _, c := range o.Dimensions {
		if !slices.Contains(known, c) {
			return &CheckError{
				Code: ErrCodeInvalidOptions,
				Desc: fmt.Sprintf("dimension %q is not valid for %s", c, kind),
			}
		}
	}
	return nil
}

func (o CheckOptions) enabled(c models.MatchCase) bool {
	return len(o.Dimensions) == 0 || slices.Contains(o.Dimensions, c)
}

func dimensionCases(kind models.Kind) []models.MatchCase {
	switch kind {
	case models.KindAccount:
		return casesOf(AccountDimensions())
	case models.KindContact:
		return casesOf(ContactDimensions())
	}
	return nil
}

package matching

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// ErrorCode classifies a failed check
type ErrorCode string

const (
	ErrCodeBadReferenceID   ErrorCode = "BadReferenceId"
	ErrCodeInvalidOptions   ErrorCode = "INVALID_CHECK_OPTIONS"
	ErrCodeDedupeCheck      ErrorCode = "DEDUPE_CHECK_ERROR"
	ErrCodeSuppressionCheck ErrorCode = "SUPPRESSION_CHECK_ERROR"
)

// CheckError is returned by every failed check. Err holds the underlying
// store failure, if any.
type CheckError struct {
	Code ErrorCode
	Desc string
	Err  error
}

func (e *CheckError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Desc)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Desc, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code onto an HTTP status class
func (e *CheckError) StatusCode() int {
	switch e.Code {
	case ErrCodeBadReferenceID, ErrCodeInvalidOptions:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsCode reports whether err is a CheckError with the given code
func IsCode(err error, code ErrorCode) bool {
	var checkErr *CheckError
	if errors.As(err, &checkErr) {
		return checkErr.Code == code
	}
	return false
}

func badReference(kind models.Kind, id string) *CheckError {
	return &CheckError{
		Code: ErrCodeBadReferenceID,
		Desc: fmt.Sprintf("%s %s does not exist", kind, id),
	}
}

func dedupeFailure(kind models.Kind, desc string, err error) *CheckError {
	return &CheckError{
		Code: ErrCodeDedupeCheck,
		Desc: fmt.Sprintf("%s duplicate check failed: %s", kind, desc),
		Err:  err,
	}
}

func suppressionFailure(kind models.Kind, desc string, err error) *CheckError {
	return &CheckError{
		Code: ErrCodeSuppressionCheck,
		Desc: fmt.Sprintf("%s suppression check failed: %s", kind, desc),
		Err:  err,
	}
}

// DependentFailure is one dependent that could not be re-evaluated
type DependentFailure struct {
	ID  string
	Err error
}

// CascadeError aggregates every dependent that failed during a cascade.
// Dependents not listed were re-evaluated and persisted.
type CascadeError struct {
	Kind     models.Kind
	RecordID string
	Failures []DependentFailure
}

func (e *CascadeError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return fmt.Sprintf("re-evaluating dependents of %s %s: %d failed (%s)",
		e.Kind, e.RecordID, len(e.Failures), strings.Join(ids, ", "))
}

func (e *CascadeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

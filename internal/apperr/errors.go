// Package apperr holds the error taxonomy shared by the pricing, event and
// registration packages. Callers match with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-membership/internal/models"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrConfig                = errors.New("event pricing configuration error")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrNotAvailable          = errors.New("not available for this event")
	ErrQuotaExceeded         = errors.New("speaker quota exceeded")
	ErrHasDependents         = errors.New("event has dependents")
	ErrNotAllowed            = errors.New("not allowed for this event")
	ErrNotFound              = errors.New("not found")
)

// Validation wraps ErrValidation with a message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Config wraps ErrConfig with a message.
func Config(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// HasDependentsError is returned when an event still has registrations or
// speaker bookings attached.
type HasDependentsError struct {
	EventID  string
	Blockers models.DeleteBlockers
}

func (e *HasDependentsError) Error() string {
	var names []string
	names = append(names, e.Blockers.Members...)
	names = append(names, e.Blockers.Guests...)
	names = append(names, e.Blockers.Speakers...)
	return fmt.Sprintf("event %s has dependents: %s", e.EventID, strings.Join(names, ", "))
}

func (e *HasDependentsError) Is(target error) bool {
	return target == ErrHasDependents
}

// HTTPStatus maps an error from the core to a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateRegistration),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrHasDependents):
		return http.StatusConflict
	case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrConfig):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

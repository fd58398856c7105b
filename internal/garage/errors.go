package garage

import (
	"errors"
	"strings"
)

// ErrInvalidRecord is returned when something other than a constructed
// MaintenanceRecord is added to a vehicle history.
var ErrInvalidRecord = errors.New("maintenance record was not built with NewMaintenanceRecord")

// ValidationError reports every field that failed construction checks.
type ValidationError struct {
	Subject  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Subject + ": " + strings.Join(e.Problems, "; ")
}

func newValidationError(subject string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Subject: subject, Problems: problems}
}

/*
errors.go - Validation failures for sale financial fields

PURPOSE:
  The derivations fail fast on malformed input instead of producing
  negative or drifting amounts. All schedule errors wrap the sentinel
  ErrInvalidSchedule so callers can classify with errors.Is.

USAGE:
  if errors.Is(err, schedule.ErrInvalidSchedule) {
      // 400, not 500
  }
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidSchedule is wrapped by every validation failure in this
	// package.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInstallmentNotPayable is returned when a payment targets an
	// installment other than the one following the last paid one.
	ErrInstallmentNotPayable = errors.New("installment not payable yet")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidScheduleError reports which field of which sale failed
// validation.
type InvalidScheduleError struct {
	SaleID string
	Field  string
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("sale %s: invalid %s: %s", e.SaleID, e.Field, e.Reason)
}

func (e *InvalidScheduleError) Unwrap() error { return ErrInvalidSchedule }

// IsClientError returns true if the error is due to invalid input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInstallmentNotPayable)
}

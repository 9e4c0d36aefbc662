/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers map them to transport status codes with the helpers at the bottom.

ERROR CATEGORIES:
  1. Input errors - Caller mistakes (bad time range, unknown enum value,
     missing identifier). Fail fast, never retried.
  2. Data-availability errors - Missing or locked records from a store.
     Propagated unchanged; retry policy belongs to the store.

  Non-compliance is NOT an error. Validators return it as data.

USAGE:
  if errors.Is(err, timecard.ErrInvalidTimeRange) {
      // 400
  }

SEE ALSO:
  - calc/hours.go: Raises InvalidTimeRangeError
  - api/handlers.go: Maps errors to HTTP status
*/
package timecard

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTimeRange is returned when an end time precedes its start time.
	ErrInvalidTimeRange = errors.New("invalid time range: end before start")

	// ErrMissingClockIn is returned when a shift has no clock-in timestamp.
	ErrMissingClockIn = errors.New("missing clock-in")

	// ErrMissingClockOut is returned when a calculation needs a closed shift.
	ErrMissingClockOut = errors.New("missing clock-out: shift still open")

	// ErrMissingEmployeeID is returned when a required employee identifier is empty.
	ErrMissingEmployeeID = errors.New("missing employee id")

	ErrUnknownCategory     = errors.New("unknown entry category")
	ErrUnknownStatus       = errors.New("unknown entry status")
	ErrUnknownEmployeeType = errors.New("unknown employee type")
	ErrUnknownBreakType    = errors.New("unknown break type")

	// ErrBreakOutsideShift is returned when a break is not inside its shift window.
	ErrBreakOutsideShift = errors.New("break outside shift window")

	// ErrInvalidThreshold is returned for non-positive or inverted hour thresholds.
	ErrInvalidThreshold = errors.New("invalid hour threshold")

	// ErrInvalidState is returned for a malformed jurisdiction code.
	ErrInvalidState = errors.New("invalid state code")

	// ErrOverlappingShifts is returned when a shift starts before the previous one ended.
	ErrOverlappingShifts = errors.New("overlapping shifts")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEntryNotFound is returned when a referenced time entry doesn't exist.
	ErrEntryNotFound = errors.New("time entry not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrEntryLocked is returned when writing over an approved, completed or
	// rejected entry.
	ErrEntryLocked = errors.New("time entry is locked")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTimeRangeError provides the offending interval.
type InvalidTimeRangeError struct {
	Field string // "shift", "break", "period"
	Start time.Time
	End   time.Time
}

func (e *InvalidTimeRangeError) Error() string {
	return fmt.Sprintf("invalid %s range: end %s before start %s",
		e.Field, e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *InvalidTimeRangeError) Unwrap() error {
	return ErrInvalidTimeRange
}

// FieldError names the input field that failed validation.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrMissingClockIn) ||
		errors.Is(err, ErrMissingClockOut) ||
		errors.Is(err, ErrMissingEmployeeID) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrUnknownStatus) ||
		errors.Is(err, ErrUnknownEmployeeType) ||
		errors.Is(err, ErrUnknownBreakType) ||
		errors.Is(err, ErrBreakOutsideShift) ||
		errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrOverlappingShifts)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}

// IsConflict returns true if the request conflicts with stored state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEntryLocked) ||
		errors.Is(err, ErrInvalidTransition)
}

package timecard

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// NormalizeState upper-cases a jurisdiction code and checks its shape.
// An empty code is valid and means "no state".
func NormalizeState(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", nil
	}
	if !stateCodePattern.MatchString(code) {
		return "", &FieldError{Field: "state", Value: code, Err: ErrInvalidState}
	}
	return code, nil
}

// Validate checks the entry's structural invariants. It does not evaluate
// labor rules.
func (e TimeEntry) Validate() error {
	if strings.TrimSpace(e.EmployeeID) == "" {
		return ErrMissingEmployeeID
	}
	if e.ClockIn.IsZero() {
		return ErrMissingClockIn
	}
	if e.ClockOut != nil && e.ClockOut.Before(e.ClockIn) {
		return &InvalidTimeRangeError{Field: "shift", Start: e.ClockIn, End: *e.ClockOut}
	}
	if e.Status != "" && !e.Status.Valid() {
		return &FieldError{Field: "status", Value: string(e.Status), Err: ErrUnknownStatus}
	}
	if !e.Category.Valid() {
		return &FieldError{Field: "category", Value: string(e.Category), Err: ErrUnknownCategory}
	}
	if !e.EmployeeType.Valid() {
		return &FieldError{Field: "employee_type", Value: string(e.EmployeeType), Err: ErrUnknownEmployeeType}
	}
	if _, err := NormalizeState(e.State); err != nil {
		return err
	}
	for _, b := range e.Breaks {
		if err := ValidateBreak(b, e.ClockIn, e.ClockOut); err != nil {
			return err
		}
	}
	return nil
}

// CheckOverlap returns ErrOverlappingShifts when e shares time with any
// closed, worked, non-rejected entry in others. Touching shifts don't
// overlap; an entry never overlaps its own stored version. An open e is
// checked at its clock-in.
func CheckOverlap(e TimeEntry, others []TimeEntry) error {
	if !e.IsWorked() || e.Status == StatusRejected {
		return nil
	}
	end := e.ClockIn.Add(time.Nanosecond)
	if e.ClockOut != nil && e.ClockOut.After(e.ClockIn) {
		end = *e.ClockOut
	}
	for _, o := range SortEntries(others) {
		if (e.ID != "" && o.ID == e.ID) || o.IsOpen() || !o.IsWorked() || o.Status == StatusRejected {
			continue
		}
		if o.ClockIn.Before(end) && e.ClockIn.Before(*o.ClockOut) {
			return fmt.Errorf("%w: shift %s runs %s to %s", ErrOverlappingShifts,
				o.ID, o.ClockIn.Format(time.RFC3339), o.ClockOut.Format(time.RFC3339))
		}
	}
	return nil
}

// ValidateBreak checks a break against its parent shift window. An open
// shift only bounds the break start.
func ValidateBreak(b Break, clockIn time.Time, clockOut *time.Time) error {
	if !b.Type.Valid() {
		return &FieldError{Field: "break_type", Value: string(b.Type), Err: ErrUnknownBreakType}
	}
	if b.End.Before(b.Start) {
		return &InvalidTimeRangeError{Field: "break", Start: b.Start, End: b.End}
	}
	if b.Start.Before(clockIn) {
		return &FieldError{Field: "break", Value: b.Start.Format(time.RFC3339), Err: ErrBreakOutsideShift}
	}
	if clockOut != nil && b.End.After(*clockOut) {
		return &FieldError{Field: "break", Value: b.End.Format(time.RFC3339), Err: ErrBreakOutsideShift}
	}
	return nil
}

// AssignIDs fills missing entry and break identifiers with random UUIDs and
// defaults the status to pending approval.
func AssignIDs(e TimeEntry) TimeEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = StatusPendingApproval
	}
	if len(e.Breaks) > 0 {
		breaks := make([]Break, len(e.Breaks))
		for i, b := range e.Breaks {
			if b.ID == "" {
				b.ID = uuid.NewString()
			}
			breaks[i] = b
		}
		e.Breaks = breaks
	}
	return e
}

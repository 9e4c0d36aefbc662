/*
Package timecard provides the data model consumed by the compliance engine.

PURPOSE:
  A TimeEntry is one shift: clock-in, clock-out and the breaks taken inside
  it. The calculation, overtime and compliance packages read entries as plain
  data; they never store them and never trust hours cached on them.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: One shift with its breaks and the flags rules depend on
  - Break: A meal or rest break inside a shift (composition, never shared)
  - Category: Worked time vs non-worked paid time (PTO, holiday, sick)
  - EmployeeType: Ordinary, medical resident, minor
  - Profile: Per-employee facts that are not per-shift (state, exemption)

DERIVED HOURS:
  TotalHours, RegularHours, OvertimeHours and DoubleTimeHours may be present
  on stored records as a display cache. They are NEVER authoritative: the
  engine recomputes them from ClockIn, ClockOut and Breaks every time, since
  policies can be corrected retroactively.

SEE ALSO:
  - status.go: Approval state machine
  - errors.go: Input and data-availability errors
  - store.go: Data-access interfaces the engine depends on
*/
package timecard

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME ENTRY - One clock-in to clock-out work period
// =============================================================================

// TimeEntry is a single shift.
type TimeEntry struct {
	ID         string
	EmployeeID string
	ClockIn    time.Time
	ClockOut   *time.Time // nil while the shift is open
	Status     Status
	Category   Category
	Breaks     []Break

	ExemptFromOvertime bool
	EmployeeType       EmployeeType
	EmployeeAge        *int
	SchoolDay          bool
	SchoolYear         bool
	State              string

	// Rest-period waiver metadata
	ReducedRestPeriod bool
	EmployeeConsent   bool
	PremiumPayRate    decimal.NullDecimal

	// Meal-break waiver metadata
	MealBreakWaived bool
	WaiverConsent   bool

	// Cached derived hours. Never read by the engine.
	TotalHours      decimal.Decimal
	RegularHours    decimal.Decimal
	OvertimeHours   decimal.Decimal
	DoubleTimeHours decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the shift has no clock-out yet.
func (e TimeEntry) IsOpen() bool { return e.ClockOut == nil }

// IsWorked reports whether the entry counts as hours worked.
// PTO, holiday and sick entries are paid but not worked.
func (e TimeEntry) IsWorked() bool { return e.Category.IsWorked() }

// Duration returns elapsed wall-clock time of a closed shift.
func (e TimeEntry) Duration() time.Duration {
	if e.ClockOut == nil {
		return 0
	}
	return e.ClockOut.Sub(e.ClockIn)
}

// Intersects reports whether the shift overlaps [from, to].
// Open shifts intersect when they started before to.
func (e TimeEntry) Intersects(from, to time.Time) bool {
	if e.ClockIn.After(to) {
		return false
	}
	if e.ClockOut == nil {
		return true
	}
	return !e.ClockOut.Before(from)
}

// =============================================================================
// CATEGORY - Worked vs non-worked paid time
// =============================================================================

type Category string

const (
	CategoryWork    Category = "work"
	CategoryPTO     Category = "pto"
	CategoryHoliday Category = "holiday"
	CategorySick    Category = "sick"
)

// IsWorked treats an empty category as worked time.
func (c Category) IsWorked() bool { return c == "" || c == CategoryWork }

func (c Category) Valid() bool {
	switch c {
	case "", CategoryWork, CategoryPTO, CategoryHoliday, CategorySick:
		return true
	}
	return false
}

// ParseCategory converts a stored or submitted category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", &FieldError{Field: "category", Value: s, Err: ErrUnknownCategory}
	}
	if c == "" {
		return CategoryWork, nil
	}
	return c, nil
}

// =============================================================================
// EMPLOYEE TYPE
// =============================================================================

type EmployeeType string

const (
	EmployeeOrdinary        EmployeeType = "ordinary"
	EmployeeMedicalResident EmployeeType = "medical_resident"
	EmployeeMinor           EmployeeType = "minor"
)

func (t EmployeeType) Valid() bool {
	switch t {
	case "", EmployeeOrdinary, EmployeeMedicalResident, EmployeeMinor:
		return true
	}
	return false
}

// Normalize maps the empty type to ordinary.
func (t EmployeeType) Normalize() EmployeeType {
	if t == "" {
		return EmployeeOrdinary
	}
	return t
}

func ParseEmployeeType(s string) (EmployeeType, error) {
	t := EmployeeType(s)
	if !t.Valid() {
		return "", &FieldError{Field: "employee_type", Value: s, Err: ErrUnknownEmployeeType}
	}
	return t.Normalize(), nil
}

// =============================================================================
// BREAK - Belongs to exactly one TimeEntry
// =============================================================================

type BreakType string

const (
	BreakLunch BreakType = "LUNCH"
	BreakMeal  BreakType = "MEAL"
	BreakShort BreakType = "SHORT_BREAK"
	BreakRest  BreakType = "REST"
)

func (t BreakType) Valid() bool {
	switch t {
	case BreakLunch, BreakMeal, BreakShort, BreakRest:
		return true
	}
	return false
}

// IsMeal reports whether the break counts toward meal-break rules.
func (t BreakType) IsMeal() bool { return t == BreakLunch || t == BreakMeal }

type Break struct {
	ID    string
	Type  BreakType
	Start time.Time
	End   time.Time
	Paid  bool
}

func (b Break) Duration() time.Duration { return b.End.Sub(b.Start) }

// Minutes returns the break length in whole minutes.
func (b Break) Minutes() int { return int(b.Duration() / time.Minute) }

func (b Break) IsMeal() bool { return b.Type.IsMeal() }

// MealBreaks returns the meal breaks of an entry in start order.
func (e TimeEntry) MealBreaks() []Break {
	var out []Break
	for _, b := range SortBreaks(e.Breaks) {
		if b.IsMeal() {
			out = append(out, b)
		}
	}
	return out
}

// RestBreaks returns the non-meal breaks of an entry in start order.
func (e TimeEntry) RestBreaks() []Break {
	var out []Break
	for _, b := range SortBreaks(e.Breaks) {
		if !b.IsMeal() {
			out = append(out, b)
		}
	}
	return out
}

// =============================================================================
// PROFILE - Per-employee facts
// =============================================================================

// Profile holds what the engine needs to know about an employee beyond a
// single shift.
type Profile struct {
	ID           string
	Name         string
	State        string
	EmployeeType EmployeeType
	Exempt       bool
	AnnualSalary decimal.Decimal
	BirthDate    *time.Time
	CreatedAt    time.Time
}

// AgeOn returns the employee's age in whole years on the given date, or
// nil if the birth date is unknown.
func (p Profile) AgeOn(at time.Time) *int {
	if p.BirthDate == nil {
		return nil
	}
	b := *p.BirthDate
	age := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		age--
	}
	return &age
}

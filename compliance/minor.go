package compliance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// MINOR RESTRICTIONS
// =============================================================================

// IsMinor reports whether an employee of the given age and type is covered
// by minor rules. The minor employee type counts even when age is unknown.
func IsMinor(age *int, t timecard.EmployeeType, rules policy.MinorRules) bool {
	if age != nil {
		return *age < rules.AgeLimit
	}
	return t == timecard.EmployeeMinor
}

// MinorRestrictions applies daily hour caps and the allowed time-of-day
// window to a closed shift. School days cap at SchoolDayMaxHours, other days
// at NonSchoolDayMaxHours. Work must fall between EarliestStart and the
// latest end, which is LatestEndSchoolYear during the school year (or on a
// school day) and LatestEndSummer otherwise.
func MinorRestrictions(e timecard.TimeEntry, worked decimal.Decimal, minor bool, rules policy.MinorRules, loc *time.Location) ValidationResult {
	r := newResult(CheckMinorRestrictions)
	r.IsMinor = minor
	r.HoursWorked = num(worked)
	if !minor {
		return r
	}

	if e.SchoolDay {
		r.MaximumAllowed = num(rules.SchoolDayMaxHours)
		if worked.GreaterThan(rules.SchoolDayMaxHours) {
			r.violate(SchoolDayHoursExceeded)
		}
	} else {
		r.MaximumAllowed = num(rules.NonSchoolDayMaxHours)
		if worked.GreaterThan(rules.NonSchoolDayMaxHours) {
			r.violate(NonSchoolDayHoursExceeded)
		}
	}

	latestEnd := rules.LatestEndSummer
	if e.SchoolDay || e.SchoolYear {
		latestEnd = rules.LatestEndSchoolYear
	}
	midnight := timecard.DayOf(e.ClockIn, loc).Start(loc)
	if e.ClockIn.Before(midnight.Add(rules.EarliestStart)) || e.ClockOut.After(midnight.Add(latestEnd)) {
		r.violate(ProhibitedHours)
	}
	return r
}

// ValidateMinorRestrictions checks the entry if the employee is a minor. Age
// comes from the entry, else from the profile's birth date at clock-in.
func (v *Validator) ValidateMinorRestrictions(ctx context.Context, e timecard.TimeEntry) (ValidationResult, error) {
	sc, err := v.prepare(ctx, e, "")
	if err != nil {
		return ValidationResult{}, err
	}
	return v.minorRestrictions(sc), nil
}

func (v *Validator) minorRestrictions(sc shiftContext) ValidationResult {
	age := sc.entry.EmployeeAge
	if age == nil {
		age = sc.profile.AgeOn(sc.entry.ClockIn)
	}
	t := sc.entry.EmployeeType
	if t == "" {
		t = sc.profile.EmployeeType
	}
	r := MinorRestrictions(sc.entry, sc.worked, IsMinor(age, t, sc.rules.Minor), sc.rules.Minor, v.loc())
	r.PolicyID = sc.rules.Sources[policy.TypeMinor]
	return r
}

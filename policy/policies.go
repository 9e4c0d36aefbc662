/*
policies.go - Pre-built federal and state policies

PURPOSE:
  Ready-to-register policies for the common rule sets. These are the same
  values as Defaults(), packaged as versioned Policy records so the Registry
  can report which policy applied to a shift.

AVAILABLE POLICIES:
  FederalOvertimePolicy:      40h weekly threshold at 1.5x
  CaliforniaOvertimePolicy:   8h daily, 12h double time, 7th-day rule
  ColoradoOvertimePolicy:     12h daily threshold, no double time
  StandardBreakPolicy:        30 min meal after 5h, 10 min rest per 4h
  StandardRestPolicy:         8h between shifts, 16h max shift, 6 days
  FederalMinorPolicy:         Under 18: 3h school day, 07:00-19:00 window
  FLSARecordKeepingPolicy:    2y time records, 3y payroll records

EXAMPLE:
  reg, err := policy.NewRegistry(policy.StandardPolicies(epoch)...)

SEE ALSO:
  - policy.go: Rule types and Defaults()
  - factory/policy.go: JSON-based policy creation
*/
package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OVERTIME
// =============================================================================

// FederalOvertimePolicy returns the FLSA weekly overtime baseline.
func FederalOvertimePolicy(effective time.Time) Policy {
	rules := Defaults().Overtime
	return Policy{
		ID:          "federal-overtime-v1",
		Name:        "FLSA Weekly Overtime",
		Type:        TypeOvertime,
		Version:     1,
		EffectiveAt: effective,
		Overtime:    &rules,
	}
}

// CaliforniaOvertimePolicy returns California daily overtime: 1.5x after 8h
// a day, 2x after 12h, plus the seventh-consecutive-day rule.
func CaliforniaOvertimePolicy(effective time.Time) Policy {
	rules := Defaults().Overtime
	rules.DailyThreshold = decimal.NewNullDecimal(d(8))
	rules.DoubleTimeThreshold = decimal.NewNullDecimal(d(12))
	rules.SeventhDayRule = true
	return Policy{
		ID:           "ca-overtime-v1",
		Name:         "California Daily Overtime",
		Type:         TypeOvertime,
		Jurisdiction: "CA",
		Version:      1,
		EffectiveAt:  effective,
		Overtime:     &rules,
	}
}

// ColoradoOvertimePolicy returns Colorado's 12-hour daily threshold.
func ColoradoOvertimePolicy(effective time.Time) Policy {
	rules := Defaults().Overtime
	rules.DailyThreshold = decimal.NewNullDecimal(d(12))
	return Policy{
		ID:           "co-overtime-v1",
		Name:         "Colorado Daily Overtime",
		Type:         TypeOvertime,
		Jurisdiction: "CO",
		Version:      1,
		EffectiveAt:  effective,
		Overtime:     &rules,
	}
}

// =============================================================================
// BREAKS, REST, MINORS
// =============================================================================

func StandardBreakPolicy(effective time.Time) Policy {
	rules := Defaults().Break
	return Policy{
		ID:          "federal-break-v1",
		Name:        "Meal and Rest Breaks",
		Type:        TypeBreak,
		Version:     1,
		EffectiveAt: effective,
		Break:       &rules,
	}
}

func StandardRestPolicy(effective time.Time) Policy {
	rules := Defaults().Rest
	return Policy{
		ID:          "federal-rest-v1",
		Name:        "Rest Periods and Maximum Hours",
		Type:        TypeRest,
		Version:     1,
		EffectiveAt: effective,
		Rest:        &rules,
	}
}

func FederalMinorPolicy(effective time.Time) Policy {
	rules := Defaults().Minor
	return Policy{
		ID:          "federal-minor-v1",
		Name:        "Minor Employment Restrictions",
		Type:        TypeMinor,
		Version:     1,
		EffectiveAt: effective,
		Minor:       &rules,
	}
}

// =============================================================================
// RECORD KEEPING
// =============================================================================

func FLSARecordKeepingPolicy(effective time.Time) Policy {
	rules := Defaults().RecordKeeping
	return Policy{
		ID:            "federal-record-keeping-v1",
		Name:          "FLSA Record Keeping",
		Type:          TypeRecordKeeping,
		Version:       1,
		EffectiveAt:   effective,
		RecordKeeping: &rules,
	}
}

// StandardPolicies returns every preset, effective from the given instant.
func StandardPolicies(effective time.Time) []Policy {
	return []Policy{
		FederalOvertimePolicy(effective),
		CaliforniaOvertimePolicy(effective),
		ColoradoOvertimePolicy(effective),
		StandardBreakPolicy(effective),
		StandardRestPolicy(effective),
		FederalMinorPolicy(effective),
		FLSARecordKeepingPolicy(effective),
	}
}

/*
Package policy defines the labor rules the engine evaluates against.

PURPOSE:
  A Policy is a named, versioned, immutable configuration of thresholds for
  one rule category. Each category has its own typed rules struct, so
  threshold names are checked at compile time instead of living in an
  untyped map.

KEY CONCEPTS:
  - Policy: One version of one rule category for one jurisdiction
  - Type: OVERTIME, BREAK, REST, MINOR, RECORD_KEEPING
  - Jurisdiction: Two-letter state code; empty is the federal baseline
  - RuleSet: Every category resolved for a jurisdiction at an instant

IMMUTABILITY:
  Policies are never edited once effective. A rule change is a new Policy
  with a higher Version and its own EffectiveAt. This preserves what rule
  applied to a past shift.

RESOLUTION:
  For each category the Registry picks, in order:
  1. The jurisdiction's latest version effective at the instant
  2. The federal baseline's latest version effective at the instant
  3. The built-in defaults (Defaults())

EXAMPLE:
  reg, _ := policy.NewRegistry(policy.StandardPolicies(epoch)...)
  rules := reg.Resolve("CA", shift.ClockIn)
  rules.Overtime.DailyThreshold // 8

SEE ALSO:
  - policies.go: Preset federal and state policies
  - registry.go: Append-only versioned store and resolution
  - factory/policy.go: JSON documents to Policy
*/
package policy

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// POLICY - Tagged union over rule categories
// =============================================================================

type Type string

const (
	TypeOvertime      Type = "OVERTIME"
	TypeBreak         Type = "BREAK"
	TypeRest          Type = "REST"
	TypeMinor         Type = "MINOR"
	TypeRecordKeeping Type = "RECORD_KEEPING"
)

func (t Type) Valid() bool {
	switch t {
	case TypeOvertime, TypeBreak, TypeRest, TypeMinor, TypeRecordKeeping:
		return true
	}
	return false
}

// Policy is one version of one rule category. Exactly one rules field is
// set, and it matches Type.
type Policy struct {
	ID           string
	Name         string
	Type         Type
	Jurisdiction string
	Version      int
	EffectiveAt  time.Time

	Overtime      *OvertimeRules
	Break         *BreakRules
	Rest          *RestRules
	Minor         *MinorRules
	RecordKeeping *RecordKeepingRules
}

var (
	ErrPolicyNotFound   = errors.New("policy not found")
	ErrDuplicateVersion = errors.New("policy version already exists")
	ErrInvalidPolicy    = errors.New("invalid policy")
)

// Validate checks that exactly the rules matching Type are present.
func (p Policy) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPolicy, p.Type)
	}
	if _, err := timecard.NormalizeState(p.Jurisdiction); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	set := map[Type]bool{
		TypeOvertime:      p.Overtime != nil,
		TypeBreak:         p.Break != nil,
		TypeRest:          p.Rest != nil,
		TypeMinor:         p.Minor != nil,
		TypeRecordKeeping: p.RecordKeeping != nil,
	}
	for t, present := range set {
		if t == p.Type && !present {
			return fmt.Errorf("%w: %s policy without %s rules", ErrInvalidPolicy, p.Type, t)
		}
		if t != p.Type && present {
			return fmt.Errorf("%w: %s policy carries %s rules", ErrInvalidPolicy, p.Type, t)
		}
	}
	if p.Overtime != nil {
		return p.Overtime.validate()
	}
	return nil
}

// =============================================================================
// RULES - One struct per category
// =============================================================================

// OvertimeRules split worked hours into pay buckets.
type OvertimeRules struct {
	// DailyThreshold enables daily overtime (state rules). Invalid = none.
	DailyThreshold decimal.NullDecimal
	// DoubleTimeThreshold is the daily hour count beyond which hours are double time.
	DoubleTimeThreshold decimal.NullDecimal

	WeeklyThreshold      decimal.Decimal
	Multiplier           decimal.Decimal
	DoubleTimeMultiplier decimal.Decimal

	// SeventhDayRule escalates the 7th consecutive worked day of a workweek.
	SeventhDayRule bool

	// ExemptFromOvertime exempts everyone under this policy that passes the
	// salary test.
	ExemptFromOvertime bool
	MinimumSalary      decimal.NullDecimal

	WorkweekStart time.Weekday
}

// HasDailyOvertime reports whether a daily threshold applies.
func (r OvertimeRules) HasDailyOvertime() bool {
	return r.DailyThreshold.Valid && r.DailyThreshold.Decimal.IsPositive()
}

// PassesSalaryTest reports whether a salary satisfies the exemption minimum.
func (r OvertimeRules) PassesSalaryTest(annualSalary decimal.Decimal) bool {
	if !r.MinimumSalary.Valid {
		return true
	}
	return annualSalary.GreaterThanOrEqual(r.MinimumSalary.Decimal)
}

func (r OvertimeRules) validate() error {
	if !r.WeeklyThreshold.IsPositive() {
		return fmt.Errorf("%w: weekly threshold must be positive", ErrInvalidPolicy)
	}
	if r.Multiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: overtime multiplier below 1", ErrInvalidPolicy)
	}
	if r.DoubleTimeThreshold.Valid {
		if !r.HasDailyOvertime() {
			return fmt.Errorf("%w: double-time threshold without daily threshold", ErrInvalidPolicy)
		}
		if r.DoubleTimeThreshold.Decimal.LessThan(r.DailyThreshold.Decimal) {
			return fmt.Errorf("%w: double-time threshold below daily threshold", ErrInvalidPolicy)
		}
	}
	return nil
}

// BreakRules govern meal and rest breaks within a shift.
type BreakRules struct {
	MealBreakAfterHours       decimal.Decimal
	MealBreakMinMinutes       int
	MealBreakDeadlineHours    decimal.Decimal
	WaiverMaxShiftHours       decimal.Decimal
	RestBreakMinutesPer4Hours int
}

// RestRules govern hours between and across shifts.
type RestRules struct {
	MinRestHoursBetweenShifts decimal.Decimal
	MaxShiftHours             decimal.Decimal
	MaxConsecutiveDays        int
	ConsecutiveLookbackDays   int

	// TwoWeekCaps bounds total hours in any rolling 14-day window for
	// special employee types.
	TwoWeekCaps map[timecard.EmployeeType]decimal.Decimal
}

// TwoWeekCap returns the cap for the employee type, if any.
func (r RestRules) TwoWeekCap(t timecard.EmployeeType) (decimal.Decimal, bool) {
	c, ok := r.TwoWeekCaps[t.Normalize()]
	return c, ok
}

// MinorRules restrict hours of employees under AgeLimit. Times of day are
// offsets from local midnight.
type MinorRules struct {
	AgeLimit             int
	SchoolDayMaxHours    decimal.Decimal
	NonSchoolDayMaxHours decimal.Decimal
	EarliestStart        time.Duration
	LatestEndSchoolYear  time.Duration
	LatestEndSummer      time.Duration
}

// RecordKeepingRules give minimum retention per record type.
type RecordKeepingRules struct {
	TimeRecordYears    int
	PayrollRecordYears int
}

// =============================================================================
// RULE SET - Every category resolved for one jurisdiction and instant
// =============================================================================

type RuleSet struct {
	Jurisdiction  string
	Overtime      OvertimeRules
	Break         BreakRules
	Rest          RestRules
	Minor         MinorRules
	RecordKeeping RecordKeepingRules

	// Sources lists the policy IDs that supplied each category; categories
	// served by built-in defaults are absent.
	Sources map[Type]string
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// Defaults returns the built-in federal baseline.
func Defaults() RuleSet {
	return RuleSet{
		Overtime: OvertimeRules{
			WeeklyThreshold:      d(40),
			Multiplier:           d(1.5),
			DoubleTimeMultiplier: d(2),
			WorkweekStart:        time.Sunday,
		},
		Break: BreakRules{
			MealBreakAfterHours:       d(5),
			MealBreakMinMinutes:       30,
			MealBreakDeadlineHours:    d(5),
			WaiverMaxShiftHours:       d(6),
			RestBreakMinutesPer4Hours: 10,
		},
		Rest: RestRules{
			MinRestHoursBetweenShifts: d(8),
			MaxShiftHours:             d(16),
			MaxConsecutiveDays:        6,
			ConsecutiveLookbackDays:   30,
			TwoWeekCaps: map[timecard.EmployeeType]decimal.Decimal{
				timecard.EmployeeMedicalResident: d(80),
			},
		},
		Minor: MinorRules{
			AgeLimit:             18,
			SchoolDayMaxHours:    d(3),
			NonSchoolDayMaxHours: d(8),
			EarliestStart:        7 * time.Hour,
			LatestEndSchoolYear:  19 * time.Hour,
			LatestEndSummer:      21 * time.Hour,
		},
		RecordKeeping: RecordKeepingRules{
			TimeRecordYears:    2,
			PayrollRecordYears: 3,
		},
		Sources: map[Type]string{},
	}
}

// apply overlays the rules of p onto the set.
func (rs *RuleSet) apply(p Policy) {
	switch p.Type {
	case TypeOvertime:
		rs.Overtime = *p.Overtime
	case TypeBreak:
		rs.Break = *p.Break
	case TypeRest:
		rs.Rest = *p.Rest
		rs.Rest.TwoWeekCaps = maps.Clone(p.Rest.TwoWeekCaps)
	case TypeMinor:
		rs.Minor = *p.Minor
	case TypeRecordKeeping:
		rs.RecordKeeping = *p.RecordKeeping
	}
	rs.Sources[p.Type] = p.ID
}

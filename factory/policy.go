/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON policy documents into policy.Policy values. Compliance staff
  can publish a new rule version (a state's daily overtime threshold, a new
  break minimum) without code changes; the factory builds the typed rules and
  the registry versions them.

JSON SCHEMA:
  {
    "id": "ca-overtime-2025",
    "name": "California Overtime 2025",
    "type": "OVERTIME",
    "jurisdiction": "CA",
    "version": 2,
    "effective_at": "2025-01-01T00:00:00Z",
    "overtime": {
      "daily_threshold": 8,
      "double_time_threshold": 12,
      "weekly_threshold": 40,
      "multiplier": 1.5,
      "double_time_multiplier": 2,
      "seventh_day_rule": true,
      "workweek_start": "sunday"
    },
    "state_overrides": {
      "CO": {"overtime": {"daily_threshold": 12, "weekly_threshold": 40}}
    }
  }

STATE OVERRIDES:
  Each entry of state_overrides yields one more policy of the same type for
  that state. Fields the override leaves out are taken from the base
  document. Override IDs are "<id>-<state>" (lower-cased state).

DEFAULTS:
  Omitted numeric fields fall back to policy.Defaults(); version 0 lets the
  registry assign the next version.

USAGE:
  f := NewPolicyFactory()
  policies, err := f.ParsePolicy(jsonString)
  for _, p := range policies {
      registry.Add(p)
  }

SEE ALSO:
  - policy/policy.go: Policy and rule types
  - policy/policies.go: Go-based presets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a policy.
type PolicyJSON struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Version      int    `json:"version,omitempty"`
	EffectiveAt  string `json:"effective_at"` // RFC 3339 or YYYY-MM-DD

	RulesJSON

	StateOverrides map[string]RulesJSON `json:"state_overrides,omitempty"`
}

// RulesJSON holds the rules block for each policy type. Only the block
// matching the policy type is read.
type RulesJSON struct {
	Overtime      *OvertimeJSON      `json:"overtime,omitempty"`
	Break         *BreakJSON         `json:"break,omitempty"`
	Rest          *RestJSON          `json:"rest,omitempty"`
	Minor         *MinorJSON         `json:"minor,omitempty"`
	RecordKeeping *RecordKeepingJSON `json:"record_keeping,omitempty"`
}

// OvertimeJSON represents overtime rules.
type OvertimeJSON struct {
	DailyThreshold       *float64 `json:"daily_threshold,omitempty"`
	DoubleTimeThreshold  *float64 `json:"double_time_threshold,omitempty"`
	WeeklyThreshold      *float64 `json:"weekly_threshold,omitempty"`
	Multiplier           *float64 `json:"multiplier,omitempty"`
	DoubleTimeMultiplier *float64 `json:"double_time_multiplier,omitempty"`
	SeventhDayRule       *bool    `json:"seventh_day_rule,omitempty"`
	ExemptFromOvertime   *bool    `json:"exempt_from_overtime,omitempty"`
	MinimumSalary        *float64 `json:"minimum_salary,omitempty"`
	WorkweekStart        string   `json:"workweek_start,omitempty"` // sunday..saturday
}

// BreakJSON represents meal and rest break rules.
type BreakJSON struct {
	MealBreakAfterHours       *float64 `json:"meal_break_after_hours,omitempty"`
	MealBreakMinMinutes       *int     `json:"meal_break_min_minutes,omitempty"`
	MealBreakDeadlineHours    *float64 `json:"meal_break_deadline_hours,omitempty"`
	WaiverMaxShiftHours       *float64 `json:"waiver_max_shift_hours,omitempty"`
	RestBreakMinutesPer4Hours *int     `json:"rest_break_minutes_per_4_hours,omitempty"`
}

// RestJSON represents rest-period and shift-length rules.
type RestJSON struct {
	MinRestHoursBetweenShifts *float64           `json:"min_rest_hours_between_shifts,omitempty"`
	MaxShiftHours             *float64           `json:"max_shift_hours,omitempty"`
	MaxConsecutiveDays        *int               `json:"max_consecutive_days,omitempty"`
	ConsecutiveLookbackDays   *int               `json:"consecutive_lookback_days,omitempty"`
	TwoWeekCaps               map[string]float64 `json:"two_week_caps,omitempty"` // employee type -> hours
}

// MinorJSON represents minor restrictions. Times of day are "HH:MM".
type MinorJSON struct {
	AgeLimit             *int     `json:"age_limit,omitempty"`
	SchoolDayMaxHours    *float64 `json:"school_day_max_hours,omitempty"`
	NonSchoolDayMaxHours *float64 `json:"non_school_day_max_hours,omitempty"`
	EarliestStart        string   `json:"earliest_start,omitempty"`
	LatestEndSchoolYear  string   `json:"latest_end_school_year,omitempty"`
	LatestEndSummer      string   `json:"latest_end_summer,omitempty"`
}

// RecordKeepingJSON represents record retention rules.
type RecordKeepingJSON struct {
	TimeRecordYears    *int `json:"time_record_years,omitempty"`
	PayrollRecordYears *int `json:"payroll_record_years,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON document into the base policy followed by one
// policy per state override, in state order.
func (f *PolicyFactory) ParsePolicy(jsonStr string) ([]policy.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse policy JSON: %v", policy.ErrInvalidPolicy, err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to policies. Every result is validated.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) ([]policy.Policy, error) {
	base, err := f.build(pj, pj.Jurisdiction, pj.RulesJSON)
	if err != nil {
		return nil, err
	}
	out := []policy.Policy{base}

	states := make([]string, 0, len(pj.StateOverrides))
	for s := range pj.StateOverrides {
		states = append(states, s)
	}
	sort.Strings(states)
	for _, s := range states {
		rules := merge(pj.RulesJSON, pj.StateOverrides[s])
		p, err := f.build(pj, s, rules)
		if err != nil {
			return nil, fmt.Errorf("state override %s: %w", s, err)
		}
		if pj.ID != "" {
			p.ID = pj.ID + "-" + strings.ToLower(p.Jurisdiction)
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *PolicyFactory) build(pj PolicyJSON, jurisdiction string, rj RulesJSON) (policy.Policy, error) {
	state, err := timecard.NormalizeState(jurisdiction)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("%w: %v", policy.ErrInvalidPolicy, err)
	}
	effective, err := parseEffectiveAt(pj.EffectiveAt)
	if err != nil {
		return policy.Policy{}, err
	}
	p := policy.Policy{
		ID:           pj.ID,
		Name:         pj.Name,
		Type:         policy.Type(strings.ToUpper(pj.Type)),
		Jurisdiction: state,
		Version:      pj.Version,
		EffectiveAt:  effective,
	}

	defaults := policy.Defaults()
	switch p.Type {
	case policy.TypeOvertime:
		if rj.Overtime != nil {
			r, err := parseOvertime(*rj.Overtime, defaults.Overtime)
			if err != nil {
				return policy.Policy{}, err
			}
			p.Overtime = &r
		}
	case policy.TypeBreak:
		if rj.Break != nil {
			r := parseBreak(*rj.Break, defaults.Break)
			p.Break = &r
		}
	case policy.TypeRest:
		if rj.Rest != nil {
			r, err := parseRest(*rj.Rest, defaults.Rest)
			if err != nil {
				return policy.Policy{}, err
			}
			p.Rest = &r
		}
	case policy.TypeMinor:
		if rj.Minor != nil {
			r, err := parseMinor(*rj.Minor, defaults.Minor)
			if err != nil {
				return policy.Policy{}, err
			}
			p.Minor = &r
		}
	case policy.TypeRecordKeeping:
		if rj.RecordKeeping != nil {
			r := parseRecordKeeping(*rj.RecordKeeping, defaults.RecordKeeping)
			p.RecordKeeping = &r
		}
	}

	if err := p.Validate(); err != nil {
		return policy.Policy{}, err
	}
	return p, nil
}

// merge overlays an override's rule blocks onto the base blocks, field by
// field.
func merge(base, override RulesJSON) RulesJSON {
	out := base
	if o := override.Overtime; o != nil {
		m := OvertimeJSON{}
		if base.Overtime != nil {
			m = *base.Overtime
		}
		m.DailyThreshold = pickFloat(o.DailyThreshold, m.DailyThreshold)
		m.DoubleTimeThreshold = pickFloat(o.DoubleTimeThreshold, m.DoubleTimeThreshold)
		m.WeeklyThreshold = pickFloat(o.WeeklyThreshold, m.WeeklyThreshold)
		m.Multiplier = pickFloat(o.Multiplier, m.Multiplier)
		m.DoubleTimeMultiplier = pickFloat(o.DoubleTimeMultiplier, m.DoubleTimeMultiplier)
		m.SeventhDayRule = pickBool(o.SeventhDayRule, m.SeventhDayRule)
		m.ExemptFromOvertime = pickBool(o.ExemptFromOvertime, m.ExemptFromOvertime)
		m.MinimumSalary = pickFloat(o.MinimumSalary, m.MinimumSalary)
		if o.WorkweekStart != "" {
			m.WorkweekStart = o.WorkweekStart
		}
		out.Overtime = &m
	}
	if o := override.Break; o != nil {
		m := BreakJSON{}
		if base.Break != nil {
			m = *base.Break
		}
		m.MealBreakAfterHours = pickFloat(o.MealBreakAfterHours, m.MealBreakAfterHours)
		m.MealBreakMinMinutes = pickInt(o.MealBreakMinMinutes, m.MealBreakMinMinutes)
		m.MealBreakDeadlineHours = pickFloat(o.MealBreakDeadlineHours, m.MealBreakDeadlineHours)
		m.WaiverMaxShiftHours = pickFloat(o.WaiverMaxShiftHours, m.WaiverMaxShiftHours)
		m.RestBreakMinutesPer4Hours = pickInt(o.RestBreakMinutesPer4Hours, m.RestBreakMinutesPer4Hours)
		out.Break = &m
	}
	if o := override.Rest; o != nil {
		m := RestJSON{}
		if base.Rest != nil {
			m = *base.Rest
		}
		m.MinRestHoursBetweenShifts = pickFloat(o.MinRestHoursBetweenShifts, m.MinRestHoursBetweenShifts)
		m.MaxShiftHours = pickFloat(o.MaxShiftHours, m.MaxShiftHours)
		m.MaxConsecutiveDays = pickInt(o.MaxConsecutiveDays, m.MaxConsecutiveDays)
		m.ConsecutiveLookbackDays = pickInt(o.ConsecutiveLookbackDays, m.ConsecutiveLookbackDays)
		if o.TwoWeekCaps != nil {
			m.TwoWeekCaps = o.TwoWeekCaps
		}
		out.Rest = &m
	}
	if o := override.Minor; o != nil {
		m := MinorJSON{}
		if base.Minor != nil {
			m = *base.Minor
		}
		m.AgeLimit = pickInt(o.AgeLimit, m.AgeLimit)
		m.SchoolDayMaxHours = pickFloat(o.SchoolDayMaxHours, m.SchoolDayMaxHours)
		m.NonSchoolDayMaxHours = pickFloat(o.NonSchoolDayMaxHours, m.NonSchoolDayMaxHours)
		m.EarliestStart = pickString(o.EarliestStart, m.EarliestStart)
		m.LatestEndSchoolYear = pickString(o.LatestEndSchoolYear, m.LatestEndSchoolYear)
		m.LatestEndSummer = pickString(o.LatestEndSummer, m.LatestEndSummer)
		out.Minor = &m
	}
	if o := override.RecordKeeping; o != nil {
		m := RecordKeepingJSON{}
		if base.RecordKeeping != nil {
			m = *base.RecordKeeping
		}
		m.TimeRecordYears = pickInt(o.TimeRecordYears, m.TimeRecordYears)
		m.PayrollRecordYears = pickInt(o.PayrollRecordYears, m.PayrollRecordYears)
		out.RecordKeeping = &m
	}
	return out
}

// ToJSON converts a Policy to PolicyJSON.
func (f *PolicyFactory) ToJSON(p policy.Policy) PolicyJSON {
	pj := PolicyJSON{
		ID:           p.ID,
		Name:         p.Name,
		Type:         string(p.Type),
		Jurisdiction: p.Jurisdiction,
		Version:      p.Version,
		EffectiveAt:  p.EffectiveAt.UTC().Format(time.RFC3339),
	}

	if r := p.Overtime; r != nil {
		oj := &OvertimeJSON{
			WeeklyThreshold:      floatPtr(r.WeeklyThreshold),
			Multiplier:           floatPtr(r.Multiplier),
			DoubleTimeMultiplier: floatPtr(r.DoubleTimeMultiplier),
			SeventhDayRule:       &r.SeventhDayRule,
			ExemptFromOvertime:   &r.ExemptFromOvertime,
			WorkweekStart:        strings.ToLower(r.WorkweekStart.String()),
		}
		if r.DailyThreshold.Valid {
			oj.DailyThreshold = floatPtr(r.DailyThreshold.Decimal)
		}
		if r.DoubleTimeThreshold.Valid {
			oj.DoubleTimeThreshold = floatPtr(r.DoubleTimeThreshold.Decimal)
		}
		if r.MinimumSalary.Valid {
			oj.MinimumSalary = floatPtr(r.MinimumSalary.Decimal)
		}
		pj.Overtime = oj
	}
	if r := p.Break; r != nil {
		pj.Break = &BreakJSON{
			MealBreakAfterHours:       floatPtr(r.MealBreakAfterHours),
			MealBreakMinMinutes:       intPtr(r.MealBreakMinMinutes),
			MealBreakDeadlineHours:    floatPtr(r.MealBreakDeadlineHours),
			WaiverMaxShiftHours:       floatPtr(r.WaiverMaxShiftHours),
			RestBreakMinutesPer4Hours: intPtr(r.RestBreakMinutesPer4Hours),
		}
	}
	if r := p.Rest; r != nil {
		rj := &RestJSON{
			MinRestHoursBetweenShifts: floatPtr(r.MinRestHoursBetweenShifts),
			MaxShiftHours:             floatPtr(r.MaxShiftHours),
			MaxConsecutiveDays:        intPtr(r.MaxConsecutiveDays),
			ConsecutiveLookbackDays:   intPtr(r.ConsecutiveLookbackDays),
		}
		if len(r.TwoWeekCaps) > 0 {
			rj.TwoWeekCaps = make(map[string]float64, len(r.TwoWeekCaps))
			for t, c := range r.TwoWeekCaps {
				rj.TwoWeekCaps[string(t)] = c.InexactFloat64()
			}
		}
		pj.Rest = rj
	}
	if r := p.Minor; r != nil {
		pj.Minor = &MinorJSON{
			AgeLimit:             intPtr(r.AgeLimit),
			SchoolDayMaxHours:    floatPtr(r.SchoolDayMaxHours),
			NonSchoolDayMaxHours: floatPtr(r.NonSchoolDayMaxHours),
			EarliestStart:        formatClock(r.EarliestStart),
			LatestEndSchoolYear:  formatClock(r.LatestEndSchoolYear),
			LatestEndSummer:      formatClock(r.LatestEndSummer),
		}
	}
	if r := p.RecordKeeping; r != nil {
		pj.RecordKeeping = &RecordKeepingJSON{
			TimeRecordYears:    intPtr(r.TimeRecordYears),
			PayrollRecordYears: intPtr(r.PayrollRecordYears),
		}
	}
	return pj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseEffectiveAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid effective_at %q", policy.ErrInvalidPolicy, s)
	}
	return t, nil
}

func parseOvertime(oj OvertimeJSON, def policy.OvertimeRules) (policy.OvertimeRules, error) {
	r := def
	if oj.DailyThreshold != nil {
		r.DailyThreshold = decimal.NewNullDecimal(decimal.NewFromFloat(*oj.DailyThreshold))
	}
	if oj.DoubleTimeThreshold != nil {
		r.DoubleTimeThreshold = decimal.NewNullDecimal(decimal.NewFromFloat(*oj.DoubleTimeThreshold))
	}
	if oj.MinimumSalary != nil {
		r.MinimumSalary = decimal.NewNullDecimal(decimal.NewFromFloat(*oj.MinimumSalary))
	}
	r.WeeklyThreshold = decimalOr(oj.WeeklyThreshold, r.WeeklyThreshold)
	r.Multiplier = decimalOr(oj.Multiplier, r.Multiplier)
	r.DoubleTimeMultiplier = decimalOr(oj.DoubleTimeMultiplier, r.DoubleTimeMultiplier)
	if oj.SeventhDayRule != nil {
		r.SeventhDayRule = *oj.SeventhDayRule
	}
	if oj.ExemptFromOvertime != nil {
		r.ExemptFromOvertime = *oj.ExemptFromOvertime
	}
	if oj.WorkweekStart != "" {
		wd, err := parseWeekday(oj.WorkweekStart)
		if err != nil {
			return policy.OvertimeRules{}, err
		}
		r.WorkweekStart = wd
	}
	return r, nil
}

func parseBreak(bj BreakJSON, def policy.BreakRules) policy.BreakRules {
	r := def
	r.MealBreakAfterHours = decimalOr(bj.MealBreakAfterHours, r.MealBreakAfterHours)
	r.MealBreakDeadlineHours = decimalOr(bj.MealBreakDeadlineHours, r.MealBreakDeadlineHours)
	r.WaiverMaxShiftHours = decimalOr(bj.WaiverMaxShiftHours, r.WaiverMaxShiftHours)
	if bj.MealBreakMinMinutes != nil {
		r.MealBreakMinMinutes = *bj.MealBreakMinMinutes
	}
	if bj.RestBreakMinutesPer4Hours != nil {
		r.RestBreakMinutesPer4Hours = *bj.RestBreakMinutesPer4Hours
	}
	return r
}

func parseRest(rj RestJSON, def policy.RestRules) (policy.RestRules, error) {
	r := def
	r.MinRestHoursBetweenShifts = decimalOr(rj.MinRestHoursBetweenShifts, r.MinRestHoursBetweenShifts)
	r.MaxShiftHours = decimalOr(rj.MaxShiftHours, r.MaxShiftHours)
	if rj.MaxConsecutiveDays != nil {
		r.MaxConsecutiveDays = *rj.MaxConsecutiveDays
	}
	if rj.ConsecutiveLookbackDays != nil {
		r.ConsecutiveLookbackDays = *rj.ConsecutiveLookbackDays
	}
	if rj.TwoWeekCaps != nil {
		r.TwoWeekCaps = make(map[timecard.EmployeeType]decimal.Decimal, len(rj.TwoWeekCaps))
		for name, hours := range rj.TwoWeekCaps {
			t, err := timecard.ParseEmployeeType(name)
			if err != nil {
				return policy.RestRules{}, fmt.Errorf("%w: %v", policy.ErrInvalidPolicy, err)
			}
			r.TwoWeekCaps[t] = decimal.NewFromFloat(hours)
		}
	}
	return r, nil
}

func parseMinor(mj MinorJSON, def policy.MinorRules) (policy.MinorRules, error) {
	r := def
	if mj.AgeLimit != nil {
		r.AgeLimit = *mj.AgeLimit
	}
	r.SchoolDayMaxHours = decimalOr(mj.SchoolDayMaxHours, r.SchoolDayMaxHours)
	r.NonSchoolDayMaxHours = decimalOr(mj.NonSchoolDayMaxHours, r.NonSchoolDayMaxHours)

	var err error
	if r.EarliestStart, err = parseClock(mj.EarliestStart, r.EarliestStart); err != nil {
		return policy.MinorRules{}, err
	}
	if r.LatestEndSchoolYear, err = parseClock(mj.LatestEndSchoolYear, r.LatestEndSchoolYear); err != nil {
		return policy.MinorRules{}, err
	}
	if r.LatestEndSummer, err = parseClock(mj.LatestEndSummer, r.LatestEndSummer); err != nil {
		return policy.MinorRules{}, err
	}
	return r, nil
}

func parseRecordKeeping(rj RecordKeepingJSON, def policy.RecordKeepingRules) policy.RecordKeepingRules {
	r := def
	if rj.TimeRecordYears != nil {
		r.TimeRecordYears = *rj.TimeRecordYears
	}
	if rj.PayrollRecordYears != nil {
		r.PayrollRecordYears = *rj.PayrollRecordYears
	}
	return r
}

func parseWeekday(s string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), s) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown workweek_start %q", policy.ErrInvalidPolicy, s)
}

// parseClock turns "HH:MM" into an offset from midnight. "24:00" is allowed.
func parseClock(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m > 0) {
		return 0, fmt.Errorf("%w: invalid time of day %q", policy.ErrInvalidPolicy, s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

func decimalOr(v *float64, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return decimal.NewFromFloat(*v)
}

func floatPtr(d decimal.Decimal) *float64 {
	v := d.InexactFloat64()
	return &v
}

func intPtr(v int) *int { return &v }

func pickFloat(o, b *float64) *float64 {
	if o != nil {
		return o
	}
	return b
}

func pickInt(o, b *int) *int {
	if o != nil {
		return o
	}
	return b
}

func pickBool(o, b *bool) *bool {
	if o != nil {
		return o
	}
	return b
}

func pickString(o, b string) string {
	if o != "" {
		return o
	}
	return b
}

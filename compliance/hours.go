package compliance

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/calc"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// TwoWeekDays is the length of the rolling window for two-week caps.
const TwoWeekDays = 14

// =============================================================================
// MAXIMUM SHIFT HOURS
// =============================================================================

// MaximumHours flags a single shift longer than MaxShiftHours. Such a shift
// always needs manager approval.
func MaximumHours(worked decimal.Decimal, rules policy.RestRules) ValidationResult {
	r := newResult(CheckMaximumHours)
	r.HoursWorked = num(worked)
	r.MaximumAllowed = num(rules.MaxShiftHours)
	if worked.GreaterThan(rules.MaxShiftHours) {
		r.violate(ExcessiveConsecutiveHours)
		r.RequiresManagerApproval = true
	}
	return r
}

// ValidateMaximumHours checks one shift against the maximum shift length.
func (v *Validator) ValidateMaximumHours(ctx context.Context, e timecard.TimeEntry) (ValidationResult, error) {
	sc, err := v.prepare(ctx, e, "")
	if err != nil {
		return ValidationResult{}, err
	}
	r := MaximumHours(sc.worked, sc.rules.Rest)
	r.PolicyID = sc.rules.Sources[policy.TypeRest]
	return r, nil
}

// =============================================================================
// WORK-HOUR WINDOW
// =============================================================================

// CheckWorkHourCompliance checks every shift in [start, end] against the
// maximum shift length and, for employee types with a two-week cap, every
// rolling 14-day window ending inside the range. An empty employeeType
// falls back to the employee's profile.
func (v *Validator) CheckWorkHourCompliance(ctx context.Context, employeeID string, start, end time.Time, employeeType timecard.EmployeeType) (ComplianceResult, error) {
	if strings.TrimSpace(employeeID) == "" {
		return ComplianceResult{}, timecard.ErrMissingEmployeeID
	}
	period, err := timecard.NewPeriod(start, end)
	if err != nil {
		return ComplianceResult{}, err
	}
	if !employeeType.Valid() {
		return ComplianceResult{}, &timecard.FieldError{Field: "employee_type", Value: string(employeeType), Err: timecard.ErrUnknownEmployeeType}
	}
	profile, rules, err := v.windowRules(ctx, employeeID, period.Start)
	if err != nil {
		return ComplianceResult{}, err
	}
	if employeeType == "" {
		employeeType = profile.EmployeeType
	}
	employeeType = employeeType.Normalize()

	loc := v.loc()
	first := timecard.DayOf(period.Start, loc)
	loaded, err := v.Entries.LoadEntries(ctx, employeeID, first.AddDays(-(TwoWeekDays - 1)).Start(loc), period.End)
	if err != nil {
		return ComplianceResult{}, err
	}

	res := ComplianceResult{
		EmployeeID:      employeeID,
		EmployeeType:    employeeType,
		PeriodStart:     period.Start,
		PeriodEnd:       period.End,
		Compliant:       true,
		Violations:      []ViolationCode{},
		ShiftViolations: []ShiftViolation{},
	}

	daily := make(map[timecard.Day]decimal.Decimal)
	for _, e := range workedEntries(loaded) {
		worked, err := calc.EntryWorkedHours(e)
		if err != nil {
			return ComplianceResult{}, err
		}
		day := timecard.DayOf(e.ClockIn, loc)
		daily[day] = daily[day].Add(worked)
		if !period.Contains(e.ClockIn) {
			continue
		}
		res.TotalHours = res.TotalHours.Add(worked)
		if MaximumHours(worked, rules.Rest).HasViolation(ExcessiveConsecutiveHours) {
			res.ShiftViolations = append(res.ShiftViolations, ShiftViolation{
				EntryID: e.ID, ClockIn: e.ClockIn, Code: ExcessiveConsecutiveHours, HoursWorked: worked,
			})
		}
	}
	if len(res.ShiftViolations) > 0 {
		res.Compliant = false
		res.Violations = append(res.Violations, ExcessiveConsecutiveHours)
		res.RequiresManagerApproval = true
	}

	if limit, ok := rules.Rest.TwoWeekCap(employeeType); ok {
		res.TwoWeekLimit = num(limit)
		maxHours, windowStart := maxRollingWindow(daily, period.Days(loc))
		res.MaxTwoWeekHours = maxHours
		if maxHours.GreaterThan(limit) {
			res.Compliant = false
			res.Violations = append(res.Violations, ExceedsTwoWeekLimit)
			res.TwoWeekWindowStart = windowStart.String()
		}
	}
	return res, nil
}

// maxRollingWindow returns the largest 14-day total among windows ending on
// each of the given days, with the start of the first such window.
func maxRollingWindow(daily map[timecard.Day]decimal.Decimal, ends []timecard.Day) (decimal.Decimal, timecard.Day) {
	best := decimal.Zero
	var bestStart timecard.Day
	for i, end := range ends {
		start := end.AddDays(-(TwoWeekDays - 1))
		sum := decimal.Zero
		for d := start; !end.Before(d); d = d.AddDays(1) {
			sum = sum.Add(daily[d])
		}
		if i == 0 || sum.GreaterThan(best) {
			best, bestStart = sum, start
		}
	}
	return best, bestStart
}

// =============================================================================
// CONSECUTIVE DAYS
// =============================================================================

// AnalyzeConsecutiveDays finds the longest run of worked calendar days in
// the lookbackDays ending today. lookbackDays <= 0 uses the configured or
// policy default.
func (v *Validator) AnalyzeConsecutiveDays(ctx context.Context, employeeID string, lookbackDays int) (ConsecutiveDaysResult, error) {
	return v.consecutiveDays(ctx, employeeID, timecard.DayOf(v.now(), v.loc()), lookbackDays)
}

func (v *Validator) consecutiveDays(ctx context.Context, employeeID string, last timecard.Day, lookbackDays int) (ConsecutiveDaysResult, error) {
	if strings.TrimSpace(employeeID) == "" {
		return ConsecutiveDaysResult{}, timecard.ErrMissingEmployeeID
	}
	loc := v.loc()
	_, rules, err := v.windowRules(ctx, employeeID, last.Start(loc))
	if err != nil {
		return ConsecutiveDaysResult{}, err
	}
	if lookbackDays <= 0 {
		lookbackDays = v.LookbackDays
	}
	if lookbackDays <= 0 {
		lookbackDays = rules.Rest.ConsecutiveLookbackDays
	}

	first := last.AddDays(-(lookbackDays - 1))
	from := first.Start(loc)
	to := last.AddDays(1).Start(loc).Add(-time.Nanosecond)
	entries, err := v.Entries.LoadEntries(ctx, employeeID, from, to)
	if err != nil {
		return ConsecutiveDaysResult{}, err
	}

	days := timecard.WorkedDays(entries, loc)
	for d := range days {
		if d.Before(first) || last.Before(d) {
			delete(days, d)
		}
	}
	streak := timecard.LongestStreak(days)

	res := ConsecutiveDaysResult{
		EmployeeID:      employeeID,
		LookbackDays:    lookbackDays,
		WindowStart:     first.String(),
		WindowEnd:       last.String(),
		Compliant:       true,
		Violations:      []ViolationCode{},
		ConsecutiveDays: streak.Length,
		MaxAllowed:      rules.Rest.MaxConsecutiveDays,
	}
	if streak.Length > 0 {
		res.StreakStart = streak.Start.String()
		res.StreakEnd = streak.End.String()
	}
	if streak.Length > rules.Rest.MaxConsecutiveDays {
		res.Compliant = false
		res.Violations = append(res.Violations, ConsecutiveDaysLimit)
		res.RequiresRestDay = true
	}
	return res, nil
}

/*
Package overtime aggregates shifts into weekly (or any period) overtime.

PURPOSE:
  Loads an employee's entries for a period, keeps the hours that count
  toward overtime and applies the period-level rules: weekly threshold,
  exemption, state daily overtime and the seventh-consecutive-day rule.

WHAT COUNTS:
  - approved or completed entries only
  - closed shifts only
  - category "work" only: PTO, holiday and sick time never count toward
    the hours that trigger overtime
  - a shift belongs to the day (and period) it clocked in on
  - the seventh-day rule needs seven worked days inside one workweek

ALLOCATION:
  Exempt:                 all hours regular, overtime 0
  No daily threshold:     regular = min(total, weekly), overtime = rest
  Daily threshold (CA):   per-day split first; weekly overtime applies only
                          to daily-regular hours above the weekly threshold

POLICY:
  Rules are resolved for the employee's state as in force at periodStart.

SEE ALSO:
  - calc/hours.go: Per-shift buckets
  - compliance/state.go: Per-shift state daily overtime report
*/
package overtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/calc"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// SeventhDay is the streak length that triggers the seventh-day rule.
const SeventhDay = 7

// Service computes period overtime. Employees may be nil.
type Service struct {
	Entries   timecard.EntryLoader
	Employees timecard.EmployeeDirectory
	Policies  policy.Resolver
	Location  *time.Location
}

func NewService(entries timecard.EntryLoader, employees timecard.EmployeeDirectory, policies policy.Resolver, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Entries: entries, Employees: employees, Policies: policies, Location: loc}
}

// DayHours is the bucketed hours worked on one calendar day.
type DayHours struct {
	Date string `json:"date"`
	calc.HourBreakdown
}

// WeeklyResult is the overtime outcome for one employee and period.
type WeeklyResult struct {
	EmployeeID  string    `json:"employee_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalHours      decimal.Decimal `json:"total_hours"`
	RegularHours    decimal.Decimal `json:"regular_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	DoubleTimeHours decimal.Decimal `json:"double_time_hours"`

	OvertimeMultiplier decimal.Decimal `json:"overtime_multiplier"`
	ExemptStatus       bool            `json:"exempt_status"`
	SeventhDayRule     bool            `json:"seventh_day_rule"`
	DailyOvertime      bool            `json:"daily_overtime"`

	Jurisdiction   string     `json:"jurisdiction"`
	PolicyID       string     `json:"policy_id,omitempty"`
	EntriesCounted int        `json:"entries_counted"`
	Days           []DayHours `json:"days"`
}

// CalculateWeeklyOvertime computes overtime for [periodStart, periodEnd].
func (s *Service) CalculateWeeklyOvertime(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (WeeklyResult, error) {
	if strings.TrimSpace(employeeID) == "" {
		return WeeklyResult{}, timecard.ErrMissingEmployeeID
	}
	period, err := timecard.NewPeriod(periodStart, periodEnd)
	if err != nil {
		return WeeklyResult{}, err
	}

	profile, err := LookupProfile(ctx, s.Employees, employeeID)
	if err != nil {
		return WeeklyResult{}, err
	}
	entries, err := s.Entries.LoadEntries(ctx, employeeID, period.Start, period.End)
	if err != nil {
		return WeeklyResult{}, err
	}
	counted := countable(entries, period)

	jurisdiction := Jurisdiction(profile, counted)
	rules := s.Policies.Resolve(jurisdiction, period.Start)
	ot := rules.Overtime

	result := WeeklyResult{
		EmployeeID:         employeeID,
		PeriodStart:        period.Start,
		PeriodEnd:          period.End,
		OvertimeMultiplier: ot.Multiplier,
		Jurisdiction:       jurisdiction,
		PolicyID:           rules.Sources[policy.TypeOvertime],
		EntriesCounted:     len(counted),
	}

	daily, err := s.dailyTotals(counted)
	if err != nil {
		return WeeklyResult{}, err
	}
	for _, d := range daily {
		result.TotalHours = result.TotalHours.Add(d.total)
	}

	result.ExemptStatus = IsExempt(ot, profile, counted)
	switch {
	case result.ExemptStatus:
		result.RegularHours = result.TotalHours
		result.Days = flatDays(daily)
	case ot.HasDailyOvertime():
		result.DailyOvertime = true
		th := calc.Thresholds{DailyOvertime: ot.DailyThreshold.Decimal, DoubleTime: ot.DoubleTimeThreshold}
		var sum calc.HourBreakdown
		for _, d := range daily {
			h := calc.Split(d.total, th)
			sum = sum.Add(h)
			result.Days = append(result.Days, DayHours{Date: d.day.String(), HourBreakdown: h})
		}
		weekly := decimal.Max(decimal.Zero, sum.RegularHours.Sub(ot.WeeklyThreshold))
		result.RegularHours = sum.RegularHours.Sub(weekly)
		result.OvertimeHours = sum.OvertimeHours.Add(weekly)
		result.DoubleTimeHours = sum.DoubleTimeHours
	default:
		result.RegularHours = decimal.Min(result.TotalHours, ot.WeeklyThreshold)
		result.OvertimeHours = result.TotalHours.Sub(result.RegularHours)
		result.Days = flatDays(daily)
	}

	if ot.SeventhDayRule && !result.ExemptStatus {
		if s.longestWorkweekStreak(daily, ot.WorkweekStart) >= SeventhDay {
			result.SeventhDayRule = true
			result.OvertimeMultiplier = ot.DoubleTimeMultiplier
		}
	}
	return result, nil
}

// CalculateWorkweek computes overtime for the workweek containing t, using
// the workweek start day of the employee's overtime policy.
func (s *Service) CalculateWorkweek(ctx context.Context, employeeID string, t time.Time) (WeeklyResult, error) {
	if strings.TrimSpace(employeeID) == "" {
		return WeeklyResult{}, timecard.ErrMissingEmployeeID
	}
	profile, err := LookupProfile(ctx, s.Employees, employeeID)
	if err != nil {
		return WeeklyResult{}, err
	}
	// Every possible workweek holding t lies inside this window.
	day := timecard.DayOf(t, s.Location)
	window := timecard.Period{
		Start: day.AddDays(-6).Start(s.Location),
		End:   day.AddDays(7).Start(s.Location).Add(-time.Nanosecond),
	}
	entries, err := s.Entries.LoadEntries(ctx, employeeID, window.Start, window.End)
	if err != nil {
		return WeeklyResult{}, err
	}
	rules := s.Policies.Resolve(Jurisdiction(profile, countable(entries, window)), t)
	week := timecard.WeekContaining(t, rules.Overtime.WorkweekStart, s.Location)
	return s.CalculateWeeklyOvertime(ctx, employeeID, week.Start, week.End)
}

// =============================================================================
// HELPERS
// =============================================================================

type dayTotal struct {
	day   timecard.Day
	total decimal.Decimal
}

// dailyTotals sums worked hours per clock-in day, in day order.
func (s *Service) dailyTotals(entries []timecard.TimeEntry) ([]dayTotal, error) {
	var out []dayTotal
	index := make(map[timecard.Day]int)
	for _, e := range entries {
		h, err := calc.EntryWorkedHours(e)
		if err != nil {
			return nil, err
		}
		day := timecard.DayOf(e.ClockIn, s.Location)
		if i, ok := index[day]; ok {
			out[i].total = out[i].total.Add(h)
			continue
		}
		index[day] = len(out)
		out = append(out, dayTotal{day: day, total: h})
	}
	return out, nil
}

// longestWorkweekStreak returns the longest run of worked days that stays
// inside a single workweek.
func (s *Service) longestWorkweekStreak(daily []dayTotal, weekStart time.Weekday) int {
	weeks := make(map[time.Time]map[timecard.Day]bool)
	for _, d := range daily {
		key := timecard.WeekContaining(d.day.Start(s.Location), weekStart, s.Location).Start
		if weeks[key] == nil {
			weeks[key] = make(map[timecard.Day]bool)
		}
		weeks[key][d.day] = true
	}
	best := 0
	for _, days := range weeks {
		best = max(best, timecard.LongestStreak(days).Length)
	}
	return best
}

func flatDays(daily []dayTotal) []DayHours {
	out := make([]DayHours, 0, len(daily))
	for _, d := range daily {
		out = append(out, DayHours{Date: d.day.String(), HourBreakdown: calc.HourBreakdown{TotalHours: d.total, RegularHours: d.total}})
	}
	return out
}

// countable keeps approved, closed, worked entries that clocked in inside
// the period. Input is ordered by clock-in, so the output is too.
func countable(entries []timecard.TimeEntry, period timecard.Period) []timecard.TimeEntry {
	var out []timecard.TimeEntry
	for _, e := range timecard.SortEntries(entries) {
		if !e.Status.CountsTowardPay() || e.IsOpen() || !e.IsWorked() {
			continue
		}
		if !period.Contains(e.ClockIn) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// IsExempt applies the exemption flags and the salary test.
func IsExempt(rules policy.OvertimeRules, profile timecard.Profile, entries []timecard.TimeEntry) bool {
	flagged := rules.ExemptFromOvertime || profile.Exempt
	for _, e := range entries {
		flagged = flagged || e.ExemptFromOvertime
	}
	return flagged && rules.PassesSalaryTest(profile.AnnualSalary)
}

// Jurisdiction picks the profile state, falling back to the first entry
// carrying one. Malformed codes resolve to the federal baseline.
func Jurisdiction(profile timecard.Profile, entries []timecard.TimeEntry) string {
	if s, err := timecard.NormalizeState(profile.State); err == nil && s != "" {
		return s
	}
	for _, e := range entries {
		if s, err := timecard.NormalizeState(e.State); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// LookupProfile returns the employee's profile, or a zero profile when the
// directory is nil or doesn't know the employee. Other errors propagate.
func LookupProfile(ctx context.Context, dir timecard.EmployeeDirectory, employeeID string) (timecard.Profile, error) {
	if dir == nil {
		return timecard.Profile{ID: employeeID}, nil
	}
	p, err := dir.GetProfile(ctx, employeeID)
	if errors.Is(err, timecard.ErrEmployeeNotFound) {
		return timecard.Profile{ID: employeeID}, nil
	}
	return p, err
}

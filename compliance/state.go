package compliance

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/calc"
	"github.com/warp/labor-engine/overtime"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// STATE RULES - Daily overtime and the seventh-consecutive-day rule
// =============================================================================

// StateOvertime reports state daily overtime for one shift. It never
// produces violations: daily overtime is owed pay, not a breach.
// consecutiveDays is the length of the worked-day run in the workweek that
// ends on the shift's day.
func StateOvertime(worked decimal.Decimal, rules policy.OvertimeRules, consecutiveDays int) ValidationResult {
	r := newResult(CheckStateCompliance)
	r.HoursWorked = num(worked)
	r.OvertimeMultiplier = num(rules.Multiplier)

	if rules.HasDailyOvertime() {
		h := calc.Split(worked, calc.Thresholds{DailyOvertime: rules.DailyThreshold.Decimal, DoubleTime: rules.DoubleTimeThreshold})
		r.MaximumAllowed = num(rules.DailyThreshold.Decimal)
		r.DailyOvertimeHours = num(h.OvertimeHours)
		r.DoubleTimeHours = num(h.DoubleTimeHours)
		r.DailyOvertimeApplies = h.OvertimeHours.IsPositive() || h.DoubleTimeHours.IsPositive()
	}
	if rules.SeventhDayRule && consecutiveDays >= overtime.SeventhDay {
		r.SeventhDayRule = true
		r.OvertimeMultiplier = num(rules.DoubleTimeMultiplier)
	}
	return r
}

// ValidateStateCompliance applies the overtime rules of stateCode (or the
// entry's own jurisdiction when empty) to the entry.
func (v *Validator) ValidateStateCompliance(ctx context.Context, e timecard.TimeEntry, stateCode string) (ValidationResult, error) {
	state, err := timecard.NormalizeState(stateCode)
	if err != nil {
		return ValidationResult{}, err
	}
	sc, err := v.prepare(ctx, e, state)
	if err != nil {
		return ValidationResult{}, err
	}
	return v.stateCompliance(ctx, sc)
}

func (v *Validator) stateCompliance(ctx context.Context, sc shiftContext) (ValidationResult, error) {
	rules := sc.rules.Overtime
	run := 0
	if rules.SeventhDayRule {
		var err error
		if run, err = v.workweekRun(ctx, sc.entry, rules); err != nil {
			return ValidationResult{}, err
		}
	}
	r := StateOvertime(sc.worked, rules, run)
	r.PolicyID = sc.rules.Sources[policy.TypeOvertime]
	return r, nil
}

// workweekRun counts consecutive worked days ending on the entry's day,
// without crossing the start of its workweek.
func (v *Validator) workweekRun(ctx context.Context, e timecard.TimeEntry, rules policy.OvertimeRules) (int, error) {
	loc := v.loc()
	week := timecard.WeekContaining(e.ClockIn, rules.WorkweekStart, loc)
	entries, err := v.Entries.LoadEntries(ctx, e.EmployeeID, week.Start, e.ClockIn)
	if err != nil {
		return 0, err
	}
	days := timecard.WorkedDays(entries, loc)
	today := timecard.DayOf(e.ClockIn, loc)
	days[today] = true

	first := timecard.DayOf(week.Start, loc)
	run := 0
	for d := today; days[d] && !d.Before(first); d = d.AddDays(-1) {
		run++
	}
	return run, nil
}

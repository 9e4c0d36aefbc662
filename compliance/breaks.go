package compliance

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// restBreakInterval is the worked time that earns one rest break.
var restBreakInterval = decimal.NewFromInt(4)

// =============================================================================
// BREAK REQUIREMENTS - Meal presence and length, waiver, rest break count
// =============================================================================

// BreakRequirements checks a closed entry with the given worked hours.
//
// A meal break is an unpaid LUNCH or MEAL break. One is required once worked
// hours exceed MealBreakAfterHours, unless the shift is shorter than
// WaiverMaxShiftHours and the employee waived it with consent. Rest breaks
// of at least RestBreakMinutesPer4Hours are required once per 4 hours
// worked, separately from the meal; their count is reported here and
// enforced by BreakPay.
func BreakRequirements(e timecard.TimeEntry, worked decimal.Decimal, rules policy.BreakRules) ValidationResult {
	r := newResult(CheckBreakRequirements)
	r.HoursWorked = num(worked)

	meals := unpaidMeals(e)
	actual, longest := 0, 0
	for _, b := range meals {
		m := b.Minutes()
		actual += m
		if m > longest {
			longest = m
		}
	}
	required := 0
	if worked.GreaterThan(rules.MealBreakAfterHours) {
		required = rules.MealBreakMinMinutes
	}
	r.RequiredBreakMinutes = count(required)
	r.ActualBreakMinutes = count(actual)

	if required > 0 {
		switch {
		case worked.LessThan(rules.WaiverMaxShiftHours) && e.MealBreakWaived && e.WaiverConsent:
			r.WaiverApplied = true
		case len(meals) == 0:
			r.violate(MissingMealBreak)
		case longest < required:
			r.violate(MealBreakTooShort)
		}
	}

	r.RequiredRestBreaks, r.ActualRestBreaks, r.MissingRestBreaks = restBreakCounts(e, worked, rules)
	return r
}

// BreakTiming checks that the first meal break starts within
// MealBreakDeadlineHours of clock-in. A shift without a meal break passes;
// presence is BreakRequirements' concern.
func BreakTiming(e timecard.TimeEntry, rules policy.BreakRules) ValidationResult {
	r := newResult(CheckBreakTiming)
	meals := unpaidMeals(e)
	if len(meals) == 0 {
		return r
	}
	start := meals[0].Start.Sub(e.ClockIn)
	r.MealBreakStartHours = num(timecard.Hours(start))
	if start > timecard.HoursDuration(rules.MealBreakDeadlineHours) {
		r.violate(MealBreakTooLate)
	}
	return r
}

// BreakPay checks that the rest breaks earned by the worked hours were taken
// and that every rest break is paid.
func BreakPay(e timecard.TimeEntry, worked decimal.Decimal, rules policy.BreakRules) ValidationResult {
	r := newResult(CheckBreakPay)
	r.HoursWorked = num(worked)
	r.RequiredRestBreaks, r.ActualRestBreaks, r.MissingRestBreaks = restBreakCounts(e, worked, rules)
	if *r.MissingRestBreaks > 0 {
		r.violate(MissingRestBreak)
	}

	unpaid := 0
	for _, b := range e.RestBreaks() {
		if !b.Paid {
			unpaid++
		}
	}
	r.UnpaidRestBreaks = count(unpaid)
	if unpaid > 0 {
		r.violate(UnpaidRestBreak)
	}
	return r
}

// restBreakCounts returns required, taken and missing rest breaks. Only
// breaks of at least RestBreakMinutesPer4Hours count as taken.
func restBreakCounts(e timecard.TimeEntry, worked decimal.Decimal, rules policy.BreakRules) (required, actual, missing *int) {
	req := int(worked.Div(restBreakInterval).IntPart())
	taken := 0
	for _, b := range e.RestBreaks() {
		if b.Minutes() >= rules.RestBreakMinutesPer4Hours {
			taken++
		}
	}
	miss := req - taken
	if miss < 0 {
		miss = 0
	}
	return count(req), count(taken), count(miss)
}

func unpaidMeals(e timecard.TimeEntry) []timecard.Break {
	var out []timecard.Break
	for _, b := range e.MealBreaks() {
		if !b.Paid {
			out = append(out, b)
		}
	}
	return out
}

// =============================================================================
// VALIDATOR METHODS
// =============================================================================

func (v *Validator) ValidateBreakRequirements(ctx context.Context, e timecard.TimeEntry) (ValidationResult, error) {
	sc, err := v.prepare(ctx, e, "")
	if err != nil {
		return ValidationResult{}, err
	}
	r := BreakRequirements(sc.entry, sc.worked, sc.rules.Break)
	r.PolicyID = sc.rules.Sources[policy.TypeBreak]
	return r, nil
}

func (v *Validator) ValidateBreakTiming(ctx context.Context, e timecard.TimeEntry) (ValidationResult, error) {
	sc, err := v.prepare(ctx, e, "")
	if err != nil {
		return ValidationResult{}, err
	}
	r := BreakTiming(sc.entry, sc.rules.Break)
	r.PolicyID = sc.rules.Sources[policy.TypeBreak]
	return r, nil
}

func (v *Validator) ValidateBreakPay(ctx context.Context, e timecard.TimeEntry) (ValidationResult, error) {
	sc, err := v.prepare(ctx, e, "")
	if err != nil {
		return ValidationResult{}, err
	}
	r := BreakPay(sc.entry, sc.worked, sc.rules.Break)
	r.PolicyID = sc.rules.Sources[policy.TypeBreak]
	return r, nil
}

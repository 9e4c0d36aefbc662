package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warp/labor-engine/overtime"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// restLookback bounds the search for the previous shift.
const restLookback = 7 * 24 * time.Hour

// =============================================================================
// REST PERIOD BETWEEN SHIFTS
// =============================================================================

// RestPeriod checks the gap between a previous shift's clock-out and the
// next clock-in. A short gap is allowed under a reduced-rest waiver with
// consent, and then owes premium pay.
func RestPeriod(prevClockOut, nextClockIn time.Time, waiver *RestWaiver, rules policy.RuleSet) ValidationResult {
	r := newResult(CheckRestPeriod)
	gap := timecard.HoursBetween(prevClockOut, nextClockIn)
	r.ActualRestHours = num(gap)
	r.RequiredRestHours = num(rules.Rest.MinRestHoursBetweenShifts)
	if !gap.LessThan(rules.Rest.MinRestHoursBetweenShifts) {
		return r
	}
	if waiver.valid() {
		r.PremiumPayRequired = true
		rate := rules.Overtime.Multiplier
		if waiver.PremiumPayRate.Valid {
			rate = waiver.PremiumPayRate.Decimal
		}
		r.PremiumPayRate = num(rate)
		return r
	}
	r.violate(InsufficientRestPeriod)
	return r
}

// ValidateRestPeriod checks the rest before a shift starting at nextClockIn
// against the employee's latest earlier shift. Without an earlier shift in
// the last week the rest is compliant.
func (v *Validator) ValidateRestPeriod(ctx context.Context, employeeID string, nextClockIn time.Time, waiver *RestWaiver) (ValidationResult, error) {
	if strings.TrimSpace(employeeID) == "" {
		return ValidationResult{}, timecard.ErrMissingEmployeeID
	}
	if nextClockIn.IsZero() {
		return ValidationResult{}, timecard.ErrMissingClockIn
	}
	profile, err := overtime.LookupProfile(ctx, v.Employees, employeeID)
	if err != nil {
		return ValidationResult{}, err
	}
	return v.restPeriod(ctx, employeeID, "", nextClockIn, waiver, overtime.Jurisdiction(profile, nil))
}

func (v *Validator) restPeriod(ctx context.Context, employeeID, excludeID string, nextClockIn time.Time, waiver *RestWaiver, jurisdiction string) (ValidationResult, error) {
	rules := v.Policies.Resolve(jurisdiction, nextClockIn)

	entries, err := v.Entries.LoadEntries(ctx, employeeID, nextClockIn.Add(-restLookback), nextClockIn)
	if err != nil {
		return ValidationResult{}, err
	}
	var prev *timecard.TimeEntry
	worked := workedEntries(entries)
	for i := range worked {
		if excludeID != "" && worked[i].ID == excludeID {
			continue
		}
		if worked[i].ClockIn.Before(nextClockIn) {
			prev = &worked[i]
		}
	}

	if prev == nil {
		r := newResult(CheckRestPeriod)
		r.RequiredRestHours = num(rules.Rest.MinRestHoursBetweenShifts)
		r.PolicyID = rules.Sources[policy.TypeRest]
		return r, nil
	}
	if prev.ClockOut.After(nextClockIn) {
		return ValidationResult{}, fmt.Errorf("%w: shift %s ends %s after next clock-in %s",
			timecard.ErrOverlappingShifts, prev.ID, prev.ClockOut.Format(time.RFC3339), nextClockIn.Format(time.RFC3339))
	}
	r := RestPeriod(*prev.ClockOut, nextClockIn, waiver, rules)
	r.PolicyID = rules.Sources[policy.TypeRest]
	return r, nil
}

func entryWaiver(e timecard.TimeEntry) *RestWaiver {
	return &RestWaiver{
		ReducedRestPeriod: e.ReducedRestPeriod,
		EmployeeConsent:   e.EmployeeConsent,
		PremiumPayRate:    e.PremiumPayRate,
	}
}

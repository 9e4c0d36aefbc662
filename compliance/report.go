package compliance

import (
	"context"
	"strings"
	"time"

	"github.com/warp/labor-engine/overtime"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// ENTRY REPORT
// =============================================================================

// ValidateEntry runs every per-entry check and merges their violations in
// check order. The rest-period check compares against the employee's
// previous shift and takes its waiver from the entry.
func (v *Validator) ValidateEntry(ctx context.Context, e timecard.TimeEntry) (Report, error) {
	sc, err := v.prepare(ctx, e, "")
	if err != nil {
		return Report{}, err
	}

	maxHours := MaximumHours(sc.worked, sc.rules.Rest)
	maxHours.PolicyID = sc.rules.Sources[policy.TypeRest]

	breakPolicy := sc.rules.Sources[policy.TypeBreak]
	requirements := BreakRequirements(sc.entry, sc.worked, sc.rules.Break)
	requirements.PolicyID = breakPolicy
	timing := BreakTiming(sc.entry, sc.rules.Break)
	timing.PolicyID = breakPolicy
	pay := BreakPay(sc.entry, sc.worked, sc.rules.Break)
	pay.PolicyID = breakPolicy

	rest, err := v.restPeriod(ctx, e.EmployeeID, e.ID, e.ClockIn, entryWaiver(e), sc.jurisdiction)
	if err != nil {
		return Report{}, err
	}
	minor := v.minorRestrictions(sc)
	state, err := v.stateCompliance(ctx, sc)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		EntryID:      e.ID,
		EmployeeID:   e.EmployeeID,
		Jurisdiction: sc.jurisdiction,
		Compliant:    true,
		Violations:   []ViolationCode{},
		Checks:       []ValidationResult{maxHours, requirements, timing, pay, rest, minor, state},
	}
	for _, c := range report.Checks {
		report.Violations = append(report.Violations, c.Violations...)
		report.RequiresManagerApproval = report.RequiresManagerApproval || c.RequiresManagerApproval
	}
	report.Compliant = len(report.Violations) == 0
	return report, nil
}

// =============================================================================
// EMPLOYEE SUMMARY
// =============================================================================

// Summarize runs the period-level views for an employee concurrently:
// weekly overtime, the work-hour window and the consecutive-day scan ending
// on the period's last day.
func (v *Validator) Summarize(ctx context.Context, employeeID string, start, end time.Time) (Summary, error) {
	if strings.TrimSpace(employeeID) == "" {
		return Summary{}, timecard.ErrMissingEmployeeID
	}
	period, err := timecard.NewPeriod(start, end)
	if err != nil {
		return Summary{}, err
	}

	ot := v.Overtime
	if ot == nil {
		ot = overtime.NewService(v.Entries, v.Employees, v.Policies, v.loc())
	}

	s := Summary{EmployeeID: employeeID, PeriodStart: period.Start, PeriodEnd: period.End}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s.Overtime, err = ot.CalculateWeeklyOvertime(gctx, employeeID, period.Start, period.End)
		return err
	})
	g.Go(func() error {
		var err error
		s.WorkHours, err = v.CheckWorkHourCompliance(gctx, employeeID, period.Start, period.End, "")
		return err
	})
	g.Go(func() error {
		var err error
		s.ConsecutiveDays, err = v.consecutiveDays(gctx, employeeID, timecard.DayOf(period.End, v.loc()), 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	s.Violations = append(append([]ViolationCode{}, s.WorkHours.Violations...), s.ConsecutiveDays.Violations...)
	s.Compliant = len(s.Violations) == 0
	return s, nil
}

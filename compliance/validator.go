package compliance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/calc"
	"github.com/warp/labor-engine/overtime"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator loads the data each check needs and runs it. It holds no
// mutable state and is safe for concurrent use.
type Validator struct {
	Entries   timecard.EntryLoader
	Employees timecard.EmployeeDirectory
	Policies  policy.Resolver
	Overtime  *overtime.Service

	// Now is the clock used for open shifts and the consecutive-day window.
	Now func() time.Time
	// Location defines calendar days and times of day.
	Location *time.Location
	// LookbackDays overrides the policy's consecutive-day lookback when > 0.
	LookbackDays int
}

func NewValidator(entries timecard.EntryLoader, employees timecard.EmployeeDirectory, policies policy.Resolver, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{
		Entries:   entries,
		Employees: employees,
		Policies:  policies,
		Overtime:  overtime.NewService(entries, employees, policies, loc),
		Now:       time.Now,
		Location:  loc,
	}
}

func (v *Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

func (v *Validator) loc() *time.Location {
	if v.Location == nil {
		return time.UTC
	}
	return v.Location
}

// shiftContext is everything a per-entry check needs.
type shiftContext struct {
	entry        timecard.TimeEntry // closed: open shifts are cut at Now
	profile      timecard.Profile
	jurisdiction string
	rules        policy.RuleSet
	worked       decimal.Decimal
}

// prepare validates the entry, closes it if open, loads the profile and
// resolves the rules in force at clock-in.
func (v *Validator) prepare(ctx context.Context, e timecard.TimeEntry, state string) (shiftContext, error) {
	if err := e.Validate(); err != nil {
		return shiftContext{}, err
	}
	if e.ClockOut == nil {
		out := v.now()
		if out.Before(e.ClockIn) {
			out = e.ClockIn
		}
		e.ClockOut = &out
	}
	worked, err := calc.EntryWorkedHours(e)
	if err != nil {
		return shiftContext{}, err
	}
	profile, err := overtime.LookupProfile(ctx, v.Employees, e.EmployeeID)
	if err != nil {
		return shiftContext{}, err
	}

	// Entry state wins over the profile state.
	jurisdiction := state
	if jurisdiction == "" {
		jurisdiction, _ = timecard.NormalizeState(e.State)
	}
	if jurisdiction == "" {
		jurisdiction = overtime.Jurisdiction(profile, nil)
	}
	return shiftContext{
		entry:        e,
		profile:      profile,
		jurisdiction: jurisdiction,
		rules:        v.Policies.Resolve(jurisdiction, e.ClockIn),
		worked:       worked,
	}, nil
}

// windowRules resolves the rules for an employee-level window check.
func (v *Validator) windowRules(ctx context.Context, employeeID string, at time.Time) (timecard.Profile, policy.RuleSet, error) {
	profile, err := overtime.LookupProfile(ctx, v.Employees, employeeID)
	if err != nil {
		return timecard.Profile{}, policy.RuleSet{}, err
	}
	return profile, v.Policies.Resolve(overtime.Jurisdiction(profile, nil), at), nil
}

// workedEntries keeps closed, worked, non-rejected entries: hours actually
// worked, whatever their approval state.
func workedEntries(entries []timecard.TimeEntry) []timecard.TimeEntry {
	var out []timecard.TimeEntry
	for _, e := range timecard.SortEntries(entries) {
		if e.IsOpen() || !e.IsWorked() || e.Status == timecard.StatusRejected {
			continue
		}
		out = append(out, e)
	}
	return out
}

// =============================================================================
// RECORD KEEPING
// =============================================================================

// RetentionPolicy returns the federal time-record retention rule in force now.
func (v *Validator) RetentionPolicy() policy.RetentionPolicy {
	return v.Policies.Resolve("", v.now()).RecordKeeping.TimeRecordRetention()
}

// PayrollRetentionPolicy returns the federal payroll retention rule in force now.
func (v *Validator) PayrollRetentionPolicy() policy.RetentionPolicy {
	return v.Policies.Resolve("", v.now()).RecordKeeping.PayrollRecordRetention()
}

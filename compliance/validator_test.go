package compliance_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/labor-engine/compliance"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
	"github.com/warp/labor-engine/timecard/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	// Monday 2025-03-10
	monday = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	now    = time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newValidator(t *testing.T) (*compliance.Validator, *store.Memory) {
	t.Helper()
	reg, err := policy.NewRegistry(policy.StandardPolicies(epoch)...)
	require.NoError(t, err)
	mem := store.NewMemory()
	v := compliance.NewValidator(mem, mem, reg, time.UTC)
	v.Now = func() time.Time { return now }
	return v, mem
}

// shift builds an entry on monday+dayOffset from startHour lasting hours.
func shift(dayOffset int, startHour, hours float64) timecard.TimeEntry {
	in := monday.AddDate(0, 0, dayOffset).Add(time.Duration(startHour * float64(time.Hour)))
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	return timecard.TimeEntry{EmployeeID: "emp-1", ClockIn: in, ClockOut: &out}
}

func brk(e timecard.TimeEntry, typ timecard.BreakType, afterHours float64, minutes int, paid bool) timecard.Break {
	start := e.ClockIn.Add(time.Duration(afterHours * float64(time.Hour)))
	return timecard.Break{Type: typ, Start: start, End: start.Add(time.Duration(minutes) * time.Minute), Paid: paid}
}

func save(t *testing.T, mem *store.Memory, e timecard.TimeEntry) timecard.TimeEntry {
	t.Helper()
	saved, err := mem.SaveEntry(context.Background(), e)
	require.NoError(t, err)
	return saved
}

func assertDec(t *testing.T, want float64, got *decimal.Decimal, msg string) {
	t.Helper()
	require.NotNil(t, got, msg)
	assert.True(t, got.Equal(dec(want)), "%s: want %v, got %s", msg, want, got)
}

// =============================================================================
// MAXIMUM HOURS
// =============================================================================

func TestValidateMaximumHours_EighteenHourShift(t *testing.T) {
	// GIVEN: An 18-hour shift
	// WHEN: Validating maximum hours
	// THEN: EXCESSIVE_CONSECUTIVE_HOURS and manager approval required

	v, _ := newValidator(t)

	r, err := v.ValidateMaximumHours(context.Background(), shift(0, 6, 18))

	require.NoError(t, err)
	assert.False(t, r.Compliant)
	assert.Equal(t, []compliance.ViolationCode{compliance.ExcessiveConsecutiveHours}, r.Violations)
	assert.True(t, r.RequiresManagerApproval)
	assertDec(t, 18, r.HoursWorked, "hours")
	assertDec(t, 16, r.MaximumAllowed, "max")
	assert.Equal(t, "federal-rest-v1", r.PolicyID)
}

func TestValidateMaximumHours_ExactlySixteenCompliant(t *testing.T) {
	v, _ := newValidator(t)

	r, err := v.ValidateMaximumHours(context.Background(), shift(0, 6, 16))

	require.NoError(t, err)
	assert.True(t, r.Compliant)
	assert.Empty(t, r.Violations)
}

func TestValidateMaximumHours_OpenShiftMeasuredToNow(t *testing.T) {
	v, _ := newValidator(t)
	open := timecard.TimeEntry{EmployeeID: "emp-1", ClockIn: now.Add(-17 * time.Hour)}

	r, err := v.ValidateMaximumHours(context.Background(), open)

	require.NoError(t, err)
	assert.True(t, r.HasViolation(compliance.ExcessiveConsecutiveHours))
}

func TestValidate_MalformedInputIsError(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 9, 8)
	e.Category = "vacation"

	_, err := v.ValidateMaximumHours(context.Background(), e)

	assert.ErrorIs(t, err, timecard.ErrUnknownCategory)
}

// =============================================================================
// BREAKS
// =============================================================================

func TestValidateBreakRequirements_SevenHoursNoBreaks(t *testing.T) {
	v, _ := newValidator(t)

	r, err := v.ValidateBreakRequirements(context.Background(), shift(0, 9, 7))

	require.NoError(t, err)
	assert.False(t, r.Compliant)
	assert.True(t, r.HasViolation(compliance.MissingMealBreak))
	require.NotNil(t, r.RequiredBreakMinutes)
	assert.Equal(t, 30, *r.RequiredBreakMinutes)
	require.NotNil(t, r.ActualBreakMinutes)
	assert.Equal(t, 0, *r.ActualBreakMinutes)
	assert.Equal(t, 1, *r.MissingRestBreaks)
}

func TestValidateBreakRequirements_WaiverWithConsent(t *testing.T) {
	// GIVEN: A 5.5h shift with the meal break waived and consented
	// THEN: Compliant with waiverApplied

	v, _ := newValidator(t)
	e := shift(0, 9, 5.5)
	e.MealBreakWaived = true
	e.WaiverConsent = true

	r, err := v.ValidateBreakRequirements(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, r.Compliant)
	assert.True(t, r.WaiverApplied)
}

func TestValidateBreakRequirements_WaiverWithoutConsent(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 9, 5.5)
	e.MealBreakWaived = true

	r, err := v.ValidateBreakRequirements(context.Background(), e)

	require.NoError(t, err)
	assert.False(t, r.WaiverApplied)
	assert.True(t, r.HasViolation(compliance.MissingMealBreak))
}

func TestValidateBreakRequirements_WaiverNotValidForLongShift(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 9, 7)
	e.MealBreakWaived = true
	e.WaiverConsent = true

	r, err := v.ValidateBreakRequirements(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, r.HasViolation(compliance.MissingMealBreak))
}

func TestValidateBreakRequirements_ShortMeal(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 9, 8)
	e.Breaks = []timecard.Break{brk(e, timecard.BreakLunch, 4, 20, false)}

	r, err := v.ValidateBreakRequirements(context.Background(), e)

	require.NoError(t, err)
	assert.Equal(t, []compliance.ViolationCode{compliance.MealBreakTooShort}, r.Violations)
	assert.Equal(t, 20, *r.ActualBreakMinutes)
}

func TestValidateBreakRequirements_PaidMealDoesNotCount(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 9, 8)
	e.Breaks = []timecard.Break{brk(e, timecard.BreakMeal, 4, 30, true)}

	r, err := v.ValidateBreakRequirements(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, r.HasViolation(compliance.MissingMealBreak))
}

func TestValidateBreakRequirements_FullyCompliantShift(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 9, 8.5)
	e.Breaks = []timecard.Break{
		brk(e, timecard.BreakShort, 2, 10, true),
		brk(e, timecard.BreakLunch, 4, 30, false),
		brk(e, timecard.BreakRest, 6.5, 10, true),
	}

	r, err := v.ValidateBreakRequirements(context.Background(), e)
	require.NoError(t, err)
	pay, err := v.ValidateBreakPay(context.Background(), e)
	require.NoError(t, err)

	assert.True(t, r.Compliant)
	assertDec(t, 8, r.HoursWorked, "worked")
	assert.Equal(t, 2, *r.RequiredRestBreaks)
	assert.Equal(t, 0, *r.MissingRestBreaks)
	assert.True(t, pay.Compliant)
}

func TestValidateBreakTiming(t *testing.T) {
	tests := []struct {
		name       string
		startAfter float64
		late       bool
	}{
		{"within first hours", 3, false},
		{"exactly at deadline", 5, false},
		{"after deadline", 5.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newValidator(t)
			e := shift(0, 8, 9)
			e.Breaks = []timecard.Break{brk(e, timecard.BreakLunch, tt.startAfter, 30, false)}

			r, err := v.ValidateBreakTiming(context.Background(), e)

			require.NoError(t, err)
			assert.Equal(t, tt.late, r.HasViolation(compliance.MealBreakTooLate))
			assertDec(t, tt.startAfter, r.MealBreakStartHours, "start")
		})
	}
}

func TestValidateBreakTiming_SecondsPastDeadline(t *testing.T) {
	// GIVEN: A meal starting 5h00m17s after clock-in
	// WHEN: Validating break timing
	// THEN: Late, though the reported start rounds to 5.00

	v, _ := newValidator(t)
	e := shift(0, 8, 9)
	start := e.ClockIn.Add(5*time.Hour + 17*time.Second)
	e.Breaks = []timecard.Break{{Type: timecard.BreakLunch, Start: start, End: start.Add(30 * time.Minute)}}

	r, err := v.ValidateBreakTiming(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, r.HasViolation(compliance.MealBreakTooLate))
	assertDec(t, 5, r.MealBreakStartHours, "start")
}

func TestValidateBreakPay_UnpaidRestBreak(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 9, 4.5)
	e.Breaks = []timecard.Break{brk(e, timecard.BreakShort, 2, 10, false)}

	r, err := v.ValidateBreakPay(context.Background(), e)

	require.NoError(t, err)
	assert.Equal(t, []compliance.ViolationCode{compliance.UnpaidRestBreak}, r.Violations)
	assert.Equal(t, 1, *r.UnpaidRestBreaks)
}

func TestValidateBreakPay_MissingRestBreak(t *testing.T) {
	v, _ := newValidator(t)

	r, err := v.ValidateBreakPay(context.Background(), shift(0, 9, 4))

	require.NoError(t, err)
	assert.Equal(t, []compliance.ViolationCode{compliance.MissingRestBreak}, r.Violations)
	assert.Equal(t, 1, *r.MissingRestBreaks)
}

// =============================================================================
// REST PERIOD
// =============================================================================

func TestValidateRestPeriod_SixHourGap(t *testing.T) {
	// GIVEN: A shift ending 22:00 and the next starting 04:00
	// THEN: INSUFFICIENT_REST_PERIOD with actualRestHours=6

	v, mem := newValidator(t)
	save(t, mem, shift(0, 14, 8))

	r, err := v.ValidateRestPeriod(context.Background(), "emp-1", monday.AddDate(0, 0, 1).Add(4*time.Hour), nil)

	require.NoError(t, err)
	assert.False(t, r.Compliant)
	assert.Equal(t, []compliance.ViolationCode{compliance.InsufficientRestPeriod}, r.Violations)
	assertDec(t, 6, r.ActualRestHours, "rest")
	assertDec(t, 8, r.RequiredRestHours, "required")
}

func TestValidateRestPeriod_WaiverRequiresPremium(t *testing.T) {
	v, mem := newValidator(t)
	save(t, mem, shift(0, 14, 8))
	waiver := &compliance.RestWaiver{
		ReducedRestPeriod: true,
		EmployeeConsent:   true,
		PremiumPayRate:    decimal.NewNullDecimal(dec(1.25)),
	}

	r, err := v.ValidateRestPeriod(context.Background(), "emp-1", monday.AddDate(0, 0, 1).Add(4*time.Hour), waiver)

	require.NoError(t, err)
	assert.True(t, r.Compliant)
	assert.True(t, r.PremiumPayRequired)
	assertDec(t, 1.25, r.PremiumPayRate, "premium")
}

func TestValidateRestPeriod_WaiverWithoutConsent(t *testing.T) {
	v, mem := newValidator(t)
	save(t, mem, shift(0, 14, 8))

	r, err := v.ValidateRestPeriod(context.Background(), "emp-1", monday.AddDate(0, 0, 1).Add(4*time.Hour),
		&compliance.RestWaiver{ReducedRestPeriod: true})

	require.NoError(t, err)
	assert.True(t, r.HasViolation(compliance.InsufficientRestPeriod))
	assert.False(t, r.PremiumPayRequired)
}

func TestValidateRestPeriod_NoPreviousShift(t *testing.T) {
	v, _ := newValidator(t)

	r, err := v.ValidateRestPeriod(context.Background(), "emp-1", monday, nil)

	require.NoError(t, err)
	assert.True(t, r.Compliant)
	assert.Nil(t, r.ActualRestHours)
}

func TestValidateRestPeriod_Overlap(t *testing.T) {
	v, mem := newValidator(t)
	save(t, mem, shift(0, 9, 8))

	_, err := v.ValidateRestPeriod(context.Background(), "emp-1", monday.Add(12*time.Hour), nil)

	assert.ErrorIs(t, err, timecard.ErrOverlappingShifts)
	assert.True(t, timecard.IsClientError(err))
}

// =============================================================================
// MINORS
// =============================================================================

func TestValidateMinorRestrictions_SchoolDayHours(t *testing.T) {
	// GIVEN: A 16-year-old working 4.5h on a school day
	// THEN: SCHOOL_DAY_HOURS_EXCEEDED

	v, _ := newValidator(t)
	e := shift(0, 14, 4.5)
	age := 16
	e.EmployeeAge = &age
	e.SchoolDay = true

	r, err := v.ValidateMinorRestrictions(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, r.IsMinor)
	assert.Equal(t, []compliance.ViolationCode{compliance.SchoolDayHoursExceeded}, r.Violations)
	assertDec(t, 3, r.MaximumAllowed, "max")
}

func TestValidateMinorRestrictions_ProhibitedHours(t *testing.T) {
	tests := []struct {
		name       string
		start, len float64
		schoolYear bool
		prohibited bool
	}{
		{"too early", 6, 2, false, true},
		{"late school-year evening", 17, 3, true, true},
		{"summer evening allowed", 17, 3, false, false},
		{"late summer night", 19, 3, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newValidator(t)
			e := shift(0, tt.start, tt.len)
			age := 15
			e.EmployeeAge = &age
			e.SchoolYear = tt.schoolYear

			r, err := v.ValidateMinorRestrictions(context.Background(), e)

			require.NoError(t, err)
			assert.Equal(t, tt.prohibited, r.HasViolation(compliance.ProhibitedHours))
		})
	}
}

func TestValidateMinorRestrictions_NonSchoolDayAndProfileAge(t *testing.T) {
	v, mem := newValidator(t)
	birth := monday.AddDate(-17, 0, 0)
	require.NoError(t, mem.SaveProfile(context.Background(), timecard.Profile{ID: "emp-1", BirthDate: &birth}))

	r, err := v.ValidateMinorRestrictions(context.Background(), shift(0, 8, 9))

	require.NoError(t, err)
	assert.True(t, r.IsMinor)
	assert.True(t, r.HasViolation(compliance.NonSchoolDayHoursExceeded))
}

func TestValidateMinorRestrictions_Adult(t *testing.T) {
	v, _ := newValidator(t)
	e := shift(0, 5, 12)
	age := 18
	e.EmployeeAge = &age

	r, err := v.ValidateMinorRestrictions(context.Background(), e)

	require.NoError(t, err)
	assert.False(t, r.IsMinor)
	assert.True(t, r.Compliant)
}

// =============================================================================
// STATE RULES
// =============================================================================

func TestValidateStateCompliance_CaliforniaElevenHours(t *testing.T) {
	v, _ := newValidator(t)

	r, err := v.ValidateStateCompliance(context.Background(), shift(0, 7, 11), "CA")

	require.NoError(t, err)
	assert.True(t, r.DailyOvertimeApplies)
	assertDec(t, 3, r.DailyOvertimeHours, "daily overtime")
	assertDec(t, 0, r.DoubleTimeHours, "double")
	assertDec(t, 1.5, r.OvertimeMultiplier, "multiplier")
	assert.Equal(t, "ca-overtime-v1", r.PolicyID)
}

func TestValidateStateCompliance_FederalNoDailyOvertime(t *testing.T) {
	v, _ := newValidator(t)

	r, err := v.ValidateStateCompliance(context.Background(), shift(0, 7, 11), "TX")

	require.NoError(t, err)
	assert.False(t, r.DailyOvertimeApplies)
	assert.Nil(t, r.DailyOvertimeHours)
}

func TestValidateStateCompliance_SeventhDay(t *testing.T) {
	// GIVEN: A CA employee who worked Sunday through Friday
	// WHEN: Validating the Saturday shift
	// THEN: seventhDayRule with a 2.0 multiplier

	v, mem := newValidator(t)
	sunday := -1
	for d := sunday; d < 5; d++ {
		save(t, mem, shift(d, 9, 6))
	}

	r, err := v.ValidateStateCompliance(context.Background(), shift(5, 9, 6), "ca")

	require.NoError(t, err)
	assert.True(t, r.SeventhDayRule)
	assertDec(t, 2, r.OvertimeMultiplier, "multiplier")
}

func TestValidateStateCompliance_InvalidState(t *testing.T) {
	v, _ := newValidator(t)

	_, err := v.ValidateStateCompliance(context.Background(), shift(0, 7, 11), "Calif")

	assert.ErrorIs(t, err, timecard.ErrInvalidState)
}

func TestValidateStateCompliance_PolicyAtShiftTime(t *testing.T) {
	// GIVEN: A new CA version raising the daily threshold to 10h from April
	// WHEN: Re-validating a March shift
	// THEN: The March rules (8h) still apply

	reg, err := policy.NewRegistry(policy.StandardPolicies(epoch)...)
	require.NoError(t, err)
	v2 := policy.CaliforniaOvertimePolicy(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	v2.ID, v2.Version = "ca-overtime-v2", 2
	v2.Overtime.DailyThreshold = decimal.NewNullDecimal(dec(10))
	_, err = reg.Add(v2)
	require.NoError(t, err)
	mem := store.NewMemory()
	v := compliance.NewValidator(mem, mem, reg, time.UTC)

	march, err := v.ValidateStateCompliance(context.Background(), shift(0, 7, 11), "CA")
	require.NoError(t, err)
	april, err := v.ValidateStateCompliance(context.Background(), shift(30, 7, 11), "CA")
	require.NoError(t, err)

	assertDec(t, 3, march.DailyOvertimeHours, "march")
	assertDec(t, 1, april.DailyOvertimeHours, "april")
}

// =============================================================================
// WINDOWS
// =============================================================================

func TestCheckWorkHourCompliance_MedicalResidentTwoWeekCap(t *testing.T) {
	// GIVEN: A medical resident working 12 x 7.5h = 90h in two weeks
	// THEN: EXCEEDS_TWO_WEEK_LIMIT

	v, mem := newValidator(t)
	for d := 0; d < 14; d++ {
		if d == 6 || d == 13 {
			continue
		}
		save(t, mem, shift(d, 8, 7.5))
	}
	start, end := monday, monday.AddDate(0, 0, 14).Add(-time.Nanosecond)

	res, err := v.CheckWorkHourCompliance(context.Background(), "emp-1", start, end, timecard.EmployeeMedicalResident)

	require.NoError(t, err)
	assert.False(t, res.Compliant)
	assert.Equal(t, []compliance.ViolationCode{compliance.ExceedsTwoWeekLimit}, res.Violations)
	assert.True(t, res.MaxTwoWeekHours.Equal(dec(90)))
	assertDec(t, 80, res.TwoWeekLimit, "limit")
	// the window ending 2025-03-22 already holds all 90 hours
	assert.Equal(t, "2025-03-09", res.TwoWeekWindowStart)
}

func TestCheckWorkHourCompliance_OrdinaryHasNoCap(t *testing.T) {
	v, mem := newValidator(t)
	for d := 0; d < 12; d++ {
		save(t, mem, shift(d, 8, 8))
	}
	save(t, mem, shift(12, 2, 17))

	res, err := v.CheckWorkHourCompliance(context.Background(), "emp-1", monday, monday.AddDate(0, 0, 14), "")

	require.NoError(t, err)
	assert.Nil(t, res.TwoWeekLimit)
	assert.Equal(t, []compliance.ViolationCode{compliance.ExcessiveConsecutiveHours}, res.Violations)
	require.Len(t, res.ShiftViolations, 1)
	assert.True(t, res.RequiresManagerApproval)
	assert.True(t, res.TotalHours.Equal(dec(113)))
}

func TestCheckWorkHourCompliance_UnknownType(t *testing.T) {
	v, _ := newValidator(t)

	_, err := v.CheckWorkHourCompliance(context.Background(), "emp-1", monday, monday.AddDate(0, 0, 7), "intern")

	assert.ErrorIs(t, err, timecard.ErrUnknownEmployeeType)
}

func TestAnalyzeConsecutiveDays_SevenDays(t *testing.T) {
	v, mem := newValidator(t)
	for d := 3; d < 10; d++ {
		save(t, mem, shift(d, 9, 8))
	}

	res, err := v.AnalyzeConsecutiveDays(context.Background(), "emp-1", 0)

	require.NoError(t, err)
	assert.Equal(t, 30, res.LookbackDays)
	assert.Equal(t, 7, res.ConsecutiveDays)
	assert.False(t, res.Compliant)
	assert.Equal(t, []compliance.ViolationCode{compliance.ConsecutiveDaysLimit}, res.Violations)
	assert.True(t, res.RequiresRestDay)
	assert.Equal(t, "2025-03-13", res.StreakStart)
	assert.Equal(t, "2025-03-19", res.StreakEnd)
}

func TestAnalyzeConsecutiveDays_SixDaysCompliantAndLookbackBounds(t *testing.T) {
	v, mem := newValidator(t)
	for d := 0; d < 6; d++ {
		save(t, mem, shift(d, 9, 8))
	}
	pto := shift(6, 9, 8)
	pto.Category = timecard.CategoryPTO
	save(t, mem, pto)

	res, err := v.AnalyzeConsecutiveDays(context.Background(), "emp-1", 0)
	require.NoError(t, err)
	assert.True(t, res.Compliant)
	assert.Equal(t, 6, res.ConsecutiveDays)

	// 2025-03-10..15 lie outside a 3-day lookback ending 2025-03-20
	short, err := v.AnalyzeConsecutiveDays(context.Background(), "emp-1", 3)
	require.NoError(t, err)
	assert.Zero(t, short.ConsecutiveDays)
	assert.Equal(t, "2025-03-18", short.WindowStart)
}

// =============================================================================
// REPORT, SUMMARY, RETENTION
// =============================================================================

func TestValidateEntry_ComposesInCheckOrder(t *testing.T) {
	v, mem := newValidator(t)
	save(t, mem, shift(0, 6, 8))
	e := save(t, mem, shift(0, 18, 18))

	report, err := v.ValidateEntry(context.Background(), e)

	require.NoError(t, err)
	assert.False(t, report.Compliant)
	assert.True(t, report.RequiresManagerApproval)
	require.Len(t, report.Checks, 7)
	assert.Equal(t, compliance.CheckMaximumHours, report.Checks[0].Check)
	assert.Equal(t, compliance.CheckStateCompliance, report.Checks[6].Check)
	assert.Equal(t, []compliance.ViolationCode{
		compliance.ExcessiveConsecutiveHours,
		compliance.MissingMealBreak,
		compliance.MissingRestBreak,
		compliance.InsufficientRestPeriod,
	}, report.Violations)

	rest, ok := report.Check(compliance.CheckRestPeriod)
	require.True(t, ok)
	assertDec(t, 4, rest.ActualRestHours, "rest")
}

func TestValidateEntry_Idempotent(t *testing.T) {
	v, mem := newValidator(t)
	save(t, mem, shift(0, 6, 8))
	e := shift(0, 20, 7)
	e.State = "CA"
	e.Breaks = []timecard.Break{brk(e, timecard.BreakLunch, 5.5, 20, false)}

	first, err := v.ValidateEntry(context.Background(), e)
	require.NoError(t, err)
	second, err := v.ValidateEntry(context.Background(), e)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSummarize(t *testing.T) {
	v, mem := newValidator(t)
	for d := 0; d < 7; d++ {
		e := shift(d, 8, 9)
		e.Status = timecard.StatusApproved
		save(t, mem, e)
	}

	s, err := v.Summarize(context.Background(), "emp-1", monday, monday.AddDate(0, 0, 7).Add(-time.Nanosecond))

	require.NoError(t, err)
	assert.True(t, s.Overtime.TotalHours.Equal(dec(63)))
	assert.True(t, s.Overtime.OvertimeHours.Equal(dec(23)))
	assert.Equal(t, 7, s.ConsecutiveDays.ConsecutiveDays)
	assert.False(t, s.Compliant)
	assert.Equal(t, []compliance.ViolationCode{compliance.ConsecutiveDaysLimit}, s.Violations)
}

type failingLoader struct{ err error }

func (f failingLoader) LoadEntries(context.Context, string, time.Time, time.Time) ([]timecard.TimeEntry, error) {
	return nil, f.err
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("db unavailable")
	reg, err := policy.NewRegistry()
	require.NoError(t, err)
	v := compliance.NewValidator(failingLoader{boom}, nil, reg, time.UTC)

	_, err = v.ValidateRestPeriod(context.Background(), "emp-1", monday, nil)
	assert.ErrorIs(t, err, boom)

	_, err = v.Summarize(context.Background(), "emp-1", monday, monday.AddDate(0, 0, 7))
	assert.ErrorIs(t, err, boom)
}

func TestRetentionPolicies(t *testing.T) {
	v, _ := newValidator(t)

	assert.Equal(t, 2, v.RetentionPolicy().MinimumYears)
	assert.Equal(t, policy.RecordTime, v.RetentionPolicy().RecordType)
	assert.Equal(t, 3, v.PayrollRetentionPolicy().MinimumYears)
}

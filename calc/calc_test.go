package calc_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/labor-engine/calc"
	"github.com/warp/labor-engine/timecard"
)

var (
	base  = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	eight = calc.Thresholds{DailyOvertime: dec(8)}
	ca    = calc.Thresholds{DailyOvertime: dec(8), DoubleTime: decimal.NewNullDecimal(dec(12))}
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func hours(h float64) time.Time { return base.Add(time.Duration(h * float64(time.Hour))) }

func assertDec(t *testing.T, want float64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "%s: want %v, got %s", msg, want, got)
}

// =============================================================================
// DAILY HOURS
// =============================================================================

func TestCalculateDailyHours_Buckets(t *testing.T) {
	tests := []struct {
		name                      string
		length                    float64
		th                        calc.Thresholds
		regular, overtime, double float64
	}{
		{"under threshold", 6, eight, 6, 0, 0},
		{"exactly at threshold", 8, eight, 8, 0, 0},
		{"overtime without double time", 13, eight, 8, 5, 0},
		{"california 11h", 11, ca, 8, 3, 0},
		{"california 12h", 12, ca, 8, 4, 0},
		{"california 14.5h", 14.5, ca, 8, 4, 2.5},
		{"zero duration", 0, ca, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := calc.CalculateDailyHours(base, hours(tt.length), nil, tt.th)

			require.NoError(t, err)
			assertDec(t, tt.length, h.TotalHours, "total")
			assertDec(t, tt.regular, h.RegularHours, "regular")
			assertDec(t, tt.overtime, h.OvertimeHours, "overtime")
			assertDec(t, tt.double, h.DoubleTimeHours, "double")
		})
	}
}

func TestCalculateDailyHours_BucketsSumToTotal(t *testing.T) {
	// GIVEN: Shifts of every length from 0 to 20h in 7-minute steps
	// WHEN: Splitting with and without a double-time threshold
	// THEN: regular + overtime + double == total exactly

	for _, th := range []calc.Thresholds{eight, ca} {
		for m := 0; m <= 20*60; m += 7 {
			out := base.Add(time.Duration(m) * time.Minute)
			h, err := calc.CalculateDailyHours(base, out, nil, th)
			require.NoError(t, err)

			sum := h.RegularHours.Add(h.OvertimeHours).Add(h.DoubleTimeHours)
			require.True(t, sum.Equal(h.TotalHours), "minutes=%d sum=%s total=%s", m, sum, h.TotalHours)
			require.False(t, h.RegularHours.GreaterThan(th.DailyOvertime))
		}
	}
}

func TestCalculateDailyHours_UnpaidBreaksDeducted(t *testing.T) {
	breaks := []timecard.Break{
		{Type: timecard.BreakLunch, Start: hours(4), End: hours(4.5)},
		{Type: timecard.BreakShort, Start: hours(2), End: hours(2).Add(10 * time.Minute), Paid: true},
	}

	h, err := calc.CalculateDailyHours(base, hours(9), breaks, eight)

	require.NoError(t, err)
	assertDec(t, 8.5, h.TotalHours, "total")
	assertDec(t, 0.5, h.OvertimeHours, "overtime")
}

func TestCalculateDailyHours_OverlappingUnpaidBreaksMerged(t *testing.T) {
	// GIVEN: Two unpaid breaks 12:00-12:30 and 12:15-12:45
	// THEN: 45 minutes deducted, not 60

	breaks := []timecard.Break{
		{Type: timecard.BreakLunch, Start: hours(4), End: hours(4.5)},
		{Type: timecard.BreakMeal, Start: hours(4.25), End: hours(4.75)},
	}

	h, err := calc.CalculateDailyHours(base, hours(8), breaks, eight)

	require.NoError(t, err)
	assertDec(t, 7.25, h.TotalHours, "total")
}

func TestCalculateDailyHours_InvalidRange(t *testing.T) {
	_, err := calc.CalculateDailyHours(hours(8), base, nil, eight)

	var rangeErr *timecard.InvalidTimeRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, hours(8), rangeErr.Start)
	assert.ErrorIs(t, err, timecard.ErrInvalidTimeRange)
}

func TestCalculateDailyHours_InvalidThresholds(t *testing.T) {
	_, err := calc.CalculateDailyHours(base, hours(8), nil, calc.Thresholds{})
	assert.ErrorIs(t, err, timecard.ErrInvalidThreshold)

	inverted := calc.Thresholds{DailyOvertime: dec(8), DoubleTime: decimal.NewNullDecimal(dec(6))}
	_, err = calc.CalculateDailyHours(base, hours(8), nil, inverted)
	assert.ErrorIs(t, err, timecard.ErrInvalidThreshold)
}

func TestCalculateDailyHours_BreakOutsideShift(t *testing.T) {
	breaks := []timecard.Break{{Type: timecard.BreakLunch, Start: hours(7.75), End: hours(8.25)}}

	_, err := calc.CalculateDailyHours(base, hours(8), breaks, eight)

	assert.ErrorIs(t, err, timecard.ErrBreakOutsideShift)
}

func TestEntryHours_OpenShift(t *testing.T) {
	_, err := calc.EntryHours(timecard.TimeEntry{EmployeeID: "e", ClockIn: base}, eight)
	assert.ErrorIs(t, err, timecard.ErrMissingClockOut)
}

// =============================================================================
// PAY
// =============================================================================

func TestCalculateOvertimePay(t *testing.T) {
	pay := calc.CalculateOvertimePay(dec(20), dec(40), dec(10), dec(1.5))

	assertDec(t, 800, pay.RegularPay, "regular")
	assertDec(t, 300, pay.OvertimePay, "overtime")
	assertDec(t, 1100, pay.TotalPay, "total")
}

func TestCalculateShiftPay_IncludesDoubleTime(t *testing.T) {
	h, err := calc.CalculateDailyHours(base, hours(14), nil, ca)
	require.NoError(t, err)

	pay := calc.CalculateShiftPay(dec(20), h, dec(1.5), dec(2))

	assertDec(t, 160, pay.RegularPay, "regular")
	assertDec(t, 120, pay.OvertimePay, "overtime")
	assertDec(t, 80, pay.DoubleTimePay, "double")
	assertDec(t, 360, pay.TotalPay, "total")
}

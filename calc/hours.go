/*
Package calc converts a single shift's clock times and breaks into hour
buckets and pay.

PURPOSE:
  Pure functions. No store access, no policy lookup: callers pass the
  thresholds they resolved. Safe for concurrent use.

HOUR BUCKETS:
  total      = (clock-out - clock-in) - union(unpaid breaks)
  regular    = min(total, daily threshold)
  overtime   = hours above daily, up to the double-time threshold
  double     = hours above the double-time threshold

  Paid breaks are worked time. Overlapping unpaid breaks are merged, so no
  minute is deducted twice. Hours are decimals rounded to 2 places and the
  buckets are derived by subtraction, so they always sum to total exactly.

EXAMPLE:
  h, err := calc.CalculateDailyHours(in, out, breaks, calc.Thresholds{
      DailyOvertime: decimal.NewFromInt(8),
      DoubleTime:    decimal.NewNullDecimal(decimal.NewFromInt(12)),
  })
  // 13h shift, no breaks -> regular 8, overtime 4, double 1

SEE ALSO:
  - pay.go: Pay from hour buckets
  - overtime/service.go: Weekly aggregation
*/
package calc

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// THRESHOLDS & RESULT
// =============================================================================

// Thresholds are the daily limits that split hours into buckets.
type Thresholds struct {
	DailyOvertime decimal.Decimal
	// DoubleTime is optional. Without it, every hour above DailyOvertime is
	// overtime.
	DoubleTime decimal.NullDecimal
}

func (t Thresholds) Validate() error {
	if !t.DailyOvertime.IsPositive() {
		return fmt.Errorf("%w: daily overtime threshold %s", timecard.ErrInvalidThreshold, t.DailyOvertime)
	}
	if t.DoubleTime.Valid && t.DoubleTime.Decimal.LessThan(t.DailyOvertime) {
		return fmt.Errorf("%w: double-time threshold %s below daily %s",
			timecard.ErrInvalidThreshold, t.DoubleTime.Decimal, t.DailyOvertime)
	}
	return nil
}

// HourBreakdown is a shift's hours split into pay buckets.
type HourBreakdown struct {
	TotalHours      decimal.Decimal `json:"total_hours"`
	RegularHours    decimal.Decimal `json:"regular_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	DoubleTimeHours decimal.Decimal `json:"double_time_hours"`
}

// Add sums two breakdowns bucket by bucket.
func (h HourBreakdown) Add(o HourBreakdown) HourBreakdown {
	return HourBreakdown{
		TotalHours:      h.TotalHours.Add(o.TotalHours),
		RegularHours:    h.RegularHours.Add(o.RegularHours),
		OvertimeHours:   h.OvertimeHours.Add(o.OvertimeHours),
		DoubleTimeHours: h.DoubleTimeHours.Add(o.DoubleTimeHours),
	}
}

// =============================================================================
// DAILY HOURS
// =============================================================================

// CalculateDailyHours computes worked hours for one shift and splits them
// into regular, overtime and double-time buckets.
func CalculateDailyHours(clockIn, clockOut time.Time, breaks []timecard.Break, th Thresholds) (HourBreakdown, error) {
	if err := th.Validate(); err != nil {
		return HourBreakdown{}, err
	}
	total, err := WorkedHours(clockIn, clockOut, breaks)
	if err != nil {
		return HourBreakdown{}, err
	}
	return Split(total, th), nil
}

// EntryHours runs CalculateDailyHours on a closed entry.
func EntryHours(e timecard.TimeEntry, th Thresholds) (HourBreakdown, error) {
	if e.ClockOut == nil {
		return HourBreakdown{}, timecard.ErrMissingClockOut
	}
	return CalculateDailyHours(e.ClockIn, *e.ClockOut, e.Breaks, th)
}

// Split allocates total hours into buckets. Thresholds are assumed valid.
func Split(total decimal.Decimal, th Thresholds) HourBreakdown {
	regular := decimal.Min(total, th.DailyOvertime)
	above := total.Sub(regular)
	overtime, double := above, decimal.Zero
	if th.DoubleTime.Valid {
		overtime = decimal.Min(above, th.DoubleTime.Decimal.Sub(th.DailyOvertime))
		double = above.Sub(overtime)
	}
	return HourBreakdown{
		TotalHours:      total,
		RegularHours:    regular,
		OvertimeHours:   overtime,
		DoubleTimeHours: double,
	}
}

// =============================================================================
// WORKED TIME
// =============================================================================

// WorkedHours returns elapsed hours minus unpaid breaks.
func WorkedHours(clockIn, clockOut time.Time, breaks []timecard.Break) (decimal.Decimal, error) {
	d, err := WorkedDuration(clockIn, clockOut, breaks)
	if err != nil {
		return decimal.Zero, err
	}
	return timecard.Hours(d), nil
}

// EntryWorkedHours returns the worked hours of a closed entry.
func EntryWorkedHours(e timecard.TimeEntry) (decimal.Decimal, error) {
	if e.ClockOut == nil {
		return decimal.Zero, timecard.ErrMissingClockOut
	}
	return WorkedHours(e.ClockIn, *e.ClockOut, e.Breaks)
}

// WorkedDuration returns elapsed time minus the union of unpaid breaks.
func WorkedDuration(clockIn, clockOut time.Time, breaks []timecard.Break) (time.Duration, error) {
	if clockOut.Before(clockIn) {
		return 0, &timecard.InvalidTimeRangeError{Field: "shift", Start: clockIn, End: clockOut}
	}
	for _, b := range breaks {
		if err := timecard.ValidateBreak(b, clockIn, &clockOut); err != nil {
			return 0, err
		}
	}
	return clockOut.Sub(clockIn) - unpaidDuration(breaks), nil
}

type interval struct{ start, end time.Time }

// unpaidDuration merges overlapping unpaid breaks and sums them.
func unpaidDuration(breaks []timecard.Break) time.Duration {
	var spans []interval
	for _, b := range breaks {
		if !b.Paid && b.End.After(b.Start) {
			spans = append(spans, interval{b.Start, b.End})
		}
	}
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	var total time.Duration
	cur := spans[0]
	for _, s := range spans[1:] {
		if s.start.After(cur.end) {
			total += cur.end.Sub(cur.start)
			cur = s
			continue
		}
		if s.end.After(cur.end) {
			cur.end = s.end
		}
	}
	return total + cur.end.Sub(cur.start)
}

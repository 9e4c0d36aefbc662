package timecard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Decimal hours derived from durations
// =============================================================================

// HoursPrecision is the number of decimal places hours are rounded to.
const HoursPrecision = 2

var secondsPerHour = decimal.NewFromInt(3600)

// Hours converts a duration to decimal hours rounded to HoursPrecision.
func Hours(d time.Duration) decimal.Decimal {
	secs := decimal.NewFromInt(int64(d / time.Second))
	return secs.Div(secondsPerHour).Round(HoursPrecision)
}

// HoursDuration converts decimal hours back to a duration, truncated to
// the second.
func HoursDuration(h decimal.Decimal) time.Duration {
	return time.Duration(h.Mul(secondsPerHour).IntPart()) * time.Second
}

// HoursBetween returns the decimal hours from a to b (negative if b < a).
func HoursBetween(a, b time.Time) decimal.Decimal { return Hours(b.Sub(a)) }

// =============================================================================
// DAY - Calendar date in a location
// =============================================================================

// Day is a calendar date, independent of time of day.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// DayOf returns the calendar date of t in loc (UTC when loc is nil).
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Dom: d}
}

// Start returns midnight of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, loc)
}

func (d Day) AddDays(n int) Day {
	return DayOf(d.Start(time.UTC).AddDate(0, 0, n), time.UTC)
}

func (d Day) Before(o Day) bool      { return d.Start(time.UTC).Before(o.Start(time.UTC)) }
func (d Day) Weekday() time.Weekday { return d.Start(time.UTC).Weekday() }
func (d Day) String() string        { return d.Start(time.UTC).Format("2006-01-02") }

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b Day) int {
	return int(b.Start(time.UTC).Sub(a.Start(time.UTC)).Hours() / 24)
}

// =============================================================================
// PERIOD - Inclusive time window used for aggregation
// =============================================================================

// Period is the window [Start, End].
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, &InvalidTimeRangeError{Field: "period", Start: start, End: end}
	}
	return Period{Start: start, End: end}, nil
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Days returns every calendar day the period touches, in loc.
func (p Period) Days(loc *time.Location) []Day {
	var days []Day
	first, last := DayOf(p.Start, loc), DayOf(p.End, loc)
	for d := first; !last.Before(d); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.Format(time.RFC3339) + ", " + p.End.Format(time.RFC3339) + "]"
}

// WeekContaining returns the 7-day workweek holding t that starts on the
// given weekday at midnight in loc.
func WeekContaining(t time.Time, weekStart time.Weekday, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	day := DayOf(t, loc)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	start := day.AddDays(-offset).Start(loc)
	return Period{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

// =============================================================================
// ORDERING
// =============================================================================

// SortEntries returns a copy of entries ordered by clock-in, then ID.
func SortEntries(entries []TimeEntry) []TimeEntry {
	out := make([]TimeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ClockIn.Equal(out[j].ClockIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].ClockIn.Before(out[j].ClockIn)
	})
	return out
}

// SortBreaks returns a copy of breaks ordered by start time.
func SortBreaks(breaks []Break) []Break {
	out := make([]Break, len(breaks))
	copy(out, breaks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// WorkedDays returns the set of calendar days on which a closed, worked,
// non-rejected entry started.
func WorkedDays(entries []TimeEntry, loc *time.Location) map[Day]bool {
	days := make(map[Day]bool)
	for _, e := range entries {
		if !e.IsWorked() || e.Status == StatusRejected || e.IsOpen() {
			continue
		}
		days[DayOf(e.ClockIn, loc)] = true
	}
	return days
}

// Streak is a run of consecutive calendar days.
type Streak struct {
	Start  Day
	End    Day
	Length int
}

// LongestStreak returns the longest run of consecutive days in the set. The
// earliest run wins ties.
func LongestStreak(days map[Day]bool) Streak {
	sorted := make([]Day, 0, len(days))
	for d, ok := range days {
		if ok {
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var best, cur Streak
	for i, d := range sorted {
		if i > 0 && DaysBetween(sorted[i-1], d) == 1 {
			cur.End = d
			cur.Length++
		} else {
			cur = Streak{Start: d, End: d, Length: 1}
		}
		if cur.Length > best.Length {
			best = cur
		}
	}
	return best
}

/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	shifts for demos. Each scenario creates one employee profile and a set
	of time entries that trigger specific rules.

AVAILABLE SCENARIOS:

	ca-overtime-week:  California daily overtime, double time, seventh day
	medical-resident:  Two-week hour cap for medical residents
	minor-school-day:  Minor working past the school-day limits
	missed-breaks:     Missing meal and rest breaks, short rest between shifts

HOW SCENARIOS WORK:
 1. Anchor on the workweek that started two weeks before today
 2. Save the employee profile
 3. Save each shift under a deterministic ID
 4. Approve the shifts the scenario marks approved

  Loading twice is harmless: pending shifts are replaced, approved shifts
  are locked and skipped.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "ca-overtime-week"}

	The response carries the employee ID and the period to query:
	GET /api/employees/{employee_id}/summary?start=...&end=...

ADDING NEW SCENARIOS:
 1. Add an entry to the 'scenarios' slice
 2. Describe the profile and shifts; no loader code is needed

NOTE:

	Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Endpoints to inspect the loaded data
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioBreak struct {
	Type       timecard.BreakType
	Start, End string // HH:MM on the shift's start day
	Paid       bool
}

type scenarioShift struct {
	Day        int    // days after the anchor Sunday
	Start, End string // HH:MM; an end before start rolls to the next day
	Breaks     []scenarioBreak
	SchoolDay  bool
	SchoolYear bool
	Approve    bool
}

type scenario struct {
	ScenarioDTO
	Profile timecard.Profile
	// AgeYears sets the birth date relative to the anchor when > 0.
	AgeYears int
	Shifts   []scenarioShift
	// Days is the length of the period to query.
	Days int
}

func lunch(start, end string) []scenarioBreak {
	return []scenarioBreak{{Type: timecard.BreakLunch, Start: start, End: end}}
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "ca-overtime-week",
			Name:        "California Overtime Week",
			Description: "Seven straight days in one workweek: daily overtime, double time over 12h, seventh-day rule",
			Category:    "overtime",
		},
		Profile: timecard.Profile{ID: "demo-ca-overtime", Name: "Casey Alvarez", State: "CA"},
		Days:    7,
		Shifts: []scenarioShift{
			{Day: 0, Start: "08:00", End: "16:30", Breaks: lunch("12:00", "12:30"), Approve: true},
			{Day: 1, Start: "07:00", End: "17:30", Breaks: lunch("11:00", "11:30"), Approve: true},
			{Day: 2, Start: "06:00", End: "19:30", Breaks: lunch("10:30", "11:00"), Approve: true},
			{Day: 3, Start: "08:00", End: "16:30", Breaks: lunch("12:00", "12:30"), Approve: true},
			{Day: 4, Start: "08:00", End: "16:30", Breaks: lunch("12:00", "12:30"), Approve: true},
			{Day: 5, Start: "08:00", End: "16:30", Breaks: lunch("12:00", "12:30"), Approve: true},
			{Day: 6, Start: "09:00", End: "19:30", Breaks: lunch("13:00", "13:30"), Approve: true},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "medical-resident",
			Name:        "Medical Resident",
			Description: "Twelve 7.5-hour shifts in fourteen days: 90h against the 80h two-week cap",
			Category:    "work-hours",
		},
		Profile: timecard.Profile{ID: "demo-resident", Name: "Dr. Riley Chen", State: "NY", EmployeeType: timecard.EmployeeMedicalResident},
		Days:    14,
		Shifts: func() []scenarioShift {
			var out []scenarioShift
			for d := 0; d < 14; d++ {
				if d == 6 || d == 13 {
					continue
				}
				out = append(out, scenarioShift{Day: d, Start: "07:00", End: "15:00", Breaks: lunch("11:00", "11:30"), Approve: true})
			}
			return out
		}(),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "minor-school-day",
			Name:        "Minor on a School Day",
			Description: "A 16-year-old works 4.5h after school until 19:30",
			Category:    "minors",
		},
		Profile:  timecard.Profile{ID: "demo-minor", Name: "Sam Patel", State: "TX", EmployeeType: timecard.EmployeeMinor},
		AgeYears: 16,
		Days:     7,
		Shifts: []scenarioShift{
			{Day: 8, Start: "15:00", End: "19:30", SchoolDay: true, SchoolYear: true},
			{Day: 13, Start: "09:00", End: "15:00", Breaks: lunch("12:00", "12:30"), SchoolYear: true},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "missed-breaks",
			Name:        "Missed Breaks",
			Description: "An 8h shift without breaks, then a closing shift only 6h later",
			Category:    "breaks",
		},
		Profile: timecard.Profile{ID: "demo-breaks", Name: "Jordan Lee", State: "CA"},
		Days:    7,
		Shifts: []scenarioShift{
			{Day: 9, Start: "06:00", End: "14:00"},
			{Day: 9, Start: "20:00", End: "01:00", Breaks: []scenarioBreak{{Type: timecard.BreakRest, Start: "22:00", End: "22:10"}}},
		},
	},
}

// ScenarioResult tells the caller what was loaded and where to look.
type ScenarioResult struct {
	Status        string    `json:"status"`
	Scenario      string    `json:"scenario"`
	EmployeeID    string    `json:"employee_id"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	EntriesLoaded int       `json:"entries_loaded"`
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	for _, s := range scenarios {
		if s.ID != req.ScenarioID {
			continue
		}
		result, err := h.loadScenario(r.Context(), s)
		if err != nil {
			h.fail(w, r, fmt.Errorf("load scenario %s: %w", s.ID, err))
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, s scenario) (ScenarioResult, error) {
	loc := h.location()
	now := time.Now()
	if h.Validator != nil && h.Validator.Now != nil {
		now = h.Validator.Now()
	}
	anchor := timecard.WeekContaining(now, time.Sunday, loc).Start.AddDate(0, 0, -14)

	profile := s.Profile
	if profile.AnnualSalary.IsZero() {
		profile.AnnualSalary = decimal.NewFromInt(52000)
	}
	if s.AgeYears > 0 {
		birth := anchor.AddDate(-s.AgeYears, 0, -30)
		profile.BirthDate = &birth
	}
	if err := h.Store.SaveProfile(ctx, profile); err != nil {
		return ScenarioResult{}, err
	}

	result := ScenarioResult{
		Status:      "loaded",
		Scenario:    s.ID,
		EmployeeID:  profile.ID,
		PeriodStart: anchor,
		PeriodEnd:   anchor.AddDate(0, 0, s.Days).Add(-time.Nanosecond),
	}
	for i, sh := range s.Shifts {
		e, err := sh.entry(fmt.Sprintf("%s-%02d", profile.ID, i+1), profile.ID, anchor)
		if err != nil {
			return ScenarioResult{}, err
		}
		saved, err := h.saveEntry(ctx, h.withCachedHours(e))
		if errors.Is(err, timecard.ErrEntryLocked) {
			continue
		}
		if err != nil {
			return ScenarioResult{}, err
		}
		if sh.Approve {
			if _, err := h.Store.UpdateStatus(ctx, saved.ID, timecard.StatusApproved); err != nil {
				return ScenarioResult{}, err
			}
		}
		result.EntriesLoaded++
	}
	return result, nil
}

func (sh scenarioShift) entry(id, employeeID string, anchor time.Time) (timecard.TimeEntry, error) {
	day := anchor.AddDate(0, 0, sh.Day)
	in, err := clockOn(day, sh.Start)
	if err != nil {
		return timecard.TimeEntry{}, err
	}
	out, err := clockOn(day, sh.End)
	if err != nil {
		return timecard.TimeEntry{}, err
	}
	if out.Before(in) {
		out = out.AddDate(0, 0, 1)
	}
	e := timecard.TimeEntry{
		ID:         id,
		EmployeeID: employeeID,
		ClockIn:    in,
		ClockOut:   &out,
		SchoolDay:  sh.SchoolDay,
		SchoolYear: sh.SchoolYear,
	}
	for _, b := range sh.Breaks {
		start, err := clockOn(day, b.Start)
		if err != nil {
			return timecard.TimeEntry{}, err
		}
		end, err := clockOn(day, b.End)
		if err != nil {
			return timecard.TimeEntry{}, err
		}
		if start.Before(in) {
			start, end = start.AddDate(0, 0, 1), end.AddDate(0, 0, 1)
		}
		e.Breaks = append(e.Breaks, timecard.Break{Type: b.Type, Start: start, End: end, Paid: b.Paid})
	}
	return e, nil
}

// clockOn returns the wall-clock time hh:mm on day, in day's location.
func clockOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

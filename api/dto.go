/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's data model from the external API contract.

NAMING CONVENTION:
  - *DTO: Types returned to clients (entries, employees, policies)
  - *Request: Request body types from clients
  - *Result/*Response: Composite responses defined next to their handler

TIMES:
  Timestamps are RFC 3339. Dates (birth_date, query ranges) also accept
  YYYY-MM-DD. Hours and rates are decimals, sent as JSON strings and
  accepted as strings or numbers.

VALIDATION:
  Validation is done by the engine, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/factory"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// TIME ENTRIES
// =============================================================================

// BreakDTO is a break inside an entry.
type BreakDTO struct {
	ID    string    `json:"id,omitempty"`
	Type  string    `json:"type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Paid  bool      `json:"paid"`
}

// EntryDTO is a time entry in requests and responses.
type EntryDTO struct {
	ID         string     `json:"id,omitempty"`
	EmployeeID string     `json:"employee_id"`
	ClockIn    time.Time  `json:"clock_in"`
	ClockOut   *time.Time `json:"clock_out,omitempty"`
	Status     string     `json:"status,omitempty"`
	Category   string     `json:"category,omitempty"`
	Breaks     []BreakDTO `json:"breaks"`

	ExemptFromOvertime bool   `json:"exempt_from_overtime,omitempty"`
	EmployeeType       string `json:"employee_type,omitempty"`
	EmployeeAge        *int   `json:"employee_age,omitempty"`
	SchoolDay          bool   `json:"school_day,omitempty"`
	SchoolYear         bool   `json:"school_year,omitempty"`
	State              string `json:"state,omitempty"`

	ReducedRestPeriod bool                `json:"reduced_rest_period,omitempty"`
	EmployeeConsent   bool                `json:"employee_consent,omitempty"`
	PremiumPayRate    decimal.NullDecimal `json:"premium_pay_rate"`
	MealBreakWaived   bool                `json:"meal_break_waived,omitempty"`
	WaiverConsent     bool                `json:"waiver_consent,omitempty"`

	TotalHours      decimal.Decimal `json:"total_hours"`
	RegularHours    decimal.Decimal `json:"regular_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	DoubleTimeHours decimal.Decimal `json:"double_time_hours"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// toEntry converts a request body to an engine entry. Enum values are
// normalized; the engine validates them.
func (d EntryDTO) toEntry() timecard.TimeEntry {
	e := timecard.TimeEntry{
		ID:                 d.ID,
		EmployeeID:         d.EmployeeID,
		ClockIn:            d.ClockIn,
		ClockOut:           d.ClockOut,
		Status:             timecard.Status(strings.ToLower(d.Status)),
		Category:           timecard.Category(strings.ToLower(d.Category)),
		ExemptFromOvertime: d.ExemptFromOvertime,
		EmployeeType:       timecard.EmployeeType(strings.ToLower(d.EmployeeType)),
		EmployeeAge:        d.EmployeeAge,
		SchoolDay:          d.SchoolDay,
		SchoolYear:         d.SchoolYear,
		State:              strings.ToUpper(strings.TrimSpace(d.State)),
		ReducedRestPeriod:  d.ReducedRestPeriod,
		EmployeeConsent:    d.EmployeeConsent,
		PremiumPayRate:     d.PremiumPayRate,
		MealBreakWaived:    d.MealBreakWaived,
		WaiverConsent:      d.WaiverConsent,
	}
	for _, b := range d.Breaks {
		e.Breaks = append(e.Breaks, b.toBreak())
	}
	return e
}

func (b BreakDTO) toBreak() timecard.Break {
	return timecard.Break{
		ID:    b.ID,
		Type:  timecard.BreakType(strings.ToUpper(b.Type)),
		Start: b.Start,
		End:   b.End,
		Paid:  b.Paid,
	}
}

func toBreakDTOs(breaks []timecard.Break) []BreakDTO {
	out := make([]BreakDTO, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, BreakDTO{ID: b.ID, Type: string(b.Type), Start: b.Start, End: b.End, Paid: b.Paid})
	}
	return out
}

func toEntryDTO(e timecard.TimeEntry) EntryDTO {
	d := EntryDTO{
		ID:                 e.ID,
		EmployeeID:         e.EmployeeID,
		ClockIn:            e.ClockIn,
		ClockOut:           e.ClockOut,
		Status:             string(e.Status),
		Category:           string(e.Category),
		Breaks:             toBreakDTOs(e.Breaks),
		ExemptFromOvertime: e.ExemptFromOvertime,
		EmployeeType:       string(e.EmployeeType),
		EmployeeAge:        e.EmployeeAge,
		SchoolDay:          e.SchoolDay,
		SchoolYear:         e.SchoolYear,
		State:              e.State,
		ReducedRestPeriod:  e.ReducedRestPeriod,
		EmployeeConsent:    e.EmployeeConsent,
		PremiumPayRate:     e.PremiumPayRate,
		MealBreakWaived:    e.MealBreakWaived,
		WaiverConsent:      e.WaiverConsent,
		TotalHours:         e.TotalHours,
		RegularHours:       e.RegularHours,
		OvertimeHours:      e.OvertimeHours,
		DoubleTimeHours:    e.DoubleTimeHours,
	}
	if !e.CreatedAt.IsZero() {
		d.CreatedAt = &e.CreatedAt
	}
	if !e.UpdatedAt.IsZero() {
		d.UpdatedAt = &e.UpdatedAt
	}
	return d
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO is an employee profile in requests and responses.
type EmployeeDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	State        string          `json:"state,omitempty"`
	EmployeeType string          `json:"employee_type,omitempty"`
	Exempt       bool            `json:"exempt"`
	AnnualSalary decimal.Decimal `json:"annual_salary"`
	BirthDate    string          `json:"birth_date,omitempty"` // YYYY-MM-DD
	CreatedAt    string          `json:"created_at,omitempty"`
}

func toEmployeeDTO(p timecard.Profile) EmployeeDTO {
	d := EmployeeDTO{
		ID:           p.ID,
		Name:         p.Name,
		State:        p.State,
		EmployeeType: string(p.EmployeeType),
		Exempt:       p.Exempt,
		AnnualSalary: p.AnnualSalary,
	}
	if p.BirthDate != nil {
		d.BirthDate = p.BirthDate.Format(time.DateOnly)
	}
	if !p.CreatedAt.IsZero() {
		d.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return d
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// DailyHoursRequest is the body of POST /api/calculations/daily-hours.
type DailyHoursRequest struct {
	ClockIn             time.Time           `json:"clock_in"`
	ClockOut            time.Time           `json:"clock_out"`
	Breaks              []BreakDTO          `json:"breaks"`
	DailyThreshold      decimal.Decimal     `json:"daily_threshold"`
	DoubleTimeThreshold decimal.NullDecimal `json:"double_time_threshold"`
}

// OvertimePayRequest is the body of POST /api/calculations/overtime-pay.
// A zero multiplier means 1.5.
type OvertimePayRequest struct {
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	Multiplier    decimal.Decimal `json:"multiplier"`
}

// =============================================================================
// COMPLIANCE
// =============================================================================

// RestPeriodRequest is the body of POST /api/employees/{id}/rest-period.
type RestPeriodRequest struct {
	NextClockIn       time.Time           `json:"next_clock_in"`
	ReducedRestPeriod bool                `json:"reduced_rest_period"`
	EmployeeConsent   bool                `json:"employee_consent"`
	PremiumPayRate    decimal.NullDecimal `json:"premium_pay_rate"`
}

// =============================================================================
// POLICIES
// =============================================================================

// PolicyDTO is one stored policy version.
type PolicyDTO struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Type         string             `json:"type"`
	Jurisdiction string             `json:"jurisdiction"`
	Version      int                `json:"version"`
	EffectiveAt  string             `json:"effective_at"`
	Config       factory.PolicyJSON `json:"config"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

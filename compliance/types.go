/*
Package compliance evaluates time entries against labor rules.

PURPOSE:
  Each check is a pure function over an entry, its breaks and the resolved
  rules. The Validator loads what a check needs (profile, neighbouring
  shifts, rules in force at the shift) and composes the checks.

NON-COMPLIANCE IS DATA:
  A failed check returns Compliant=false plus violation codes. Errors are
  reserved for malformed input (end before start, unknown enum, missing
  identifier) and for store failures, which propagate unchanged.

POLICY AT SHIFT TIME:
  Per-entry checks use the rules effective at the entry's clock-in for the
  entry's state (falling back to the employee's state). Window checks use
  the rules effective at the window start. Re-running a check after a new
  policy version is added therefore still reports what applied then.

OPEN SHIFTS:
  An entry without clock-out is evaluated as of Validator.Now.

CHECKS (in report order):
  maximum_hours        Single shift over 16h
  break_requirements   Meal presence and length, waiver
  break_timing         Meal starts within the first 5h
  break_pay            Rest breaks taken (one per 4h) and paid
  rest_period          8h between shifts unless waived with consent
  minor_restrictions   Under-18 daily caps and time-of-day window
  state_compliance     State daily overtime and seventh-day rule

SEE ALSO:
  - validator.go: Validator and rule resolution
  - report.go: ValidateEntry and Summarize
*/
package compliance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/overtime"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// VIOLATION CODES
// =============================================================================

type ViolationCode string

const (
	ExcessiveConsecutiveHours ViolationCode = "EXCESSIVE_CONSECUTIVE_HOURS"
	ExceedsTwoWeekLimit       ViolationCode = "EXCEEDS_TWO_WEEK_LIMIT"
	ConsecutiveDaysLimit      ViolationCode = "CONSECUTIVE_DAYS_LIMIT"
	MissingMealBreak          ViolationCode = "MISSING_MEAL_BREAK"
	MealBreakTooShort         ViolationCode = "MEAL_BREAK_TOO_SHORT"
	MealBreakTooLate          ViolationCode = "MEAL_BREAK_TOO_LATE"
	MissingRestBreak          ViolationCode = "MISSING_REST_BREAK"
	UnpaidRestBreak           ViolationCode = "UNPAID_REST_BREAK"
	InsufficientRestPeriod    ViolationCode = "INSUFFICIENT_REST_PERIOD"
	SchoolDayHoursExceeded    ViolationCode = "SCHOOL_DAY_HOURS_EXCEEDED"
	NonSchoolDayHoursExceeded ViolationCode = "NON_SCHOOL_DAY_HOURS_EXCEEDED"
	ProhibitedHours           ViolationCode = "PROHIBITED_HOURS"
)

// Check names, in report order.
const (
	CheckMaximumHours      = "maximum_hours"
	CheckBreakRequirements = "break_requirements"
	CheckBreakTiming       = "break_timing"
	CheckBreakPay          = "break_pay"
	CheckRestPeriod        = "rest_period"
	CheckMinorRestrictions = "minor_restrictions"
	CheckStateCompliance   = "state_compliance"
)

// =============================================================================
// RESULTS
// =============================================================================

// ValidationResult is the outcome of one check on one entry. Numeric
// context fields are nil when the check doesn't produce them.
type ValidationResult struct {
	Check      string          `json:"check"`
	Compliant  bool            `json:"compliant"`
	Violations []ViolationCode `json:"violations"`

	HoursWorked             *decimal.Decimal `json:"hours_worked,omitempty"`
	MaximumAllowed          *decimal.Decimal `json:"maximum_allowed,omitempty"`
	RequiresManagerApproval bool             `json:"requires_manager_approval,omitempty"`

	RequiredBreakMinutes *int             `json:"required_break_minutes,omitempty"`
	ActualBreakMinutes   *int             `json:"actual_break_minutes,omitempty"`
	WaiverApplied        bool             `json:"waiver_applied,omitempty"`
	RequiredRestBreaks   *int             `json:"required_rest_breaks,omitempty"`
	ActualRestBreaks     *int             `json:"actual_rest_breaks,omitempty"`
	MissingRestBreaks    *int             `json:"missing_rest_breaks,omitempty"`
	UnpaidRestBreaks     *int             `json:"unpaid_rest_breaks,omitempty"`
	MealBreakStartHours  *decimal.Decimal `json:"meal_break_start_hours,omitempty"`

	ActualRestHours    *decimal.Decimal `json:"actual_rest_hours,omitempty"`
	RequiredRestHours  *decimal.Decimal `json:"required_rest_hours,omitempty"`
	PremiumPayRequired bool             `json:"premium_pay_required,omitempty"`
	PremiumPayRate     *decimal.Decimal `json:"premium_pay_rate,omitempty"`

	DailyOvertimeApplies bool             `json:"daily_overtime_applies,omitempty"`
	DailyOvertimeHours   *decimal.Decimal `json:"daily_overtime_hours,omitempty"`
	DoubleTimeHours      *decimal.Decimal `json:"double_time_hours,omitempty"`
	SeventhDayRule       bool             `json:"seventh_day_rule,omitempty"`
	OvertimeMultiplier   *decimal.Decimal `json:"overtime_multiplier,omitempty"`

	IsMinor bool `json:"is_minor,omitempty"`

	// PolicyID is the policy the check's rules came from, empty for
	// built-in defaults.
	PolicyID string `json:"policy_id,omitempty"`
}

func newResult(check string) ValidationResult {
	return ValidationResult{Check: check, Compliant: true, Violations: []ViolationCode{}}
}

func (r *ValidationResult) violate(code ViolationCode) {
	r.Compliant = false
	r.Violations = append(r.Violations, code)
}

// HasViolation reports whether the result carries the code.
func (r ValidationResult) HasViolation(code ViolationCode) bool {
	return hasCode(r.Violations, code)
}

func hasCode(codes []ViolationCode, code ViolationCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func num(d decimal.Decimal) *decimal.Decimal { return &d }
func count(n int) *int                        { return &n }

// ShiftViolation ties a per-shift violation to its entry.
type ShiftViolation struct {
	EntryID     string          `json:"entry_id"`
	ClockIn     time.Time       `json:"clock_in"`
	Code        ViolationCode   `json:"code"`
	HoursWorked decimal.Decimal `json:"hours_worked"`
}

// ComplianceResult is the outcome of the work-hour window check.
type ComplianceResult struct {
	EmployeeID   string                `json:"employee_id"`
	EmployeeType timecard.EmployeeType `json:"employee_type"`
	PeriodStart  time.Time             `json:"period_start"`
	PeriodEnd    time.Time             `json:"period_end"`

	Compliant  bool            `json:"compliant"`
	Violations []ViolationCode `json:"violations"`

	TotalHours              decimal.Decimal  `json:"total_hours"`
	MaxTwoWeekHours         decimal.Decimal  `json:"max_two_week_hours"`
	TwoWeekLimit            *decimal.Decimal `json:"two_week_limit,omitempty"`
	TwoWeekWindowStart      string           `json:"two_week_window_start,omitempty"`
	ShiftViolations         []ShiftViolation `json:"shift_violations"`
	RequiresManagerApproval bool             `json:"requires_manager_approval,omitempty"`
}

// ConsecutiveDaysResult is the outcome of the consecutive-day scan.
type ConsecutiveDaysResult struct {
	EmployeeID   string `json:"employee_id"`
	LookbackDays int    `json:"lookback_days"`
	WindowStart  string `json:"window_start"`
	WindowEnd    string `json:"window_end"`

	Compliant  bool            `json:"compliant"`
	Violations []ViolationCode `json:"violations"`

	ConsecutiveDays int    `json:"consecutive_days"`
	MaxAllowed      int    `json:"max_allowed"`
	StreakStart     string `json:"streak_start,omitempty"`
	StreakEnd       string `json:"streak_end,omitempty"`
	RequiresRestDay bool   `json:"requires_rest_day,omitempty"`
}

// RestWaiver is a reduced-rest agreement for the next shift.
type RestWaiver struct {
	ReducedRestPeriod bool
	EmployeeConsent   bool
	PremiumPayRate    decimal.NullDecimal
}

func (w *RestWaiver) valid() bool {
	return w != nil && w.ReducedRestPeriod && w.EmployeeConsent
}

// Report is every per-entry check composed, in check order.
type Report struct {
	EntryID                 string             `json:"entry_id,omitempty"`
	EmployeeID              string             `json:"employee_id"`
	Jurisdiction            string             `json:"jurisdiction"`
	Compliant               bool               `json:"compliant"`
	Violations              []ViolationCode    `json:"violations"`
	RequiresManagerApproval bool               `json:"requires_manager_approval,omitempty"`
	Checks                  []ValidationResult `json:"checks"`
}

// Check returns the named check's result.
func (r Report) Check(name string) (ValidationResult, bool) {
	for _, c := range r.Checks {
		if c.Check == name {
			return c, true
		}
	}
	return ValidationResult{}, false
}

// Summary combines the period-level views for one employee.
type Summary struct {
	EmployeeID      string                `json:"employee_id"`
	PeriodStart     time.Time             `json:"period_start"`
	PeriodEnd       time.Time             `json:"period_end"`
	Compliant       bool                  `json:"compliant"`
	Violations      []ViolationCode       `json:"violations"`
	Overtime        overtime.WeeklyResult `json:"overtime"`
	WorkHours       ComplianceResult      `json:"work_hours"`
	ConsecutiveDays ConsecutiveDaysResult `json:"consecutive_days"`
}

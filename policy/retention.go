package policy

import "time"

// =============================================================================
// RECORD KEEPING - Static retention metadata
// =============================================================================

type RecordType string

const (
	RecordTime    RecordType = "time_records"
	RecordPayroll RecordType = "payroll_records"
)

// RetentionPolicy is the minimum time a record type must be kept.
type RetentionPolicy struct {
	RecordType   RecordType `json:"record_type"`
	MinimumYears int        `json:"minimum_years"`
	LegalBasis   string     `json:"legal_basis"`
	Description  string     `json:"description"`
}

// RetainUntil returns the earliest instant the record may be destroyed.
func (p RetentionPolicy) RetainUntil(recordDate time.Time) time.Time {
	return recordDate.AddDate(p.MinimumYears, 0, 0)
}

// Expired reports whether a record dated recordDate may be destroyed at now.
func (p RetentionPolicy) Expired(recordDate, now time.Time) bool {
	return !now.Before(p.RetainUntil(recordDate))
}

// TimeRecordRetention covers time cards, schedules and hour records.
func (r RecordKeepingRules) TimeRecordRetention() RetentionPolicy {
	return RetentionPolicy{
		RecordType:   RecordTime,
		MinimumYears: r.TimeRecordYears,
		LegalBasis:   "29 CFR 516.6",
		Description:  "Time cards, work schedules and records of hours worked",
	}
}

// PayrollRecordRetention covers payroll, wage rates and pay computations.
func (r RecordKeepingRules) PayrollRecordRetention() RetentionPolicy {
	return RetentionPolicy{
		RecordType:   RecordPayroll,
		MinimumYears: r.PayrollRecordYears,
		LegalBasis:   "29 CFR 516.5",
		Description:  "Payroll records, wage rates and overtime computations",
	}
}

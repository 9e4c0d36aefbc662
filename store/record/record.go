/*
Package record holds the table layout and the squirrel query builders shared
by the SQL stores.

PURPOSE:
  SQLite and PostgreSQL keep the same four tables. Only the placeholder
  format and the driver differ, so the statements are built here once from a
  squirrel.StatementBuilderType and each store runs them on its own
  connection type.

KEY TABLES:
  time_entries:  One row per shift, flags and cached hours inline
  entry_breaks:  Breaks, owned by an entry (deleted with it)
  employees:     Profiles
  policies:      Append-only policy versions, rules as factory JSON

TIME AND NUMBERS:
  Times are written in UTC so that text-backed timestamps (SQLite) order
  correctly. Hours, salaries and rates are decimals: decimal.Decimal and
  decimal.NullDecimal implement sql.Scanner and driver.Valuer for both
  drivers.

SEE ALSO:
  - store/sqlite: database/sql + go-sqlite3
  - store/postgres: pgxpool + goose migrations
*/
package record

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/factory"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// Table names.
const (
	EntriesTable   = "time_entries"
	BreaksTable    = "entry_breaks"
	EmployeesTable = "employees"
	PoliciesTable  = "policies"
)

var entryColumns = []string{
	"id", "employee_id", "clock_in", "clock_out", "status", "category",
	"exempt_from_overtime", "employee_type", "employee_age", "school_day", "school_year", "state",
	"reduced_rest_period", "employee_consent", "premium_pay_rate", "meal_break_waived", "waiver_consent",
	"total_hours", "regular_hours", "overtime_hours", "double_time_hours",
	"created_at", "updated_at",
}

var breakColumns = []string{"id", "entry_id", "break_type", "start_at", "end_at", "paid"}

var employeeColumns = []string{
	"id", "name", "state", "employee_type", "exempt", "annual_salary", "birth_date", "created_at",
}

var policyColumns = []string{"id", "jurisdiction", "policy_type", "version", "effective_at", "document"}

// Scanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// QUERIES
// =============================================================================

// Queries builds statements for one placeholder format.
type Queries struct {
	sb sq.StatementBuilderType
}

// NewQueries returns builders using the given placeholder format
// (sq.Question for SQLite, sq.Dollar for PostgreSQL).
func NewQueries(format sq.PlaceholderFormat) Queries {
	return Queries{sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

// EntryStatus selects an entry's status, for lock checks before writes.
func (q Queries) EntryStatus(id string) sq.SelectBuilder {
	return q.sb.Select("status").From(EntriesTable).Where(sq.Eq{"id": id})
}

// UpsertEntry inserts or replaces an entry row. created_at is kept on
// replace.
func (q Queries) UpsertEntry(e timecard.TimeEntry) sq.InsertBuilder {
	return q.sb.Insert(EntriesTable).
		Columns(entryColumns...).
		Values(entryValues(e)...).
		Suffix(upsertSuffix(entryColumns, "created_at"))
}

// DeleteBreaks removes every break of an entry.
func (q Queries) DeleteBreaks(entryID string) sq.DeleteBuilder {
	return q.sb.Delete(BreaksTable).Where(sq.Eq{"entry_id": entryID})
}

// InsertBreaks inserts the breaks of an entry. ok is false when there are
// none.
func (q Queries) InsertBreaks(e timecard.TimeEntry) (ib sq.InsertBuilder, ok bool) {
	if len(e.Breaks) == 0 {
		return ib, false
	}
	ib = q.sb.Insert(BreaksTable).Columns(breakColumns...)
	for _, b := range e.Breaks {
		ib = ib.Values(b.ID, e.ID, string(b.Type), b.Start.UTC(), b.End.UTC(), b.Paid)
	}
	return ib, true
}

// SelectEntry selects one entry by ID.
func (q Queries) SelectEntry(id string) sq.SelectBuilder {
	return q.sb.Select(entryColumns...).From(EntriesTable).Where(sq.Eq{"id": id})
}

// SelectEntries selects an employee's entries intersecting [from, to],
// ordered by clock-in. Open entries intersect when they started before to.
func (q Queries) SelectEntries(employeeID string, from, to time.Time) sq.SelectBuilder {
	return q.sb.Select(entryColumns...).
		From(EntriesTable).
		Where(sq.Eq{"employee_id": employeeID}).
		Where(sq.LtOrEq{"clock_in": to.UTC()}).
		Where(sq.Or{sq.Eq{"clock_out": nil}, sq.GtOrEq{"clock_out": from.UTC()}}).
		OrderBy("clock_in ASC", "id ASC")
}

// SelectBreaks selects the breaks of the given entries in start order.
func (q Queries) SelectBreaks(entryIDs []string) sq.SelectBuilder {
	return q.sb.Select(breakColumns...).
		From(BreaksTable).
		Where(sq.Eq{"entry_id": entryIDs}).
		OrderBy("start_at ASC", "id ASC")
}

// UpdateStatus sets an entry's status.
func (q Queries) UpdateStatus(id string, to timecard.Status, at time.Time) sq.UpdateBuilder {
	return q.sb.Update(EntriesTable).
		Set("status", string(to)).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"id": id})
}

// UpsertEmployee inserts or replaces a profile.
func (q Queries) UpsertEmployee(p timecard.Profile) sq.InsertBuilder {
	var birth sql.NullTime
	if p.BirthDate != nil {
		birth = sql.NullTime{Time: p.BirthDate.UTC(), Valid: true}
	}
	return q.sb.Insert(EmployeesTable).
		Columns(employeeColumns...).
		Values(p.ID, p.Name, p.State, string(p.EmployeeType), p.Exempt, p.AnnualSalary, birth, p.CreatedAt.UTC()).
		Suffix(upsertSuffix(employeeColumns, "created_at"))
}

// SelectEmployee selects one profile.
func (q Queries) SelectEmployee(id string) sq.SelectBuilder {
	return q.sb.Select(employeeColumns...).From(EmployeesTable).Where(sq.Eq{"id": id})
}

// InsertPolicy appends a policy version.
func (q Queries) InsertPolicy(p policy.Policy) (sq.InsertBuilder, error) {
	doc, err := EncodePolicy(p)
	if err != nil {
		return sq.InsertBuilder{}, err
	}
	return q.sb.Insert(PoliciesTable).
		Columns(policyColumns...).
		Values(p.ID, p.Jurisdiction, string(p.Type), p.Version, p.EffectiveAt.UTC(), doc), nil
}

// SelectPolicies selects every stored version.
func (q Queries) SelectPolicies() sq.SelectBuilder {
	return q.sb.Select(policyColumns...).
		From(PoliciesTable).
		OrderBy("jurisdiction ASC", "policy_type ASC", "version ASC")
}

// upsertSuffix builds ON CONFLICT (id) DO UPDATE for every column except id
// and keep. SQLite (3.24+) and PostgreSQL share the syntax.
func upsertSuffix(columns []string, keep ...string) string {
	skip := map[string]bool{"id": true}
	for _, k := range keep {
		skip[k] = true
	}
	s := "ON CONFLICT (id) DO UPDATE SET "
	first := true
	for _, c := range columns {
		if skip[c] {
			continue
		}
		if !first {
			s += ", "
		}
		s += c + " = excluded." + c
		first = false
	}
	return s
}

// =============================================================================
// ROW ENCODING
// =============================================================================

func entryValues(e timecard.TimeEntry) []any {
	var clockOut sql.NullTime
	if e.ClockOut != nil {
		clockOut = sql.NullTime{Time: e.ClockOut.UTC(), Valid: true}
	}
	var age sql.NullInt64
	if e.EmployeeAge != nil {
		age = sql.NullInt64{Int64: int64(*e.EmployeeAge), Valid: true}
	}
	return []any{
		e.ID, e.EmployeeID, e.ClockIn.UTC(), clockOut, string(e.Status), string(e.Category),
		e.ExemptFromOvertime, string(e.EmployeeType), age, e.SchoolDay, e.SchoolYear, e.State,
		e.ReducedRestPeriod, e.EmployeeConsent, e.PremiumPayRate, e.MealBreakWaived, e.WaiverConsent,
		e.TotalHours, e.RegularHours, e.OvertimeHours, e.DoubleTimeHours,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	}
}

// ScanEntry reads a row selected by SelectEntry or SelectEntries. Breaks
// are attached separately.
func ScanEntry(s Scanner) (timecard.TimeEntry, error) {
	var (
		e                              timecard.TimeEntry
		clockOut                       sql.NullTime
		age                            sql.NullInt64
		status, category, employeeType string
	)
	err := s.Scan(
		&e.ID, &e.EmployeeID, &e.ClockIn, &clockOut, &status, &category,
		&e.ExemptFromOvertime, &employeeType, &age, &e.SchoolDay, &e.SchoolYear, &e.State,
		&e.ReducedRestPeriod, &e.EmployeeConsent, &e.PremiumPayRate, &e.MealBreakWaived, &e.WaiverConsent,
		&e.TotalHours, &e.RegularHours, &e.OvertimeHours, &e.DoubleTimeHours,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return timecard.TimeEntry{}, err
	}
	e.ClockIn = e.ClockIn.UTC()
	if clockOut.Valid {
		out := clockOut.Time.UTC()
		e.ClockOut = &out
	}
	if age.Valid {
		a := int(age.Int64)
		e.EmployeeAge = &a
	}
	e.Status = timecard.Status(status)
	e.Category = timecard.Category(category)
	e.EmployeeType = timecard.EmployeeType(employeeType)
	return e, nil
}

// ScanBreak reads a row selected by SelectBreaks.
func ScanBreak(s Scanner) (entryID string, b timecard.Break, err error) {
	var typ string
	if err = s.Scan(&b.ID, &entryID, &typ, &b.Start, &b.End, &b.Paid); err != nil {
		return "", timecard.Break{}, err
	}
	b.Type = timecard.BreakType(typ)
	b.Start, b.End = b.Start.UTC(), b.End.UTC()
	return entryID, b, nil
}

// AttachBreaks distributes breaks loaded by SelectBreaks onto entries.
func AttachBreaks(entries []timecard.TimeEntry, byEntry map[string][]timecard.Break) {
	for i := range entries {
		entries[i].Breaks = byEntry[entries[i].ID]
	}
}

// EntryIDs returns the IDs of entries.
func EntryIDs(entries []timecard.TimeEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// ScanEmployee reads a row selected by SelectEmployee.
func ScanEmployee(s Scanner) (timecard.Profile, error) {
	var (
		p            timecard.Profile
		employeeType string
		salary       decimal.NullDecimal
		birth        sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.Name, &p.State, &employeeType, &p.Exempt, &salary, &birth, &p.CreatedAt); err != nil {
		return timecard.Profile{}, err
	}
	p.EmployeeType = timecard.EmployeeType(employeeType)
	p.AnnualSalary = salary.Decimal
	if birth.Valid {
		b := birth.Time.UTC()
		p.BirthDate = &b
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// ScanPolicy reads a row selected by SelectPolicies.
func ScanPolicy(s Scanner) (policy.Policy, error) {
	var (
		id, jurisdiction, typ string
		version               int
		effective             time.Time
		doc                   string
	)
	if err := s.Scan(&id, &jurisdiction, &typ, &version, &effective, &doc); err != nil {
		return policy.Policy{}, err
	}
	p, err := DecodePolicy(doc)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("policy %s: %w", id, err)
	}
	p.ID, p.Jurisdiction, p.Version, p.EffectiveAt = id, jurisdiction, version, effective.UTC()
	return p, nil
}

// EncodePolicy stores a policy as its factory JSON document.
func EncodePolicy(p policy.Policy) (string, error) {
	raw, err := json.Marshal(factory.NewPolicyFactory().ToJSON(p))
	if err != nil {
		return "", fmt.Errorf("encode policy %s: %w", p.ID, err)
	}
	return string(raw), nil
}

// DecodePolicy parses a stored document. Stored documents never carry state
// overrides: each override is its own row.
func DecodePolicy(doc string) (policy.Policy, error) {
	policies, err := factory.NewPolicyFactory().ParsePolicy(doc)
	if err != nil {
		return policy.Policy{}, err
	}
	return policies[0], nil
}

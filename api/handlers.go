/*
handlers.go - HTTP API handlers for the labor compliance engine

PURPOSE:
  Exposes the calculation, overtime and compliance engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  engine packages.

ENDPOINTS:
  Calculations:
    POST   /api/calculations/daily-hours      Split one shift into pay buckets
    POST   /api/calculations/overtime-pay     Price regular and overtime hours

  Time entries:
    POST   /api/entries                       Create or replace a pending entry
    GET    /api/entries/{id}                  Get an entry
    POST   /api/entries/{id}/approve          pending_approval -> approved
    POST   /api/entries/{id}/reject           pending_approval -> rejected
    POST   /api/entries/{id}/complete         approved -> completed
    GET    /api/entries/{id}/compliance       Compliance report of a stored entry

  Compliance:
    POST   /api/compliance/validate           Compliance report of an unsaved entry

  Employees:
    POST   /api/employees                     Create or replace a profile
    GET    /api/employees/{id}                Get a profile
    GET    /api/employees/{id}/overtime       ?start&end
    GET    /api/employees/{id}/work-hours     ?start&end&type
    GET    /api/employees/{id}/consecutive-days ?lookback
    POST   /api/employees/{id}/rest-period    Rest before a planned shift
    GET    /api/employees/{id}/summary        ?start&end

  Health:
    GET    /health                            Store reachability

  Policies:
    GET    /api/policies                      List every stored version
    POST   /api/policies                      Publish a policy (factory JSON)
    GET    /api/retention                     Record retention rules

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (timecard.IsClientError, invalid policy)
  - 404: Entry, employee or policy not found
  - 409: Locked entry, invalid transition, duplicate policy version
  - 500: Everything else, logged with the request ID
  A non-compliant result is NOT an error: compliance endpoints answer 200.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/calc"
	"github.com/warp/labor-engine/compliance"
	"github.com/warp/labor-engine/config"
	"github.com/warp/labor-engine/factory"
	"github.com/warp/labor-engine/overtime"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs. Both store/sqlite and
// store/postgres implement it.
type Store interface {
	timecard.EntryStore
	timecard.ProfileStore
	policy.Store
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         Store
	Registry      *policy.Registry
	Validator     *compliance.Validator
	Overtime      *overtime.Service
	PolicyFactory *factory.PolicyFactory
	Engine        config.EngineConfig
	Logger        *slog.Logger
}

// NewHandler wires the engine over a store and a restored policy registry.
func NewHandler(store Store, registry *policy.Registry, engine config.EngineConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := compliance.NewValidator(store, store, registry, engine.Location)
	v.LookbackDays = engine.ConsecutiveLookbackDays
	return &Handler{
		Store:         store,
		Registry:      registry,
		Validator:     v,
		Overtime:      v.Overtime,
		PolicyFactory: factory.NewPolicyFactory(),
		Engine:        engine,
		Logger:        logger,
	}
}

func (h *Handler) location() *time.Location {
	if h.Engine.Location == nil {
		return time.UTC
	}
	return h.Engine.Location
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// CalculateDailyHours splits one shift into regular, overtime and
// double-time hours.
func (h *Handler) CalculateDailyHours(w http.ResponseWriter, r *http.Request) {
	var req DailyHoursRequest
	if !decode(w, r, &req) {
		return
	}
	breaks := make([]timecard.Break, 0, len(req.Breaks))
	for _, b := range req.Breaks {
		breaks = append(breaks, b.toBreak())
	}
	th := calc.Thresholds{DailyOvertime: req.DailyThreshold, DoubleTime: req.DoubleTimeThreshold}
	if th.DailyOvertime.IsZero() {
		th.DailyOvertime = decimal.NewFromInt(8)
	}

	result, err := calc.CalculateDailyHours(req.ClockIn, req.ClockOut, breaks, th)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CalculateOvertimePay prices regular and overtime hours.
func (h *Handler) CalculateOvertimePay(w http.ResponseWriter, r *http.Request) {
	var req OvertimePayRequest
	if !decode(w, r, &req) {
		return
	}
	if req.HourlyRate.IsNegative() || req.RegularHours.IsNegative() || req.OvertimeHours.IsNegative() || req.Multiplier.IsNegative() {
		writeError(w, http.StatusBadRequest, "Rates and hours must not be negative", nil)
		return
	}
	multiplier := req.Multiplier
	if multiplier.IsZero() {
		multiplier = decimal.RequireFromString("1.5")
	}
	writeJSON(w, http.StatusOK, calc.CalculateOvertimePay(req.HourlyRate, req.RegularHours, req.OvertimeHours, multiplier))
}

// =============================================================================
// TIME ENTRY HANDLERS
// =============================================================================

// EntryResponse is a saved entry with its compliance report.
type EntryResponse struct {
	Entry      EntryDTO          `json:"entry"`
	Compliance compliance.Report `json:"compliance"`
}

// CreateEntry saves a pending entry, refreshes its cached hours and
// returns it with its compliance report.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryDTO
	if !decode(w, r, &req) {
		return
	}
	e := req.toEntry()
	if err := e.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	e = h.withCachedHours(e)

	saved, err := h.saveEntry(r.Context(), e)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.Validator.ValidateEntry(r.Context(), saved)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, EntryResponse{Entry: toEntryDTO(saved), Compliance: report})
}

// saveEntry stores e unless it overlaps another shift of the employee.
func (h *Handler) saveEntry(ctx context.Context, e timecard.TimeEntry) (timecard.TimeEntry, error) {
	end := e.ClockIn
	if e.ClockOut != nil {
		end = *e.ClockOut
	}
	others, err := h.Store.LoadEntries(ctx, e.EmployeeID, e.ClockIn, end)
	if err != nil {
		return timecard.TimeEntry{}, err
	}
	if err := timecard.CheckOverlap(e, others); err != nil {
		return timecard.TimeEntry{}, err
	}
	return h.Store.SaveEntry(ctx, e)
}

// withCachedHours fills the display cache of a closed entry from the
// overtime rules in force at clock-in.
func (h *Handler) withCachedHours(e timecard.TimeEntry) timecard.TimeEntry {
	if e.IsOpen() {
		return e
	}
	total, err := calc.EntryWorkedHours(e)
	if err != nil {
		return e
	}
	ot := h.Registry.Resolve(e.State, e.ClockIn).Overtime
	split := calc.HourBreakdown{TotalHours: total, RegularHours: total}
	if ot.HasDailyOvertime() && e.IsWorked() {
		split = calc.Split(total, calc.Thresholds{DailyOvertime: ot.DailyThreshold.Decimal, DoubleTime: ot.DoubleTimeThreshold})
	}
	e.TotalHours = split.TotalHours
	e.RegularHours = split.RegularHours
	e.OvertimeHours = split.OvertimeHours
	e.DoubleTimeHours = split.DoubleTimeHours
	return e
}

// GetEntry returns a single entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.Store.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

// ApproveEntry moves a pending entry to approved.
func (h *Handler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, timecard.StatusApproved)
}

// RejectEntry moves a pending entry to rejected.
func (h *Handler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, timecard.StatusRejected)
}

// CompleteEntry moves an approved entry to completed.
func (h *Handler) CompleteEntry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, timecard.StatusCompleted)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to timecard.Status) {
	e, err := h.Store.UpdateStatus(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// ValidateEntry runs every per-entry check on an entry from the body
// without saving it.
func (h *Handler) ValidateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryDTO
	if !decode(w, r, &req) {
		return
	}
	report, err := h.Validator.ValidateEntry(r.Context(), req.toEntry())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// EntryCompliance runs every per-entry check on a stored entry.
func (h *Handler) EntryCompliance(w http.ResponseWriter, r *http.Request) {
	e, err := h.Store.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.Validator.ValidateEntry(r.Context(), e)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetOvertime returns period overtime for an employee.
func (h *Handler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	result, err := h.Overtime.CalculateWeeklyOvertime(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetWorkHours checks shift lengths and the two-week cap over a period.
func (h *Handler) GetWorkHours(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	employeeType := timecard.EmployeeType(strings.ToLower(r.URL.Query().Get("type")))
	result, err := h.Validator.CheckWorkHourCompliance(r.Context(), chi.URLParam(r, "id"), start, end, employeeType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetConsecutiveDays scans the lookback window ending today.
func (h *Handler) GetConsecutiveDays(w http.ResponseWriter, r *http.Request) {
	lookback := 0
	if raw := r.URL.Query().Get("lookback"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid lookback (positive number of days)", err)
			return
		}
		lookback = n
	}
	result, err := h.Validator.AnalyzeConsecutiveDays(r.Context(), chi.URLParam(r, "id"), lookback)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CheckRestPeriod checks the rest before a planned shift.
func (h *Handler) CheckRestPeriod(w http.ResponseWriter, r *http.Request) {
	var req RestPeriodRequest
	if !decode(w, r, &req) {
		return
	}
	var waiver *compliance.RestWaiver
	if req.ReducedRestPeriod || req.EmployeeConsent || req.PremiumPayRate.Valid {
		waiver = &compliance.RestWaiver{
			ReducedRestPeriod: req.ReducedRestPeriod,
			EmployeeConsent:   req.EmployeeConsent,
			PremiumPayRate:    req.PremiumPayRate,
		}
	}
	result, err := h.Validator.ValidateRestPeriod(r.Context(), chi.URLParam(r, "id"), req.NextClockIn, waiver)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSummary returns overtime, work-hour and consecutive-day views together.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	summary, err := h.Validator.Summarize(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// CreateEmployee creates or replaces an employee profile. A profile without
// a state gets the configured default state.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeDTO
	if !decode(w, r, &req) {
		return
	}
	p, err := h.toProfile(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Store.SaveProfile(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}
	saved, err := h.Store.GetProfile(r.Context(), p.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(saved))
}

func (h *Handler) toProfile(req EmployeeDTO) (timecard.Profile, error) {
	state, err := timecard.NormalizeState(req.State)
	if err != nil {
		return timecard.Profile{}, err
	}
	if state == "" {
		state = h.Engine.DefaultState
	}
	employeeType, err := timecard.ParseEmployeeType(strings.ToLower(req.EmployeeType))
	if err != nil {
		return timecard.Profile{}, err
	}
	if req.AnnualSalary.IsNegative() {
		return timecard.Profile{}, &timecard.FieldError{Field: "annual_salary", Value: req.AnnualSalary.String(), Err: errBadInput}
	}
	p := timecard.Profile{
		ID:           strings.TrimSpace(req.ID),
		Name:         req.Name,
		State:        state,
		EmployeeType: employeeType,
		Exempt:       req.Exempt,
		AnnualSalary: req.AnnualSalary,
	}
	if req.BirthDate != "" {
		birth, err := time.Parse(time.DateOnly, req.BirthDate)
		if err != nil {
			return timecard.Profile{}, &timecard.FieldError{Field: "birth_date", Value: req.BirthDate, Err: errBadInput}
		}
		p.BirthDate = &birth
	}
	return p, nil
}

// GetEmployee returns a single employee profile.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(p))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns every stored policy version.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := h.Registry.List()
	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = h.toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy publishes a policy document and its state overrides as new
// versions. Published versions apply from their effective date on.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req factory.PolicyJSON
	if !decode(w, r, &req) {
		return
	}
	policies, err := h.PolicyFactory.FromJSON(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]PolicyDTO, 0, len(policies))
	for _, p := range policies {
		published, err := h.Registry.Publish(r.Context(), h.Store, p)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.Logger.Info("policy published",
			slog.String("policy_id", published.ID),
			slog.String("jurisdiction", published.Jurisdiction),
			slog.String("type", string(published.Type)),
			slog.Int("version", published.Version),
		)
		dtos = append(dtos, h.toPolicyDTO(published))
	}
	writeJSON(w, http.StatusCreated, dtos)
}

func (h *Handler) toPolicyDTO(p policy.Policy) PolicyDTO {
	return PolicyDTO{
		ID:           p.ID,
		Name:         p.Name,
		Type:         string(p.Type),
		Jurisdiction: p.Jurisdiction,
		Version:      p.Version,
		EffectiveAt:  p.EffectiveAt.UTC().Format(time.RFC3339),
		Config:       h.PolicyFactory.ToJSON(p),
	}
}

// GetRetention returns the record retention rules in force now.
func (h *Handler) GetRetention(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []policy.RetentionPolicy{
		h.Validator.RetentionPolicy(),
		h.Validator.PayrollRetentionPolicy(),
	})
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.Logger.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// errBadInput marks request fields the engine itself never sees.
var errBadInput = errors.New("malformed value")

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// periodParams reads ?start and ?end. Both accept RFC 3339 or YYYY-MM-DD;
// a date-only end covers the whole day.
func (h *Handler) periodParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	start, err := parseBound(q.Get("start"), false, h.location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use RFC 3339 or YYYY-MM-DD)", err)
		return time.Time{}, time.Time{}, false
	}
	end, err := parseBound(q.Get("end"), true, h.location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end (use RFC 3339 or YYYY-MM-DD)", err)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseBound(s string, endOfDay bool, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing value")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return d, nil
}

// fail maps an engine error to its HTTP status. Unexpected errors are
// logged with the request ID.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case timecard.IsClientError(err), errors.Is(err, policy.ErrInvalidPolicy), errors.Is(err, errBadInput):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case timecard.IsNotFound(err), errors.Is(err, policy.ErrPolicyNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case timecard.IsConflict(err), errors.Is(err, policy.ErrDuplicateVersion):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		h.Logger.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal error", fmt.Errorf("request %s failed", middleware.GetReqID(r.Context())))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
	"github.com/zapponejosh/ganzhi-api/internal/config"
	"github.com/zapponejosh/ganzhi-api/internal/database"
	"github.com/zapponejosh/ganzhi-api/internal/fixtures"
	"github.com/zapponejosh/ganzhi-api/internal/logger"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db      *database.DB
	engines map[calendar.ZiHourRule]*calendar.Engine
	defZi   calendar.ZiHourRule
	checker *fixtures.Checker
	cfg     *config.Config
	logger  *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *database.DB, cfg *config.Config, log *slog.Logger) *Handlers {
	defZi, err := calendar.ParseZiHourRule(cfg.ZiHourRule)
	if err != nil {
		defZi = calendar.LateZiKeepsDay
	}

	return &Handlers{
		db: db,
		engines: map[calendar.ZiHourRule]*calendar.Engine{
			calendar.LateZiKeepsDay:    calendar.NewEngine(calendar.WithZiHourRule(calendar.LateZiKeepsDay)),
			calendar.LateZiAdvancesDay: calendar.NewEngine(calendar.WithZiHourRule(calendar.LateZiAdvancesDay)),
		},
		defZi:   defZi,
		checker: fixtures.NewChecker(),
		cfg:     cfg,
		logger:  log,
		now:     time.Now,
	}
}

// ChartResponse is the payload for a single computed chart.
type ChartResponse struct {
	Date  string `json:"date"`
	Time  string `json:"time,omitempty"`
	Chart string `json:"chart"`
	calendar.PillarSet
}

func newChartResponse(p calendar.PillarSet) ChartResponse {
	resp := ChartResponse{
		Date:      p.Date.Date().String(),
		Chart:     p.String(),
		PillarSet: p,
	}
	if p.Date.HasTime {
		resp.Time = fmt.Sprintf("%02d:%02d", p.Date.Hour, p.Date.Minute)
	}
	return resp
}

// SolarTermResponse is one row of /solarterms/{year}.
type SolarTermResponse struct {
	calendar.SolarTerm
	Date  string `json:"date"`
	IsJie bool   `json:"is_jie"`
}

// engineFor picks the engine for the request's ?zi= parameter, falling back
// to the configured default.
func (h *Handlers) engineFor(r *http.Request) (*calendar.Engine, error) {
	zi := r.URL.Query().Get("zi")
	if zi == "" {
		return h.engines[h.defZi], nil
	}
	rule, err := calendar.ParseZiHourRule(zi)
	if err != nil {
		return nil, err
	}
	return h.engines[rule], nil
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.db.Health(ctx); err != nil {
		logger.Warn(ctx, "health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	version, err := h.db.SchemaVersion(ctx)
	if err != nil {
		logger.Warn(ctx, "schema version lookup failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	WriteSuccess(w, map[string]string{
		"status":         "healthy",
		"schema_version": strconv.Itoa(version),
	})
}

// GetToday handles GET /api/v1/ganzhi/today
func (h *Handlers) GetToday(w http.ResponseWriter, r *http.Request) {
	engine, err := h.engineFor(r)
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	now := calendar.FromTime(h.now())
	p, err := engine.Compute(now, true)
	if err != nil {
		h.writeComputeError(w, r, now, err)
		return
	}

	WriteSuccess(w, newChartResponse(p))
}

// GetDate handles GET /api/v1/ganzhi/date/{date}?time=HH:MM&zi=keep|advance
func (h *Handlers) GetDate(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseCivil(chi.URLParam(r, "date"), r.URL.Query().Get("time"))
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	engine, err := h.engineFor(r)
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	p, err := engine.Compute(date, true)
	if err != nil {
		h.writeComputeError(w, r, date, err)
		return
	}

	WriteSuccess(w, newChartResponse(p))
}

// GetDayHours handles GET /api/v1/ganzhi/date/{date}/hours
func (h *Handlers) GetDayHours(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseCivil(chi.URLParam(r, "date"), "")
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	engine, err := h.engineFor(r)
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	p, err := engine.Compute(date, false)
	if err != nil {
		h.writeComputeError(w, r, date, err)
		return
	}
	hours, err := engine.DayHours(date)
	if err != nil {
		h.writeComputeError(w, r, date, err)
		return
	}

	WriteSuccess(w, map[string]any{
		"date":  date.String(),
		"day":   p.Day,
		"hours": hours,
	})
}

// GetRange handles GET /api/v1/ganzhi/range?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handlers) GetRange(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		WriteBadRequest(w, "Both start and end date parameters are required")
		return
	}

	start, err := calendar.ParseCivil(startStr, "")
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid start date format: %s. Use YYYY-MM-DD", startStr))
		return
	}
	end, err := calendar.ParseCivil(endStr, "")
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid end date format: %s. Use YYYY-MM-DD", endStr))
		return
	}

	if end.Before(start) {
		WriteBadRequest(w, "Start date must be before or equal to end date")
		return
	}
	if days := end.DaysSince(start) + 1; days > h.cfg.MaxRangeDays {
		WriteBadRequest(w, fmt.Sprintf("Date range cannot exceed %d days", h.cfg.MaxRangeDays))
		return
	}

	engine, err := h.engineFor(r)
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	charts := []ChartResponse{}
	for d := start; !end.Before(d); d = d.AddDays(1) {
		p, err := engine.Compute(d, false)
		if err != nil {
			h.writeComputeError(w, r, d, err)
			return
		}
		charts = append(charts, newChartResponse(p))
	}

	WriteSuccess(w, map[string]any{
		"start":  start.String(),
		"end":    end.String(),
		"charts": charts,
	})
}

// GetLunar handles GET /api/v1/lunar/{date}
func (h *Handlers) GetLunar(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseCivil(chi.URLParam(r, "date"), "")
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	lunar, err := calendar.SolarToLunar(date)
	if err != nil {
		h.writeComputeError(w, r, date, err)
		return
	}

	WriteSuccess(w, map[string]any{
		"date":    date.String(),
		"lunar":   lunar,
		"display": lunar.String(),
		"zodiac":  lunar.Animal(),
		"year":    calendar.YearPillar(lunar.Year),
	})
}

// GetSolarTerms handles GET /api/v1/solarterms/{year}
func (h *Handlers) GetSolarTerms(w http.ResponseWriter, r *http.Request) {
	yearStr := chi.URLParam(r, "year")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid year: %s", yearStr))
		return
	}

	terms, err := calendar.SolarTerms(year)
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	resp := make([]SolarTermResponse, 0, len(terms))
	degraded := false
	for _, t := range terms {
		resp = append(resp, SolarTermResponse{SolarTerm: t, Date: t.Date().String(), IsJie: t.IsJie()})
		degraded = degraded || t.Approximate
	}

	WriteSuccess(w, map[string]any{
		"year":     year,
		"terms":    resp,
		"degraded": degraded,
	})
}

// validateRequest is the body of POST /api/v1/validate.
type validateRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Expected string `json:"expected"`
	Zi       string `json:"zi,omitempty"`
}

// Validate handles POST /api/v1/validate
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Time == "" {
		WriteBadRequest(w, "time is required to check the hour pillar")
		return
	}

	date, err := calendar.ParseCivil(req.Date, req.Time)
	if err != nil {
		WriteCalendarError(w, err)
		return
	}

	rule := h.defZi
	if req.Zi != "" {
		if rule, err = calendar.ParseZiHourRule(req.Zi); err != nil {
			WriteCalendarError(w, err)
			return
		}
	}

	v, err := h.engines[rule].Validate(date, req.Expected)
	if err != nil {
		h.writeComputeError(w, r, date, err)
		return
	}

	WriteSuccess(w, v)
}

// ListReferences handles GET /api/v1/references
func (h *Handlers) ListReferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refs, err := h.db.ListReferences(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list reference charts", err)
		WriteInternalError(w, "Failed to retrieve reference charts")
		return
	}

	WriteSuccess(w, map[string]any{
		"references": refs,
		"count":      len(refs),
	})
}

// CreateReference handles POST /api/v1/references
func (h *Handlers) CreateReference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var f fixtures.Fixture
	if err := decodeJSON(r, &f); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := f.Validate(); err != nil {
		var ce *calendar.Error
		if errors.As(err, &ce) {
			WriteCalendarError(w, err)
			return
		}
		WriteBadRequest(w, err.Error())
		return
	}

	chart := f.Chart()
	if err := h.db.CreateReference(ctx, &chart); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			WriteError(w, http.StatusConflict, "A reference chart for this date, time and zi rule already exists", CodeDuplicate)
			return
		}
		logger.Error(ctx, "failed to create reference chart", err)
		WriteInternalError(w, "Failed to create reference chart")
		return
	}

	logger.Info(ctx, "reference chart created",
		slog.Int64("id", chart.ID),
		slog.String("date", chart.SolarDate),
		slog.String("time", chart.SolarTime),
	)
	WriteCreated(w, chart)
}

// DeleteReference handles DELETE /api/v1/references/{id}
func (h *Handlers) DeleteReference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid reference ID")
		return
	}

	if err := h.db.DeleteReference(ctx, id); err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "Reference chart not found")
			return
		}
		logger.Error(ctx, "failed to delete reference chart", err, slog.Int64("id", id))
		WriteInternalError(w, "Failed to delete reference chart")
		return
	}

	WriteSuccess(w, map[string]string{"message": "Reference chart deleted"})
}

// CheckReferences handles POST /api/v1/references/check. It validates every
// stored chart and saves the run.
func (h *Handlers) CheckReferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refs, err := h.db.ListReferences(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list reference charts", err)
		WriteInternalError(w, "Failed to retrieve reference charts")
		return
	}

	summary := h.checker.Run("api", refs)
	if err := h.db.SaveRun(ctx, summary); err != nil {
		logger.Error(ctx, "failed to save validation run", err)
		WriteInternalError(w, "Failed to save validation run")
		return
	}

	logger.Info(ctx, "reference check complete",
		slog.Int64("run_id", summary.Run.ID),
		slog.Int("total", summary.Run.Total),
		slog.Int("failed", summary.Run.Failed),
		slog.Int("errored", summary.Run.Errored),
	)
	WriteSuccess(w, summary)
}

// GetLatestRun handles GET /api/v1/references/runs/latest
func (h *Handlers) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.db.GetLatestRun(ctx)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, "No validation run has been recorded")
			return
		}
		logger.Error(ctx, "failed to get latest validation run", err)
		WriteInternalError(w, "Failed to retrieve validation run")
		return
	}

	WriteSuccess(w, summary)
}

// writeComputeError logs server-side failures and writes the response.
func (h *Handlers) writeComputeError(w http.ResponseWriter, r *http.Request, date calendar.CivilDateTime, err error) {
	status, _ := calendarErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "calendar computation failed", err, slog.String("date", date.String()))
	}
	WriteCalendarError(w, err)
}

// decodeJSON decodes a JSON request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New(strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

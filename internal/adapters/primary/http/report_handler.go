package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/askvinny/agent-performance-backend/internal/adapters/primary/http/middleware"
	"github.com/askvinny/agent-performance-backend/internal/adapters/primary/validation"
	"github.com/askvinny/agent-performance-backend/internal/core/domain"
	apperrors "github.com/askvinny/agent-performance-backend/internal/core/errors"
	"github.com/askvinny/agent-performance-backend/internal/core/ports"
)

// ReportHandler handles HTTP requests for the weekly agent performance
// report.
type ReportHandler struct {
	reportService ports.ReportService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(
	reportService ports.ReportService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "report"),
	}
}

// Router sets up a new chi Router for all report-related routes.
func (h *ReportHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all report endpoints.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weekly", h.HandleGetReport)
	r.Get("/weekly/weeks", h.HandleListWeeks)
	r.Get("/weekly/current", h.HandleCurrentWeek)
	r.Put("/weekly/current", h.HandleSelectWeek)
	r.Post("/weekly/refresh", h.HandleRefresh)
}

// --- Request/Response DTOs ---

// SelectWeekRequest defines the expected JSON body for changing the
// session's selected week. Exactly one of index or date must be set.
type SelectWeekRequest struct {
	Index *int    `json:"index"`
	Date  *string `json:"date"`
}

// Validate validates the select week request
func (r *SelectWeekRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("index", r.Index != nil || r.Date != nil, "Either index or date is required")
	v.Custom("index", r.Index == nil || r.Date == nil, "Only one of index or date may be set")

	if r.Index != nil {
		v.Min("index", *r.Index, 0)
	}
	if r.Date != nil {
		v.Required("date", *r.Date).Date("date", *r.Date)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// WeeklyMetricDTO defines the JSON response for one report row.
type WeeklyMetricDTO struct {
	Agent               string  `json:"agent"`
	WeekStart           string  `json:"weekStart"`
	WeekEnd             string  `json:"weekEnd"`
	TotalViewings       int     `json:"totalViewings"`
	Applications        int     `json:"applications"`
	Tenants             int     `json:"tenants"`
	ViewToAppRate       float64 `json:"viewToAppRate"`
	AppToTenantRate     float64 `json:"appToTenantRate"`
	TotalConversionRate float64 `json:"totalConversionRate"`
}

// CoverageDTO summarises the full table's span.
type CoverageDTO struct {
	WeekCount int    `json:"weekCount"`
	FirstWeek string `json:"firstWeek,omitempty"`
	LastWeek  string `json:"lastWeek,omitempty"`
}

// ReportResponse is the full ordered table plus its coverage.
type ReportResponse struct {
	Rows     []WeeklyMetricDTO `json:"rows"`
	Coverage CoverageDTO       `json:"coverage"`
}

// HighlightsDTO carries the derived display figures for one week.
type HighlightsDTO struct {
	TopAgent    string  `json:"topAgent"`
	TopRate     float64 `json:"topRate"`
	AverageRate float64 `json:"averageRate"`
}

// WeekViewDTO is the resolved single-week view.
type WeekViewDTO struct {
	WeekStart     string            `json:"weekStart"`
	WeekEnd       string            `json:"weekEnd"`
	SelectedIndex int               `json:"selectedIndex"`
	WeekCount     int               `json:"weekCount"`
	Rows          []WeeklyMetricDTO `json:"rows"`
	Highlights    *HighlightsDTO    `json:"highlights,omitempty"`
	HasData       bool              `json:"hasData"`
}

func formatDate(t time.Time) string {
	return t.Format(validation.DateLayout)
}

func toMetricDTO(row domain.WeeklyAgentMetric) WeeklyMetricDTO {
	return WeeklyMetricDTO{
		Agent:               row.Agent,
		WeekStart:           formatDate(row.WeekStart),
		WeekEnd:             formatDate(row.WeekEnd),
		TotalViewings:       row.TotalViewings,
		Applications:        row.Applications,
		Tenants:             row.Tenants,
		ViewToAppRate:       row.ViewToAppRate,
		AppToTenantRate:     row.AppToTenantRate,
		TotalConversionRate: row.TotalConversionRate,
	}
}

func toMetricDTOs(rows []domain.WeeklyAgentMetric) []WeeklyMetricDTO {
	response := make([]WeeklyMetricDTO, 0, len(rows))
	for _, row := range rows {
		response = append(response, toMetricDTO(row))
	}
	return response
}

func toWeekViewDTO(view *domain.WeekView) WeekViewDTO {
	dto := WeekViewDTO{
		WeekStart:     formatDate(view.WeekStart),
		WeekEnd:       formatDate(view.WeekEnd),
		SelectedIndex: view.SelectedIndex,
		WeekCount:     view.WeekCount,
		Rows:          toMetricDTOs(view.Rows),
		HasData:       view.HasData,
	}

	if view.Highlights != nil {
		dto.Highlights = &HighlightsDTO{
			TopAgent:    view.Highlights.TopAgent,
			TopRate:     view.Highlights.TopRate,
			AverageRate: view.Highlights.AverageRate,
		}
	}

	return dto
}

// --- Handlers ---

// HandleGetReport handles GET /weekly
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	table, err := h.reportService.WeeklyReport(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	coverage := domain.TableCoverage(table)
	response := ReportResponse{
		Rows:     toMetricDTOs(table),
		Coverage: CoverageDTO{WeekCount: coverage.WeekCount},
	}
	if coverage.WeekCount > 0 {
		response.Coverage.FirstWeek = formatDate(coverage.FirstWeek)
		response.Coverage.LastWeek = formatDate(coverage.LastWeek)
	}

	WriteJSON(w, http.StatusOK, response)
}

// HandleListWeeks handles GET /weekly/weeks
func (h *ReportHandler) HandleListWeeks(w http.ResponseWriter, r *http.Request) {
	table, err := h.reportService.WeeklyReport(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	weeks := domain.DistinctWeeks(table)
	formatted := make([]string, 0, len(weeks))
	for _, week := range weeks {
		formatted = append(formatted, formatDate(week))
	}

	WriteList(w, formatted)
}

// HandleCurrentWeek handles GET /weekly/current
func (h *ReportHandler) HandleCurrentWeek(w http.ResponseWriter, r *http.Request) {
	sessionID := mw.GetSessionID(r.Context())

	view, err := h.reportService.CurrentWeek(r.Context(), sessionID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toWeekViewDTO(view))
}

// HandleSelectWeek handles PUT /weekly/current
func (h *ReportHandler) HandleSelectWeek(w http.ResponseWriter, r *http.Request) {
	var req SelectWeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid JSON body"))
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.SelectWeekParams{
		SessionID: mw.GetSessionID(r.Context()),
		Index:     req.Index,
	}
	if req.Date != nil {
		parsed, err := time.ParseInLocation(validation.DateLayout, *req.Date, time.UTC)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid date"))
			return
		}
		params.Date = &parsed
	}

	view, err := h.reportService.SelectWeek(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toWeekViewDTO(view))
}

// HandleRefresh handles POST /weekly/refresh
func (h *ReportHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.reportService.Invalidate()
	h.logger.Info("report cache invalidated by request",
		"request_id", GetRequestID(r.Context()),
	)
	WriteNoContent(w)
}

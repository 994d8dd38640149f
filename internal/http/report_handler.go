package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/parish-roster/internal/application"
)

type reportService interface {
	Coverage(ctx context.Context, principal application.Principal, year, month int, filter application.CoverageFilter) ([]application.CoverageRow, error)
	MinisterSummary(ctx context.Context, principal application.Principal, year, month int) ([]application.MinisterSummary, error)
	Availability(ctx context.Context, principal application.Principal, year, month int, day string) ([]application.MassAvailability, error)
}

// ReportHandler serves the administrative month reports.
type ReportHandler struct {
	service   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

// Coverage handles GET /reports/coverage?year=&month=&status=.
func (h *ReportHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	year, month, err := monthQuery(r, false)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	filter, err := application.ParseCoverageFilter(r.URL.Query().Get("status"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	rows, err := h.service.Coverage(r.Context(), principal, year, month, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]coverageDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, coverageDTO{occupancyDTO: toOccupancyDTO(row.OccupancyEntry), Status: string(row.Status)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, coverageResponse{Year: year, Month: month, Rows: out})
}

// Ministers handles GET /reports/ministers?year=&month=.
func (h *ReportHandler) Ministers(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	year, month, err := monthQuery(r, false)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	summaries, err := h.service.MinisterSummary(r.Context(), principal, year, month)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]ministerSummaryDTO, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, ministerSummaryDTO{
			MinisterID: summary.MinisterID,
			Name:       summary.Name,
			Regular:    summary.Regular,
			Extras:     summary.Extras,
			Total:      summary.Total(),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ministerSummaryResponse{Year: year, Month: month, Ministers: out})
}

// Availability handles GET /reports/availability?year=&month=&date=.
func (h *ReportHandler) Availability(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	year, month, err := monthQuery(r, false)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	day := strings.TrimSpace(r.URL.Query().Get("date"))
	masses, err := h.service.Availability(r.Context(), principal, year, month, day)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]massAvailabilityDTO, 0, len(masses))
	for _, mass := range masses {
		dto := massAvailabilityDTO{occupancyDTO: toOccupancyDTO(mass.OccupancyEntry), Ministers: make([]ministerRefDTO, 0, len(mass.Ministers))}
		for _, minister := range mass.Ministers {
			dto.Ministers = append(dto.Ministers, ministerRefDTO{ID: minister.ID, Name: minister.Name})
		}
		out = append(out, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Year: year, Month: month, Date: day, Masses: out})
}

type coverageDTO struct {
	occupancyDTO
	Status string `json:"status"`
}

type coverageResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Rows  []coverageDTO `json:"rows"`
}

type ministerSummaryDTO struct {
	MinisterID string `json:"minister_id"`
	Name       string `json:"name"`
	Regular    int    `json:"regular"`
	Extras     int    `json:"extras"`
	Total      int    `json:"total"`
}

type ministerSummaryResponse struct {
	Year      int                  `json:"year"`
	Month     int                  `json:"month"`
	Ministers []ministerSummaryDTO `json:"ministers"`
}

type ministerRefDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type massAvailabilityDTO struct {
	occupancyDTO
	Ministers []ministerRefDTO `json:"ministers"`
}

type availabilityResponse struct {
	Year   int                   `json:"year"`
	Month  int                   `json:"month"`
	Date   string                `json:"date,omitempty"`
	Masses []massAvailabilityDTO `json:"masses"`
}

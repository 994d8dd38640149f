package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/scheduler"
)

type windowService interface {
	Settings(ctx context.Context) (application.WindowSettings, error)
	UpdateSettings(ctx context.Context, principal application.Principal, input application.WindowConfigInput) (application.WindowSettings, error)
	ListOverrides(ctx context.Context, principal application.Principal, year, month int, activeOnly bool) ([]scheduler.Override, error)
	CreateOverride(ctx context.Context, principal application.Principal, input application.OverrideInput) (scheduler.Override, error)
	OpenCurrentMonth(ctx context.Context, principal application.Principal) (scheduler.Override, error)
	OpenNextMonth(ctx context.Context, principal application.Principal) (scheduler.Override, error)
	RevokeOverride(ctx context.Context, principal application.Principal, id string) error
}

// WindowHandler serves window configuration and manual release endpoints.
type WindowHandler struct {
	service   windowService
	responder responder
	logger    *slog.Logger
}

func NewWindowHandler(service windowService, logger *slog.Logger) *WindowHandler {
	base := defaultLogger(logger)
	return &WindowHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WindowHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "WindowHandler", operation, attrs...)
}

// GetConfig handles GET /window/config. Any registered minister may read it.
func (h *WindowHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, windowConfigResponse{Config: toWindowConfigDTO(settings)})
}

func (h *WindowHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req windowConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), principal, application.WindowConfigInput{
		DaysBeforeNextMonth: req.DaysBeforeNextMonth,
		HardClose:           req.HardClose,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "UpdateConfig", "sequence", settings.Sequence, "hard_close", settings.Config.HardClose).
		InfoContext(r.Context(), "window configuration updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, windowConfigResponse{Config: toWindowConfigDTO(settings)})
}

// ListOverrides handles GET /window/overrides?year=&month=&active=.
func (h *WindowHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	year, month, err := monthQuery(r, true)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		activeOnly, err = strconv.ParseBool(raw)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				FieldErrors: map[string]string{"active": "deve ser true ou false"},
			})
			return
		}
	}

	overrides, err := h.service.ListOverrides(r.Context(), principal, year, month, activeOnly)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]overrideDTO, 0, len(overrides))
	for _, override := range overrides {
		out = append(out, toOverrideDTO(override))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, overridesResponse{Overrides: out})
}

func (h *WindowHandler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	from, err := parseTimestamp("open_from", req.OpenFrom)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	until, err := parseTimestamp("open_until", req.OpenUntil)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	override, err := h.service.CreateOverride(r.Context(), principal, application.OverrideInput{
		Year:      req.Year,
		Month:     req.Month,
		OpenFrom:  from,
		OpenUntil: until,
	})
	h.renderCreatedOverride(r.Context(), w, "CreateOverride", override, err)
}

func (h *WindowHandler) OpenCurrentMonth(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	override, err := h.service.OpenCurrentMonth(r.Context(), principal)
	h.renderCreatedOverride(r.Context(), w, "OpenCurrentMonth", override, err)
}

func (h *WindowHandler) OpenNextMonth(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	override, err := h.service.OpenNextMonth(r.Context(), principal)
	h.renderCreatedOverride(r.Context(), w, "OpenNextMonth", override, err)
}

func (h *WindowHandler) RevokeOverride(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RevokeOverride(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *WindowHandler) renderCreatedOverride(ctx context.Context, w http.ResponseWriter, operation string, override scheduler.Override, err error) {
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, operation, "override_id", override.ID, "year", override.Year, "month", int(override.Month)).
		InfoContext(ctx, "month released manually")
	h.responder.writeJSON(ctx, w, http.StatusCreated, overrideResponse{Override: toOverrideDTO(override)})
}

type windowConfigRequest struct {
	DaysBeforeNextMonth int  `json:"days_before_next_month"`
	HardClose           bool `json:"hard_close"`
}

type windowConfigDTO struct {
	DaysBeforeNextMonth int    `json:"days_before_next_month"`
	HardClose           bool   `json:"hard_close"`
	UpdatedBy           string `json:"updated_by,omitempty"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

func toWindowConfigDTO(settings application.WindowSettings) windowConfigDTO {
	return windowConfigDTO{
		DaysBeforeNextMonth: settings.Config.DaysBeforeNextMonth,
		HardClose:           settings.Config.HardClose,
		UpdatedBy:           settings.CreatedBy,
		UpdatedAt:           formatTimestamp(settings.CreatedAt),
	}
}

type windowConfigResponse struct {
	Config windowConfigDTO `json:"config"`
}

type overrideRequest struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	OpenFrom  string `json:"open_from"`
	OpenUntil string `json:"open_until"`
}

type overrideDTO struct {
	ID        string `json:"id"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	OpenFrom  string `json:"open_from"`
	OpenUntil string `json:"open_until"`
	CreatedBy string `json:"created_by"`
}

func toOverrideDTO(override scheduler.Override) overrideDTO {
	return overrideDTO{
		ID:        override.ID,
		Year:      override.Year,
		Month:     int(override.Month),
		OpenFrom:  formatTimestamp(override.OpenFrom),
		OpenUntil: formatTimestamp(override.OpenUntil),
		CreatedBy: override.CreatedBy,
	}
}

type overrideResponse struct {
	Override overrideDTO `json:"override"`
}

type overridesResponse struct {
	Overrides []overrideDTO `json:"overrides"`
}

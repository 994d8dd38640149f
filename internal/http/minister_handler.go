package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/parish-roster/internal/application"
)

type ministerService interface {
	CreateMinister(ctx context.Context, principal application.Principal, input application.MinisterInput) (application.Minister, error)
	GetMinister(ctx context.Context, principal application.Principal, id string) (application.Minister, error)
	ListMinisters(ctx context.Context, principal application.Principal) ([]application.Minister, error)
	DeleteMinister(ctx context.Context, principal application.Principal, id string) error
}

type MinisterHandler struct {
	service   ministerService
	responder responder
	logger    *slog.Logger
}

func NewMinisterHandler(service ministerService, logger *slog.Logger) *MinisterHandler {
	base := defaultLogger(logger)
	return &MinisterHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MinisterHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MinisterHandler", operation, attrs...)
}

func (h *MinisterHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	ministers, err := h.service.ListMinisters(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]ministerDTO, 0, len(ministers))
	for _, minister := range ministers {
		out = append(out, toMinisterDTO(minister))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ministersResponse{Ministers: out})
}

func (h *MinisterHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req ministerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	minister, err := h.service.CreateMinister(r.Context(), principal, application.MinisterInput{Name: req.Name, IsAdmin: req.IsAdmin})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Create", "minister_id", minister.ID).InfoContext(r.Context(), "minister registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ministerResponse{Minister: toMinisterDTO(minister)})
}

func (h *MinisterHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	minister, err := h.service.GetMinister(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ministerResponse{Minister: toMinisterDTO(minister)})
}

func (h *MinisterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteMinister(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type ministerRequest struct {
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type ministerDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

func toMinisterDTO(minister application.Minister) ministerDTO {
	return ministerDTO{
		ID:        minister.ID,
		Name:      minister.Name,
		IsAdmin:   minister.IsAdmin,
		CreatedAt: formatTimestamp(minister.CreatedAt),
	}
}

type ministerResponse struct {
	Minister ministerDTO `json:"minister"`
}

type ministersResponse struct {
	Ministers []ministerDTO `json:"ministers"`
}

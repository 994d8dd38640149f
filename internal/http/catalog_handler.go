package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/scheduler"
)

type catalogService interface {
	CreateSlot(ctx context.Context, principal application.Principal, input application.SlotInput) (scheduler.RecurringSlot, error)
	UpdateSlot(ctx context.Context, principal application.Principal, id string, input application.SlotInput) (scheduler.RecurringSlot, error)
	DeactivateSlot(ctx context.Context, principal application.Principal, id string) (scheduler.RecurringSlot, error)
	ListSlots(ctx context.Context, principal application.Principal) ([]scheduler.RecurringSlot, error)
	CreateExtra(ctx context.Context, principal application.Principal, input application.ExtraInput) (scheduler.ExtraEvent, error)
	UpdateExtra(ctx context.Context, principal application.Principal, id string, input application.ExtraInput) (scheduler.ExtraEvent, error)
	DeactivateExtra(ctx context.Context, principal application.Principal, id string) (scheduler.ExtraEvent, error)
	ListExtras(ctx context.Context, principal application.Principal, year, month int) ([]scheduler.ExtraEvent, error)
	CreateBlock(ctx context.Context, principal application.Principal, input application.BlockInput) (scheduler.BlockedMass, error)
	UpdateBlock(ctx context.Context, principal application.Principal, id string, input application.BlockInput) (scheduler.BlockedMass, error)
	DeleteBlock(ctx context.Context, principal application.Principal, id string) error
	ListBlocks(ctx context.Context, principal application.Principal, year, month int) ([]scheduler.BlockedMass, error)
}

// CatalogHandler serves the administrative endpoints for slots, extras and blocks.
type CatalogHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CatalogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "CatalogHandler", operation, attrs...)
}

func (h *CatalogHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	slots, err := h.service.ListSlots(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotsResponse{Slots: out})
}

func (h *CatalogHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req slotRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	slot, err := h.service.CreateSlot(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "CreateSlot", "slot_id", slot.ID).InfoContext(r.Context(), "slot created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, slotResponse{Slot: toSlotDTO(slot)})
}

func (h *CatalogHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req slotRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	slot, err := h.service.UpdateSlot(r.Context(), principal, r.PathValue("id"), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Slot: toSlotDTO(slot)})
}

// DeactivateSlot handles DELETE /slots/{id}. Slots are never removed so that
// historical selections keep resolving.
func (h *CatalogHandler) DeactivateSlot(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	slot, err := h.service.DeactivateSlot(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Slot: toSlotDTO(slot)})
}

func (h *CatalogHandler) ListExtras(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	year, month, err := monthQuery(r, true)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	extras, err := h.service.ListExtras(r.Context(), principal, year, month)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]extraDTO, 0, len(extras))
	for _, extra := range extras {
		out = append(out, toExtraDTO(extra))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, extrasResponse{Extras: out})
}

func (h *CatalogHandler) CreateExtra(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req extraRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	extra, err := h.service.CreateExtra(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "CreateExtra", "extra_id", extra.ID).InfoContext(r.Context(), "extra mass created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, extraResponse{Extra: toExtraDTO(extra)})
}

func (h *CatalogHandler) UpdateExtra(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req extraRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	extra, err := h.service.UpdateExtra(r.Context(), principal, r.PathValue("id"), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, extraResponse{Extra: toExtraDTO(extra)})
}

func (h *CatalogHandler) DeactivateExtra(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	extra, err := h.service.DeactivateExtra(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, extraResponse{Extra: toExtraDTO(extra)})
}

func (h *CatalogHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	year, month, err := monthQuery(r, true)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	blocks, err := h.service.ListBlocks(r.Context(), principal, year, month)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]blockDTO, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, toBlockDTO(block))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, blocksResponse{Blocks: out})
}

func (h *CatalogHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	block, err := h.service.CreateBlock(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "CreateBlock", "block_id", block.ID, "date", block.Date.String()).InfoContext(r.Context(), "mass blocked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, blockResponse{Block: toBlockDTO(block)})
}

func (h *CatalogHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	block, err := h.service.UpdateBlock(r.Context(), principal, r.PathValue("id"), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, blockResponse{Block: toBlockDTO(block)})
}

func (h *CatalogHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteBlock(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type slotRequest struct {
	Weekday     int    `json:"weekday"`
	Time        string `json:"time"`
	MinRequired int    `json:"min_required"`
	MaxAllowed  int    `json:"max_allowed"`
	Active      *bool  `json:"active"`
}

func (r slotRequest) toInput() application.SlotInput {
	return application.SlotInput{
		Weekday:     r.Weekday,
		Time:        r.Time,
		MinRequired: r.MinRequired,
		MaxAllowed:  r.MaxAllowed,
		Active:      r.Active,
	}
}

type slotDTO struct {
	ID          string `json:"id"`
	Weekday     int    `json:"weekday"`
	Time        string `json:"time"`
	MinRequired int    `json:"min_required"`
	MaxAllowed  int    `json:"max_allowed"`
	Active      bool   `json:"active"`
}

func toSlotDTO(slot scheduler.RecurringSlot) slotDTO {
	return slotDTO{
		ID:          slot.ID,
		Weekday:     int(slot.Weekday),
		Time:        slot.Time.String(),
		MinRequired: slot.MinRequired,
		MaxAllowed:  slot.MaxAllowed,
		Active:      slot.Active,
	}
}

type slotResponse struct {
	Slot slotDTO `json:"slot"`
}

type slotsResponse struct {
	Slots []slotDTO `json:"slots"`
}

type extraRequest struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Title       string `json:"title"`
	MinRequired int    `json:"min_required"`
	MaxAllowed  int    `json:"max_allowed"`
	Active      *bool  `json:"active"`
}

func (r extraRequest) toInput() application.ExtraInput {
	return application.ExtraInput{
		Date:        r.Date,
		Time:        r.Time,
		Title:       r.Title,
		MinRequired: r.MinRequired,
		MaxAllowed:  r.MaxAllowed,
		Active:      r.Active,
	}
}

type extraDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Title       string `json:"title"`
	MinRequired int    `json:"min_required"`
	MaxAllowed  int    `json:"max_allowed"`
	Active      bool   `json:"active"`
}

func toExtraDTO(extra scheduler.ExtraEvent) extraDTO {
	return extraDTO{
		ID:          extra.ID,
		Date:        extra.Date.String(),
		Time:        extra.Time.String(),
		Title:       extra.Title,
		MinRequired: extra.MinRequired,
		MaxAllowed:  extra.MaxAllowed,
		Active:      extra.Active,
	}
}

type extraResponse struct {
	Extra extraDTO `json:"extra"`
}

type extrasResponse struct {
	Extras []extraDTO `json:"extras"`
}

type blockRequest struct {
	Date   string   `json:"date"`
	Times  []string `json:"times"`
	Reason string   `json:"reason"`
}

func (r blockRequest) toInput() application.BlockInput {
	return application.BlockInput{Date: r.Date, Times: r.Times, Reason: r.Reason}
}

type blockDTO struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	Times    []string `json:"times"`
	WholeDay bool     `json:"whole_day"`
	Reason   string   `json:"reason"`
}

func toBlockDTO(block scheduler.BlockedMass) blockDTO {
	times := make([]string, 0, len(block.Times))
	for _, t := range block.Times {
		times = append(times, t.String())
	}
	return blockDTO{
		ID:       block.ID,
		Date:     block.Date.String(),
		Times:    times,
		WholeDay: block.WholeDay(),
		Reason:   block.Reason,
	}
}

type blockResponse struct {
	Block blockDTO `json:"block"`
}

type blocksResponse struct {
	Blocks []blockDTO `json:"blocks"`
}

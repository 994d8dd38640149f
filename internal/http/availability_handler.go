package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/scheduler"
)

type availabilityService interface {
	Window(ctx context.Context, year, month int) (scheduler.Decision, error)
	OpenDraft(ctx context.Context, params application.OpenDraftParams) (application.DraftState, error)
	GetDraft(ctx context.Context, principal application.Principal, id string) (application.DraftState, error)
	Toggle(ctx context.Context, principal application.Principal, id, date, slotID string) (application.DraftState, error)
	ToggleExtra(ctx context.Context, principal application.Principal, id, extraID string) (application.DraftState, error)
	ApplyRecurrence(ctx context.Context, principal application.Principal, id string, weekday int, slotID, mode string) (int, application.DraftState, error)
	Discard(ctx context.Context, principal application.Principal, id string) (application.DraftState, error)
	Commit(ctx context.Context, principal application.Principal, id string) (application.CommitResult, application.DraftState, error)
	CloseDraft(ctx context.Context, principal application.Principal, id string) error
	Occupancy(ctx context.Context, year, month int) (application.MonthOccupancy, error)
}

// AvailabilityHandler serves the window, draft and occupancy endpoints.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

// Window handles GET /window?year=&month=.
func (h *AvailabilityHandler) Window(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthQuery(r, false)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	decision, err := h.service.Window(r.Context(), year, month)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, windowResponse{Year: year, Month: month, Window: toDecisionDTO(decision)})
}

// OpenDraft handles POST /drafts.
func (h *AvailabilityHandler) OpenDraft(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req openDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	state, err := h.service.OpenDraft(r.Context(), application.OpenDraftParams{
		Principal:  principal,
		MinisterID: strings.TrimSpace(req.MinisterID),
		Year:       req.Year,
		Month:      req.Month,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, draftResponse{Draft: toDraftDTO(state)})
}

// GetDraft handles GET /drafts/{id}.
func (h *AvailabilityHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	state, err := h.service.GetDraft(r.Context(), principal, r.PathValue("id"))
	h.renderDraft(r.Context(), w, state, err)
}

// Toggle handles POST /drafts/{id}/toggle.
func (h *AvailabilityHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	state, err := h.service.Toggle(r.Context(), principal, r.PathValue("id"), req.Date, req.SlotID)
	h.renderDraft(r.Context(), w, state, err)
}

// ToggleExtra handles POST /drafts/{id}/toggle-extra.
func (h *AvailabilityHandler) ToggleExtra(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req toggleExtraRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	state, err := h.service.ToggleExtra(r.Context(), principal, r.PathValue("id"), req.ExtraID)
	h.renderDraft(r.Context(), w, state, err)
}

// ApplyRecurrence handles POST /drafts/{id}/recurrence.
func (h *AvailabilityHandler) ApplyRecurrence(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req recurrenceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	changed, state, err := h.service.ApplyRecurrence(r.Context(), principal, r.PathValue("id"), req.Weekday, req.SlotID, req.Mode)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, recurrenceResponse{Changed: changed, Draft: toDraftDTO(state)})
}

// Discard handles POST /drafts/{id}/discard.
func (h *AvailabilityHandler) Discard(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	state, err := h.service.Discard(r.Context(), principal, r.PathValue("id"))
	h.renderDraft(r.Context(), w, state, err)
}

// Commit handles POST /drafts/{id}/commit.
func (h *AvailabilityHandler) Commit(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	draftID := r.PathValue("id")
	logger := h.log(r.Context(), "Commit", "draft_id", draftID)

	result, state, err := h.service.Commit(r.Context(), principal, draftID)
	if err != nil {
		logger.InfoContext(r.Context(), "commit rejected", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, commitResponse{
		Inserted: result.Inserted,
		Deleted:  result.Deleted,
		Draft:    toDraftDTO(state),
	})
}

// CloseDraft handles DELETE /drafts/{id}.
func (h *AvailabilityHandler) CloseDraft(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.CloseDraft(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Occupancy handles GET /occupancy?year=&month=.
func (h *AvailabilityHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthQuery(r, false)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	occupancy, err := h.service.Occupancy(r.Context(), year, month)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entries := make([]occupancyDTO, 0, len(occupancy.Entries))
	for _, entry := range occupancy.Entries {
		entries = append(entries, toOccupancyDTO(entry))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, occupancyResponse{
		Year:    occupancy.Year,
		Month:   int(occupancy.Month),
		Entries: entries,
	})
}

func (h *AvailabilityHandler) renderDraft(ctx context.Context, w http.ResponseWriter, state application.DraftState, err error) {
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, draftResponse{Draft: toDraftDTO(state)})
}

type openDraftRequest struct {
	MinisterID string `json:"minister_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
}

type toggleRequest struct {
	Date   string `json:"date"`
	SlotID string `json:"slot_id"`
}

type toggleExtraRequest struct {
	ExtraID string `json:"extra_id"`
}

type recurrenceRequest struct {
	Weekday int    `json:"weekday"`
	SlotID  string `json:"slot_id"`
	Mode    string `json:"mode"`
}

type windowResponse struct {
	Year   int         `json:"year"`
	Month  int         `json:"month"`
	Window decisionDTO `json:"window"`
}

type decisionDTO struct {
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason"`
	OpensAt       string `json:"opens_at,omitempty"`
	ClosesAt      string `json:"closes_at,omitempty"`
	OverrideUntil string `json:"override_until,omitempty"`
}

func toDecisionDTO(decision scheduler.Decision) decisionDTO {
	return decisionDTO{
		Allowed:       decision.Allowed,
		Reason:        string(decision.Reason),
		OpensAt:       formatTimestamp(decision.OpensAt),
		ClosesAt:      formatTimestamp(decision.ClosesAt),
		OverrideUntil: formatTimestamp(decision.OverrideUntil),
	}
}

type draftResponse struct {
	Draft draftDTO `json:"draft"`
}

type recurrenceResponse struct {
	Changed int      `json:"changed"`
	Draft   draftDTO `json:"draft"`
}

type commitResponse struct {
	Inserted int      `json:"inserted"`
	Deleted  int      `json:"deleted"`
	Draft    draftDTO `json:"draft"`
}

type slotKeyDTO struct {
	Date   string `json:"date"`
	SlotID string `json:"slot_id"`
}

type diffDTO struct {
	ToInsertRegular []slotKeyDTO `json:"to_insert_regular"`
	ToDeleteRegular []slotKeyDTO `json:"to_delete_regular"`
	ToInsertExtras  []string     `json:"to_insert_extras"`
	ToDeleteExtras  []string     `json:"to_delete_extras"`
}

type draftDTO struct {
	ID         string       `json:"id"`
	MinisterID string       `json:"minister_id"`
	Year       int          `json:"year"`
	Month      int          `json:"month"`
	Window     decisionDTO  `json:"window"`
	Regular    []slotKeyDTO `json:"regular"`
	Extras     []string     `json:"extras"`
	Diff       diffDTO      `json:"diff"`
	Pending    bool         `json:"pending"`
}

func toDraftDTO(state application.DraftState) draftDTO {
	return draftDTO{
		ID:         state.ID,
		MinisterID: state.MinisterID,
		Year:       state.Year,
		Month:      int(state.Month),
		Window:     toDecisionDTO(state.Window),
		Regular:    toSlotKeyDTOs(state.Regular),
		Extras:     nonNil(state.Extras),
		Diff: diffDTO{
			ToInsertRegular: toSlotKeyDTOs(state.Diff.ToInsertRegular),
			ToDeleteRegular: toSlotKeyDTOs(state.Diff.ToDeleteRegular),
			ToInsertExtras:  nonNil(state.Diff.ToInsertExtras),
			ToDeleteExtras:  nonNil(state.Diff.ToDeleteExtras),
		},
		Pending: state.Pending,
	}
}

func toSlotKeyDTOs(keys []scheduler.SlotKey) []slotKeyDTO {
	out := make([]slotKeyDTO, 0, len(keys))
	for _, key := range keys {
		out = append(out, slotKeyDTO{Date: key.Date.String(), SlotID: key.SlotID})
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type occupancyResponse struct {
	Year    int            `json:"year"`
	Month   int            `json:"month"`
	Entries []occupancyDTO `json:"entries"`
}

type occupancyDTO struct {
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	SlotID      string `json:"slot_id,omitempty"`
	ExtraID     string `json:"extra_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Current     int    `json:"current"`
	MinRequired int    `json:"min_required"`
	MaxAllowed  int    `json:"max_allowed"`
	Blocked     bool   `json:"blocked"`
}

func toOccupancyDTO(entry application.OccupancyEntry) occupancyDTO {
	return occupancyDTO{
		Kind:        string(entry.Target.Kind),
		Date:        entry.Date.String(),
		Time:        entry.Time.String(),
		SlotID:      entry.Target.SlotID,
		ExtraID:     entry.Target.ExtraID,
		Title:       entry.Title,
		Current:     entry.Current,
		MinRequired: entry.MinRequired,
		MaxAllowed:  entry.MaxAllowed,
		Blocked:     entry.Blocked,
	}
}

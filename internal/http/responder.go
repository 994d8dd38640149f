package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/logging"
	"github.com/example/parish-roster/internal/scheduler"
)

var (
	errBadRequestBody  = errors.New("Formato de requisição inválido.")
	errMissingIdentity = errors.New("Informe o ministro no cabeçalho X-Minister-ID.")
	errUnknownIdentity = errors.New("Ministro não cadastrado.")
)

const (
	codeWindowClosed     = "WINDOW_CLOSED"
	codeSlotBlocked      = "SLOT_BLOCKED"
	codeCapacityExceeded = "CAPACITY_EXCEEDED"
	codeUnknownTarget    = "UNKNOWN_TARGET"
	codePersistence      = "STORAGE_UNAVAILABLE"
	codeForbidden        = "FORBIDDEN"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors onto status codes and user
// facing messages.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		windowErr   *application.WindowNotEditableError
		blockedErr  *application.BlockedSlotError
		capacityErr *application.CapacityExceededError
		unknownErr  *application.UnknownTargetError
		vErr        *application.ValidationError
	)

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: codeForbidden,
			Message:   "Você não tem permissão para esta operação.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "Registro não encontrado."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "Registro já existe."})
	case errors.Is(err, application.ErrPersistence):
		r.loggerFor(ctx).ErrorContext(ctx, "storage unavailable", "error", err)
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: codePersistence,
			Message:   "Não foi possível salvar agora. Suas alterações foram mantidas; tente novamente.",
		})
	case errors.As(err, &windowErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeWindowClosed,
			Message:   windowMessage(windowErr.Decision),
			Reason:    string(windowErr.Reason()),
		})
	case errors.As(err, &blockedErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeSlotBlocked,
			Message:   blockedMessage(blockedErr),
			Reason:    blockedErr.Reason,
		})
	case errors.As(err, &capacityErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeCapacityExceeded,
			Message:   fmt.Sprintf("A missa %s já atingiu o limite de %d ministros.", capacityErr.Label, capacityErr.Max),
		})
	case errors.As(err, &unknownErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeUnknownTarget,
			Message:   "Horário indisponível: " + unknownErr.Reason + ".",
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "Dados inválidos.",
			Errors:  vErr.FieldErrors,
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Erro interno do servidor."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, r.logger)
}

func windowMessage(decision scheduler.Decision) string {
	switch decision.Reason {
	case scheduler.ReasonHardClosed:
		return "O período de disponibilidade foi encerrado pela coordenação."
	case scheduler.ReasonClosed:
		return "O prazo para este mês já terminou."
	case scheduler.ReasonWrongMonth:
		return "Só é possível informar a disponibilidade do próximo mês."
	case scheduler.ReasonNotYetOpen:
		return "O período para este mês abre em " + decision.OpensAt.Format("02/01/2006") + "."
	}
	return "O período de disponibilidade não está aberto."
}

func blockedMessage(err *application.BlockedSlotError) string {
	when := fmt.Sprintf("%02d/%02d/%04d", err.Date.Day, int(err.Date.Month), err.Date.Year)
	if err.Reason == "" {
		return fmt.Sprintf("A missa de %s às %s está bloqueada.", when, err.Time)
	}
	return fmt.Sprintf("A missa de %s às %s está bloqueada: %s", when, err.Time, err.Reason)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Requisição inválida."
	case http.StatusUnauthorized:
		return "Identificação obrigatória."
	case http.StatusForbidden:
		return "Você não tem permissão para esta operação."
	case http.StatusNotFound:
		return "Registro não encontrado."
	case http.StatusConflict:
		return "A operação conflita com o estado atual."
	case http.StatusUnprocessableEntity:
		return "Dados inválidos."
	case http.StatusServiceUnavailable:
		return "Serviço temporariamente indisponível."
	default:
		return "Erro interno do servidor."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Reason    string            `json:"reason,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/logging"
)

// MinisterHeader carries the identity of the acting minister. Authentication
// happens upstream; this service only resolves the identity.
const MinisterHeader = "X-Minister-ID"

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// PrincipalResolver turns a minister id into a Principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, ministerID string) (application.Principal, error)
}

// RequireMinister rejects requests whose X-Minister-ID does not name a
// registered minister and stores the resolved principal in the request context.
func RequireMinister(resolver PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			ministerID := strings.TrimSpace(r.Header.Get(MinisterHeader))
			if ministerID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
				return
			}

			principal, err := resolver.ResolvePrincipal(r.Context(), ministerID)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrUnauthorized), errors.Is(err, application.ErrNotFound):
					responder.writeError(r.Context(), w, http.StatusUnauthorized, errUnknownIdentity)
				default:
					responder.handleServiceError(r.Context(), w, err)
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if logger := logging.FromContext(ctx); logger != nil {
				ctx = logging.WithLogger(ctx, logger.With("principal_id", principal.MinisterID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger to the context and logs the
// outcome of each request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.WithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

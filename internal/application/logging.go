package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/parish-roster/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel, rule and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	}

	var (
		windowErr   *WindowNotEditableError
		blockedErr  *BlockedSlotError
		unknownErr  *UnknownTargetError
		capacityErr *CapacityExceededError
		vErr        *ValidationError
	)
	switch {
	case errors.As(err, &windowErr):
		return "window_closed"
	case errors.As(err, &blockedErr):
		return "blocked"
	case errors.As(err, &capacityErr):
		return "capacity_exceeded"
	case errors.As(err, &unknownErr):
		return "unknown_target"
	case errors.As(err, &vErr):
		return "validation"
	}

	return "unexpected"
}

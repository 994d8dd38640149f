package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/parish-roster/internal/persistence"
)

// MinisterRepository captures the persistence operations needed by the minister service.
type MinisterRepository interface {
	CreateMinister(ctx context.Context, minister Minister) (Minister, error)
	GetMinister(ctx context.Context, id string) (Minister, error)
	ListMinisters(ctx context.Context) ([]Minister, error)
	DeleteMinister(ctx context.Context, id string) error
}

// MinisterService manages the minister registry. Only administrators may change it.
type MinisterService struct {
	ministers   MinisterRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMinisterService wires dependencies for the minister service.
func NewMinisterService(ministers MinisterRepository, idGenerator func() string, now func() time.Time) *MinisterService {
	return NewMinisterServiceWithLogger(ministers, idGenerator, now, nil)
}

// NewMinisterServiceWithLogger wires dependencies for the minister service with a specified logger.
func NewMinisterServiceWithLogger(ministers MinisterRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MinisterService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MinisterService{ministers: ministers, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *MinisterService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MinisterService", operation, attrs...)
}

// CreateMinister registers a new minister.
func (s *MinisterService) CreateMinister(ctx context.Context, principal Principal, input MinisterInput) (minister Minister, err error) {
	if s == nil {
		err = fmt.Errorf("MinisterService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateMinister", "principal_id", principal.MinisterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create minister", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("minister_id", minister.ID).InfoContext(ctx, "minister created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	if vErr := validateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	minister = Minister{
		ID:        s.idGenerator(),
		Name:      input.Name,
		IsAdmin:   input.IsAdmin,
		CreatedAt: s.now(),
	}
	minister.UpdatedAt = minister.CreatedAt

	if s.ministers == nil {
		return
	}

	minister, err = s.ministers.CreateMinister(ctx, minister)
	if err != nil {
		err = mapMinisterRepoError(err)
	}
	return
}

// GetMinister returns a minister. Ministers may read their own record;
// administrators may read any.
func (s *MinisterService) GetMinister(ctx context.Context, principal Principal, id string) (Minister, error) {
	if s == nil {
		return Minister{}, fmt.Errorf("MinisterService is nil")
	}
	if !principal.IsAdmin && principal.MinisterID != id {
		return Minister{}, ErrUnauthorized
	}
	if s.ministers == nil {
		return Minister{}, ErrNotFound
	}

	minister, err := s.ministers.GetMinister(ctx, id)
	if err != nil {
		return Minister{}, mapMinisterRepoError(err)
	}
	return minister, nil
}

// ListMinisters returns every minister ordered by name.
func (s *MinisterService) ListMinisters(ctx context.Context, principal Principal) (ministers []Minister, err error) {
	if s == nil {
		err = fmt.Errorf("MinisterService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.ministers == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListMinisters", "principal_id", principal.MinisterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list ministers", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	ministers, err = s.ministers.ListMinisters(ctx)
	if err != nil {
		err = mapMinisterRepoError(err)
		return
	}
	sort.SliceStable(ministers, func(i, j int) bool {
		if strings.EqualFold(ministers[i].Name, ministers[j].Name) {
			return ministers[i].ID < ministers[j].ID
		}
		return strings.ToLower(ministers[i].Name) < strings.ToLower(ministers[j].Name)
	})
	return
}

// DeleteMinister removes a minister together with their committed selections.
func (s *MinisterService) DeleteMinister(ctx context.Context, principal Principal, id string) error {
	if s == nil {
		return fmt.Errorf("MinisterService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.ministers == nil {
		return fmt.Errorf("minister repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteMinister",
		"principal_id", principal.MinisterID,
		"minister_id", id,
	)

	if err := s.ministers.DeleteMinister(ctx, id); err != nil {
		err = mapMinisterRepoError(err)
		logger.ErrorContext(ctx, "failed to delete minister", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "minister deleted")
	return nil
}

// ResolvePrincipal turns a minister ID supplied by the transport into a Principal.
func (s *MinisterService) ResolvePrincipal(ctx context.Context, ministerID string) (Principal, error) {
	if s == nil || s.ministers == nil {
		return Principal{}, ErrUnauthorized
	}
	ministerID = strings.TrimSpace(ministerID)
	if ministerID == "" {
		return Principal{}, ErrUnauthorized
	}

	minister, err := s.ministers.GetMinister(ctx, ministerID)
	if err != nil {
		err = mapMinisterRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	return Principal{MinisterID: minister.ID, IsAdmin: minister.IsAdmin}, nil
}

// BootstrapAdmin registers an administrator with a fixed id when the registry
// is empty, so a fresh installation can be reached over HTTP. It reports
// whether a minister was created.
func (s *MinisterService) BootstrapAdmin(ctx context.Context, id, name string) (bool, error) {
	if s == nil || s.ministers == nil {
		return false, fmt.Errorf("minister repository not configured")
	}
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		vErr := &ValidationError{}
		if id == "" {
			vErr.add("id", "campo obrigatório")
		}
		if name == "" {
			vErr.add("name", "campo obrigatório")
		}
		return false, vErr
	}

	logger := s.loggerWith(ctx, "BootstrapAdmin", "minister_id", id)

	existing, err := s.ministers.ListMinisters(ctx)
	if err != nil {
		err = mapMinisterRepoError(err)
		logger.ErrorContext(ctx, "failed to list ministers", "error", err, "error_kind", ErrorKind(err))
		return false, err
	}
	if len(existing) > 0 {
		logger.DebugContext(ctx, "registry already populated", "ministers", len(existing))
		return false, nil
	}

	at := s.now()
	if _, err := s.ministers.CreateMinister(ctx, Minister{ID: id, Name: name, IsAdmin: true, CreatedAt: at, UpdatedAt: at}); err != nil {
		err = mapMinisterRepoError(err)
		logger.ErrorContext(ctx, "failed to bootstrap administrator", "error", err, "error_kind", ErrorKind(err))
		return false, err
	}
	logger.InfoContext(ctx, "administrator bootstrapped")
	return true, nil
}

func mapMinisterRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("name", "campo obrigatório")
		return vErr
	case errors.Is(err, persistence.ErrBusy):
		return persistenceError(err)
	}
	return err
}

package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/gameserver-admin/internal"
	auditDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/audit"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

type RepositoryAPI interface {
	Insert(ctx context.Context, entry *auditDatamodel.Entry) error
	List(ctx context.Context, limit, offset int) ([]Entry, error)
	Count(ctx context.Context) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Record appends an entry, taking the client address from ctx. A failed
// write is logged and swallowed so auditing never aborts the audited action.
func (s *Service) Record(ctx context.Context, operatorID *int64, action, details string) {
	entry := NewEntry(operatorID, action, details, internal.ClientIPFromContext(ctx))
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry", "action", action, "error", err)
	}
}

func (s *Service) List(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("failed to list audit entries", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to count audit entries", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &Page{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

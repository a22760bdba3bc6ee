package gameconfig

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
)

// View is returned by GET /server/config. Config is nil when the game has
// not written its config file yet.
type View struct {
	Config *string                      `json:"config"`
	Parsed map[string]map[string]string `json:"parsed"`
}

type Service struct {
	path   string
	audit  audit.Recorder
	logger *slog.Logger
}

func NewService(path string, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		path:   path,
		audit:  recorder,
		logger: logger,
	}
}

func (s *Service) Get(ctx context.Context) (*View, error) {
	raw, found, err := ReadRaw(s.path)
	if err != nil {
		return nil, internal.NewInternalError("failed to read server configuration", err)
	}
	view := &View{Parsed: Parse(raw).Map()}
	if found {
		view.Config = &raw
	}
	return view, nil
}

// Save writes the operator's text as is. Comments and layout are the
// operator's to keep, so the text is not re-serialized.
func (s *Service) Save(ctx context.Context, actor *operator.Operator, dto SaveConfigDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	if err := WriteRaw(s.path, dto.Config); err != nil {
		s.logger.Error("config write failed", "error", err)
		return internal.ErrConfigWriteFailed.Wrap(err)
	}

	doc := Parse(dto.Config)
	s.audit.Record(ctx, &actor.ID, audit.ActionConfigUpdate, fmt.Sprintf("Updated server configuration (%d sections)", len(doc.Sections())))
	s.logger.Info("server config updated", "operator_id", actor.ID)
	return nil
}

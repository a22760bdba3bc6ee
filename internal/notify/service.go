package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	webhookDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/webhook"
	"github.com/frahmantamala/gameserver-admin/internal/core/operator"
	"gorm.io/datatypes"
)

// Service manages webhook registrations.
type Service struct {
	repo   Repository
	audit  audit.Recorder
	logger *slog.Logger
}

func NewService(repo Repository, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  recorder,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*Webhook, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list webhooks", err)
	}
	hooks := make([]*Webhook, 0, len(rows))
	for i := range rows {
		hook, err := FromDataModel(&rows[i])
		if err != nil {
			return nil, internal.NewInternalError("failed to decode webhook", err)
		}
		hooks = append(hooks, hook)
	}
	return hooks, nil
}

func (s *Service) Create(ctx context.Context, actor *operator.Operator, dto CreateWebhookDTO) (*Webhook, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	encoded, err := encodeEvents(dto.Events)
	if err != nil {
		return nil, internal.NewInternalError("failed to encode events", err)
	}

	row := &webhookDatamodel.Webhook{
		Name:      dto.Name,
		URL:       dto.URL,
		Events:    encoded,
		Enabled:   true,
		CreatedBy: &actor.ID,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to create webhook", err)
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionWebhookCreate, fmt.Sprintf("Created webhook: %s", row.Name))
	s.logger.Info("webhook created", "webhook_id", row.ID, "events", dto.Events)

	hook, err := FromDataModel(row)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode webhook", err)
	}
	return hook, nil
}

func (s *Service) Update(ctx context.Context, actor *operator.Operator, id int64, dto UpdateWebhookDTO) (*Webhook, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load webhook", err)
	}
	if existing == nil {
		return nil, internal.ErrWebhookNotFound
	}

	fields := make(map[string]interface{})
	if dto.Name != nil {
		fields["name"] = *dto.Name
	}
	if dto.URL != nil {
		fields["url"] = *dto.URL
	}
	if dto.Events != nil {
		encoded, err := encodeEvents(dto.Events)
		if err != nil {
			return nil, internal.NewInternalError("failed to encode events", err)
		}
		fields["events"] = encoded
	}
	if dto.Enabled != nil {
		fields["enabled"] = *dto.Enabled
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, internal.NewInternalError("failed to update webhook", err)
	}

	s.audit.Record(ctx, &actor.ID, audit.ActionWebhookUpdate, fmt.Sprintf("Updated webhook: %s", existing.Name))

	row, err := s.repo.GetByID(ctx, id)
	if err != nil || row == nil {
		return nil, internal.NewInternalError("failed to reload webhook", err)
	}
	hook, err := FromDataModel(row)
	if err != nil {
		return nil, internal.NewInternalError("failed to decode webhook", err)
	}
	return hook, nil
}

func (s *Service) Delete(ctx context.Context, actor *operator.Operator, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to delete webhook", err)
	}
	if !deleted {
		return internal.ErrWebhookNotFound
	}
	s.audit.Record(ctx, &actor.ID, audit.ActionWebhookDelete, fmt.Sprintf("Deleted webhook %d", id))
	return nil
}

func encodeEvents(list []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

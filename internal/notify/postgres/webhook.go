package postgres

import (
	"context"
	"errors"

	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	webhookDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/webhook"
	"github.com/frahmantamala/gameserver-admin/internal/notify"
	"gorm.io/gorm"
)

// WebhookRepository implements notify.Repository and notify.IdentityLookup
type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

var (
	_ notify.Repository     = (*WebhookRepository)(nil)
	_ notify.IdentityLookup = (*WebhookRepository)(nil)
)

func (r *WebhookRepository) List(ctx context.Context) ([]webhookDatamodel.Webhook, error) {
	var rows []webhookDatamodel.Webhook
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

func (r *WebhookRepository) ListEnabled(ctx context.Context) ([]webhookDatamodel.Webhook, error) {
	var rows []webhookDatamodel.Webhook
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *WebhookRepository) GetByID(ctx context.Context, id int64) (*webhookDatamodel.Webhook, error) {
	var row webhookDatamodel.Webhook
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *WebhookRepository) Create(ctx context.Context, row *webhookDatamodel.Webhook) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *WebhookRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&webhookDatamodel.Webhook{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *WebhookRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&webhookDatamodel.Webhook{})
	return res.RowsAffected > 0, res.Error
}

func (r *WebhookRepository) LinkedIdentity(ctx context.Context, username string) (string, error) {
	var op operatorDatamodel.Operator
	err := r.db.WithContext(ctx).
		Select("external_id").
		Where("username = ?", username).
		First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if op.ExternalID == nil {
		return "", nil
	}
	return *op.ExternalID, nil
}

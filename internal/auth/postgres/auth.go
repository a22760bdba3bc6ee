package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal/auth"
	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	sessionDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/session"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var (
	_ auth.OperatorRepository = (*Repository)(nil)
	_ auth.SessionRepository  = (*Repository)(nil)
)

func (r *Repository) GetByUsername(ctx context.Context, username string) (*operatorDatamodel.Operator, error) {
	var op operatorDatamodel.Operator
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*operatorDatamodel.Operator, error) {
	var op operatorDatamodel.Operator
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (r *Repository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&operatorDatamodel.Operator{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}

func (r *Repository) Create(ctx context.Context, session *sessionDatamodel.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *Repository) GetByToken(ctx context.Context, token string) (*sessionDatamodel.Session, error) {
	var s sessionDatamodel.Session
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) DeleteByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&sessionDatamodel.Session{}).Error
}

func (r *Repository) DeleteByOperator(ctx context.Context, operatorID int64) error {
	return r.db.WithContext(ctx).Where("operator_id = ?", operatorID).Delete(&sessionDatamodel.Session{}).Error
}

func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&sessionDatamodel.Session{})
	return res.RowsAffected, res.Error
}

package postgres

import (
	"context"
	"errors"
	"time"

	inviteDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/invite"
	operatorDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/operator"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements user.Repository using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) List(ctx context.Context) ([]user.OperatorRecord, error) {
	var records []user.OperatorRecord
	err := r.db.WithContext(ctx).
		Table("operators AS o").
		Select("o.*, c.username AS created_by_username").
		Joins("LEFT JOIN operators AS c ON c.id = o.created_by").
		Order("o.created_at DESC, o.id DESC").
		Scan(&records).Error
	return records, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*operatorDatamodel.Operator, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*operatorDatamodel.Operator, error) {
	return r.first(ctx, "external_id = ?", externalID)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&operatorDatamodel.Operator{}).Count(&n).Error
	return n, err
}

func (r *UserRepository) Create(ctx context.Context, row *operatorDatamodel.Operator) error {
	return translate(r.db.WithContext(ctx).Create(row).Error)
}

// Update writes only the given columns. A map is used so false and nil
// values are not skipped.
func (r *UserRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	err := r.db.WithContext(ctx).Model(&operatorDatamodel.Operator{}).
		Where("id = ?", id).
		Updates(fields).Error
	return translate(err)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&operatorDatamodel.Operator{}).Error
}

func (r *UserRepository) CreateInvite(ctx context.Context, row *inviteDatamodel.Invite) error {
	return translate(r.db.WithContext(ctx).Create(row).Error)
}

func (r *UserRepository) ListInvites(ctx context.Context) ([]user.InviteRecord, error) {
	var records []user.InviteRecord
	err := r.db.WithContext(ctx).
		Table("invites AS i").
		Select("i.*, o.username AS created_by_username").
		Joins("LEFT JOIN operators AS o ON o.id = i.created_by").
		Order("i.created_at DESC, i.id DESC").
		Scan(&records).Error
	return records, err
}

func (r *UserRepository) DeleteInvite(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&inviteDatamodel.Invite{})
	return res.RowsAffected > 0, res.Error
}

// RedeemInvite consumes a use with a guarded update so concurrent
// redemptions can never exceed max_uses.
func (r *UserRepository) RedeemInvite(ctx context.Context, code string, now time.Time, build func(*inviteDatamodel.Invite) *operatorDatamodel.Operator) (*operatorDatamodel.Operator, error) {
	var created *operatorDatamodel.Operator
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&inviteDatamodel.Invite{}).
			Where("code = ?", code).
			Where("max_uses = 0 OR uses < max_uses").
			Where("expires_at IS NULL OR expires_at > ?", now).
			UpdateColumn("uses", gorm.Expr("uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return user.ErrInviteUnavailable
		}

		var inv inviteDatamodel.Invite
		if err := tx.Where("code = ?", code).First(&inv).Error; err != nil {
			return err
		}

		row := build(&inv)
		if err := tx.Create(row).Error; err != nil {
			return translate(err)
		}

		if err := tx.Model(&inviteDatamodel.Invite{}).
			Where("id = ?", inv.ID).
			UpdateColumn("used_by", row.ID).Error; err != nil {
			return err
		}

		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*operatorDatamodel.Operator, error) {
	var op operatorDatamodel.Operator
	err := r.db.WithContext(ctx).Where(query, args...).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func translate(err error) error {
	if database.IsUniqueViolation(err) {
		return user.ErrDuplicate
	}
	return err
}

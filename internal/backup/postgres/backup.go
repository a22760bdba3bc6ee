package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/gameserver-admin/internal/backup"
	backupDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/backup"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"gorm.io/gorm"
)

type BackupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

var _ backup.Repository = (*BackupRepository)(nil)

// List returns every catalog row, newest first, with the creator's name.
func (r *BackupRepository) List(ctx context.Context) ([]backup.Record, error) {
	var recs []backup.Record
	err := r.db.WithContext(ctx).
		Table("backups AS b").
		Select("b.*, o.username AS created_by_username").
		Joins("LEFT JOIN operators o ON o.id = b.created_by").
		Order("b.created_at DESC, b.id DESC").
		Scan(&recs).Error
	return recs, err
}

func (r *BackupRepository) GetByID(ctx context.Context, id int64) (*backupDatamodel.Backup, error) {
	var row backupDatamodel.Backup
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *BackupRepository) Create(ctx context.Context, row *backupDatamodel.Backup) error {
	err := r.db.WithContext(ctx).Create(row).Error
	if database.IsUniqueViolation(err) {
		return backup.ErrDuplicate
	}
	return err
}

func (r *BackupRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&backupDatamodel.Backup{})
	return res.RowsAffected > 0, res.Error
}

package postgres

import (
	"context"

	"github.com/frahmantamala/gameserver-admin/internal/audit"
	auditDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/audit"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// AuditRepository writes through gorm and reads the joined listing through
// sqlx over the same pool.
type AuditRepository struct {
	db   *gorm.DB
	read *sqlx.DB
}

func NewAuditRepository(db *gorm.DB, read *sqlx.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db, read: read}
}

func (r *AuditRepository) Insert(ctx context.Context, entry *auditDatamodel.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]audit.Entry, error) {
	query := r.read.Rebind(`
		SELECT a.id, a.operator_id, o.username, a.action, COALESCE(a.details, '') AS details,
		       COALESCE(a.ip, '') AS ip, a.created_at
		FROM audit_log a
		LEFT JOIN operators o ON a.operator_id = o.id
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?`)

	var entries []audit.Entry
	if err := r.read.SelectContext(ctx, &entries, query, limit, offset); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *AuditRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.read.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_log`); err != nil {
		return 0, err
	}
	return total, nil
}

package backup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	backupDatamodel "github.com/frahmantamala/gameserver-admin/internal/core/datamodel/backup"
	"github.com/frahmantamala/gameserver-admin/internal/supervisor"
)

const (
	KindManual    = "manual"
	KindScheduled = "scheduled"
)

var ErrDuplicate = errors.New("backup: filename already recorded")

type Backup struct {
	ID                int64     `json:"id"`
	Filename          string    `json:"filename"`
	SizeBytes         int64     `json:"size_bytes"`
	SizeFormatted     string    `json:"size_formatted"`
	Kind              string    `json:"kind"`
	CreatedBy         *int64    `json:"created_by,omitempty"`
	CreatedByUsername string    `json:"created_by_username,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	Notes             string    `json:"notes,omitempty"`
	// FileMissing marks a catalog row whose archive is gone from disk.
	FileMissing bool `json:"file_missing"`
}

// Record is a backups row joined with its creator's username.
type Record struct {
	backupDatamodel.Backup `gorm:"embedded"`
	CreatedByUsername      *string `gorm:"column:created_by_username"`
}

type Repository interface {
	List(ctx context.Context) ([]Record, error)
	GetByID(ctx context.Context, id int64) (*backupDatamodel.Backup, error)
	Create(ctx context.Context, row *backupDatamodel.Backup) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// ServerGuard is the part of the supervisor a restore depends on.
type ServerGuard interface {
	Status(ctx context.Context) (*supervisor.Status, error)
	Exclusive(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mirror copies archives off-host. Implementations never fail the caller.
type Mirror interface {
	Upload(ctx context.Context, localPath, filename string)
	Remove(ctx context.Context, filename string)
}

// FilenameFor names an archive after its creation instant, with the
// separators that are awkward in file names replaced by dashes.
func FilenameFor(at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "backup-" + ts + ".zip"
}

func FromRow(row *backupDatamodel.Backup) *Backup {
	return &Backup{
		ID:            row.ID,
		Filename:      row.Filename,
		SizeBytes:     row.SizeBytes,
		SizeFormatted: humanize.IBytes(uint64(max(row.SizeBytes, 0))),
		Kind:          row.Kind,
		CreatedBy:     row.CreatedBy,
		CreatedAt:     row.CreatedAt,
		Notes:         row.Notes,
	}
}

func FromRecord(rec *Record) *Backup {
	b := FromRow(&rec.Backup)
	if rec.CreatedByUsername != nil {
		b.CreatedByUsername = *rec.CreatedByUsername
	}
	return b
}

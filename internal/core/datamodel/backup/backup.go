package backup

import "time"

type Backup struct {
	ID        int64     `gorm:"primaryKey"`
	Filename  string    `gorm:"column:filename;uniqueIndex;not null"`
	SizeBytes int64     `gorm:"column:size_bytes;not null"`
	Kind      string    `gorm:"column:kind;not null"`
	CreatedBy *int64    `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	Notes     string    `gorm:"column:notes"`
}

func (Backup) TableName() string {
	return "backups"
}

package invite

import "time"

// Invite.MaxUses of 0 means unlimited, so the column has no gorm default.
type Invite struct {
	ID        int64      `gorm:"primaryKey"`
	Code      string     `gorm:"column:code;uniqueIndex;not null"`
	Role      string     `gorm:"column:role;not null"`
	CreatedBy *int64     `gorm:"column:created_by"`
	UsedBy    *int64     `gorm:"column:used_by"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	MaxUses   int        `gorm:"column:max_uses;not null"`
	Uses      int        `gorm:"column:uses;not null"`
}

func (Invite) TableName() string {
	return "invites"
}

package operator

import "time"

type Operator struct {
	ID               int64      `gorm:"primaryKey"`
	Username         string     `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash     string     `gorm:"column:password_hash;not null"`
	Email            *string    `gorm:"column:email"`
	Role             string     `gorm:"column:role;not null"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	CreatedBy        *int64     `gorm:"column:created_by"`
	LastLogin        *time.Time `gorm:"column:last_login"`
	IsActive         bool       `gorm:"column:is_active;not null;default:true"`
	ExternalID       *string    `gorm:"column:external_id;uniqueIndex"`
	ExternalUsername *string    `gorm:"column:external_username"`
}

func (Operator) TableName() string {
	return "operators"
}

package session

import "time"

type Session struct {
	ID         int64     `gorm:"primaryKey"`
	OperatorID int64     `gorm:"column:operator_id;index;not null"`
	Token      string    `gorm:"column:token;uniqueIndex;not null"`
	IP         string    `gorm:"column:ip"`
	UserAgent  string    `gorm:"column:user_agent"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null"`
}

func (Session) TableName() string {
	return "sessions"
}

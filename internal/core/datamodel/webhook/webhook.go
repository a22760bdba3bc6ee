package webhook

import (
	"time"

	"gorm.io/datatypes"
)

type Webhook struct {
	ID        int64          `gorm:"primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	URL       string         `gorm:"column:url;not null"`
	Events    datatypes.JSON `gorm:"column:events;not null"`
	Enabled   bool           `gorm:"column:enabled;not null"`
	CreatedBy *int64         `gorm:"column:created_by"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Webhook) TableName() string {
	return "webhooks"
}

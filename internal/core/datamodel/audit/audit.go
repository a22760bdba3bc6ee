package audit

import "time"

type Entry struct {
	ID         int64     `gorm:"primaryKey"`
	OperatorID *int64    `gorm:"column:operator_id;index"`
	Action     string    `gorm:"column:action;not null"`
	Details    string    `gorm:"column:details"`
	IP         string    `gorm:"column:ip"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

func (Entry) TableName() string {
	return "audit_log"
}

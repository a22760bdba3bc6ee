package schedule

import "time"

// ScheduledTask is persisted for forward compatibility. Nothing executes it.
type ScheduledTask struct {
	ID        int64      `gorm:"primaryKey"`
	Type      string     `gorm:"column:type;not null"`
	Schedule  string     `gorm:"column:schedule;not null"`
	Enabled   bool       `gorm:"column:enabled;not null"`
	LastRun   *time.Time `gorm:"column:last_run"`
	NextRun   *time.Time `gorm:"column:next_run"`
	CreatedBy *int64     `gorm:"column:created_by"`
}

func (ScheduledTask) TableName() string {
	return "scheduled_tasks"
}

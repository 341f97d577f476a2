package model

import "time"

// ActivityLog is an append-only audit row. There are no update or delete
// paths for this table anywhere in the codebase.
type ActivityLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Action     string    `gorm:"type:varchar(50);not null" json:"action"`
	Module     string    `gorm:"type:varchar(50);not null" json:"module"`
	RecordID   uint      `gorm:"index" json:"record_id"`
	RecordType string    `gorm:"type:varchar(50)" json:"record_type"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

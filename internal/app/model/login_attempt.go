package model

import "time"

// LoginAttempt records one failed login for rate limiting. Rows for an
// email/IP are cleared on successful login and purged once they fall out
// of the lockout window.
type LoginAttempt struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Email       string    `gorm:"type:varchar(255);index" json:"email"`
	IPAddress   string    `gorm:"type:varchar(45);index" json:"ip_address"`
	AttemptedAt time.Time `gorm:"not null;index" json:"attempted_at"`
}

func (LoginAttempt) TableName() string {
	return "login_attempts"
}

package repository

import (
	"time"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

// LoginAttemptRepository tracks failed logins for rate limiting.
type LoginAttemptRepository interface {
	Create(attempt *model.LoginAttempt) error
	CountRecentByEmail(email string, since time.Time) (int64, error)
	CountRecentByIP(ipAddress string, since time.Time) (int64, error)
	DeleteByEmail(email string) error
	DeleteByIP(ipAddress string) error
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

type loginAttemptRepository struct {
	db *gorm.DB
}

func NewLoginAttemptRepository(db *gorm.DB) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) Create(attempt *model.LoginAttempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		logger.Error("Failed to record login attempt in database", err, map[string]interface{}{
			"email": attempt.Email,
		})
		return err
	}
	return nil
}

func (r *loginAttemptRepository) CountRecentByEmail(email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.LoginAttempt{}).
		Where("email = ? AND attempted_at >= ?", email, since).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count login attempts in database", err, map[string]interface{}{
			"email": email,
		})
		return 0, err
	}
	return count, nil
}

func (r *loginAttemptRepository) CountRecentByIP(ipAddress string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.LoginAttempt{}).
		Where("ip_address = ? AND attempted_at >= ?", ipAddress, since).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count login attempts by IP in database", err, map[string]interface{}{
			"ip": ipAddress,
		})
		return 0, err
	}
	return count, nil
}

// DeleteByEmail clears the failure history after a successful login.
func (r *loginAttemptRepository) DeleteByEmail(email string) error {
	err := r.db.
		Where("email = ?", email).
		Delete(&model.LoginAttempt{}).Error
	if err != nil {
		logger.Error("Failed to clear login attempts in database", err, map[string]interface{}{
			"email": email,
		})
		return err
	}
	return nil
}

// DeleteByIP clears the failure history of the caller's address.
func (r *loginAttemptRepository) DeleteByIP(ipAddress string) error {
	err := r.db.
		Where("ip_address = ?", ipAddress).
		Delete(&model.LoginAttempt{}).Error
	if err != nil {
		logger.Error("Failed to clear login attempts by IP in database", err, map[string]interface{}{
			"ip": ipAddress,
		})
		return err
	}
	return nil
}

// DeleteOlderThan purges rows that have aged out of the lockout window.
// They no longer count towards any limit; this just keeps the table small.
func (r *loginAttemptRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("attempted_at < ?", cutoff).
		Delete(&model.LoginAttempt{})
	if result.Error != nil {
		logger.Error("Failed to purge stale login attempts in database", result.Error, nil)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

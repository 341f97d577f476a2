package repository

import (
	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

// ActivityLogRepository writes the append-only audit trail. Rows are
// never updated or deleted.
type ActivityLogRepository interface {
	Create(entry *model.ActivityLog) error
	FindByRecord(module string, recordID uint) ([]model.ActivityLog, error)
	FindByUser(userID uint, limit int) ([]model.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(entry *model.ActivityLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to create activity log in database", err, map[string]interface{}{
			"action":    entry.Action,
			"module":    entry.Module,
			"record_id": entry.RecordID,
		})
		return err
	}
	return nil
}

func (r *activityLogRepository) FindByRecord(module string, recordID uint) ([]model.ActivityLog, error) {
	var entries []model.ActivityLog
	err := r.db.
		Where("module = ? AND record_id = ?", module, recordID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		logger.Error("Failed to find activity logs by record in database", err, map[string]interface{}{
			"module":    module,
			"record_id": recordID,
		})
		return nil, err
	}
	return entries, nil
}

func (r *activityLogRepository) FindByUser(userID uint, limit int) ([]model.ActivityLog, error) {
	query := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []model.ActivityLog
	if err := query.Find(&entries).Error; err != nil {
		logger.Error("Failed to find activity logs by user in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return entries, nil
}

package repository

import (
	"fmt"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

// StandardFilter narrows standard listings. Scope comes from the policy
// layer and is always applied before the user-supplied filters, so the
// same predicate drives both the page and the total count.
type StandardFilter struct {
	Scope  func(*gorm.DB) *gorm.DB
	Status *model.StandardStatus
	Type   string
	Search string
	SortBy string
	Limit  int
	Offset int
}

type StandardRepository interface {
	Create(standard *model.Standard) error
	FindByID(id uint, scope func(*gorm.DB) *gorm.DB) (*model.Standard, error)
	FindWithFilter(filter StandardFilter) ([]model.Standard, error)
	Count(filter StandardFilter) (int64, error)
	Update(standard *model.Standard) error
	Delete(id uint) error

	CreateCriterion(criterion *model.Criterion) error
	FindCriterionByID(id uint) (*model.Criterion, error)
	FindCriteriaByStandard(standardID uint) ([]model.Criterion, error)
	CountCriteriaByStandard(standardID uint) (int64, error)
	UpdateCriterion(criterion *model.Criterion) error
	DeleteCriterion(id uint) error
}

type standardRepository struct {
	db *gorm.DB
}

func NewStandardRepository(db *gorm.DB) StandardRepository {
	return &standardRepository{db: db}
}

func (r *standardRepository) Create(standard *model.Standard) error {
	logger.Debug("Creating standard in database", map[string]interface{}{
		"name":         standard.Name,
		"code":         standard.Code,
		"certifier_id": standard.CertifierID,
	})

	if err := r.db.Create(standard).Error; err != nil {
		logger.Error("Failed to create standard in database", err, map[string]interface{}{
			"name": standard.Name,
			"code": standard.Code,
		})
		return err
	}

	logger.Debug("Standard created in database", map[string]interface{}{
		"standard_id": standard.ID,
		"name":        standard.Name,
	})
	return nil
}

func (r *standardRepository) FindByID(id uint, scope func(*gorm.DB) *gorm.DB) (*model.Standard, error) {
	query := r.db.Preload("Criteria")
	if scope != nil {
		query = query.Scopes(scope)
	}

	var standard model.Standard
	if err := query.First(&standard, id).Error; err != nil {
		logger.Error("Failed to find standard by ID in database", err, map[string]interface{}{
			"standard_id": id,
		})
		return nil, err
	}
	return &standard, nil
}

// filteredQuery builds the shared predicate for FindWithFilter and Count.
func (r *standardRepository) filteredQuery(filter StandardFilter) *gorm.DB {
	query := r.db.Model(&model.Standard{})

	if filter.Scope != nil {
		query = query.Scopes(filter.Scope)
	}
	if filter.Status != nil {
		query = query.Where("standards.status = ?", *filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("standards.type = ?", filter.Type)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", filter.Search)
		query = query.Where("standards.name LIKE ? OR standards.description LIKE ?", like, like)
	}
	return query
}

func (r *standardRepository) FindWithFilter(filter StandardFilter) ([]model.Standard, error) {
	logger.Debug("Finding standards with filter", map[string]interface{}{
		"status": filter.Status,
		"type":   filter.Type,
		"search": filter.Search,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	query := r.filteredQuery(filter).Preload("Certifier")

	switch filter.SortBy {
	case "name":
		query = query.Order("standards.name ASC")
	case "price":
		query = query.Order("standards.price ASC")
	default:
		query = query.Order("standards.created_at DESC, standards.id DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var standards []model.Standard
	if err := query.Find(&standards).Error; err != nil {
		logger.Error("Failed to find standards with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, err
	}

	logger.Debug("Standards found with filter", map[string]interface{}{
		"count": len(standards),
	})
	return standards, nil
}

func (r *standardRepository) Count(filter StandardFilter) (int64, error) {
	var count int64
	if err := r.filteredQuery(filter).Count(&count).Error; err != nil {
		logger.Error("Failed to count standards", err, nil)
		return 0, err
	}
	return count, nil
}

func (r *standardRepository) Update(standard *model.Standard) error {
	logger.Debug("Updating standard in database", map[string]interface{}{
		"standard_id": standard.ID,
		"name":        standard.Name,
	})

	if err := r.db.Save(standard).Error; err != nil {
		logger.Error("Failed to update standard in database", err, map[string]interface{}{
			"standard_id": standard.ID,
		})
		return err
	}
	return nil
}

func (r *standardRepository) Delete(id uint) error {
	logger.Debug("Deleting standard from database", map[string]interface{}{
		"standard_id": id,
	})

	if err := r.db.Delete(&model.Standard{}, id).Error; err != nil {
		logger.Error("Failed to delete standard from database", err, map[string]interface{}{
			"standard_id": id,
		})
		return err
	}
	return nil
}

func (r *standardRepository) CreateCriterion(criterion *model.Criterion) error {
	logger.Debug("Creating criterion in database", map[string]interface{}{
		"standard_id": criterion.StandardID,
		"name":        criterion.Name,
	})

	if err := r.db.Create(criterion).Error; err != nil {
		logger.Error("Failed to create criterion in database", err, map[string]interface{}{
			"standard_id": criterion.StandardID,
			"name":        criterion.Name,
		})
		return err
	}
	return nil
}

func (r *standardRepository) FindCriterionByID(id uint) (*model.Criterion, error) {
	var criterion model.Criterion
	if err := r.db.First(&criterion, id).Error; err != nil {
		logger.Error("Failed to find criterion by ID in database", err, map[string]interface{}{
			"criterion_id": id,
		})
		return nil, err
	}
	return &criterion, nil
}

func (r *standardRepository) FindCriteriaByStandard(standardID uint) ([]model.Criterion, error) {
	var criteria []model.Criterion
	err := r.db.Where("standard_id = ?", standardID).
		Order("sort_order ASC, id ASC").
		Find(&criteria).Error
	if err != nil {
		logger.Error("Failed to find criteria by standard in database", err, map[string]interface{}{
			"standard_id": standardID,
		})
		return nil, err
	}
	return criteria, nil
}

func (r *standardRepository) CountCriteriaByStandard(standardID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Criterion{}).
		Where("standard_id = ?", standardID).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count criteria by standard in database", err, map[string]interface{}{
			"standard_id": standardID,
		})
		return 0, err
	}
	return count, nil
}

func (r *standardRepository) UpdateCriterion(criterion *model.Criterion) error {
	logger.Debug("Updating criterion in database", map[string]interface{}{
		"criterion_id": criterion.ID,
		"standard_id":  criterion.StandardID,
	})

	if err := r.db.Save(criterion).Error; err != nil {
		logger.Error("Failed to update criterion in database", err, map[string]interface{}{
			"criterion_id": criterion.ID,
		})
		return err
	}
	return nil
}

func (r *standardRepository) DeleteCriterion(id uint) error {
	logger.Debug("Deleting criterion from database", map[string]interface{}{
		"criterion_id": id,
	})

	if err := r.db.Delete(&model.Criterion{}, id).Error; err != nil {
		logger.Error("Failed to delete criterion from database", err, map[string]interface{}{
			"criterion_id": id,
		})
		return err
	}
	return nil
}

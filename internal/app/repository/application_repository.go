package repository

import (
	"fmt"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

// ApplicationFilter narrows application listings. Scope comes from the
// policy layer.
type ApplicationFilter struct {
	Scope      func(*gorm.DB) *gorm.DB
	Status     *model.ApplicationStatus
	StandardID *uint
	Search     string
	Limit      int
	Offset     int
}

type ApplicationRepository interface {
	Create(application *model.Application) error
	FindByID(id uint, scope func(*gorm.DB) *gorm.DB) (*model.Application, error)
	FindWithFilter(filter ApplicationFilter) ([]model.Application, error)
	Count(filter ApplicationFilter) (int64, error)
	FindOpenByApplicantAndStandard(applicantID, standardID uint) (*model.Application, error)
	Update(application *model.Application) error
	Delete(id uint) error

	UpsertResponse(response *model.ApplicationResponse) error
	FindResponsesByApplication(applicationID uint) ([]model.ApplicationResponse, error)
	CountResponsesByApplication(applicationID uint) (int64, error)

	CreateDocument(document *model.ApplicationDocument) error
	FindDocumentByID(id uint) (*model.ApplicationDocument, error)
	FindDocumentsByApplication(applicationID uint) ([]model.ApplicationDocument, error)
	DeleteDocument(id uint) error
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(application *model.Application) error {
	logger.Debug("Creating application in database", map[string]interface{}{
		"application_number": application.ApplicationNumber,
		"applicant_id":       application.ApplicantID,
		"standard_id":        application.StandardID,
	})

	if err := r.db.Create(application).Error; err != nil {
		logger.Error("Failed to create application in database", err, map[string]interface{}{
			"application_number": application.ApplicationNumber,
			"applicant_id":       application.ApplicantID,
		})
		return err
	}

	logger.Debug("Application created in database", map[string]interface{}{
		"application_id":     application.ID,
		"application_number": application.ApplicationNumber,
	})
	return nil
}

func (r *applicationRepository) FindByID(id uint, scope func(*gorm.DB) *gorm.DB) (*model.Application, error) {
	query := r.db.
		Preload("Standard").
		Preload("Applicant").
		Preload("Responses").
		Preload("Responses.Criterion").
		Preload("Documents")
	if scope != nil {
		query = query.Scopes(scope)
	}

	var application model.Application
	if err := query.First(&application, id).Error; err != nil {
		logger.Error("Failed to find application by ID in database", err, map[string]interface{}{
			"application_id": id,
		})
		return nil, err
	}
	return &application, nil
}

func (r *applicationRepository) filteredQuery(filter ApplicationFilter) *gorm.DB {
	query := r.db.Model(&model.Application{})

	if filter.Scope != nil {
		query = query.Scopes(filter.Scope)
	}
	if filter.Status != nil {
		query = query.Where("applications.status = ?", *filter.Status)
	}
	if filter.StandardID != nil {
		query = query.Where("applications.standard_id = ?", *filter.StandardID)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", filter.Search)
		query = query.Where("applications.application_number LIKE ? OR applications.company_name LIKE ?", like, like)
	}
	return query
}

func (r *applicationRepository) FindWithFilter(filter ApplicationFilter) ([]model.Application, error) {
	logger.Debug("Finding applications with filter", map[string]interface{}{
		"status":      filter.Status,
		"standard_id": filter.StandardID,
		"search":      filter.Search,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})

	query := r.filteredQuery(filter).
		Preload("Standard").
		Order("applications.created_at DESC, applications.id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var applications []model.Application
	if err := query.Find(&applications).Error; err != nil {
		logger.Error("Failed to find applications with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, err
	}

	logger.Debug("Applications found with filter", map[string]interface{}{
		"count": len(applications),
	})
	return applications, nil
}

func (r *applicationRepository) Count(filter ApplicationFilter) (int64, error) {
	var count int64
	if err := r.filteredQuery(filter).Count(&count).Error; err != nil {
		logger.Error("Failed to count applications", err, nil)
		return 0, err
	}
	return count, nil
}

// FindOpenByApplicantAndStandard returns the applicant's non-terminal
// application for a standard, or gorm.ErrRecordNotFound when there is
// none. The open_marker column carries the same rule as the unique
// index, so at most one row can match.
func (r *applicationRepository) FindOpenByApplicantAndStandard(applicantID, standardID uint) (*model.Application, error) {
	var application model.Application
	err := r.db.
		Where("applicant_id = ? AND standard_id = ?", applicantID, standardID).
		Where("open_marker IS NOT NULL").
		Order("created_at DESC").
		First(&application).Error
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *applicationRepository) Update(application *model.Application) error {
	logger.Debug("Updating application in database", map[string]interface{}{
		"application_id": application.ID,
		"status":         application.Status,
	})

	if err := r.db.Save(application).Error; err != nil {
		logger.Error("Failed to update application in database", err, map[string]interface{}{
			"application_id": application.ID,
		})
		return err
	}
	return nil
}

func (r *applicationRepository) Delete(id uint) error {
	logger.Debug("Deleting application from database", map[string]interface{}{
		"application_id": id,
	})

	if err := r.db.Delete(&model.Application{}, id).Error; err != nil {
		logger.Error("Failed to delete application from database", err, map[string]interface{}{
			"application_id": id,
		})
		return err
	}
	return nil
}

// UpsertResponse saves the applicant's answer for one criterion. A
// second save for the same (application, criterion) pair overwrites the
// first row instead of adding another.
func (r *applicationRepository) UpsertResponse(response *model.ApplicationResponse) error {
	logger.Debug("Saving application response in database", map[string]interface{}{
		"application_id": response.ApplicationID,
		"criterion_id":   response.CriterionID,
	})

	var existing model.ApplicationResponse
	err := r.db.
		Where("application_id = ? AND criterion_id = ?", response.ApplicationID, response.CriterionID).
		First(&existing).Error
	if err == nil {
		existing.MeetsRequirement = response.MeetsRequirement
		existing.Notes = response.Notes
		if err := r.db.Save(&existing).Error; err != nil {
			logger.Error("Failed to update application response in database", err, map[string]interface{}{
				"application_id": response.ApplicationID,
				"criterion_id":   response.CriterionID,
			})
			return err
		}
		*response = existing
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		logger.Error("Failed to look up application response in database", err, map[string]interface{}{
			"application_id": response.ApplicationID,
			"criterion_id":   response.CriterionID,
		})
		return err
	}

	if err := r.db.Create(response).Error; err != nil {
		logger.Error("Failed to create application response in database", err, map[string]interface{}{
			"application_id": response.ApplicationID,
			"criterion_id":   response.CriterionID,
		})
		return err
	}
	return nil
}

func (r *applicationRepository) FindResponsesByApplication(applicationID uint) ([]model.ApplicationResponse, error) {
	var responses []model.ApplicationResponse
	err := r.db.
		Where("application_id = ?", applicationID).
		Preload("Criterion").
		Order("criterion_id ASC").
		Find(&responses).Error
	if err != nil {
		logger.Error("Failed to find responses by application in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, err
	}
	return responses, nil
}

func (r *applicationRepository) CountResponsesByApplication(applicationID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ApplicationResponse{}).
		Where("application_id = ?", applicationID).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count responses by application in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return 0, err
	}
	return count, nil
}

func (r *applicationRepository) CreateDocument(document *model.ApplicationDocument) error {
	logger.Debug("Creating application document in database", map[string]interface{}{
		"application_id": document.ApplicationID,
		"document_name":  document.DocumentName,
		"file_size":      document.FileSize,
	})

	if err := r.db.Create(document).Error; err != nil {
		logger.Error("Failed to create application document in database", err, map[string]interface{}{
			"application_id": document.ApplicationID,
			"document_name":  document.DocumentName,
		})
		return err
	}
	return nil
}

func (r *applicationRepository) FindDocumentByID(id uint) (*model.ApplicationDocument, error) {
	var document model.ApplicationDocument
	if err := r.db.First(&document, id).Error; err != nil {
		logger.Error("Failed to find application document by ID in database", err, map[string]interface{}{
			"document_id": id,
		})
		return nil, err
	}
	return &document, nil
}

func (r *applicationRepository) FindDocumentsByApplication(applicationID uint) ([]model.ApplicationDocument, error) {
	var documents []model.ApplicationDocument
	err := r.db.
		Where("application_id = ?", applicationID).
		Order("uploaded_at DESC, id DESC").
		Find(&documents).Error
	if err != nil {
		logger.Error("Failed to find documents by application in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, err
	}
	return documents, nil
}

func (r *applicationRepository) DeleteDocument(id uint) error {
	logger.Debug("Deleting application document from database", map[string]interface{}{
		"document_id": id,
	})

	if err := r.db.Delete(&model.ApplicationDocument{}, id).Error; err != nil {
		logger.Error("Failed to delete application document from database", err, map[string]interface{}{
			"document_id": id,
		})
		return err
	}
	return nil
}

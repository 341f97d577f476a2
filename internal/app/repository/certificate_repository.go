package repository

import (
	"time"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

type CertificateFilter struct {
	Scope  func(*gorm.DB) *gorm.DB
	Status *model.CertificateStatus
	Limit  int
	Offset int
}

type CertificateRepository interface {
	Create(certificate *model.Certificate) error
	FindByID(id uint, scope func(*gorm.DB) *gorm.DB) (*model.Certificate, error)
	FindByNumber(number string) (*model.Certificate, error)
	FindByApplication(applicationID uint) (*model.Certificate, error)
	FindWithFilter(filter CertificateFilter) ([]model.Certificate, error)
	Count(filter CertificateFilter) (int64, error)
	Update(certificate *model.Certificate) error
	MarkExpiredBefore(now time.Time) (int64, error)
}

type certificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) Create(certificate *model.Certificate) error {
	logger.Debug("Creating certificate in database", map[string]interface{}{
		"certificate_number": certificate.CertificateNumber,
		"application_id":     certificate.ApplicationID,
	})

	if err := r.db.Create(certificate).Error; err != nil {
		logger.Error("Failed to create certificate in database", err, map[string]interface{}{
			"certificate_number": certificate.CertificateNumber,
			"application_id":     certificate.ApplicationID,
		})
		return err
	}

	logger.Debug("Certificate created in database", map[string]interface{}{
		"certificate_id":     certificate.ID,
		"certificate_number": certificate.CertificateNumber,
	})
	return nil
}

func (r *certificateRepository) FindByID(id uint, scope func(*gorm.DB) *gorm.DB) (*model.Certificate, error) {
	query := r.db.
		Preload("Standard").
		Preload("Applicant").
		Preload("Certifier")
	if scope != nil {
		query = query.Scopes(scope)
	}

	var certificate model.Certificate
	if err := query.First(&certificate, id).Error; err != nil {
		logger.Error("Failed to find certificate by ID in database", err, map[string]interface{}{
			"certificate_id": id,
		})
		return nil, err
	}
	return &certificate, nil
}

func (r *certificateRepository) FindByNumber(number string) (*model.Certificate, error) {
	var certificate model.Certificate
	err := r.db.
		Preload("Standard").
		Where("certificate_number = ?", number).
		First(&certificate).Error
	if err != nil {
		logger.Error("Failed to find certificate by number in database", err, map[string]interface{}{
			"certificate_number": number,
		})
		return nil, err
	}
	return &certificate, nil
}

func (r *certificateRepository) FindByApplication(applicationID uint) (*model.Certificate, error) {
	var certificate model.Certificate
	err := r.db.
		Where("application_id = ?", applicationID).
		First(&certificate).Error
	if err != nil {
		return nil, err
	}
	return &certificate, nil
}

func (r *certificateRepository) filteredQuery(filter CertificateFilter) *gorm.DB {
	query := r.db.Model(&model.Certificate{})
	if filter.Scope != nil {
		query = query.Scopes(filter.Scope)
	}
	if filter.Status != nil {
		query = query.Where("certificates.status = ?", *filter.Status)
	}
	return query
}

func (r *certificateRepository) FindWithFilter(filter CertificateFilter) ([]model.Certificate, error) {
	logger.Debug("Finding certificates with filter", map[string]interface{}{
		"status": filter.Status,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	query := r.filteredQuery(filter).
		Preload("Standard").
		Order("certificates.issued_at DESC, certificates.id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var certificates []model.Certificate
	if err := query.Find(&certificates).Error; err != nil {
		logger.Error("Failed to find certificates with filter", err, nil)
		return nil, err
	}

	logger.Debug("Certificates found with filter", map[string]interface{}{
		"count": len(certificates),
	})
	return certificates, nil
}

func (r *certificateRepository) Count(filter CertificateFilter) (int64, error) {
	var count int64
	if err := r.filteredQuery(filter).Count(&count).Error; err != nil {
		logger.Error("Failed to count certificates", err, nil)
		return 0, err
	}
	return count, nil
}

func (r *certificateRepository) Update(certificate *model.Certificate) error {
	logger.Debug("Updating certificate in database", map[string]interface{}{
		"certificate_id": certificate.ID,
		"status":         certificate.Status,
	})

	if err := r.db.Save(certificate).Error; err != nil {
		logger.Error("Failed to update certificate in database", err, map[string]interface{}{
			"certificate_id": certificate.ID,
		})
		return err
	}
	return nil
}

// MarkExpiredBefore flips active certificates whose expiry has passed to
// expired. The scheduler runs this so stored status eventually catches
// up with the status readers already compute on the fly.
func (r *certificateRepository) MarkExpiredBefore(now time.Time) (int64, error) {
	result := r.db.Model(&model.Certificate{}).
		Where("status = ? AND expires_at <= ?", model.CertificateActive, now).
		Update("status", model.CertificateExpired)
	if result.Error != nil {
		logger.Error("Failed to mark expired certificates in database", result.Error, nil)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

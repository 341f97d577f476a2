package service

import (
	"errors"
	"time"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/policy"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrCertificateNotFound = errors.New("certificate not found")

type CertificateService interface {
	List(p policy.Principal, filter repository.CertificateFilter) ([]model.Certificate, int64, error)
	Get(p policy.Principal, id uint) (*model.Certificate, error)
	Verify(number string) (*model.Certificate, error)
	Revoke(p policy.Principal, id uint, ip string) (*model.Certificate, error)
	AttachArtifact(p policy.Principal, id uint, fileKey string) (*model.Certificate, error)
	ReconcileExpired(now time.Time) (int64, error)
}

type certificateService struct {
	certificateRepo repository.CertificateRepository
	activityRepo    repository.ActivityLogRepository
}

func NewCertificateService(
	certificateRepo repository.CertificateRepository,
	activityRepo repository.ActivityLogRepository,
) CertificateService {
	return &certificateService{
		certificateRepo: certificateRepo,
		activityRepo:    activityRepo,
	}
}

func (s *certificateService) List(p policy.Principal, filter repository.CertificateFilter) ([]model.Certificate, int64, error) {
	decision := policy.Authorize(p, policy.ActionList, policy.ResourceCertificate)
	if !decision.Allowed() {
		return nil, 0, ErrForbidden
	}
	filter.Scope = decision.Scope

	certificates, err := s.certificateRepo.FindWithFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.certificateRepo.Count(filter)
	if err != nil {
		return nil, 0, err
	}

	// Readers get the derived state; the stored column may lag behind
	// the clock until the scheduler catches up.
	now := time.Now()
	for i := range certificates {
		certificates[i].Status = model.EffectiveCertificateStatus(&certificates[i], now)
	}
	return certificates, total, nil
}

func (s *certificateService) Get(p policy.Principal, id uint) (*model.Certificate, error) {
	decision := policy.Authorize(p, policy.ActionRead, policy.ResourceCertificate)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	certificate, err := s.certificateRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}

	certificate.Status = model.EffectiveCertificateStatus(certificate, time.Now())
	return certificate, nil
}

// Verify is the public lookup by certificate number.
func (s *certificateService) Verify(number string) (*model.Certificate, error) {
	certificate, err := s.certificateRepo.FindByNumber(number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}

	certificate.Status = model.EffectiveCertificateStatus(certificate, time.Now())

	logger.Info("Certificate verified", map[string]interface{}{
		"certificate_number": number,
		"status":             certificate.Status,
	})
	return certificate, nil
}

// Revoke is final: a revoked certificate never becomes active again,
// regardless of its expiry date.
func (s *certificateService) Revoke(p policy.Principal, id uint, ip string) (*model.Certificate, error) {
	decision := policy.Authorize(p, policy.ActionUpdate, policy.ResourceCertificate)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	certificate, err := s.certificateRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}

	if certificate.Status == model.CertificateRevoked {
		return certificate, nil
	}

	certificate.Status = model.CertificateRevoked
	if err := s.certificateRepo.Update(certificate); err != nil {
		return nil, err
	}

	s.recordActivity(p.UserID, "revoke", certificate.ID, ip)

	logger.Info("Certificate revoked", map[string]interface{}{
		"certificate_id":     certificate.ID,
		"certificate_number": certificate.CertificateNumber,
		"certifier_id":       p.UserID,
	})
	return certificate, nil
}

// AttachArtifact records the object-store key of the rendered
// certificate document after a presigned upload completes.
func (s *certificateService) AttachArtifact(p policy.Principal, id uint, fileKey string) (*model.Certificate, error) {
	decision := policy.Authorize(p, policy.ActionUpdate, policy.ResourceCertificate)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	certificate, err := s.certificateRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}

	certificate.CertificateFile = fileKey
	if err := s.certificateRepo.Update(certificate); err != nil {
		return nil, err
	}
	return certificate, nil
}

// ReconcileExpired persists the expiry state the readers already derive.
func (s *certificateService) ReconcileExpired(now time.Time) (int64, error) {
	updated, err := s.certificateRepo.MarkExpiredBefore(now)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		logger.Info("Expired certificates reconciled", map[string]interface{}{
			"count": updated,
		})
	}
	return updated, nil
}

func (s *certificateService) recordActivity(userID uint, action string, recordID uint, ip string) {
	err := s.activityRepo.Create(&model.ActivityLog{
		UserID:     userID,
		Action:     action,
		Module:     "certificates",
		RecordID:   recordID,
		RecordType: "Certificate",
		IPAddress:  ip,
	})
	if err != nil {
		logger.Error("Failed to record activity", err, map[string]interface{}{
			"action":    action,
			"record_id": recordID,
		})
	}
}

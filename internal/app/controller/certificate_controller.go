package controller

import (
	"errors"
	"net/http"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/app/service"
	apperrors "github.com/certolo/certolo-backend/internal/errors"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	certificateService service.CertificateService
}

func NewCertificateController(certificateService service.CertificateService) *CertificateController {
	return &CertificateController{
		certificateService: certificateService,
	}
}

type AttachArtifactRequest struct {
	FileKey string `json:"file_key" binding:"required"`
}

// ListCertificates lists the caller's certificates. Applicants see the
// ones issued to them, certifiers the ones they issued.
// GET /api/v1/certificates
func (ctrl *CertificateController) ListCertificates(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.CertificateFilter{}
	filter.Limit, filter.Offset = pagination(c)

	if statusParam := c.Query("status"); statusParam != "" {
		status := model.CertificateStatus(statusParam)
		if !status.Valid() {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown certificate status")
			return
		}
		filter.Status = &status
	}

	certificates, total, err := ctrl.certificateService.List(middleware.Principal(c), filter)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to list certificates", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list certificates")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certificates": certificates,
		"total":        total,
	})
}

// GetCertificate returns one certificate
// GET /api/v1/certificates/:id
func (ctrl *CertificateController) GetCertificate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	certificate, err := ctrl.certificateService.Get(middleware.Principal(c), id)
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			apperrors.NotFound(c, apperrors.CertificateNotFound, "Certificate not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to load certificate", err, map[string]interface{}{
			"certificate_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get certificate")
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificate": certificate})
}

// VerifyCertificate checks a certificate number without authentication.
// The response carries the effective status, never the raw stored one.
// GET /api/v1/certificates/verify/:number
func (ctrl *CertificateController) VerifyCertificate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	number := c.Param("number")
	if number == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "A certificate number is required")
		return
	}

	certificate, err := ctrl.certificateService.Verify(number)
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			apperrors.NotFound(c, apperrors.CertificateNotFound, "No certificate with this number exists")
			return
		}
		log.Error("Certificate verification failed", err, map[string]interface{}{
			"number": number,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "verify certificate")
		return
	}

	// Public endpoint: expose only what a third party needs to check.
	c.JSON(http.StatusOK, gin.H{
		"certificate": gin.H{
			"certificate_number": certificate.CertificateNumber,
			"status":             certificate.Status,
			"issued_at":          certificate.IssuedAt,
			"expires_at":         certificate.ExpiresAt,
			"standard":           certificate.Standard,
		},
	})
}

// RevokeCertificate withdraws a certificate issued by the caller
// POST /api/v1/certificates/:id/revoke
func (ctrl *CertificateController) RevokeCertificate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	certificate, err := ctrl.certificateService.Revoke(middleware.Principal(c), id, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			apperrors.NotFound(c, apperrors.CertificateNotFound, "Certificate not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "Only the issuing certifier can revoke a certificate")
			return
		}
		log.Error("Failed to revoke certificate", err, map[string]interface{}{
			"certificate_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "revoke certificate")
		return
	}

	log.Info("Certificate revoked", map[string]interface{}{
		"certificate_id":     certificate.ID,
		"certificate_number": certificate.CertificateNumber,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":     "Certificate revoked",
		"certificate": certificate,
	})
}

// AttachArtifact links the rendered certificate document (uploaded via
// the presigned URL flow) to the certificate record.
// PUT /api/v1/certificates/:id/file
func (ctrl *CertificateController) AttachArtifact(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AttachArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "A file_key is required")
		return
	}

	certificate, err := ctrl.certificateService.AttachArtifact(middleware.Principal(c), id, req.FileKey)
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) {
			apperrors.NotFound(c, apperrors.CertificateNotFound, "Certificate not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to attach certificate file", err, map[string]interface{}{
			"certificate_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "attach certificate file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Certificate file attached",
		"certificate": certificate,
	})
}

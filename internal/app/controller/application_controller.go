package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/app/service"
	apperrors "github.com/certolo/certolo-backend/internal/errors"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/certolo/certolo-backend/internal/storage"
	"github.com/certolo/certolo-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

type ApplicationController struct {
	applicationService service.ApplicationService
	files              *storage.LocalStorage
}

func NewApplicationController(applicationService service.ApplicationService, files *storage.LocalStorage) *ApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
		files:              files,
	}
}

type CreateApplicationRequest struct {
	StandardID uint `json:"standard_id" binding:"required"`
}

type SaveResponseRequest struct {
	CriterionID      uint   `json:"criterion_id" binding:"required"`
	MeetsRequirement string `json:"meets_requirement" binding:"required,oneof=yes partial no"`
	Notes            string `json:"notes"`
}

type RejectApplicationRequest struct {
	Reason string `json:"reason"`
}

// respondApplicationError maps the lifecycle engine's errors onto the
// standard payloads. Returns false when err was nil.
func respondApplicationError(c *gin.Context, log *logger.Logger, err error, context string) bool {
	if err == nil {
		return false
	}

	var incomplete *service.IncompleteCriteriaError
	var invalidUpload *service.UploadValidationError

	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		apperrors.NotFound(c, apperrors.ApplicationNotFound, "Application not found")
	case errors.Is(err, service.ErrStandardNotFound):
		apperrors.NotFound(c, apperrors.StandardNotFound, "Standard not found or not open for applications")
	case errors.Is(err, service.ErrCriterionNotFound):
		apperrors.NotFound(c, apperrors.CriterionNotFound, "Criterion not found")
	case errors.Is(err, service.ErrDocumentNotFound):
		apperrors.NotFound(c, apperrors.DocumentNotFound, "Document not found")
	case errors.Is(err, service.ErrForbidden):
		apperrors.Forbidden(c, "")
	case errors.Is(err, service.ErrInvalidTransition):
		apperrors.Conflict(c, apperrors.ApplicationInvalidTransition,
			"The application cannot move to the requested state")
	case errors.Is(err, service.ErrApplicationNotEditable):
		apperrors.Conflict(c, apperrors.ApplicationNotEditable,
			"The application can only be changed while it is a draft")
	case errors.Is(err, service.ErrRejectionReasonRequired):
		apperrors.BadRequest(c, apperrors.ApplicationReasonRequired,
			"A rejection reason is required")
	case errors.Is(err, service.ErrInvalidResponse):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput,
			"The self-assessment answer is invalid")
	case errors.As(err, &incomplete):
		c.JSON(http.StatusBadRequest, apperrors.ValidationErrors{
			Error:   apperrors.ApplicationIncompleteCriteria,
			Message: "All active criteria must be answered before submission",
			Details: incomplete.Missing,
		})
	case errors.As(err, &invalidUpload):
		apperrors.RespondWithValidationErrors(c, invalidUpload.Problems)
	default:
		log.Error("Application operation failed", err, map[string]interface{}{
			"context": context,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
	}
	return true
}

// CreateApplication opens a draft application for a standard. If the
// applicant already has an open application for the standard, the
// existing one is returned with a conflict status instead of creating a
// duplicate.
// POST /api/v1/applications
func (ctrl *ApplicationController) CreateApplication(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "A standard_id is required")
		return
	}

	application, err := ctrl.applicationService.Create(middleware.Principal(c), service.CreateApplicationInput{
		StandardID: req.StandardID,
	}, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrApplicationExists) {
			log.Info("Open application already exists", map[string]interface{}{
				"application_id": application.ID,
				"standard_id":    req.StandardID,
			})
			c.JSON(http.StatusConflict, gin.H{
				"error":       apperrors.ApplicationAlreadyExists,
				"message":     "You already have an open application for this standard",
				"application": application,
			})
			return
		}
		respondApplicationError(c, log, err, "create application")
		return
	}

	log.Info("Application created", map[string]interface{}{
		"application_id":     application.ID,
		"application_number": application.ApplicationNumber,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Application created successfully",
		"application": application,
	})
}

// ListApplications lists the caller's applications. Applicants see their
// own, certifiers see applications against their standards.
// GET /api/v1/applications
func (ctrl *ApplicationController) ListApplications(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.ApplicationFilter{
		Search: c.Query("search"),
	}
	filter.Limit, filter.Offset = pagination(c)

	if statusParam := c.Query("status"); statusParam != "" {
		status := model.ApplicationStatus(statusParam)
		if !status.Valid() {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown application status")
			return
		}
		filter.Status = &status
	}
	if standardParam := c.Query("standard_id"); standardParam != "" {
		standardID, err := strconv.ParseUint(standardParam, 10, 64)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid standard_id")
			return
		}
		id := uint(standardID)
		filter.StandardID = &id
	}

	applications, total, err := ctrl.applicationService.List(middleware.Principal(c), filter)
	if err != nil {
		respondApplicationError(c, log, err, "list applications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": applications,
		"total":        total,
	})
}

// GetApplication returns one application with responses and documents
// GET /api/v1/applications/:id
func (ctrl *ApplicationController) GetApplication(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	application, err := ctrl.applicationService.Get(middleware.Principal(c), id)
	if err != nil {
		respondApplicationError(c, log, err, "get application")
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": application})
}

// DeleteApplication removes a draft application with its responses and files
// DELETE /api/v1/applications/:id
func (ctrl *ApplicationController) DeleteApplication(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.applicationService.Delete(middleware.Principal(c), id, c.ClientIP()); err != nil {
		respondApplicationError(c, log, err, "delete application")
		return
	}

	log.Info("Application deleted", map[string]interface{}{
		"application_id": id,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// SaveResponse records or revises the answer for one criterion
// PUT /api/v1/applications/:id/responses
func (ctrl *ApplicationController) SaveResponse(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SaveResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The self-assessment data is invalid")
		return
	}

	response, err := ctrl.applicationService.SaveResponse(middleware.Principal(c), id, service.SaveResponseInput{
		CriterionID:      req.CriterionID,
		MeetsRequirement: model.MeetsRequirement(req.MeetsRequirement),
		Notes:            req.Notes,
	})
	if err != nil {
		respondApplicationError(c, log, err, "save response")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Response saved successfully",
		"response": response,
	})
}

// UploadDocument attaches a supporting file to a draft application
// POST /api/v1/applications/:id/documents
func (ctrl *ApplicationController) UploadDocument(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "A file is required")
		return
	}

	var criterionID *uint
	if criterionParam := c.PostForm("criterion_id"); criterionParam != "" {
		parsed, err := strconv.ParseUint(criterionParam, 10, 64)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid criterion_id")
			return
		}
		value := uint(parsed)
		criterionID = &value
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	defer src.Close()

	document, err := ctrl.applicationService.UploadDocument(middleware.Principal(c), id, service.UploadDocumentInput{
		CriterionID:  criterionID,
		DocumentType: c.PostForm("document_type"),
		OriginalName: fileHeader.Filename,
		Size:         fileHeader.Size,
		File:         src,
	})
	if err != nil {
		respondApplicationError(c, log, err, "upload document")
		return
	}

	log.Info("Document uploaded", map[string]interface{}{
		"application_id": id,
		"document_id":    document.ID,
		"file_name":      document.OriginalName,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Document uploaded successfully",
		"document": document,
	})
}

// DownloadDocument streams a stored document back to an authorized caller
// GET /api/v1/applications/:id/documents/:documentID
func (ctrl *ApplicationController) DownloadDocument(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(c, "documentID")
	if !ok {
		return
	}

	// Get applies the caller's scope; out-of-scope applications answer
	// as not found, and with them their documents.
	application, err := ctrl.applicationService.Get(middleware.Principal(c), id)
	if err != nil {
		respondApplicationError(c, log, err, "download document")
		return
	}

	var document *model.ApplicationDocument
	for i := range application.Documents {
		if application.Documents[i].ID == documentID {
			document = &application.Documents[i]
			break
		}
	}
	if document == nil {
		apperrors.NotFound(c, apperrors.DocumentNotFound, "Document not found")
		return
	}

	absPath, err := ctrl.files.AbsPath(document.FilePath)
	if err != nil {
		log.Error("Stored document path is invalid", err, map[string]interface{}{
			"document_id": document.ID,
			"path":        document.FilePath,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalStorageError,
			"The stored file could not be read")
		return
	}

	c.FileAttachment(absPath, document.OriginalName)
}

// DeleteDocument removes a document from a draft application
// DELETE /api/v1/applications/:id/documents/:documentID
func (ctrl *ApplicationController) DeleteDocument(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(c, "documentID")
	if !ok {
		return
	}

	if err := ctrl.applicationService.DeleteDocument(middleware.Principal(c), id, documentID); err != nil {
		respondApplicationError(c, log, err, "delete document")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

// Submit moves a complete draft to submitted
// POST /api/v1/applications/:id/submit
func (ctrl *ApplicationController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	application, err := ctrl.applicationService.Submit(middleware.Principal(c), id, c.ClientIP())
	if err != nil {
		respondApplicationError(c, log, err, "submit application")
		return
	}

	log.Info("Application submitted", map[string]interface{}{
		"application_id":     application.ID,
		"application_number": application.ApplicationNumber,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application submitted successfully",
		"application": application,
	})
}

// StartReview moves a submitted application to under review
// POST /api/v1/applications/:id/review
func (ctrl *ApplicationController) StartReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	application, err := ctrl.applicationService.StartReview(middleware.Principal(c), id, c.ClientIP())
	if err != nil {
		respondApplicationError(c, log, err, "start review")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Review started",
		"application": application,
	})
}

// Approve approves an application under review
// POST /api/v1/applications/:id/approve
func (ctrl *ApplicationController) Approve(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	application, err := ctrl.applicationService.Approve(middleware.Principal(c), id, c.ClientIP())
	if err != nil {
		respondApplicationError(c, log, err, "approve application")
		return
	}

	log.Info("Application approved", map[string]interface{}{
		"application_id": application.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application approved",
		"application": application,
	})
}

// Reject rejects an application under review. The reason is mandatory
// and is stored on the application.
// POST /api/v1/applications/:id/reject
func (ctrl *ApplicationController) Reject(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req RejectApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ApplicationReasonRequired, "A rejection reason is required")
		return
	}

	application, err := ctrl.applicationService.Reject(middleware.Principal(c), id, req.Reason, c.ClientIP())
	if err != nil {
		respondApplicationError(c, log, err, "reject application")
		return
	}

	log.Info("Application rejected", map[string]interface{}{
		"application_id": application.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application rejected",
		"application": application,
	})
}

// Issue issues the certificate for an approved application
// POST /api/v1/applications/:id/issue
func (ctrl *ApplicationController) Issue(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	application, certificate, err := ctrl.applicationService.Issue(middleware.Principal(c), id, c.ClientIP())
	if err != nil {
		respondApplicationError(c, log, err, "issue certificate")
		return
	}

	log.Info("Certificate issued", map[string]interface{}{
		"application_id":     application.ID,
		"certificate_number": certificate.CertificateNumber,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Certificate issued successfully",
		"application": application,
		"certificate": certificate,
	})
}

package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/app/service"
	apperrors "github.com/certolo/certolo-backend/internal/errors"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/certolo/certolo-backend/internal/storage"
	"github.com/gin-gonic/gin"
)

type StandardController struct {
	standardService service.StandardService
	files           *storage.LocalStorage
}

func NewStandardController(standardService service.StandardService, files *storage.LocalStorage) *StandardController {
	return &StandardController{
		standardService: standardService,
		files:           files,
	}
}

type StandardRequest struct {
	Name           string  `json:"name" binding:"required"`
	Code           string  `json:"code"`
	Type           string  `json:"type"`
	Description    string  `json:"description"`
	Requirements   string  `json:"requirements"`
	ValidityMonths int     `json:"validity_months"`
	Price          float64 `json:"price"`
	Status         string  `json:"status" binding:"omitempty,oneof=active inactive"`
}

type CriterionRequest struct {
	Name                   string `json:"name" binding:"required"`
	Description            string `json:"description"`
	Requirements           string `json:"requirements"`
	Aspect                 string `json:"aspect"`
	RiskAssessmentRequired bool   `json:"risk_assessment_required"`
	SortOrder              int    `json:"sort_order"`
	Status                 string `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (req *StandardRequest) toInput() service.StandardInput {
	return service.StandardInput{
		Name:           req.Name,
		Code:           req.Code,
		Type:           req.Type,
		Description:    req.Description,
		Requirements:   req.Requirements,
		ValidityMonths: req.ValidityMonths,
		Price:          req.Price,
		Status:         model.StandardStatus(req.Status),
	}
}

func (req *CriterionRequest) toInput() service.CriterionInput {
	return service.CriterionInput{
		Name:                   req.Name,
		Description:            req.Description,
		Requirements:           req.Requirements,
		Aspect:                 req.Aspect,
		RiskAssessmentRequired: req.RiskAssessmentRequired,
		SortOrder:              req.SortOrder,
		Status:                 model.CriterionStatus(req.Status),
	}
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid identifier")
		return 0, false
	}
	return uint(id), true
}

func pagination(c *gin.Context) (limit, offset int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}

// ListStandards lists standards visible to the caller. Anonymous callers
// and applicants see active standards; certifiers see their own catalog
// including inactive ones.
// GET /api/v1/standards
func (ctrl *StandardController) ListStandards(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.StandardFilter{
		Type:   c.Query("type"),
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
	}
	filter.Limit, filter.Offset = pagination(c)

	if statusParam := c.Query("status"); statusParam != "" {
		status := model.StandardStatus(statusParam)
		if !status.Valid() {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown standard status")
			return
		}
		filter.Status = &status
	}

	standards, total, err := ctrl.standardService.List(middleware.Principal(c), filter)
	if err != nil {
		log.Error("Failed to list standards", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list standards")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"standards": standards,
		"total":     total,
	})
}

// GetStandard returns one standard with its criteria
// GET /api/v1/standards/:id
func (ctrl *StandardController) GetStandard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	standard, err := ctrl.standardService.Get(middleware.Principal(c), id)
	if err != nil {
		if errors.Is(err, service.ErrStandardNotFound) {
			apperrors.NotFound(c, apperrors.StandardNotFound, "Standard not found")
			return
		}
		log.Error("Failed to load standard", err, map[string]interface{}{
			"standard_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get standard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"standard": standard})
}

// CreateStandard creates a standard owned by the calling certifier
// POST /api/v1/standards
func (ctrl *StandardController) CreateStandard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req StandardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The standard data is invalid")
		return
	}

	standard, err := ctrl.standardService.Create(middleware.Principal(c), req.toInput(), c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "Only certifiers can create standards")
			return
		}
		log.Error("Failed to create standard", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create standard")
		return
	}

	log.Info("Standard created", map[string]interface{}{
		"standard_id": standard.ID,
		"name":        standard.Name,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Standard created successfully",
		"standard": standard,
	})
}

// UpdateStandard updates a standard owned by the caller
// PUT /api/v1/standards/:id
func (ctrl *StandardController) UpdateStandard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req StandardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The standard data is invalid")
		return
	}

	standard, err := ctrl.standardService.Update(middleware.Principal(c), id, req.toInput(), c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrStandardNotFound) {
			apperrors.NotFound(c, apperrors.StandardNotFound, "Standard not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to update standard", err, map[string]interface{}{
			"standard_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update standard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Standard updated successfully",
		"standard": standard,
	})
}

// DeleteStandard soft-deletes a standard owned by the caller
// DELETE /api/v1/standards/:id
func (ctrl *StandardController) DeleteStandard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.standardService.Delete(middleware.Principal(c), id, c.ClientIP()); err != nil {
		if errors.Is(err, service.ErrStandardNotFound) {
			apperrors.NotFound(c, apperrors.StandardNotFound, "Standard not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to delete standard", err, map[string]interface{}{
			"standard_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete standard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Standard deleted successfully"})
}

// UploadReferenceFile attaches the standard's reference document
// POST /api/v1/standards/:id/file
func (ctrl *StandardController) UploadReferenceFile(c *gin.Context) {
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

	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		log.Error("Failed to read uploaded file", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	if _, problems := ctrl.files.Validate(fileHeader.Filename, fileHeader.Size, head[:n]); len(problems) > 0 {
		apperrors.RespondWithValidationErrors(c, problems)
		return
	}

	stored, err := ctrl.files.Store(io.MultiReader(bytes.NewReader(head[:n]), src), fileHeader.Filename, "standards")
	if err != nil {
		log.Error("Failed to store reference file", err, map[string]interface{}{
			"standard_id": id,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalStorageError,
			"Failed to store the file")
		return
	}

	standard, err := ctrl.standardService.AttachReferenceFile(middleware.Principal(c), id, stored.RelPath)
	if err != nil {
		// The row update failed; do not leave the file orphaned.
		if delErr := ctrl.files.Delete(stored.RelPath); delErr != nil {
			log.Warn("Failed to clean up reference file", map[string]interface{}{
				"path":  stored.RelPath,
				"error": delErr.Error(),
			})
		}
		if errors.Is(err, service.ErrStandardNotFound) {
			apperrors.NotFound(c, apperrors.StandardNotFound, "Standard not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to attach reference file", err, map[string]interface{}{
			"standard_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "attach reference file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Reference file uploaded successfully",
		"standard": standard,
	})
}

// ListCriteria lists the criteria of a standard in sort order
// GET /api/v1/standards/:id/criteria
func (ctrl *StandardController) ListCriteria(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	criteria, err := ctrl.standardService.ListCriteria(middleware.Principal(c), id)
	if err != nil {
		if errors.Is(err, service.ErrStandardNotFound) {
			apperrors.NotFound(c, apperrors.StandardNotFound, "Standard not found")
			return
		}
		log.Error("Failed to list criteria", err, map[string]interface{}{
			"standard_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list criteria")
		return
	}

	c.JSON(http.StatusOK, gin.H{"criteria": criteria})
}

// AddCriterion adds a criterion to a standard owned by the caller
// POST /api/v1/standards/:id/criteria
func (ctrl *StandardController) AddCriterion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The criterion data is invalid")
		return
	}

	criterion, err := ctrl.standardService.AddCriterion(middleware.Principal(c), id, req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrStandardNotFound) {
			apperrors.NotFound(c, apperrors.StandardNotFound, "Standard not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to add criterion", err, map[string]interface{}{
			"standard_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "add criterion")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Criterion added successfully",
		"criterion": criterion,
	})
}

// UpdateCriterion updates a criterion of a standard owned by the caller
// PUT /api/v1/criteria/:id
func (ctrl *StandardController) UpdateCriterion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The criterion data is invalid")
		return
	}

	criterion, err := ctrl.standardService.UpdateCriterion(middleware.Principal(c), id, req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrCriterionNotFound) {
			apperrors.NotFound(c, apperrors.CriterionNotFound, "Criterion not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to update criterion", err, map[string]interface{}{
			"criterion_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update criterion")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Criterion updated successfully",
		"criterion": criterion,
	})
}

// DeleteCriterion removes a criterion from a standard owned by the caller
// DELETE /api/v1/criteria/:id
func (ctrl *StandardController) DeleteCriterion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.standardService.DeleteCriterion(middleware.Principal(c), id); err != nil {
		if errors.Is(err, service.ErrCriterionNotFound) {
			apperrors.NotFound(c, apperrors.CriterionNotFound, "Criterion not found")
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "")
			return
		}
		log.Error("Failed to delete criterion", err, map[string]interface{}{
			"criterion_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete criterion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Criterion deleted successfully"})
}

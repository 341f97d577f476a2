package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/certolo/certolo-backend/internal/errors"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/policy"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/storage"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrApplicationNotFound     = errors.New("application not found")
	ErrApplicationExists       = errors.New("an open application for this standard already exists")
	ErrInvalidTransition       = errors.New("invalid application status change")
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")
	ErrApplicationNotEditable  = errors.New("application can only be edited while in draft")
	ErrInvalidResponse         = errors.New("invalid requirement answer")
	ErrDocumentNotFound        = errors.New("document not found")
)

// numberAttempts bounds retries when a generated application or
// certificate number collides with a concurrent writer. The unique
// index is the real guarantee, the retry just hides the race.
const numberAttempts = 3

// IncompleteCriteriaError lists the active criteria that still have no
// answer when the applicant tries to submit.
type IncompleteCriteriaError struct {
	Missing []string
}

func (e *IncompleteCriteriaError) Error() string {
	return fmt.Sprintf("submission incomplete: %d criteria unanswered", len(e.Missing))
}

// UploadValidationError carries every problem found with an upload.
type UploadValidationError struct {
	Problems []string
}

func (e *UploadValidationError) Error() string {
	return "upload rejected: " + strings.Join(e.Problems, "; ")
}

// DocumentStorage is what the lifecycle engine needs from the file
// layer. storage.LocalStorage is the production implementation.
type DocumentStorage interface {
	Validate(originalName string, size int64, head []byte) (string, []string)
	Store(src io.Reader, originalName, subdir string) (*storage.StoredFile, error)
	Delete(relPath string) error
}

type CreateApplicationInput struct {
	StandardID uint
}

type SaveResponseInput struct {
	CriterionID      uint
	MeetsRequirement model.MeetsRequirement
	Notes            string
}

type UploadDocumentInput struct {
	CriterionID  *uint
	DocumentType string
	OriginalName string
	Size         int64
	File         io.Reader
}

type ApplicationService interface {
	Create(p policy.Principal, input CreateApplicationInput, ip string) (*model.Application, error)
	List(p policy.Principal, filter repository.ApplicationFilter) ([]model.Application, int64, error)
	Get(p policy.Principal, id uint) (*model.Application, error)
	Delete(p policy.Principal, id uint, ip string) error

	SaveResponse(p policy.Principal, applicationID uint, input SaveResponseInput) (*model.ApplicationResponse, error)
	UploadDocument(p policy.Principal, applicationID uint, input UploadDocumentInput) (*model.ApplicationDocument, error)
	DeleteDocument(p policy.Principal, applicationID, documentID uint) error

	Submit(p policy.Principal, id uint, ip string) (*model.Application, error)
	StartReview(p policy.Principal, id uint, ip string) (*model.Application, error)
	Approve(p policy.Principal, id uint, ip string) (*model.Application, error)
	Reject(p policy.Principal, id uint, reason, ip string) (*model.Application, error)
	Issue(p policy.Principal, id uint, ip string) (*model.Application, *model.Certificate, error)
}

type applicationService struct {
	applicationRepo repository.ApplicationRepository
	standardRepo    repository.StandardRepository
	userRepo        repository.UserRepository
	documents       DocumentStorage
	db              *gorm.DB
}

func NewApplicationService(
	applicationRepo repository.ApplicationRepository,
	standardRepo repository.StandardRepository,
	userRepo repository.UserRepository,
	documents DocumentStorage,
	db *gorm.DB,
) ApplicationService {
	return &applicationService{
		applicationRepo: applicationRepo,
		standardRepo:    standardRepo,
		userRepo:        userRepo,
		documents:       documents,
		db:              db,
	}
}

// Create opens a draft application. The applicant's company details and
// the standard's certifier are snapshotted onto the row so later profile
// or ownership edits cannot rewrite history. If the applicant already
// has an open application for the standard, that one is returned along
// with ErrApplicationExists.
func (s *applicationService) Create(p policy.Principal, input CreateApplicationInput, ip string) (*model.Application, error) {
	if !policy.Authorize(p, policy.ActionCreate, policy.ResourceApplication).Allowed() {
		return nil, ErrForbidden
	}

	logger.Info("Creating application", map[string]interface{}{
		"applicant_id": p.UserID,
		"standard_id":  input.StandardID,
	})

	// The applicant-facing read scope only matches active standards,
	// so an inactive standard answers as missing.
	readScope := policy.Authorize(p, policy.ActionRead, policy.ResourceStandard).Scope
	standard, err := s.standardRepo.FindByID(input.StandardID, readScope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStandardNotFound
		}
		return nil, err
	}

	existing, err := s.applicationRepo.FindOpenByApplicantAndStandard(p.UserID, standard.ID)
	if err == nil {
		logger.Warn("Application already open for standard", map[string]interface{}{
			"applicant_id":   p.UserID,
			"standard_id":    standard.ID,
			"application_id": existing.ID,
		})
		return existing, ErrApplicationExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	applicant, err := s.userRepo.FindByID(p.UserID)
	if err != nil {
		return nil, err
	}

	var application *model.Application
	for attempt := 0; attempt < numberAttempts; attempt++ {
		application, err = s.createOnce(applicant, standard, ip)
		if err == nil {
			break
		}
		if !apperrors.IsUniqueViolation(err) {
			return nil, err
		}

		// Either the generated number or the open-pair index collided.
		// When a racing create for the same pair won, surface its row
		// instead of inserting a duplicate.
		existing, findErr := s.applicationRepo.FindOpenByApplicantAndStandard(p.UserID, standard.ID)
		if findErr == nil {
			logger.Warn("Concurrent application create lost the race", map[string]interface{}{
				"applicant_id":   p.UserID,
				"standard_id":    standard.ID,
				"application_id": existing.ID,
			})
			return existing, ErrApplicationExists
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, findErr
		}

		logger.Warn("Application number collision, retrying", map[string]interface{}{
			"applicant_id": p.UserID,
			"attempt":      attempt + 1,
		})
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Application created", map[string]interface{}{
		"application_id":     application.ID,
		"application_number": application.ApplicationNumber,
		"applicant_id":       p.UserID,
	})
	return application, nil
}

func (s *applicationService) createOnce(applicant *model.User, standard *model.Standard, ip string) (*model.Application, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during application creation, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"applicant_id": applicant.ID,
			})
		}
	}()

	number, err := nextNumber(tx, &model.Application{}, "application_number", "APP")
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	open := true
	application := &model.Application{
		ApplicationNumber: number,
		ApplicantID:       applicant.ID,
		CertifierID:       standard.CertifierID,
		StandardID:        standard.ID,
		Status:            model.ApplicationDraft,
		OpenMarker:        &open,
		CompanyName:       applicant.CompanyName,
		ContactPerson:     applicant.ContactPerson,
		Email:             applicant.Email,
		Phone:             applicant.Phone,
		Address:           applicant.Address,
		City:              applicant.City,
		Country:           applicant.Country,
	}

	if err := tx.Create(application).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Create(&model.ActivityLog{
		UserID:     applicant.ID,
		Action:     "create",
		Module:     "applications",
		RecordID:   application.ID,
		RecordType: "Application",
		IPAddress:  ip,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return application, nil
}

// nextNumber builds the next "<prefix>-<year>-<seq>" value for the
// current year inside tx. Sequences are per year and never reset within
// one; a concurrent duplicate is caught by the unique index and retried
// by the caller.
func nextNumber(tx *gorm.DB, mdl interface{}, column, prefix string) (string, error) {
	yearPrefix := fmt.Sprintf("%s-%d-", prefix, time.Now().Year())

	var count int64
	err := tx.Model(mdl).Unscoped().
		Where(column+" LIKE ?", yearPrefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%04d", yearPrefix, count+1), nil
}

func (s *applicationService) List(p policy.Principal, filter repository.ApplicationFilter) ([]model.Application, int64, error) {
	decision := policy.Authorize(p, policy.ActionList, policy.ResourceApplication)
	if !decision.Allowed() {
		return nil, 0, ErrForbidden
	}
	filter.Scope = decision.Scope

	applications, err := s.applicationRepo.FindWithFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.applicationRepo.Count(filter)
	if err != nil {
		return nil, 0, err
	}
	return applications, total, nil
}

func (s *applicationService) Get(p policy.Principal, id uint) (*model.Application, error) {
	decision := policy.Authorize(p, policy.ActionRead, policy.ResourceApplication)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	application, err := s.applicationRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return application, nil
}

// Delete removes a draft application. Database rows go first, files
// second: a crash in between leaves an orphaned file on disk, never a
// row pointing at nothing.
func (s *applicationService) Delete(p policy.Principal, id uint, ip string) error {
	application, err := s.editableApplication(p, id)
	if err != nil {
		return err
	}

	documents, err := s.applicationRepo.FindDocumentsByApplication(application.ID)
	if err != nil {
		return err
	}

	tx := s.db.Begin()
	if err := tx.Where("application_id = ?", application.ID).
		Delete(&model.ApplicationResponse{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("application_id = ?", application.ID).
		Delete(&model.ApplicationDocument{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	// The delete below is soft; release the open-pair index first so the
	// kept row does not block a fresh application.
	if err := tx.Model(&model.Application{}).
		Where("id = ?", application.ID).
		Update("open_marker", nil).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&model.Application{}, application.ID).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Create(&model.ActivityLog{
		UserID:     p.UserID,
		Action:     "delete",
		Module:     "applications",
		RecordID:   application.ID,
		RecordType: "Application",
		IPAddress:  ip,
	}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	for _, doc := range documents {
		if err := s.documents.Delete(doc.FilePath); err != nil {
			logger.Warn("Failed to remove document file after delete", map[string]interface{}{
				"file_path": doc.FilePath,
				"error":     err.Error(),
			})
		}
	}

	logger.Info("Application deleted", map[string]interface{}{
		"application_id": application.ID,
		"applicant_id":   p.UserID,
	})
	return nil
}

func (s *applicationService) SaveResponse(p policy.Principal, applicationID uint, input SaveResponseInput) (*model.ApplicationResponse, error) {
	if !input.MeetsRequirement.Valid() {
		return nil, ErrInvalidResponse
	}

	application, err := s.editableApplication(p, applicationID)
	if err != nil {
		return nil, err
	}

	criterion, err := s.standardRepo.FindCriterionByID(input.CriterionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCriterionNotFound
		}
		return nil, err
	}
	if criterion.StandardID != application.StandardID {
		return nil, ErrCriterionNotFound
	}

	response := &model.ApplicationResponse{
		ApplicationID:    application.ID,
		CriterionID:      criterion.ID,
		MeetsRequirement: input.MeetsRequirement,
		Notes:            input.Notes,
	}
	if err := s.applicationRepo.UpsertResponse(response); err != nil {
		return nil, err
	}

	logger.Debug("Application response saved", map[string]interface{}{
		"application_id": application.ID,
		"criterion_id":   criterion.ID,
		"meets":          input.MeetsRequirement,
	})
	return response, nil
}

// UploadDocument validates, writes the file, then inserts the row. The
// file goes first: if the insert fails the file is removed again, and a
// crash in between leaves only an unreferenced file behind.
func (s *applicationService) UploadDocument(p policy.Principal, applicationID uint, input UploadDocumentInput) (*model.ApplicationDocument, error) {
	application, err := s.editableApplication(p, applicationID)
	if err != nil {
		return nil, err
	}

	if input.CriterionID != nil {
		criterion, err := s.standardRepo.FindCriterionByID(*input.CriterionID)
		if err != nil || criterion.StandardID != application.StandardID {
			return nil, ErrCriterionNotFound
		}
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(input.File, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	head = head[:n]

	contentType, problems := s.documents.Validate(input.OriginalName, input.Size, head)
	if len(problems) > 0 {
		logger.Warn("Document upload rejected", map[string]interface{}{
			"application_id": application.ID,
			"file_name":      input.OriginalName,
			"problems":       problems,
		})
		return nil, &UploadValidationError{Problems: problems}
	}

	content := io.MultiReader(bytes.NewReader(head), input.File)
	subdir := fmt.Sprintf("applications/%d", application.ID)
	stored, err := s.documents.Store(content, input.OriginalName, subdir)
	if err != nil {
		return nil, err
	}

	document := &model.ApplicationDocument{
		ApplicationID: application.ID,
		CriterionID:   input.CriterionID,
		DocumentType:  input.DocumentType,
		DocumentName:  stored.FileName,
		OriginalName:  input.OriginalName,
		FilePath:      stored.RelPath,
		FileSize:      stored.Size,
		FileType:      contentType,
		UploadedBy:    p.UserID,
	}
	if err := s.applicationRepo.CreateDocument(document); err != nil {
		if cleanupErr := s.documents.Delete(stored.RelPath); cleanupErr != nil {
			logger.Error("Failed to clean up file after insert failure", cleanupErr, map[string]interface{}{
				"file_path": stored.RelPath,
			})
		}
		return nil, err
	}

	logger.Info("Document uploaded", map[string]interface{}{
		"application_id": application.ID,
		"document_id":    document.ID,
		"file_size":      stored.Size,
	})
	return document, nil
}

// DeleteDocument removes the row first, the file second.
func (s *applicationService) DeleteDocument(p policy.Principal, applicationID, documentID uint) error {
	application, err := s.editableApplication(p, applicationID)
	if err != nil {
		return err
	}

	document, err := s.applicationRepo.FindDocumentByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	if document.ApplicationID != application.ID {
		return ErrDocumentNotFound
	}

	if err := s.applicationRepo.DeleteDocument(document.ID); err != nil {
		return err
	}

	if err := s.documents.Delete(document.FilePath); err != nil {
		logger.Warn("Failed to remove document file", map[string]interface{}{
			"file_path": document.FilePath,
			"error":     err.Error(),
		})
	}

	logger.Info("Document deleted", map[string]interface{}{
		"application_id": application.ID,
		"document_id":    document.ID,
	})
	return nil
}

// Submit moves a draft to submitted once every active criterion of the
// standard has an answer.
func (s *applicationService) Submit(p policy.Principal, id uint, ip string) (*model.Application, error) {
	decision := policy.Authorize(p, policy.ActionSubmit, policy.ResourceApplication)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	application, err := s.applicationRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}

	if !model.CanTransition(application.Status, model.ApplicationSubmitted) {
		return nil, ErrInvalidTransition
	}

	criteria, err := s.standardRepo.FindCriteriaByStandard(application.StandardID)
	if err != nil {
		return nil, err
	}

	answered := make(map[uint]bool, len(application.Responses))
	for _, response := range application.Responses {
		answered[response.CriterionID] = true
	}

	var missing []string
	for _, criterion := range criteria {
		if criterion.Status != model.CriterionActive {
			continue
		}
		if !answered[criterion.ID] {
			missing = append(missing, criterion.Name)
		}
	}
	if len(missing) > 0 {
		logger.Warn("Submission rejected: criteria unanswered", map[string]interface{}{
			"application_id": application.ID,
			"missing_count":  len(missing),
		})
		return nil, &IncompleteCriteriaError{Missing: missing}
	}

	now := time.Now()
	return s.transition(application, model.ApplicationSubmitted, p.UserID, "submit", ip, func(app *model.Application) {
		app.SubmittedAt = &now
	})
}

func (s *applicationService) StartReview(p policy.Principal, id uint, ip string) (*model.Application, error) {
	application, err := s.reviewableApplication(p, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(application.Status, model.ApplicationUnderReview) {
		return nil, ErrInvalidTransition
	}
	return s.transition(application, model.ApplicationUnderReview, p.UserID, "review", ip, nil)
}

func (s *applicationService) Approve(p policy.Principal, id uint, ip string) (*model.Application, error) {
	application, err := s.reviewableApplication(p, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(application.Status, model.ApplicationApproved) {
		return nil, ErrInvalidTransition
	}
	return s.transition(application, model.ApplicationApproved, p.UserID, "approve", ip, nil)
}

// Reject always requires a reason; the applicant sees it verbatim.
func (s *applicationService) Reject(p policy.Principal, id uint, reason, ip string) (*model.Application, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}

	application, err := s.reviewableApplication(p, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(application.Status, model.ApplicationRejected) {
		return nil, ErrInvalidTransition
	}
	return s.transition(application, model.ApplicationRejected, p.UserID, "reject", ip, func(app *model.Application) {
		app.RejectionReason = reason
	})
}

// Issue closes the lifecycle: the certificate row and the status change
// commit together or not at all.
func (s *applicationService) Issue(p policy.Principal, id uint, ip string) (*model.Application, *model.Certificate, error) {
	application, err := s.reviewableApplication(p, id)
	if err != nil {
		return nil, nil, err
	}
	if !model.CanTransition(application.Status, model.ApplicationIssued) {
		return nil, nil, ErrInvalidTransition
	}

	standard, err := s.standardRepo.FindByID(application.StandardID, nil)
	if err != nil {
		return nil, nil, err
	}

	var certificate *model.Certificate
	for attempt := 0; attempt < numberAttempts; attempt++ {
		certificate, err = s.issueOnce(application, standard, p.UserID, ip)
		if err == nil {
			break
		}
		if apperrors.IsUniqueViolation(err) {
			logger.Warn("Certificate number collision, retrying", map[string]interface{}{
				"application_id": application.ID,
				"attempt":        attempt + 1,
			})
			continue
		}
		return nil, nil, err
	}
	if err != nil {
		return nil, nil, err
	}

	application.Status = model.ApplicationIssued

	logger.Info("Certificate issued", map[string]interface{}{
		"application_id":     application.ID,
		"certificate_id":     certificate.ID,
		"certificate_number": certificate.CertificateNumber,
		"expires_at":         certificate.ExpiresAt,
	})
	return application, certificate, nil
}

func (s *applicationService) issueOnce(application *model.Application, standard *model.Standard, userID uint, ip string) (*model.Certificate, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during certificate issue, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"application_id": application.ID,
			})
		}
	}()

	number, err := nextNumber(tx, &model.Certificate{}, "certificate_number", "CERT")
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	issuedAt := time.Now()
	certificate := &model.Certificate{
		ApplicationID:     application.ID,
		ApplicantID:       application.ApplicantID,
		CertifierID:       application.CertifierID,
		StandardID:        application.StandardID,
		CertificateNumber: number,
		Status:            model.CertificateActive,
		IssuedAt:          issuedAt,
		ExpiresAt:         issuedAt.AddDate(0, standard.ValidityMonths, 0),
	}

	if err := tx.Create(certificate).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	err = tx.Model(&model.Application{}).
		Where("id = ?", application.ID).
		Update("status", model.ApplicationIssued).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Create(&model.ActivityLog{
		UserID:     userID,
		Action:     "issue",
		Module:     "applications",
		RecordID:   application.ID,
		RecordType: "Application",
		IPAddress:  ip,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return certificate, nil
}

// transition commits a status change plus exactly one audit row.
func (s *applicationService) transition(
	application *model.Application,
	to model.ApplicationStatus,
	userID uint,
	action, ip string,
	mutate func(*model.Application),
) (*model.Application, error) {
	from := application.Status
	application.Status = to
	if mutate != nil {
		mutate(application)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during status transition, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"application_id": application.ID,
			})
		}
	}()

	updates := map[string]interface{}{
		"status":           application.Status,
		"rejection_reason": application.RejectionReason,
		"submitted_at":     application.SubmittedAt,
	}
	if to.Terminal() {
		// Release the open-pair index so the applicant may apply again.
		application.OpenMarker = nil
		updates["open_marker"] = nil
	}
	if err := tx.Model(&model.Application{}).
		Where("id = ?", application.ID).
		Updates(updates).Error; err != nil {
		tx.Rollback()
		application.Status = from
		return nil, err
	}

	if err := tx.Create(&model.ActivityLog{
		UserID:     userID,
		Action:     action,
		Module:     "applications",
		RecordID:   application.ID,
		RecordType: "Application",
		IPAddress:  ip,
	}).Error; err != nil {
		tx.Rollback()
		application.Status = from
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		application.Status = from
		return nil, err
	}

	logger.Info("Application status changed", map[string]interface{}{
		"application_id": application.ID,
		"from":           from,
		"to":             to,
		"by":             userID,
	})
	return application, nil
}

// editableApplication loads an application the caller may mutate as its
// applicant, and refuses anything past draft.
func (s *applicationService) editableApplication(p policy.Principal, id uint) (*model.Application, error) {
	decision := policy.Authorize(p, policy.ActionUpdate, policy.ResourceApplication)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	application, err := s.applicationRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}

	if application.Status != model.ApplicationDraft {
		return nil, ErrApplicationNotEditable
	}
	return application, nil
}

// reviewableApplication loads an application through the certifier's
// review scope.
func (s *applicationService) reviewableApplication(p policy.Principal, id uint) (*model.Application, error) {
	decision := policy.Authorize(p, policy.ActionReview, policy.ResourceApplication)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	application, err := s.applicationRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return application, nil
}

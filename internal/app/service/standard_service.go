package service

import (
	"errors"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/policy"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrForbidden         = errors.New("operation not allowed")
	ErrStandardNotFound  = errors.New("standard not found")
	ErrCriterionNotFound = errors.New("criterion not found")
)

type StandardInput struct {
	Name           string
	Code           string
	Type           string
	Description    string
	Requirements   string
	ValidityMonths int
	Price          float64
	Status         model.StandardStatus
}

type CriterionInput struct {
	Name                   string
	Description            string
	Requirements           string
	Aspect                 string
	RiskAssessmentRequired bool
	SortOrder              int
	Status                 model.CriterionStatus
}

type StandardService interface {
	List(p policy.Principal, filter repository.StandardFilter) ([]model.Standard, int64, error)
	Get(p policy.Principal, id uint) (*model.Standard, error)
	Create(p policy.Principal, input StandardInput, ip string) (*model.Standard, error)
	Update(p policy.Principal, id uint, input StandardInput, ip string) (*model.Standard, error)
	Delete(p policy.Principal, id uint, ip string) error
	AttachReferenceFile(p policy.Principal, id uint, relPath string) (*model.Standard, error)

	ListCriteria(p policy.Principal, standardID uint) ([]model.Criterion, error)
	AddCriterion(p policy.Principal, standardID uint, input CriterionInput) (*model.Criterion, error)
	UpdateCriterion(p policy.Principal, criterionID uint, input CriterionInput) (*model.Criterion, error)
	DeleteCriterion(p policy.Principal, criterionID uint) error
}

type standardService struct {
	standardRepo repository.StandardRepository
	activityRepo repository.ActivityLogRepository
}

func NewStandardService(
	standardRepo repository.StandardRepository,
	activityRepo repository.ActivityLogRepository,
) StandardService {
	return &standardService{
		standardRepo: standardRepo,
		activityRepo: activityRepo,
	}
}

func (s *standardService) List(p policy.Principal, filter repository.StandardFilter) ([]model.Standard, int64, error) {
	decision := policy.Authorize(p, policy.ActionList, policy.ResourceStandard)
	if !decision.Allowed() {
		return nil, 0, ErrForbidden
	}
	filter.Scope = decision.Scope

	standards, err := s.standardRepo.FindWithFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.standardRepo.Count(filter)
	if err != nil {
		return nil, 0, err
	}
	return standards, total, nil
}

func (s *standardService) Get(p policy.Principal, id uint) (*model.Standard, error) {
	decision := policy.Authorize(p, policy.ActionRead, policy.ResourceStandard)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	standard, err := s.standardRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Out-of-scope rows answer exactly like missing ones.
			return nil, ErrStandardNotFound
		}
		return nil, err
	}
	return standard, nil
}

func (s *standardService) Create(p policy.Principal, input StandardInput, ip string) (*model.Standard, error) {
	if !policy.Authorize(p, policy.ActionCreate, policy.ResourceStandard).Allowed() {
		return nil, ErrForbidden
	}

	status := input.Status
	if status == "" {
		status = model.StandardActive
	}
	validity := input.ValidityMonths
	if validity <= 0 {
		validity = 12
	}

	standard := &model.Standard{
		CertifierID:    p.UserID,
		Name:           input.Name,
		Code:           input.Code,
		Type:           input.Type,
		Description:    input.Description,
		Requirements:   input.Requirements,
		ValidityMonths: validity,
		Price:          input.Price,
		Status:         status,
	}

	if err := s.standardRepo.Create(standard); err != nil {
		return nil, err
	}

	s.recordActivity(p.UserID, "create", "standards", standard.ID, "Standard", ip)

	logger.Info("Standard created", map[string]interface{}{
		"standard_id":  standard.ID,
		"certifier_id": p.UserID,
		"name":         standard.Name,
	})
	return standard, nil
}

func (s *standardService) Update(p policy.Principal, id uint, input StandardInput, ip string) (*model.Standard, error) {
	standard, err := s.ownedStandard(p, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		standard.Name = input.Name
	}
	if input.Code != "" {
		standard.Code = input.Code
	}
	if input.Type != "" {
		standard.Type = input.Type
	}
	if input.Description != "" {
		standard.Description = input.Description
	}
	if input.Requirements != "" {
		standard.Requirements = input.Requirements
	}
	if input.ValidityMonths > 0 {
		standard.ValidityMonths = input.ValidityMonths
	}
	if input.Price > 0 {
		standard.Price = input.Price
	}
	if input.Status != "" {
		if !input.Status.Valid() {
			return nil, ErrForbidden
		}
		standard.Status = input.Status
	}

	if err := s.standardRepo.Update(standard); err != nil {
		return nil, err
	}

	s.recordActivity(p.UserID, "update", "standards", standard.ID, "Standard", ip)
	return standard, nil
}

func (s *standardService) Delete(p policy.Principal, id uint, ip string) error {
	standard, err := s.ownedStandard(p, id)
	if err != nil {
		return err
	}

	if err := s.standardRepo.Delete(standard.ID); err != nil {
		return err
	}

	s.recordActivity(p.UserID, "delete", "standards", standard.ID, "Standard", ip)

	logger.Info("Standard deleted", map[string]interface{}{
		"standard_id":  standard.ID,
		"certifier_id": p.UserID,
	})
	return nil
}

// AttachReferenceFile points the standard at an already-stored document.
// The caller stores the file first so a failed update leaves nothing to
// clean up in the database.
func (s *standardService) AttachReferenceFile(p policy.Principal, id uint, relPath string) (*model.Standard, error) {
	standard, err := s.ownedStandard(p, id)
	if err != nil {
		return nil, err
	}

	standard.FilePath = relPath
	if err := s.standardRepo.Update(standard); err != nil {
		return nil, err
	}
	return standard, nil
}

// ownedStandard loads a standard through the caller's update scope.
func (s *standardService) ownedStandard(p policy.Principal, id uint) (*model.Standard, error) {
	decision := policy.Authorize(p, policy.ActionUpdate, policy.ResourceStandard)
	if !decision.Allowed() {
		return nil, ErrForbidden
	}

	standard, err := s.standardRepo.FindByID(id, decision.Scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStandardNotFound
		}
		return nil, err
	}
	return standard, nil
}

func (s *standardService) ListCriteria(p policy.Principal, standardID uint) ([]model.Criterion, error) {
	if _, err := s.Get(p, standardID); err != nil {
		return nil, err
	}
	return s.standardRepo.FindCriteriaByStandard(standardID)
}

func (s *standardService) AddCriterion(p policy.Principal, standardID uint, input CriterionInput) (*model.Criterion, error) {
	if _, err := s.ownedStandard(p, standardID); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = model.CriterionActive
	}

	criterion := &model.Criterion{
		StandardID:             standardID,
		Name:                   input.Name,
		Description:            input.Description,
		Requirements:           input.Requirements,
		Aspect:                 input.Aspect,
		RiskAssessmentRequired: input.RiskAssessmentRequired,
		SortOrder:              input.SortOrder,
		Status:                 status,
	}

	if err := s.standardRepo.CreateCriterion(criterion); err != nil {
		return nil, err
	}

	logger.Info("Criterion added", map[string]interface{}{
		"criterion_id": criterion.ID,
		"standard_id":  standardID,
	})
	return criterion, nil
}

func (s *standardService) UpdateCriterion(p policy.Principal, criterionID uint, input CriterionInput) (*model.Criterion, error) {
	criterion, err := s.ownedCriterion(p, criterionID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		criterion.Name = input.Name
	}
	if input.Description != "" {
		criterion.Description = input.Description
	}
	if input.Requirements != "" {
		criterion.Requirements = input.Requirements
	}
	if input.Aspect != "" {
		criterion.Aspect = input.Aspect
	}
	criterion.RiskAssessmentRequired = input.RiskAssessmentRequired
	if input.SortOrder > 0 {
		criterion.SortOrder = input.SortOrder
	}
	if input.Status != "" {
		criterion.Status = input.Status
	}

	if err := s.standardRepo.UpdateCriterion(criterion); err != nil {
		return nil, err
	}
	return criterion, nil
}

func (s *standardService) DeleteCriterion(p policy.Principal, criterionID uint) error {
	criterion, err := s.ownedCriterion(p, criterionID)
	if err != nil {
		return err
	}
	return s.standardRepo.DeleteCriterion(criterion.ID)
}

func (s *standardService) ownedCriterion(p policy.Principal, criterionID uint) (*model.Criterion, error) {
	criterion, err := s.standardRepo.FindCriterionByID(criterionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCriterionNotFound
		}
		return nil, err
	}

	if _, err := s.ownedStandard(p, criterion.StandardID); err != nil {
		if errors.Is(err, ErrStandardNotFound) {
			// The standard exists but is out of the caller's scope.
			return nil, ErrCriterionNotFound
		}
		return nil, err
	}
	return criterion, nil
}

func (s *standardService) recordActivity(userID uint, action, module string, recordID uint, recordType, ip string) {
	err := s.activityRepo.Create(&model.ActivityLog{
		UserID:     userID,
		Action:     action,
		Module:     module,
		RecordID:   recordID,
		RecordType: recordType,
		IPAddress:  ip,
	})
	if err != nil {
		logger.Error("Failed to record activity", err, map[string]interface{}{
			"action":    action,
			"module":    module,
			"record_id": recordID,
		})
	}
}

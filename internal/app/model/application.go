package model

import (
	"time"

	"gorm.io/gorm"
)

type ApplicationStatus string // lifecycle state of an application
type MeetsRequirement string  // applicant's self-assessment per criterion

const (
	ApplicationDraft       ApplicationStatus = "draft"
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationIssued      ApplicationStatus = "issued"

	MeetsYes     MeetsRequirement = "yes"
	MeetsPartial MeetsRequirement = "partial"
	MeetsNo      MeetsRequirement = "no"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationUnderReview,
		ApplicationApproved, ApplicationRejected, ApplicationIssued:
		return true
	}
	return false
}

// Terminal reports whether the application no longer blocks a new one
// for the same (applicant, standard) pair.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationRejected
}

func (m MeetsRequirement) Valid() bool {
	return m == MeetsYes || m == MeetsPartial || m == MeetsNo
}

// applicationTransitions is the complete set of legal status changes.
// Everything not listed here is an invalid transition.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft:       {ApplicationSubmitted},
	ApplicationSubmitted:   {ApplicationUnderReview},
	ApplicationUnderReview: {ApplicationApproved, ApplicationRejected},
	ApplicationApproved:    {ApplicationIssued},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application is one applicant's request for certification against one
// standard. CertifierID is snapshotted from the standard at creation and
// never re-derived, so ownership stays stable even if the standard moves.
type Application struct {
	ID                uint              `gorm:"primarykey" json:"id"`
	ApplicationNumber string            `gorm:"uniqueIndex;type:varchar(20);not null" json:"application_number"`
	ApplicantID       uint              `gorm:"not null;index;uniqueIndex:idx_applications_open_pair" json:"applicant_id"`
	CertifierID       uint              `gorm:"not null;index" json:"certifier_id"`
	StandardID        uint              `gorm:"not null;index;uniqueIndex:idx_applications_open_pair" json:"standard_id"`
	Status            ApplicationStatus `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	RejectionReason   string            `gorm:"type:text" json:"rejection_reason,omitempty"`

	// OpenMarker is non-NULL while this application blocks a new one for
	// the same (applicant, standard) pair and cleared once it stops
	// blocking (rejection or deletion). NULLs never collide, so the
	// composite unique index holds the one-open-application rule even
	// under concurrent creates.
	OpenMarker *bool `gorm:"column:open_marker;uniqueIndex:idx_applications_open_pair" json:"-"`

	// Company snapshot, frozen at creation time.
	CompanyName   string `gorm:"not null" json:"company_name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`

	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Applicant *User                 `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	Certifier *User                 `gorm:"foreignKey:CertifierID" json:"certifier,omitempty"`
	Standard  *Standard             `gorm:"foreignKey:StandardID" json:"standard,omitempty"`
	Responses []ApplicationResponse `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
	Documents []ApplicationDocument `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}

// ApplicationResponse records the applicant's answer for one criterion.
// One row per (application, criterion).
type ApplicationResponse struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	ApplicationID    uint             `gorm:"not null;uniqueIndex:idx_responses_app_criterion" json:"application_id"`
	CriterionID      uint             `gorm:"not null;uniqueIndex:idx_responses_app_criterion" json:"criterion_id"`
	MeetsRequirement MeetsRequirement `gorm:"type:varchar(10);not null" json:"meets_requirement"`
	Notes            string           `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	Criterion *Criterion `gorm:"foreignKey:CriterionID" json:"criterion,omitempty"`
}

func (ApplicationResponse) TableName() string {
	return "application_responses"
}

// ApplicationDocument is an uploaded supporting file. The file lives under
// the upload root; FilePath is always relative to it.
type ApplicationDocument struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	ApplicationID uint      `gorm:"not null;index" json:"application_id"`
	CriterionID   *uint     `gorm:"index" json:"criterion_id,omitempty"`
	DocumentType  string    `gorm:"type:varchar(50)" json:"document_type"`
	DocumentName  string    `gorm:"not null" json:"document_name"`
	OriginalName  string    `gorm:"not null" json:"original_name"`
	FilePath      string    `gorm:"type:varchar(255);not null" json:"file_path"`
	FileSize      int64     `gorm:"not null" json:"file_size"`
	FileType      string    `gorm:"type:varchar(100)" json:"file_type"`
	UploadedBy    uint      `gorm:"not null" json:"uploaded_by"`
	UploadedAt    time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	Application *Application `gorm:"foreignKey:ApplicationID" json:"-"`
}

func (ApplicationDocument) TableName() string {
	return "application_documents"
}

package model

import (
	"time"

	"gorm.io/gorm"
)

type StandardStatus string  // publication state of a standard
type CriterionStatus string // whether a criterion still counts

const (
	StandardActive   StandardStatus = "active"   // visible to everyone, open for applications
	StandardInactive StandardStatus = "inactive" // visible to its certifier only

	CriterionActive   CriterionStatus = "active"
	CriterionInactive CriterionStatus = "inactive"
)

func (s StandardStatus) Valid() bool {
	return s == StandardActive || s == StandardInactive
}

// Standard is a certification scheme owned by exactly one certifier.
type Standard struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CertifierID    uint           `gorm:"not null;index" json:"certifier_id"`
	Name           string         `gorm:"not null" json:"name"`
	Code           string         `gorm:"type:varchar(50)" json:"code"`
	Type           string         `gorm:"type:varchar(50);index" json:"type"`
	Description    string         `gorm:"type:text" json:"description"`
	Requirements   string         `gorm:"type:text" json:"requirements"`
	ValidityMonths int            `gorm:"not null;default:12" json:"validity_months"`
	Price          float64        `json:"price"`
	Status         StandardStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`
	FilePath       string         `gorm:"type:varchar(255)" json:"file_path,omitempty"` // reference document, relative to upload root
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Certifier *User       `gorm:"foreignKey:CertifierID" json:"certifier,omitempty"`
	Criteria  []Criterion `gorm:"foreignKey:StandardID;constraint:OnDelete:CASCADE" json:"criteria,omitempty"`
}

func (Standard) TableName() string {
	return "standards"
}

// Criterion is one checkable requirement within a standard.
// Criteria are totally ordered by (sort_order ASC, id ASC).
type Criterion struct {
	ID                     uint            `gorm:"primarykey" json:"id"`
	StandardID             uint            `gorm:"not null;index" json:"standard_id"`
	Name                   string          `gorm:"not null" json:"name"`
	Description            string          `gorm:"type:text" json:"description"`
	Requirements           string          `gorm:"type:text" json:"requirements"`
	Aspect                 string          `gorm:"type:varchar(50)" json:"aspect"`
	RiskAssessmentRequired bool            `gorm:"default:false" json:"risk_assessment_required"`
	SortOrder              int             `gorm:"not null;default:0" json:"sort_order"`
	Status                 CriterionStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	DeletedAt              gorm.DeletedAt  `gorm:"index" json:"-"`

	Standard *Standard `gorm:"foreignKey:StandardID" json:"-"`
}

func (Criterion) TableName() string {
	return "criteria"
}

package model

import (
	"time"

	"gorm.io/gorm"
)

type CertificateStatus string // stored certificate state

const (
	CertificateActive  CertificateStatus = "active"
	CertificateExpired CertificateStatus = "expired"
	CertificateRevoked CertificateStatus = "revoked"
)

func (s CertificateStatus) Valid() bool {
	return s == CertificateActive || s == CertificateExpired || s == CertificateRevoked
}

// Certificate is the credential issued for an approved application.
// Exactly one certificate per issued application.
type Certificate struct {
	ID                uint              `gorm:"primarykey" json:"id"`
	ApplicationID     uint              `gorm:"uniqueIndex;not null" json:"application_id"`
	ApplicantID       uint              `gorm:"not null;index" json:"applicant_id"`
	CertifierID       uint              `gorm:"not null;index" json:"certifier_id"`
	StandardID        uint              `gorm:"not null;index" json:"standard_id"`
	CertificateNumber string            `gorm:"uniqueIndex;type:varchar(20);not null" json:"certificate_number"`
	Status            CertificateStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`
	IssuedAt          time.Time         `gorm:"not null" json:"issued_at"`
	ExpiresAt         time.Time         `gorm:"not null;index" json:"expires_at"`
	CertificateFile   string            `gorm:"type:varchar(255)" json:"certificate_file,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`

	Application *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	Applicant   *User        `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	Certifier   *User        `gorm:"foreignKey:CertifierID" json:"certifier,omitempty"`
	Standard    *Standard    `gorm:"foreignKey:StandardID" json:"standard,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// EffectiveCertificateStatus is the single place that derives a
// certificate's true state from the stored status and the expiry date.
// The stored column may lag behind the clock; callers must never compare
// expires_at against now themselves.
func EffectiveCertificateStatus(cert *Certificate, now time.Time) CertificateStatus {
	if cert.Status == CertificateRevoked {
		return CertificateRevoked
	}
	if now.After(cert.ExpiresAt) {
		return CertificateExpired
	}
	return cert.Status
}

package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // account role, fixed at registration

const (
	RoleApplicant UserRole = "applicant" // applies to standards
	RoleCertifier UserRole = "certifier" // defines standards, reviews applications
)

// Valid reports whether the role is one of the closed set.
func (r UserRole) Valid() bool {
	return r == RoleApplicant || r == RoleCertifier
}

type User struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Role          UserRole       `gorm:"type:varchar(20);not null" json:"role"` // immutable after registration
	CompanyName   string         `gorm:"not null" json:"company_name"`
	ContactPerson string         `gorm:"not null" json:"contact_person"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone         string         `json:"phone"`
	Address       string         `json:"address"`
	City          string         `json:"city"`
	Country       string         `json:"country"`
	PasswordHash  string         `gorm:"not null" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"` // soft delete only, audit rows reference users

	Standards    []Standard    `gorm:"foreignKey:CertifierID" json:"standards,omitempty"`
	Applications []Application `gorm:"foreignKey:ApplicantID" json:"applications,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName is what the view layer shows for the account.
func (u *User) DisplayName() string {
	if u.CompanyName != "" {
		return u.CompanyName
	}
	return u.ContactPerson
}

package policy

import (
	"github.com/certolo/certolo-backend/internal/app/model"
	"gorm.io/gorm"
)

// Principal is the resolved identity of the caller. A zero Principal is
// the anonymous caller.
type Principal struct {
	UserID        uint
	Role          model.UserRole
	DisplayName   string
	SessionID     string
	Authenticated bool
}

// Anonymous returns the principal for unauthenticated requests.
func Anonymous() Principal {
	return Principal{}
}

func (p Principal) IsApplicant() bool {
	return p.Authenticated && p.Role == model.RoleApplicant
}

func (p Principal) IsCertifier() bool {
	return p.Authenticated && p.Role == model.RoleCertifier
}

// Resource identifies what is being acted on.
type Resource string

const (
	ResourceStandard    Resource = "standard"
	ResourceCriterion   Resource = "criterion"
	ResourceApplication Resource = "application"
	ResourceDocument    Resource = "document"
	ResourceCertificate Resource = "certificate"
	ResourceCustomer    Resource = "customer"
	ResourceActivityLog Resource = "activity_log"
)

// Action identifies the operation.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSubmit Action = "submit"
	ActionReview Action = "review"
	ActionDecide Action = "decide"
	ActionIssue  Action = "issue"
	ActionVerify Action = "verify"
	ActionExport Action = "export"
)

// Effect is the outcome of an authorization check.
type Effect int

const (
	// EffectDeny refuses the operation outright.
	EffectDeny Effect = iota
	// EffectAllow grants the operation without row restrictions.
	EffectAllow
	// EffectAllowScoped grants the operation restricted to the rows
	// matched by Decision.Scope. Repositories must apply the scope.
	EffectAllowScoped
)

// Decision is the result of Authorize. A denied decision never carries
// a scope.
type Decision struct {
	Effect Effect
	Scope  func(*gorm.DB) *gorm.DB
}

func (d Decision) Allowed() bool {
	return d.Effect != EffectDeny
}

func deny() Decision {
	return Decision{Effect: EffectDeny}
}

func allow() Decision {
	return Decision{Effect: EffectAllow}
}

func allowScoped(scope func(*gorm.DB) *gorm.DB) Decision {
	return Decision{Effect: EffectAllowScoped, Scope: scope}
}

// Authorize evaluates the role/resource/action table. Everything not
// explicitly granted here is denied, so a caller who cannot see a row
// gets the same answer as if the row did not exist.
func Authorize(p Principal, action Action, resource Resource) Decision {
	switch resource {
	case ResourceStandard:
		return authorizeStandard(p, action)
	case ResourceCriterion:
		return authorizeCriterion(p, action)
	case ResourceApplication:
		return authorizeApplication(p, action)
	case ResourceDocument:
		return authorizeDocument(p, action)
	case ResourceCertificate:
		return authorizeCertificate(p, action)
	case ResourceCustomer:
		return authorizeCustomer(p, action)
	case ResourceActivityLog:
		return authorizeActivityLog(p, action)
	}
	return deny()
}

func authorizeStandard(p Principal, action Action) Decision {
	switch action {
	case ActionList, ActionRead:
		// Certifiers browse their own catalogue, everyone else only
		// sees what is published. Inactive standards are invisible to
		// non-owners, not forbidden.
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("standards.certifier_id = ?", certifierID)
			})
		}
		return allowScoped(func(db *gorm.DB) *gorm.DB {
			return db.Where("standards.status = ?", model.StandardActive)
		})
	case ActionCreate:
		if p.IsCertifier() {
			return allow()
		}
	case ActionUpdate, ActionDelete:
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("standards.certifier_id = ?", certifierID)
			})
		}
	}
	return deny()
}

func authorizeCriterion(p Principal, action Action) Decision {
	// Criteria inherit visibility and ownership from their standard.
	switch action {
	case ActionList, ActionRead:
		return authorizeStandard(p, ActionRead)
	case ActionCreate, ActionUpdate, ActionDelete:
		return authorizeStandard(p, ActionUpdate)
	}
	return deny()
}

func authorizeApplication(p Principal, action Action) Decision {
	switch action {
	case ActionCreate:
		if p.IsApplicant() {
			return allow()
		}
	case ActionList, ActionRead:
		if p.IsApplicant() {
			applicantID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("applications.applicant_id = ?", applicantID)
			})
		}
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("applications.certifier_id = ?", certifierID)
			})
		}
	case ActionUpdate, ActionDelete, ActionSubmit:
		if p.IsApplicant() {
			applicantID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("applications.applicant_id = ?", applicantID)
			})
		}
	case ActionReview, ActionDecide, ActionIssue:
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("applications.certifier_id = ?", certifierID)
			})
		}
	}
	return deny()
}

func authorizeDocument(p Principal, action Action) Decision {
	// Documents ride on their application: whoever may read the
	// application may read its documents, only the applicant mutates.
	switch action {
	case ActionList, ActionRead:
		return authorizeApplication(p, ActionRead)
	case ActionCreate, ActionDelete:
		return authorizeApplication(p, ActionUpdate)
	}
	return deny()
}

func authorizeCertificate(p Principal, action Action) Decision {
	switch action {
	case ActionVerify:
		// Certificate verification by number is public.
		return allow()
	case ActionList, ActionRead:
		if p.IsApplicant() {
			applicantID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("certificates.applicant_id = ?", applicantID)
			})
		}
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("certificates.certifier_id = ?", certifierID)
			})
		}
	case ActionUpdate:
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("certificates.certifier_id = ?", certifierID)
			})
		}
	}
	return deny()
}

func authorizeCustomer(p Principal, action Action) Decision {
	switch action {
	case ActionList, ActionRead, ActionExport:
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("applications.certifier_id = ?", certifierID)
			})
		}
	}
	return deny()
}

func authorizeActivityLog(p Principal, action Action) Decision {
	switch action {
	case ActionList, ActionRead:
		if p.IsCertifier() {
			certifierID := p.UserID
			return allowScoped(func(db *gorm.DB) *gorm.DB {
				return db.Where("activity_logs.user_id = ?", certifierID)
			})
		}
	}
	return deny()
}

// OwnsApplicationAsApplicant reports whether p is the applicant on app.
// Services use this for object-level checks after loading a row.
func (p Principal) OwnsApplicationAsApplicant(app *model.Application) bool {
	return p.IsApplicant() && app != nil && app.ApplicantID == p.UserID
}

// OwnsApplicationAsCertifier reports whether p is the certifier on app.
func (p Principal) OwnsApplicationAsCertifier(app *model.Application) bool {
	return p.IsCertifier() && app != nil && app.CertifierID == p.UserID
}

// OwnsStandard reports whether p is the certifier that owns std.
func (p Principal) OwnsStandard(std *model.Standard) bool {
	return p.IsCertifier() && std != nil && std.CertifierID == p.UserID
}

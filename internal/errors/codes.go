package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The frontend maps these codes to localized messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email/password
	AuthRateLimited        = "AUTH_RATE_LIMITED"        // too many failed attempts
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // token expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // malformed token
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"       // token blacklisted
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // duplicate email
	AuthCSRFInvalid        = "AUTH_CSRF_INVALID"        // anti-forgery token missing/wrong

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // no access
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // role info missing from context
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"     // owner-only operation

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"
	ValidationFailed       = "VALIDATION_FAILED" // aggregated field/file errors

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Standards (STANDARD_) ====================
	StandardNotFound  = "STANDARD_NOT_FOUND"
	StandardInactive  = "STANDARD_INACTIVE" // cannot apply to inactive standard
	CriterionNotFound = "CRITERION_NOT_FOUND"

	// ==================== Applications (APPLICATION_) ====================
	ApplicationNotFound           = "APPLICATION_NOT_FOUND"
	ApplicationAlreadyExists      = "APPLICATION_ALREADY_EXISTS"     // open application for the pair
	ApplicationInvalidTransition  = "APPLICATION_INVALID_TRANSITION" // illegal lifecycle step
	ApplicationIncompleteCriteria = "APPLICATION_INCOMPLETE_CRITERIA"
	ApplicationReasonRequired     = "APPLICATION_REASON_REQUIRED" // rejection needs a reason
	ApplicationNotEditable        = "APPLICATION_NOT_EDITABLE"    // documents/responses only in draft

	// ==================== Certificates (CERTIFICATE_) ====================
	CertificateNotFound = "CERTIFICATE_NOT_FOUND"

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadTypeMismatch    = "UPLOAD_TYPE_MISMATCH" // extension vs sniffed content
	UploadFailed          = "UPLOAD_FAILED"
	DocumentNotFound      = "DOCUMENT_NOT_FOUND"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalStorageError  = "INTERNAL_STORAGE_ERROR" // filesystem/object store failure
)

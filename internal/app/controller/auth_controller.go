package controller

import (
	"errors"
	"net/http"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/service"
	apperrors "github.com/certolo/certolo-backend/internal/errors"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	authService    service.AuthService
	sessionService service.SessionService
}

func NewAuthController(authService service.AuthService, sessionService service.SessionService) *AuthController {
	return &AuthController{
		authService:    authService,
		sessionService: sessionService,
	}
}

type RegisterRequest struct {
	Role          string `json:"role" binding:"required,oneof=applicant certifier"`
	CompanyName   string `json:"company_name" binding:"required"`
	ContactPerson string `json:"contact_person" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdateProfileRequest struct {
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

func userPayload(user *model.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"role":           user.Role,
		"company_name":   user.CompanyName,
		"contact_person": user.ContactPerson,
		"email":          user.Email,
		"phone":          user.Phone,
		"address":        user.Address,
		"city":           user.City,
		"country":        user.Country,
	}
}

// Register handles account registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The registration data is invalid")
		return
	}

	user, tokens, err := ctrl.authService.Register(service.RegisterInput{
		Role:          model.UserRole(req.Role),
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Password:      req.Password,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			log.Warn("Registration failed: email already exists", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "This email address is already registered")
			return
		}
		if errors.Is(err, service.ErrInvalidRole) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown account role")
			return
		}
		log.Error("Registration failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "register user")
		return
	}

	log.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    userPayload(user),
		"tokens":  tokens,
	})
}

// Login handles login with email and password
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The login data is invalid")
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Email, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrTooManyLoginAttempts) {
			log.Warn("Login blocked: too many failed attempts", map[string]interface{}{
				"email": req.Email,
				"ip":    c.ClientIP(),
			})
			apperrors.RespondWithError(c, http.StatusTooManyRequests, apperrors.AuthRateLimited,
				"Too many failed login attempts. Please try again later")
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Login failed: invalid credentials", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials,
				"Email or password is incorrect")
			return
		}
		log.Error("Login failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "login")
		return
	}

	log.Info("Login successful", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userPayload(user),
		"tokens":  tokens,
	})
}

// Refresh rotates the refresh token and returns a fresh pair
// POST /api/v1/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The refresh token is missing")
		return
	}

	tokens, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenRevoked) {
			log.Warn("Refresh rejected: token revoked", nil)
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenRevoked,
				"This session has been revoked. Please log in again")
			return
		}
		log.Warn("Refresh rejected: invalid token", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid,
			"Invalid refresh token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout revokes the refresh token and the session state
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The refresh token is missing")
		return
	}

	sessionID, err := ctrl.authService.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Error("Logout failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "logout")
		return
	}

	// Drop the anti-forgery token with the session.
	if sessionID != "" {
		if err := ctrl.sessionService.Revoke(c.Request.Context(), sessionID); err != nil {
			log.Warn("Failed to revoke session state", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GetCSRFToken returns the anti-forgery token for the caller's session.
// The frontend sends it back in the X-CSRF-Token header on every
// mutating request.
// GET /api/v1/auth/csrf
func (ctrl *AuthController) GetCSRFToken(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	token, err := ctrl.sessionService.IssueAntiForgeryToken(c.Request.Context(), p.SessionID)
	if err != nil {
		log.Error("Failed to issue anti-forgery token", err, map[string]interface{}{
			"user_id": p.UserID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

// GetMe returns the current account
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	user, err := ctrl.authService.GetUserByID(p.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "Account not found")
			return
		}
		log.Error("Failed to load account", err, map[string]interface{}{
			"user_id": p.UserID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userPayload(user)})
}

// UpdateMe updates the current account's profile. The role and email are
// fixed at registration and cannot be changed here.
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apperrors.Unauthorized(c, "Login required")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The profile data is invalid")
		return
	}

	user, err := ctrl.authService.UpdateProfile(p.UserID, service.ProfileInput{
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "Account not found")
			return
		}
		log.Error("Failed to update profile", err, map[string]interface{}{
			"user_id": p.UserID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update profile")
		return
	}

	log.Info("Profile updated", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    userPayload(user),
	})
}

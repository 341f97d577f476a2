package service

import (
	"context"
	"errors"
	"time"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/pkg/logger"
	"github.com/certolo/certolo-backend/pkg/util"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidRole          = errors.New("invalid account role")
	ErrTooManyLoginAttempts = errors.New("too many failed login attempts")
	ErrTokenRevoked         = errors.New("token has been revoked")
)

// TokenBlacklist marks refresh tokens as unusable until their natural
// expiry. pkg/redis provides the production implementation.
type TokenBlacklist interface {
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

type RegisterInput struct {
	Role          model.UserRole
	CompanyName   string
	ContactPerson string
	Email         string
	Password      string
	Phone         string
	Address       string
	City          string
	Country       string
}

type ProfileInput struct {
	CompanyName   string
	ContactPerson string
	Phone         string
	Address       string
	City          string
	Country       string
}

type AuthService interface {
	Register(input RegisterInput) (*model.User, *util.TokenPair, error)
	Login(email, password, ipAddress string) (*model.User, *util.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) (sessionID string, err error)
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, input ProfileInput) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	attemptRepo   repository.LoginAttemptRepository
	blacklist     TokenBlacklist
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	attemptLimit  int
	lockout       time.Duration
	bcryptCost    int
}

func NewAuthService(
	userRepo repository.UserRepository,
	attemptRepo repository.LoginAttemptRepository,
	blacklist TokenBlacklist,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
	attemptLimit int,
	lockout time.Duration,
	bcryptCost int,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		attemptRepo:   attemptRepo,
		blacklist:     blacklist,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		attemptLimit:  attemptLimit,
		lockout:       lockout,
		bcryptCost:    bcryptCost,
	}
}

func (s *authService) Register(input RegisterInput) (*model.User, *util.TokenPair, error) {
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": input.Email,
		"role":  input.Role,
	})

	if !input.Role.Valid() {
		logger.Warn("Registration failed: unknown role", map[string]interface{}{
			"email": input.Email,
			"role":  input.Role,
		})
		return nil, nil, ErrInvalidRole
	}

	exists, err := s.userRepo.ExistsByEmail(input.Email)
	if err != nil {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, err
	}
	if exists {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Role:          input.Role,
		CompanyName:   input.CompanyName,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
		City:          input.City,
		Country:       input.Country,
		PasswordHash:  hashedPassword,
	}

	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})

	return user, tokens, nil
}

func (s *authService) Login(email, password, ipAddress string) (*model.User, *util.TokenPair, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
		"ip":    ipAddress,
	})

	// Lockout check comes before the credential check so a locked
	// account leaks nothing about whether the password was right.
	// Failures count per email and per source address; hitting the
	// limit on either dimension locks the attempt out.
	since := time.Now().Add(-s.lockout)
	emailFailures, err := s.attemptRepo.CountRecentByEmail(email, since)
	if err != nil {
		logger.Error("Failed to count login attempts", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}
	ipFailures, err := s.attemptRepo.CountRecentByIP(ipAddress, since)
	if err != nil {
		logger.Error("Failed to count login attempts by IP", err, map[string]interface{}{
			"ip": ipAddress,
		})
		return nil, nil, err
	}
	if emailFailures >= int64(s.attemptLimit) || ipFailures >= int64(s.attemptLimit) {
		logger.Warn("Login rejected: too many failed attempts", map[string]interface{}{
			"email":          email,
			"ip":             ipAddress,
			"email_failures": emailFailures,
			"ip_failures":    ipFailures,
		})
		return nil, nil, ErrTooManyLoginAttempts
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(email, ipAddress)
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user during login", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		s.recordFailure(email, ipAddress)
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrInvalidCredentials
	}

	// Stale failure rows only shorten the next lockout window,
	// they must not block a correct login.
	if err := s.attemptRepo.DeleteByEmail(email); err != nil {
		logger.Warn("Failed to clear login attempts after success", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
	}
	if err := s.attemptRepo.DeleteByIP(ipAddress); err != nil {
		logger.Warn("Failed to clear login attempts by IP after success", map[string]interface{}{
			"ip":    ipAddress,
			"error": err.Error(),
		})
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Login successful", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})

	return user, tokens, nil
}

func (s *authService) recordFailure(email, ipAddress string) {
	err := s.attemptRepo.Create(&model.LoginAttempt{
		Email:       email,
		IPAddress:   ipAddress,
		AttemptedAt: time.Now(),
	})
	if err != nil {
		logger.Error("Failed to record login failure", err, map[string]interface{}{
			"email": email,
		})
	}
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		uuid.NewString(),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

// Refresh exchanges a valid refresh token for a new pair and burns the
// old one. The session ID carries over so the anti-forgery token
// survives the rotation.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, util.ErrInvalidToken
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return nil, err
	}
	if revoked {
		logger.Warn("Refresh rejected: token revoked", map[string]interface{}{
			"user_id": claims.UserID,
		})
		return nil, ErrTokenRevoked
	}

	tokens, err := util.GenerateTokenPair(
		claims.UserID,
		claims.Email,
		claims.Role,
		claims.SessionID,
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		return nil, err
	}

	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
		if err := s.blacklist.Blacklist(ctx, refreshToken, ttl); err != nil {
			logger.Error("Failed to blacklist rotated refresh token", err, map[string]interface{}{
				"user_id": claims.UserID,
			})
			return nil, err
		}
	}

	logger.Info("Tokens refreshed", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return tokens, nil
}

// Logout blacklists the refresh token and returns its session ID so the
// caller can drop the session's anti-forgery state too.
func (s *authService) Logout(ctx context.Context, refreshToken string) (string, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		// An expired or garbled token has nothing left to revoke.
		return "", nil
	}

	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
		if err := s.blacklist.Blacklist(ctx, refreshToken, ttl); err != nil {
			logger.Error("Failed to blacklist refresh token at logout", err, map[string]interface{}{
				"user_id": claims.UserID,
			})
			return "", err
		}
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return claims.SessionID, nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, input ProfileInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.CompanyName != "" {
		user.CompanyName = input.CompanyName
	}
	if input.ContactPerson != "" {
		user.ContactPerson = input.ContactPerson
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	if input.Address != "" {
		user.Address = input.Address
	}
	if input.City != "" {
		user.City = input.City
	}
	if input.Country != "" {
		user.Country = input.Country
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	logger.Info("Profile updated", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

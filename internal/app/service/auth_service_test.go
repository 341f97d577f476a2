package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/db"
	"github.com/certolo/certolo-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeBlacklist is an in-memory TokenBlacklist for tests.
type fakeBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{tokens: make(map[string]time.Time)}
}

func (f *fakeBlacklist) Blacklist(_ context.Context, token string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = time.Now().Add(ttl)
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.tokens[token]
	return ok && time.Now().Before(until), nil
}

func setupAuthServiceTest(t *testing.T) (AuthService, *gorm.DB, *fakeBlacklist) {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	blacklist := newFakeBlacklist()
	authService := NewAuthService(
		repository.NewUserRepository(testDB),
		repository.NewLoginAttemptRepository(testDB),
		blacklist,
		"test-jwt-secret",
		15*time.Minute,
		7*24*time.Hour,
		3,
		15*time.Minute,
		4, // low bcrypt cost keeps the suite fast
	)
	return authService, testDB, blacklist
}

func applicantInput(email string) RegisterInput {
	return RegisterInput{
		Role:          model.RoleApplicant,
		CompanyName:   "Acme Textiles",
		ContactPerson: "Jane Miller",
		Email:         email,
		Password:      "password123",
		Phone:         "+49 30 123456",
		City:          "Berlin",
		Country:       "Germany",
	}
}

func TestAuthService_Register(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:  "valid applicant registration",
			input: applicantInput("applicant@example.com"),
		},
		{
			name: "valid certifier registration",
			input: RegisterInput{
				Role:          model.RoleCertifier,
				CompanyName:   "CertBody GmbH",
				ContactPerson: "Max Weber",
				Email:         "certifier@example.com",
				Password:      "password123",
			},
		},
		{
			name:    "duplicate email",
			input:   applicantInput("applicant@example.com"),
			wantErr: ErrEmailAlreadyExists,
		},
		{
			name: "unknown role",
			input: RegisterInput{
				Role:     model.UserRole("admin"),
				Email:    "admin@example.com",
				Password: "password123",
			},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := authService.Register(tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				assert.Nil(t, tokens)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, user)
			require.NotNil(t, tokens)
			assert.Equal(t, tt.input.Email, user.Email)
			assert.Equal(t, tt.input.Role, user.Role)
			assert.NotEqual(t, tt.input.Password, user.PasswordHash)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)

			claims, err := util.ValidateToken(tokens.AccessToken, "test-jwt-secret")
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, string(tt.input.Role), claims.Role)
			assert.NotEmpty(t, claims.SessionID)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	_, _, err := authService.Register(applicantInput("login@example.com"))
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		user, tokens, err := authService.Login("login@example.com", "password123", "203.0.113.1")
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", user.Email)
		assert.NotEmpty(t, tokens.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := authService.Login("login@example.com", "wrong", "203.0.113.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email gets the same answer", func(t *testing.T) {
		_, _, err := authService.Login("nobody@example.com", "password123", "203.0.113.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_LoginRateLimit(t *testing.T) {
	authService, testDB, _ := setupAuthServiceTest(t)

	_, _, err := authService.Register(applicantInput("locked@example.com"))
	require.NoError(t, err)

	// Three failures hit the configured limit.
	for i := 0; i < 3; i++ {
		_, _, err := authService.Login("locked@example.com", "wrong", "203.0.113.9")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	t.Run("locked out even with the right password", func(t *testing.T) {
		_, _, err := authService.Login("locked@example.com", "password123", "203.0.113.9")
		assert.ErrorIs(t, err, ErrTooManyLoginAttempts)
	})

	t.Run("attempts outside the window do not count", func(t *testing.T) {
		old := time.Now().Add(-time.Hour)
		err := testDB.Model(&model.LoginAttempt{}).
			Where("email = ?", "locked@example.com").
			Update("attempted_at", old).Error
		require.NoError(t, err)

		user, _, err := authService.Login("locked@example.com", "password123", "203.0.113.9")
		require.NoError(t, err)
		assert.Equal(t, "locked@example.com", user.Email)
	})

	t.Run("success cleared the failure history", func(t *testing.T) {
		var count int64
		require.NoError(t, testDB.Model(&model.LoginAttempt{}).
			Where("email = ?", "locked@example.com").
			Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestAuthService_LoginRateLimitByIP(t *testing.T) {
	authService, testDB, _ := setupAuthServiceTest(t)

	_, _, err := authService.Register(applicantInput("victim@example.com"))
	require.NoError(t, err)

	// Three failures from one address, spread across different emails.
	for _, email := range []string{"victim@example.com", "nobody@example.com", "other@example.com"} {
		_, _, err := authService.Login(email, "wrong", "198.51.100.7")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	t.Run("the address is locked out for every account", func(t *testing.T) {
		_, _, err := authService.Login("victim@example.com", "password123", "198.51.100.7")
		assert.ErrorIs(t, err, ErrTooManyLoginAttempts)
	})

	t.Run("a different address is unaffected", func(t *testing.T) {
		user, _, err := authService.Login("victim@example.com", "password123", "203.0.113.5")
		require.NoError(t, err)
		assert.Equal(t, "victim@example.com", user.Email)
	})

	t.Run("attempts outside the window unlock the address", func(t *testing.T) {
		old := time.Now().Add(-time.Hour)
		require.NoError(t, testDB.Model(&model.LoginAttempt{}).
			Where("ip_address = ?", "198.51.100.7").
			Update("attempted_at", old).Error)

		_, _, err := authService.Login("victim@example.com", "password123", "198.51.100.7")
		require.NoError(t, err)
	})

	t.Run("success cleared the address history", func(t *testing.T) {
		var count int64
		require.NoError(t, testDB.Model(&model.LoginAttempt{}).
			Where("ip_address = ?", "198.51.100.7").
			Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestAuthService_RefreshRotation(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	_, tokens, err := authService.Register(applicantInput("refresh@example.com"))
	require.NoError(t, err)

	oldClaims, err := util.ValidateToken(tokens.RefreshToken, "test-jwt-secret")
	require.NoError(t, err)

	newTokens, err := authService.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)

	newClaims, err := util.ValidateToken(newTokens.RefreshToken, "test-jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, oldClaims.SessionID, newClaims.SessionID, "session survives rotation")

	t.Run("old refresh token is burned", func(t *testing.T) {
		_, err := authService.Refresh(ctx, tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := authService.Refresh(ctx, newTokens.AccessToken)
		assert.ErrorIs(t, err, util.ErrInvalidToken)
	})
}

func TestAuthService_Logout(t *testing.T) {
	authService, _, blacklist := setupAuthServiceTest(t)
	ctx := context.Background()

	_, tokens, err := authService.Register(applicantInput("logout@example.com"))
	require.NoError(t, err)

	claims, err := util.ValidateToken(tokens.RefreshToken, "test-jwt-secret")
	require.NoError(t, err)

	sessionID, err := authService.Logout(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, sessionID)

	revoked, err := blacklist.IsBlacklisted(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("garbled token is a no-op", func(t *testing.T) {
		sessionID, err := authService.Logout(ctx, "not-a-token")
		require.NoError(t, err)
		assert.Empty(t, sessionID)
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	user, _, err := authService.Register(applicantInput("profile@example.com"))
	require.NoError(t, err)

	updated, err := authService.UpdateProfile(user.ID, ProfileInput{
		CompanyName: "Acme Organic Textiles",
		City:        "Hamburg",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Organic Textiles", updated.CompanyName)
	assert.Equal(t, "Hamburg", updated.City)
	// Untouched fields keep their values.
	assert.Equal(t, "Jane Miller", updated.ContactPerson)

	_, err = authService.UpdateProfile(9999, ProfileInput{City: "Munich"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

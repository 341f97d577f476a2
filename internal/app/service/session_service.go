package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/certolo/certolo-backend/pkg/logger"
	"github.com/google/uuid"
)

var ErrAntiForgeryMismatch = errors.New("anti-forgery token missing or mismatched")

// SessionTokenStore is the per-session key/value store behind anti-forgery
// tokens. pkg/redis.SessionStore is the production implementation.
type SessionTokenStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type SessionService interface {
	IssueAntiForgeryToken(ctx context.Context, sessionID string) (string, error)
	VerifyAntiForgeryToken(ctx context.Context, sessionID, token string) error
	Revoke(ctx context.Context, sessionID string) error
}

type sessionService struct {
	store SessionTokenStore
	ttl   time.Duration
}

func NewSessionService(store SessionTokenStore, ttl time.Duration) SessionService {
	return &sessionService{store: store, ttl: ttl}
}

func antiForgeryKey(sessionID string) string {
	return fmt.Sprintf("csrf:%s", sessionID)
}

// IssueAntiForgeryToken returns the session's anti-forgery token,
// creating it on first use. Calling it twice for the same session hands
// back the same token, so page reloads never invalidate open forms.
func (s *sessionService) IssueAntiForgeryToken(ctx context.Context, sessionID string) (string, error) {
	key := antiForgeryKey(sessionID)
	token := uuid.NewString()

	created, err := s.store.SetNX(ctx, key, token, s.ttl)
	if err != nil {
		logger.Error("Failed to issue anti-forgery token", err, map[string]interface{}{
			"session_id": sessionID,
		})
		return "", err
	}
	if created {
		return token, nil
	}

	existing, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if existing == "" {
		// Lost a race with expiry, try once more.
		if _, err := s.store.SetNX(ctx, key, token, s.ttl); err != nil {
			return "", err
		}
		return s.store.Get(ctx, key)
	}
	return existing, nil
}

// VerifyAntiForgeryToken compares the submitted token against the
// session's stored one in constant time.
func (s *sessionService) VerifyAntiForgeryToken(ctx context.Context, sessionID, token string) error {
	if sessionID == "" || token == "" {
		return ErrAntiForgeryMismatch
	}

	stored, err := s.store.Get(ctx, antiForgeryKey(sessionID))
	if err != nil {
		return err
	}
	if stored == "" || len(stored) != len(token) {
		logger.Warn("Anti-forgery token rejected", map[string]interface{}{
			"session_id": sessionID,
		})
		return ErrAntiForgeryMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		logger.Warn("Anti-forgery token rejected", map[string]interface{}{
			"session_id": sessionID,
		})
		return ErrAntiForgeryMismatch
	}
	return nil
}

// Revoke drops the session's server-side state at logout.
func (s *sessionService) Revoke(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, antiForgeryKey(sessionID))
}

package scheduler

import (
	"time"

	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// LoginAttemptScheduler purges login failure rows once they have aged
// out of the lockout window. Rate limiting only counts rows inside the
// window, so the purge changes nothing but table size.
type LoginAttemptScheduler struct {
	cron        *cron.Cron
	attemptRepo repository.LoginAttemptRepository
	retention   time.Duration
}

func NewLoginAttemptScheduler(attemptRepo repository.LoginAttemptRepository, retention time.Duration) *LoginAttemptScheduler {
	return &LoginAttemptScheduler{
		cron:        cron.New(),
		attemptRepo: attemptRepo,
		retention:   retention,
	}
}

// Start registers the daily purge and starts the cron loop.
func (s *LoginAttemptScheduler) Start() error {
	_, err := s.cron.AddFunc("20 0 * * *", func() {
		cutoff := time.Now().Add(-s.retention)
		purged, err := s.attemptRepo.DeleteOlderThan(cutoff)
		if err != nil {
			logger.Error("Login attempt purge failed", err)
			return
		}

		logger.Info("Login attempt purge completed", map[string]interface{}{
			"purged": purged,
			"cutoff": cutoff,
		})
	})

	if err != nil {
		logger.Error("Failed to add cron job for login attempt purge", err)
		return err
	}

	s.cron.Start()
	logger.Info("Login attempt scheduler started (daily at 00:20)", nil)

	return nil
}

// Stop stops the scheduler.
func (s *LoginAttemptScheduler) Stop() {
	logger.Info("Stopping login attempt scheduler...", nil)
	s.cron.Stop()
	logger.Info("Login attempt scheduler stopped", nil)
}

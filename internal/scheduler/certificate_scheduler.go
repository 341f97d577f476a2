package scheduler

import (
	"time"

	"github.com/certolo/certolo-backend/internal/app/service"
	"github.com/certolo/certolo-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CertificateScheduler reconciles stored certificate statuses with the
// clock. Reads always derive the effective status on the fly; this job
// only keeps the persisted rows from drifting too far behind.
type CertificateScheduler struct {
	cron               *cron.Cron
	certificateService service.CertificateService
}

func NewCertificateScheduler(certificateService service.CertificateService) *CertificateScheduler {
	return &CertificateScheduler{
		cron:               cron.New(),
		certificateService: certificateService,
	}
}

// Start registers the daily expiry sweep and starts the cron loop.
func (s *CertificateScheduler) Start() error {
	// Shortly after midnight, when the expiry date boundary has passed.
	_, err := s.cron.AddFunc("10 0 * * *", func() {
		logger.Info("Starting scheduled certificate expiry sweep", nil)

		updated, err := s.certificateService.ReconcileExpired(time.Now())
		if err != nil {
			logger.Error("Certificate expiry sweep failed", err)
			return
		}

		logger.Info("Certificate expiry sweep completed", map[string]interface{}{
			"expired": updated,
		})
	})

	if err != nil {
		logger.Error("Failed to add cron job for certificate expiry sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Certificate scheduler started (daily at 00:10)", nil)

	return nil
}

// Stop stops the scheduler.
func (s *CertificateScheduler) Stop() {
	logger.Info("Stopping certificate scheduler...", nil)
	s.cron.Stop()
	logger.Info("Certificate scheduler stopped", nil)
}

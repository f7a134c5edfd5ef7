package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/mona/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TokenKeeper renews an upstream token ahead of its expiry
type TokenKeeper interface {
	EnsureToken(ctx context.Context, lead time.Duration) error
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	tokens   TokenKeeper
	schedule string
	lead     time.Duration
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.Config, tokens TokenKeeper, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		tokens:   tokens,
		schedule: cfg.TokenRefreshSchedule,
		lead:     cfg.TokenRefreshLead,
		timeout:  2*cfg.TVDBTimeout + cfg.TVDBRetryBackoff,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Renew the TVDB token before requests have to wait for a login
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runTokenRenewal()
	})
	if err != nil {
		return fmt.Errorf("failed to add token renewal job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Scheduler started")

	// Log in right away so the first request does not pay for it
	go s.runTokenRenewal()

	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// runTokenRenewal executes the token renewal job
func (s *Scheduler) runTokenRenewal() {
	s.logger.Debug("Running scheduled token renewal")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.tokens.EnsureToken(ctx, s.lead); err != nil {
		s.logger.WithError(err).Error("Token renewal job failed")
	}
}

package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"voteflow-backend/internal/logger"
)

// ImportPurger drops abandoned import sessions.
type ImportPurger interface {
	PurgeIdle(ttl time.Duration) int
}

// PaymentPurger drops checkouts nobody came back for.
type PaymentPurger interface {
	PurgeIdle(ttl time.Duration) int
}

// StatusBroadcaster pushes a fresh status snapshot to live clients.
type StatusBroadcaster interface {
	Broadcast(ctx context.Context)
}

// Scheduler handles scheduled housekeeping.
type Scheduler struct {
	cron     *cron.Cron
	imports  ImportPurger
	payments PaymentPurger
	status   StatusBroadcaster
	idleTTL  time.Duration
}

// NewScheduler creates a scheduler. Any dependency may be nil. Import
// sessions and checkouts both expire after idleTTL.
func NewScheduler(imports ImportPurger, payments PaymentPurger, status StatusBroadcaster, idleTTL time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		imports:  imports,
		payments: payments,
		status:   status,
		idleTTL:  idleTTL,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	log := logger.For("cron")

	if s.imports != nil {
		// Every 10 minutes - drop idle import sessions
		if _, err := s.cron.AddFunc("0 */10 * * * *", s.purgeImports); err != nil {
			return err
		}
	}
	if s.payments != nil {
		// Every 10 minutes - drop abandoned checkouts
		if _, err := s.cron.AddFunc("30 */10 * * * *", s.purgePayments); err != nil {
			return err
		}
	}
	if s.status != nil {
		// Every 30 seconds - push status to open status pages
		if _, err := s.cron.AddFunc("*/30 * * * * *", s.broadcastStatus); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.Info("[Cron] Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.For("cron").Info("[Cron] Scheduler stopped")
}

func (s *Scheduler) purgeImports() {
	n := s.imports.PurgeIdle(s.idleTTL)
	if n > 0 {
		logger.For("cron").WithField("purged", n).Info("[Cron] Purged idle import sessions")
	}
}

func (s *Scheduler) purgePayments() {
	n := s.payments.PurgeIdle(s.idleTTL)
	if n > 0 {
		logger.For("cron").WithField("purged", n).Info("[Cron] Purged abandoned checkouts")
	}
}

func (s *Scheduler) broadcastStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.status.Broadcast(ctx)
}

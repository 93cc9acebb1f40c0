package scheduler

import (
	"context"
	"fmt"
	"time"

	"daily_quote_mailer/internal/app" // For Job interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// QuoteScheduler triggers the daily quote job at a fixed wall-clock time.
type QuoteScheduler struct {
	cronEngine *cron.Cron
	job        app.Job
	logger     *logrus.Logger
	cronSpec   string // e.g., "0 7 * * *" (07:00 every day)
	entryID    cron.EntryID
}

func NewQuoteScheduler(job app.Job, logger *logrus.Logger, cronSpec string) *QuoteScheduler {
	return &QuoteScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Use server's local time for cron
			cron.WithChain(cron.Recover(cron.PrintfLogger(logger))),
		),
		job:      job,
		logger:   logger,
		cronSpec: cronSpec,
	}
}

// Start registers the daily job and starts the cron engine in its own goroutine.
func (s *QuoteScheduler) Start() error {
	s.logger.Info("Starting quote scheduler...")

	id, err := s.cronEngine.AddFunc(s.cronSpec, s.execute)
	if err != nil {
		return fmt.Errorf("could not add daily quote cron job %q: %w", s.cronSpec, err)
	}
	s.entryID = id

	s.cronEngine.Start()
	s.logger.Infof("Scheduler started - job will run on schedule %q", s.cronSpec)
	if next := s.NextRun(); !next.IsZero() {
		s.logger.Infof("Next scheduled run: %s", next.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// NextRun is the next activation time, or zero if the scheduler is not started.
func (s *QuoteScheduler) NextRun() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cronEngine.Entry(s.entryID).Next
}

func (s *QuoteScheduler) execute() {
	s.logger.Info("Cron job triggered for daily quote.")
	stats := s.job.Run(context.Background())
	s.logger.WithFields(logrus.Fields{
		"run_id":  stats.RunID,
		"outcome": stats.Outcome,
	}).Info("Daily quote job finished.")
	if next := s.NextRun(); !next.IsZero() {
		s.logger.Infof("Next scheduled run: %s", next.Format("2006-01-02 15:04:05"))
	}
}

func (s *QuoteScheduler) Stop() {
	s.logger.Info("Stopping quote scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Quote scheduler gracefully stopped.")
}

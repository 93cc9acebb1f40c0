// internal/app/job_runner.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"daily_quote_mailer/internal/domain/quote"
	"daily_quote_mailer/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job is one invocation of the daily quote mailing.
type Job interface {
	Run(ctx context.Context) *RunStats
}

// State is a step of a job run.
type State string

const (
	StateFetchingQuote State = "FETCHING_QUOTE"
	StateLoadingUsers  State = "LOADING_USERS"
	StateSending       State = "SENDING"
	StateSummarizing   State = "SUMMARIZING"
	StateDone          State = "DONE"
)

// RunOutcome tells how a run ended.
type RunOutcome string

const (
	OutcomeCompleted        RunOutcome = "completed"
	OutcomeQuoteUnavailable RunOutcome = "quote_unavailable"
	OutcomeNoRecipients     RunOutcome = "no_recipients"
)

// RunStats is the bookkeeping of a single run.
// Once a run completes, Sent+Failed == TotalUsers.
type RunStats struct {
	RunID            string
	Outcome          RunOutcome
	Quote            *quote.Quote
	TotalUsers       int
	Sent             int
	Failed           int
	FailedRecipients []string
	StartTime        time.Time
	EndTime          time.Time
}

func (s *RunStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// SuccessRate is the percentage of users that got the email, or false if there were none.
func (s *RunStats) SuccessRate() (float64, bool) {
	if s.TotalUsers == 0 {
		return 0, false
	}
	return float64(s.Sent) / float64(s.TotalUsers) * 100, true
}

// FormatSuccessRate renders SuccessRate with one decimal, or "N/A".
func (s *RunStats) FormatSuccessRate() string {
	rate, ok := s.SuccessRate()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", rate)
}

func (s *RunStats) recordSent() {
	s.Sent++
}

func (s *RunStats) recordFailed(email string) {
	s.Failed++
	s.FailedRecipients = append(s.FailedRecipients, email)
}

// JobRunner fetches the quote, loads subscribers and mails each of them in order.
type JobRunner struct {
	fetcher   quote.Fetcher
	directory user.Directory
	notifier  Notifier
	logger    *logrus.Logger
	frequency user.Frequency
	now       func() time.Time
}

type RunnerOption func(*JobRunner)

// WithFrequency selects which subscribers a run targets. Defaults to daily.
func WithFrequency(f user.Frequency) RunnerOption {
	return func(r *JobRunner) { r.frequency = f }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *JobRunner) { r.now = now }
}

func NewJobRunner(
	fetcher quote.Fetcher,
	directory user.Directory,
	notifier Notifier,
	logger *logrus.Logger,
	opts ...RunnerOption,
) *JobRunner {
	r := &JobRunner{
		fetcher:   fetcher,
		directory: directory,
		notifier:  notifier,
		logger:    logger,
		frequency: user.FrequencyDaily,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const rule = "======================================================================"

// Run executes one job. It keeps no state between calls and never panics
// because of a single user's delivery.
func (r *JobRunner) Run(ctx context.Context) *RunStats {
	stats := &RunStats{
		RunID:            uuid.NewString(),
		FailedRecipients: []string{},
		StartTime:        r.now(),
	}
	entry := r.logger.WithField("run_id", stats.RunID)
	ctx = withRunID(ctx, stats.RunID)

	entry.Info(rule)
	entry.Info("STARTING DAILY QUOTE JOB")
	entry.Info(rule)

	r.enter(entry, StateFetchingQuote)
	entry.Info("Step 1: Fetching quote of the day...")
	q, err := r.fetcher.Fetch(ctx)
	if err != nil {
		entry.Errorf("[FAILED] Could not fetch quote from API. Aborting job: %v", err)
		return r.finish(entry, stats, OutcomeQuoteUnavailable)
	}
	stats.Quote = q
	entry.Infof("[SUCCESS] Quote fetched: %q - %s", q.Text, q.Author)

	r.enter(entry, StateLoadingUsers)
	entry.Info("Step 2: Retrieving active users from database...")
	users := r.directory.ListActive(ctx, r.frequency)
	stats.TotalUsers = len(users)
	if len(users) == 0 {
		entry.Warnf("[WARNING] No active users found with %s frequency", r.frequency)
		entry.Info("Job completed - nothing to send")
		return r.finish(entry, stats, OutcomeNoRecipients)
	}
	entry.Infof("[SUCCESS] Found %d active %s subscribers", len(users), r.frequency)

	r.enter(entry, StateSending)
	entry.Info("Step 3: Sending emails to users...")
	entry.Info(strings.Repeat("-", len(rule)))
	for i, u := range users {
		userEntry := entry.WithField("recipient", u.Email)
		userEntry.Infof("[%d/%d] Processing: %s (%s)", i+1, len(users), u.FullName(), u.Email)

		delivered, panicErr := r.deliver(ctx, u, q)
		switch {
		case panicErr != nil:
			stats.recordFailed(u.Email)
			userEntry.Errorf("  [ERROR] Unexpected error for %s: %v", u.Email, panicErr)
		case delivered:
			stats.recordSent()
			userEntry.Infof("  [SUCCESS] Email sent to %s", u.Email)
		default:
			stats.recordFailed(u.Email)
			userEntry.Errorf("  [FAILED] Could not send email to %s", u.Email)
		}
	}

	r.enter(entry, StateSummarizing)
	stats.EndTime = r.now()
	stats.Outcome = OutcomeCompleted
	r.summarize(entry, stats)
	r.enter(entry, StateDone)
	return stats
}

// deliver isolates one user's send: a panic becomes a counted failure.
func (r *JobRunner) deliver(ctx context.Context, u *user.User, q *quote.Quote) (delivered bool, panicErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			delivered = false
			panicErr = fmt.Errorf("panic while sending: %v", rec)
		}
	}()
	return r.notifier.Send(ctx, u, q), nil
}

type runIDKey struct{}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// logEntry returns an entry tagged with the run id carried by ctx, if any.
func logEntry(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return logger.WithField("run_id", id)
	}
	return logrus.NewEntry(logger)
}

func (r *JobRunner) finish(entry *logrus.Entry, stats *RunStats, outcome RunOutcome) *RunStats {
	stats.EndTime = r.now()
	stats.Outcome = outcome
	r.enter(entry, StateDone)
	return stats
}

func (r *JobRunner) enter(entry *logrus.Entry, s State) {
	entry.WithField("state", s).Debugf("Entering state %s", s)
}

func (r *JobRunner) summarize(entry *logrus.Entry, stats *RunStats) {
	entry.Info(rule)
	entry.Info("JOB COMPLETED - SUMMARY")
	entry.Info(rule)
	entry.Infof("Total users processed: %d", stats.TotalUsers)
	entry.Infof("Emails sent successfully: %d", stats.Sent)
	entry.Infof("Emails failed: %d", stats.Failed)
	if len(stats.FailedRecipients) > 0 {
		entry.Warnf("Failed recipients: %s", strings.Join(stats.FailedRecipients, ", "))
	}
	entry.Infof("Success rate: %s", stats.FormatSuccessRate())
	entry.Infof("Duration: %.2f seconds", stats.Duration().Seconds())
	entry.Infof("Quote of the day: %q - %s", stats.Quote.Text, stats.Quote.Author)
	entry.WithFields(logrus.Fields{
		"total_users":       stats.TotalUsers,
		"sent":              stats.Sent,
		"failed":            stats.Failed,
		"failed_recipients": stats.FailedRecipients,
		"duration_seconds":  stats.Duration().Seconds(),
	}).Info(rule)
}

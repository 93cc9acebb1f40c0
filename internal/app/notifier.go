// internal/app/notifier.go
package app

import (
	"context"
	"errors"
	"time"

	"daily_quote_mailer/internal/domain/mail"
	"daily_quote_mailer/internal/domain/quote"
	"daily_quote_mailer/internal/domain/user"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	MinBaseDelay      = time.Millisecond
)

// Notifier delivers the quote-of-the-day to a single user.
type Notifier interface {
	// Send reports whether the message was delivered.
	Send(ctx context.Context, u *user.User, q *quote.Quote) bool
}

// AttemptReport describes the outcome of one delivery attempt.
// RetryIn is zero when no further attempt follows.
type AttemptReport struct {
	Recipient   string
	Attempt     int
	MaxAttempts int
	Err         error
	RetryIn     time.Duration
}

// EmailNotifier implements Notifier on top of a mail.Sender.
type EmailNotifier struct {
	sender     mail.Sender
	from       string
	logger     *logrus.Logger
	maxRetries int
	baseDelay  time.Duration
	onAttempt  func(AttemptReport)
}

type NotifierOption func(*EmailNotifier)

// WithMaxRetries caps the number of delivery attempts per user. Values below 1 mean 1.
func WithMaxRetries(n int) NotifierOption {
	return func(e *EmailNotifier) { e.maxRetries = max(n, 1) }
}

// WithBaseDelay sets the wait after the first failed attempt; it doubles after every further failure.
// Values below MinBaseDelay mean MinBaseDelay.
func WithBaseDelay(d time.Duration) NotifierOption {
	return func(e *EmailNotifier) { e.baseDelay = max(d, MinBaseDelay) }
}

// WithAttemptObserver registers fn to receive every AttemptReport.
func WithAttemptObserver(fn func(AttemptReport)) NotifierOption {
	return func(e *EmailNotifier) { e.onAttempt = fn }
}

func NewEmailNotifier(sender mail.Sender, from string, logger *logrus.Logger, opts ...NotifierOption) *EmailNotifier {
	n := &EmailNotifier{
		sender:     sender,
		from:       from,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// retryBackoff yields base, 2*base, 4*base... and stops after maxAttempts-1 waits.
func retryBackoff(base time.Duration, maxAttempts int) retry.Backoff {
	return retry.WithMaxRetries(uint64(max(maxAttempts-1, 0)), retry.NewExponential(base))
}

// Send composes the message for u and tries to deliver it up to maxRetries times.
// Authentication and recipient rejections end the loop immediately.
func (n *EmailNotifier) Send(ctx context.Context, u *user.User, q *quote.Quote) bool {
	entry := logEntry(ctx, n.logger).WithField("recipient", u.Email)
	if err := ctx.Err(); err != nil {
		entry.Warnf("Delivery to %s skipped: %v", u.Email, err)
		return false
	}

	msg, err := composeMessage(n.from, u, q)
	if err != nil {
		entry.Errorf("Could not compose email: %v", err)
		return false
	}

	var (
		attempt int
		pending AttemptReport
	)
	inner := retryBackoff(n.baseDelay, n.maxRetries)
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := inner.Next()
		if stop {
			entry.Errorf("    Failed after %d attempts", n.maxRetries)
			n.report(pending)
			return 0, true
		}
		pending.RetryIn = delay
		n.report(pending)
		entry.WithField("retry_in", delay).Infof("    Retrying in %s...", delay)
		return delay, false
	})

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptEntry := entry.WithFields(logrus.Fields{"attempt": attempt, "max_attempts": n.maxRetries})
		attemptEntry.Infof("  Attempt %d/%d: Sending to %s...", attempt, n.maxRetries, u.Email)

		sendErr := n.sender.Send(ctx, msg)
		report := AttemptReport{Recipient: u.Email, Attempt: attempt, MaxAttempts: n.maxRetries, Err: sendErr}
		switch {
		case sendErr == nil:
			attemptEntry.Info("  [SENT]")
			n.report(report)
			return nil
		case mail.IsTerminal(sendErr):
			tag := lo.Ternary(errors.Is(sendErr, mail.ErrAuthentication), "[AUTH FAILED]", "[INVALID EMAIL]")
			attemptEntry.Errorf("  %s %v", tag, sendErr)
			n.report(report)
			return sendErr
		}
		attemptEntry.Errorf("  [ERROR] %v", sendErr)
		pending = report
		return retry.RetryableError(sendErr)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		entry.Warnf("Delivery to %s stopped after %d attempts: %v", u.Email, attempt, err)
	}
	return err == nil
}

func (n *EmailNotifier) report(r AttemptReport) {
	if n.onAttempt != nil {
		n.onAttempt(r)
	}
}

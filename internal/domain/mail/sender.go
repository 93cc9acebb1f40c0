// internal/domain/mail/sender.go
package mail

import (
	"context"
	"errors"
)

// Terminal send failures. Retrying them cannot succeed.
var (
	ErrAuthentication    = errors.New("mail server rejected sender credentials")
	ErrRecipientRejected = errors.New("mail server rejected recipient address")
)

// Message is a single plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a message through a mail transport.
// Each call opens and closes its own session.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// IsTerminal reports whether err must not be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrRecipientRejected)
}

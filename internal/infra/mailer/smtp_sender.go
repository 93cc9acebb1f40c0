// Package mailer delivers messages over SMTP with implicit TLS.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"daily_quote_mailer/internal/domain/mail"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a whole SMTP session: dial, auth and delivery.
const DefaultTimeout = 30 * time.Second

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPSender implements mail.Sender. Every Send opens a fresh authenticated session.
type SMTPSender struct {
	addr     string
	host     string
	auth     smtp.Auth
	timeout  time.Duration
	dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:     cfg.Host,
		auth:     smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		timeout:  timeout,
		dialFunc: dialer.DialContext,
	}
}

// Send delivers msg. Credential and recipient rejections wrap mail.ErrAuthentication
// and mail.ErrRecipientRejected respectively; anything else is transient.
func (s *SMTPSender) Send(ctx context.Context, msg mail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dialFunc(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if err := client.Auth(s.auth); err != nil {
		return classifyAuth(err)
	}
	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return classifyRcpt(msg.To, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(buildMessage(msg, time.Now())); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp server did not accept message: %w", err)
	}
	// The message is queued once DATA is acknowledged. A dropped or odd QUIT
	// reply must not turn a delivery into a retry.
	_ = client.Quit()
	return nil
}

// classifyAuth treats any permanent reply to AUTH (535, 534, 530...) as bad credentials.
func classifyAuth(err error) error {
	if isPermanent(err) {
		return fmt.Errorf("%w: %v", mail.ErrAuthentication, err)
	}
	return fmt.Errorf("smtp authentication failed: %w", err)
}

func classifyRcpt(to string, err error) error {
	if isPermanent(err) {
		return fmt.Errorf("%w: %s: %v", mail.ErrRecipientRejected, to, err)
	}
	return fmt.Errorf("smtp RCPT TO %s failed: %w", to, err)
}

func isPermanent(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code >= 500 && tpErr.Code < 600
}

func buildMessage(msg mail.Message, now time.Time) []byte {
	domain := "localhost"
	if at := strings.LastIndex(msg.From, "@"); at >= 0 && at < len(msg.From)-1 {
		domain = msg.From[at+1:]
	}

	headers := []string{
		fmt.Sprintf("From: %s", msg.From),
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", msg.Subject)),
		fmt.Sprintf("Date: %s", now.Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), domain),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
	}

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

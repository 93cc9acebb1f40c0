package mailer

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"daily_quote_mailer/internal/domain/mail"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTPServer answers one session over an in-memory pipe.
type fakeSMTPServer struct {
	authReply string
	rcptReply string
	// hangUpOnQuit closes the connection instead of answering QUIT.
	hangUpOnQuit bool

	mu       sync.Mutex
	commands []string
	data     string
	done     chan struct{}
}

func newFakeSMTPServer() *fakeSMTPServer {
	return &fakeSMTPServer{
		authReply: "235 2.7.0 Authentication successful",
		rcptReply: "250 2.1.5 OK",
		done:      make(chan struct{}),
	}
}

func (f *fakeSMTPServer) serve(conn net.Conn) {
	defer close(f.done)
	defer conn.Close()
	tp := textproto.NewConn(conn)

	_ = tp.PrintfLine("220 localhost ESMTP fake")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, line)
		f.mu.Unlock()

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch {
		case verb == "EHLO":
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 AUTH PLAIN")
		case verb == "AUTH":
			_ = tp.PrintfLine("%s", f.authReply)
		case strings.HasPrefix(strings.ToUpper(line), "MAIL FROM:"):
			_ = tp.PrintfLine("250 2.1.0 OK")
		case strings.HasPrefix(strings.ToUpper(line), "RCPT TO:"):
			_ = tp.PrintfLine("%s", f.rcptReply)
		case verb == "DATA":
			_ = tp.PrintfLine("354 Go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.data = string(body)
			f.mu.Unlock()
			_ = tp.PrintfLine("250 2.0.0 queued")
		case verb == "QUIT":
			if !f.hangUpOnQuit {
				_ = tp.PrintfLine("221 2.0.0 bye")
			}
			return
		default:
			_ = tp.PrintfLine("501 5.5.2 cancelled")
		}
	}
}

func (f *fakeSMTPServer) sender(t *testing.T) *SMTPSender {
	t.Helper()
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 465, Username: "daily@mindfuel.example", Password: "secret", Timeout: 5 * time.Second})
	s.dialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		go f.serve(server)
		return client, nil
	}
	return s
}

func (f *fakeSMTPServer) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("fake smtp session did not finish")
	}
}

var testMessage = mail.Message{
	From:    "daily@mindfuel.example",
	To:      "a@x.com",
	Subject: "Your Daily Motivation from MindFuel",
	Body:    "Good Morning, A!\n\n\"Stay hungry.\"\n",
}

func TestSMTPSender_Send_Success(t *testing.T) {
	srv := newFakeSMTPServer()

	err := srv.sender(t).Send(context.Background(), testMessage)
	require.NoError(t, err)
	srv.wait(t)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.commands, "MAIL FROM:<daily@mindfuel.example>")
	assert.Contains(t, srv.commands, "RCPT TO:<a@x.com>")
	assert.Contains(t, srv.data, "To: a@x.com\n")
	assert.Contains(t, srv.data, "Subject: Your Daily Motivation from MindFuel\n")
	assert.Contains(t, srv.data, "\"Stay hungry.\"")
}

func TestSMTPSender_Send_DisconnectAfterAcceptedData(t *testing.T) {
	srv := newFakeSMTPServer()
	srv.hangUpOnQuit = true

	err := srv.sender(t).Send(context.Background(), testMessage)
	srv.wait(t)

	require.NoError(t, err)
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.commands, "QUIT")
	assert.Contains(t, srv.data, "\"Stay hungry.\"")
}

func TestSMTPSender_Send_AuthenticationFailure(t *testing.T) {
	srv := newFakeSMTPServer()
	srv.authReply = "535 5.7.8 Username and Password not accepted"

	err := srv.sender(t).Send(context.Background(), testMessage)
	srv.wait(t)

	assert.ErrorIs(t, err, mail.ErrAuthentication)
	assert.True(t, mail.IsTerminal(err))
}

func TestSMTPSender_Send_RecipientRejected(t *testing.T) {
	srv := newFakeSMTPServer()
	srv.rcptReply = "550 5.1.1 The email account that you tried to reach does not exist"

	err := srv.sender(t).Send(context.Background(), testMessage)
	srv.wait(t)

	assert.ErrorIs(t, err, mail.ErrRecipientRejected)
	assert.True(t, mail.IsTerminal(err))
}

func TestSMTPSender_Send_TemporaryRecipientFailureIsRetryable(t *testing.T) {
	srv := newFakeSMTPServer()
	srv.rcptReply = "451 4.3.0 Mail server temporarily rejected message"

	err := srv.sender(t).Send(context.Background(), testMessage)
	srv.wait(t)

	require.Error(t, err)
	assert.False(t, mail.IsTerminal(err))
}

func TestSMTPSender_Send_DialFailureIsRetryable(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 465})
	s.dialFunc = func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	err := s.Send(context.Background(), testMessage)

	require.Error(t, err)
	assert.False(t, mail.IsTerminal(err))
}

func TestSMTPSender_Send_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 465}).Send(ctx, testMessage)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSMTPSender_DefaultTimeout(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.gmail.com", Port: 465})

	assert.Equal(t, DefaultTimeout, s.timeout)
	assert.Equal(t, "smtp.gmail.com:465", s.addr)
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)

	raw := string(buildMessage(testMessage, now))

	headers, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, headers, "From: daily@mindfuel.example\r\n")
	assert.Contains(t, headers, "Date: Wed, 14 Oct 2026 07:00:00 +0000\r\n")
	assert.Regexp(t, `Message-ID: <[0-9a-f-]{36}@mindfuel\.example>`, headers)
	assert.Contains(t, headers, "Content-Type: text/plain; charset=UTF-8")
	assert.Equal(t, "Good Morning, A!\r\n\r\n\"Stay hungry.\"\r\n", body)
}

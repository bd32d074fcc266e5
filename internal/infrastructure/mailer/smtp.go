package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	usecase "lms/backend/internal/usecase/auth"
)

// SMTPMailer delivers mail through a single SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	// sendFunc is swapped in tests.
	sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer constructs a mailer. username may be empty for relays that
// accept unauthenticated submission.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr:     net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		from:     from,
		auth:     auth,
		sendFunc: smtp.SendMail,
	}
}

// Ensure SMTPMailer implements the Mailer interface.
var _ usecase.Mailer = (*SMTPMailer)(nil)

// Send delivers a plain-text message. The context is honored before dialing;
// net/smtp itself does not support cancellation mid-session.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.from, to, subject, body)
	if err := m.sendFunc(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

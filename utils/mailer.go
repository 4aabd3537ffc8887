package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer is the outbound email transport. The dispatcher and the account
// confirmation flow treat it as an opaque capability: a send either
// succeeds or returns a descriptive error.
type Mailer interface {
	Send(from, to, subject, body string) error
}

// SMTPMailer delivers mail through a deployment-configured SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
}

func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

func (m *SMTPMailer) Send(from, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	return nil
}

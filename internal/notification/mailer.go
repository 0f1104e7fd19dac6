package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Message is one outgoing email.
type Message struct {
	Subject string
	HTML    string
	Plain   string
	From    string
	To      []string
}

// Mailer delivers messages.  A returned error means the message was not
// accepted by the transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay, opening one connection per
// message.
type SMTPMailer struct {
	dialer *gomail.Dialer
}

// NewSMTPMailer returns a mailer for the given relay.  Empty credentials
// disable authentication.
func NewSMTPMailer(host string, port int, user, pass string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, pass)}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", msg.From)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Plain)
	gm.AddAlternative("text/html", msg.HTML)
	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

package email

import (
	"fmt"
	"os"
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// Mailer delivers digests over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailerFromEnv returns (nil, nil) when SMTP_HOST is unset, which
// disables email delivery entirely. A set but unparsable SMTP_PORT is a
// configuration error.
func NewMailerFromEnv() (*Mailer, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, nil
	}
	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		port = p
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}
	if from == "" {
		return nil, fmt.Errorf("SMTP_FROM or SMTP_USER is required when SMTP_HOST is set")
	}
	return &Mailer{
		dialer: gomail.NewDialer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD")),
		from:   from,
	}, nil
}

func (m *Mailer) Send(recipients []string, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}
	return nil
}

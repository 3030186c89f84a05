package utils

import (
	"gopkg.in/gomail.v2"
)

// Mailer sends plain-text mail through one SMTP relay.
type Mailer struct {
	From   string
	dialer *gomail.Dialer
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{From: from, dialer: gomail.NewDialer(host, port, username, password)}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}

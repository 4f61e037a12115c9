// Package mail delivers email over SMTP.
package mail

import (
	"context"
	"net/smtp"
)

// Service delivers email messages.
type Service struct {
	serverAddr string
	fromAddr   string
	auth       smtp.Auth
	mailFn     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Email delivers an email to an email address.
func (s *Service) Email(ctx context.Context, email string, subject string, body string) error {
	content := []byte(
		"From: " + s.fromAddr + "\r\n" +
			"To: " + email + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n",
	)
	return s.mailFn(s.serverAddr, s.auth, s.fromAddr, []string{email}, content)
}

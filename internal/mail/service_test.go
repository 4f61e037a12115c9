package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
)

func TestMail_SendsEmail(t *testing.T) {
	var sent []byte
	mailSvc := NewService(WithConfig(Config{
		ServerAddr: "localhost:8000",
		FromAddr:   "no-reply@example.com",
		Auth:       smtp.PlainAuth("identity", "username", "password", "host"),
		MailFn: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			sent = msg
			return nil
		},
	}))

	ctx := context.Background()
	err := mailSvc.Email(ctx, "jane@example.com", "Your code", "123456")
	if err != nil {
		t.Error("expected nil error, received:", err)
	}

	msg := string(sent)
	if !strings.Contains(msg, "Subject: Your code") {
		t.Error("message is missing the subject header")
	}
	if !strings.Contains(msg, "123456") {
		t.Error("message is missing the body")
	}
}

package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

type emailRecorder struct {
	email   string
	subject string
	body    string
	err     error
	calls   int
}

func (r *emailRecorder) Email(ctx context.Context, email string, subject string, body string) error {
	r.calls++
	r.email = email
	r.subject = subject
	r.body = body
	return r.err
}

func TestMessaging_SendComposesByPurpose(t *testing.T) {
	tt := []struct {
		name    string
		purpose auth.Purpose
		subject string
	}{
		{
			name:    "Registration message",
			purpose: auth.PurposeRegister,
			subject: "Confirm your registration",
		},
		{
			name:    "Reset message",
			purpose: auth.PurposeReset,
			subject: "Reset your password",
		},
		{
			name:    "Device message",
			purpose: auth.PurposeDevice,
			subject: "Confirm your new device",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			recorder := &emailRecorder{}
			svc := NewService(WithEmail(recorder))

			err := svc.Send(context.Background(), tc.purpose, "jane@example.com", "123456")
			if err != nil {
				t.Fatal("failed to send message:", err)
			}

			if recorder.email != "jane@example.com" {
				t.Errorf("incorrect recipient, got '%s'", recorder.email)
			}
			if recorder.subject != tc.subject {
				t.Errorf("incorrect subject, want '%s' got '%s'", tc.subject, recorder.subject)
			}
			if !strings.Contains(recorder.body, "123456") {
				t.Error("message body is missing the code")
			}
		})
	}
}

func TestMessaging_SendRejectsInvalidAddress(t *testing.T) {
	recorder := &emailRecorder{}
	svc := NewService(WithEmail(recorder))

	err := svc.Send(context.Background(), auth.PurposeRegister, "jane@", "123456")
	if code := auth.ErrorCode(err); code != auth.EInvalidField {
		t.Errorf("incorrect error code, want '%s' got '%s'", auth.EInvalidField, code)
	}
	if recorder.calls != 0 {
		t.Errorf("incorrect Email calls, want 0 got %v", recorder.calls)
	}
}

func TestMessaging_SendSurfacesDeliveryFailure(t *testing.T) {
	recorder := &emailRecorder{err: errors.New("smtp unavailable")}
	svc := NewService(WithEmail(recorder))

	err := svc.Send(context.Background(), auth.PurposeDevice, "jane@example.com", "123456")
	if err == nil {
		t.Fatal("expected delivery error, got nil")
	}
	if code := auth.ErrorCode(err); code != auth.EInternal {
		t.Errorf("incorrect error code, want '%s' got '%s'", auth.EInternal, code)
	}
}

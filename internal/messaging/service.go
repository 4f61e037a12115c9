// Package messaging composes and delivers OTP messages.
package messaging

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/contactchecker"
)

// Emailer exposes an API to send email messages.
type Emailer interface {
	Email(ctx context.Context, email string, subject string, body string) error
}

// service is an implementation of auth.MessagingService. Delivery
// is synchronous: a failed send surfaces to the caller so the
// transaction that issued the code can roll back, keeping issuance
// and delivery consistent.
type service struct {
	emailLib Emailer
}

// Send composes a purpose-specific message carrying the code and
// delivers it.
func (s *service) Send(ctx context.Context, purpose auth.Purpose, email string, code string) error {
	if !contactchecker.IsEmailValid(email) {
		return auth.ErrInvalidField("email address is invalid")
	}

	subject, body := compose(purpose, code)
	if err := s.emailLib.Email(ctx, email, subject, body); err != nil {
		return errors.Wrap(err, "cannot deliver message")
	}

	return nil
}

func compose(purpose auth.Purpose, code string) (string, string) {
	switch purpose {
	case auth.PurposeRegister:
		return "Confirm your registration",
			fmt.Sprintf("Your registration code is %s. It expires in 10 minutes.", code)
	case auth.PurposeReset:
		return "Reset your password",
			fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes. "+
				"If you did not request it, you can ignore this message.", code)
	case auth.PurposeDevice:
		return "Confirm your new device",
			fmt.Sprintf("Your device confirmation code is %s. It expires in 10 minutes.", code)
	default:
		return "Your verification code",
			fmt.Sprintf("Your verification code is %s.", code)
	}
}

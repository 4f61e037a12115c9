package loginapi

import (
	"github.com/go-kit/kit/log"

	auth "github.com/geomark/authcore"
)

// NewService returns a new implementation of auth.LoginAPI.
func NewService(options ...ConfigOption) auth.LoginAPI {
	s := service{
		logger: log.NewNopLogger(),
	}

	for _, opt := range options {
		opt(&s)
	}

	return &s
}

// ConfigOption configures the service.
type ConfigOption func(*service)

// WithLogger configures the service with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(s *service) {
		s.logger = l
	}
}

// WithRepoManager configures the service with a new RepositoryManager.
func WithRepoManager(repoMngr auth.RepositoryManager) ConfigOption {
	return func(s *service) {
		s.repoMngr = repoMngr
	}
}

// WithOTP configures the service with an OTP validator.
func WithOTP(o auth.OTPService) ConfigOption {
	return func(s *service) {
		s.otp = o
	}
}

// WithPassword configures the service with a PasswordService.
func WithPassword(p auth.PasswordService) ConfigOption {
	return func(s *service) {
		s.password = p
	}
}

// WithSession configures the service with a SessionService.
func WithSession(sessionSvc auth.SessionService) ConfigOption {
	return func(s *service) {
		s.session = sessionSvc
	}
}

// WithThrottle configures the service with a ThrottleService.
func WithThrottle(t auth.ThrottleService) ConfigOption {
	return func(s *service) {
		s.throttle = t
	}
}

// WithAudit configures the service with an AuditService.
func WithAudit(a auth.AuditService) ConfigOption {
	return func(s *service) {
		s.audit = a
	}
}

// WithMessaging configures the service with a MessagingService.
func WithMessaging(m auth.MessagingService) ConfigOption {
	return func(s *service) {
		s.message = m
	}
}

package otp

import (
	"time"

	auth "github.com/geomark/authcore"
)

// NewOTP returns a new implementation of auth.OTPService.
func NewOTP(options ...ConfigOption) auth.OTPService {
	s := service{
		codeLength:  defaultCodeLength,
		ttl:         defaultTTL,
		maxFailures: defaultMaxFailures,
	}

	for _, opt := range options {
		opt(&s)
	}

	return &s
}

// ConfigOption configures the service.
type ConfigOption func(*service)

// WithCodeLength configures the service with a code length.
func WithCodeLength(length int) ConfigOption {
	return func(s *service) {
		s.codeLength = length
	}
}

// WithTTL configures the service with a code expiry.
func WithTTL(ttl time.Duration) ConfigOption {
	return func(s *service) {
		s.ttl = ttl
	}
}

// WithMaxFailures configures the service with an attempt budget
// per token.
func WithMaxFailures(max int) ConfigOption {
	return func(s *service) {
		s.maxFailures = max
	}
}

package messaging

import (
	auth "github.com/geomark/authcore"
)

// NewService returns a new implementation of auth.MessagingService.
func NewService(options ...ConfigOption) auth.MessagingService {
	s := service{}

	for _, opt := range options {
		opt(&s)
	}

	return &s
}

// ConfigOption configures the service.
type ConfigOption func(*service)

// WithEmail configures the service with an email API.
func WithEmail(emailLib Emailer) ConfigOption {
	return func(s *service) {
		s.emailLib = emailLib
	}
}

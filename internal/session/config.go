package session

import (
	"time"

	auth "github.com/geomark/authcore"
)

// NewService returns a new implementation of auth.SessionService.
func NewService(options ...ConfigOption) auth.SessionService {
	s := service{
		ttl:          defaultTTL,
		secureCookie: true,
	}

	for _, opt := range options {
		opt(&s)
	}

	return &s
}

// ConfigOption configures the service.
type ConfigOption func(*service)

// WithDB configures the service with a redis DB.
func WithDB(db Rediser) ConfigOption {
	return func(s *service) {
		s.db = db
	}
}

// WithTTL configures the service with a session lifetime.
func WithTTL(ttl time.Duration) ConfigOption {
	return func(s *service) {
		s.ttl = ttl
	}
}

// WithCookieDomain configures the service with a cookie domain.
func WithCookieDomain(domain string) ConfigOption {
	return func(s *service) {
		s.cookieDomain = domain
	}
}

// WithInsecureCookie disables the Secure cookie attribute for
// plain HTTP development setups.
func WithInsecureCookie() ConfigOption {
	return func(s *service) {
		s.secureCookie = false
	}
}

package audit

import (
	"github.com/go-kit/kit/log"

	auth "github.com/geomark/authcore"
)

// NewService returns a new implementation of auth.AuditService.
func NewService(options ...ConfigOption) auth.AuditService {
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

// WithRepoManager configures the service with a RepositoryManager
// for non-transactional writes.
func WithRepoManager(repoMngr auth.RepositoryManager) ConfigOption {
	return func(s *service) {
		s.repoMngr = repoMngr
	}
}

// Package audit appends authentication outcomes to the durable
// event log.
package audit

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

// service is an implementation of auth.AuditService.
type service struct {
	logger   log.Logger
	repoMngr auth.RepositoryManager
}

// Record writes an event through the supplied repository. Success
// path events are recorded this way, inside the flow's transaction,
// so an event never outlives a rolled back outcome.
func (s *service) Record(ctx context.Context, repo auth.RepositoryManager, event auth.AuthEvent) error {
	if err := repo.AuthEvent().Create(ctx, &event); err != nil {
		return errors.Wrap(err, "cannot record event")
	}

	return nil
}

// Observe writes an event through the base repository, outside of
// any transaction. Failure paths use it so a rolled back flow
// still leaves a trace; a write failure is logged, never surfaced,
// so auditing can never mask the outcome the caller is reporting.
func (s *service) Observe(ctx context.Context, event auth.AuthEvent) {
	if err := s.Record(ctx, s.repoMngr, event); err != nil {
		level.Error(s.logger).Log(
			"source", "Audit.Observe",
			"message", "failed to record event",
			"event_type", event.Type,
			"error", err,
		)
	}
}

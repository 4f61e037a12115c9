package pg

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

// AuthEventRepository is an implementation of
// auth.AuthEventRepository. Events are append-only; the core never
// updates or deletes them.
type AuthEventRepository struct {
	client *Client
}

// Create persists a new AuthEvent.
func (r *AuthEventRepository) Create(ctx context.Context, event *auth.AuthEvent) error {
	eventID, err := ulid.New(ulid.Now(), r.client.entropy)
	if err != nil {
		return errors.Wrap(err, "cannot generate unique event ID")
	}

	event.ID = eventID.String()
	row := r.client.queryRowContext(
		ctx,
		r.client.eventQ["insert"],
		event.ID,
		event.Type,
		event.UserID,
		event.Email,
		event.IP,
		event.UserAgent,
		event.Detail,
	)
	return row.Scan(&event.CreatedAt)
}

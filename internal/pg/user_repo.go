package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

// UserRepository is an implementation of auth.UserRepository.
type UserRepository struct {
	client *Client
}

// ByEmail retrieves a User by their normalized email address.
func (r *UserRepository) ByEmail(ctx context.Context, email string) (*auth.User, error) {
	user := auth.User{}
	row := r.client.queryRowContext(ctx, r.client.userQ["byEmail"], auth.NormalizeEmail(email))
	err := row.Scan(
		&user.ID, &user.Email, &user.Password, &user.Role, &user.Status,
		&user.OrgID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetForUpdate retrieves a User to be updated, locking the row.
func (r *UserRepository) GetForUpdate(ctx context.Context, userID string) (*auth.User, error) {
	user := auth.User{}
	row := r.client.queryRowContext(ctx, r.client.userQ["forUpdate"], userID)
	err := row.Scan(
		&user.ID, &user.Email, &user.Password, &user.Role, &user.Status,
		&user.OrgID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Create persists a new User to local storage.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	userID, err := ulid.New(ulid.Now(), r.client.entropy)
	if err != nil {
		return errors.Wrap(err, "cannot generate unique user ID")
	}

	if user.Email == "" {
		return auth.ErrInvalidField("email cannot be empty")
	}

	user.ID = userID.String()
	user.Email = auth.NormalizeEmail(user.Email)
	row := r.client.queryRowContext(
		ctx,
		r.client.userQ["insert"],
		user.ID,
		user.Email,
		user.Password,
		user.Role,
		user.Status,
		user.OrgID,
	)
	return row.Scan(&user.CreatedAt, &user.UpdatedAt)
}

// UpdatePassword overwrites a User's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	res, err := r.client.execContext(
		ctx,
		r.client.userQ["updatePassword"],
		userID,
		passwordHash,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	updatedRows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if updatedRows != 1 {
		return fmt.Errorf("wrong number of users updated: %d", updatedRows)
	}
	return nil
}

package pg

import (
	"context"

	auth "github.com/geomark/authcore"
)

// PendingSignupRepository is an implementation of
// auth.PendingSignupRepository.
type PendingSignupRepository struct {
	client *Client
}

// Upsert stages registration data, replacing any prior staging for
// the same email.
func (r *PendingSignupRepository) Upsert(ctx context.Context, signup *auth.PendingSignup) error {
	if signup.Email == "" {
		return auth.ErrInvalidField("email cannot be empty")
	}

	signup.Email = auth.NormalizeEmail(signup.Email)
	row := r.client.queryRowContext(
		ctx,
		r.client.signupQ["upsert"],
		signup.Email,
		signup.Name,
		signup.Phone,
		signup.OrgID,
		signup.Password,
	)
	return row.Scan(&signup.CreatedAt, &signup.UpdatedAt)
}

// ByEmail retrieves staged registration data.
func (r *PendingSignupRepository) ByEmail(ctx context.Context, email string) (*auth.PendingSignup, error) {
	signup := auth.PendingSignup{}
	row := r.client.queryRowContext(ctx, r.client.signupQ["byEmail"], auth.NormalizeEmail(email))
	err := row.Scan(
		&signup.Email, &signup.Name, &signup.Phone, &signup.OrgID,
		&signup.Password, &signup.CreatedAt, &signup.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &signup, nil
}

// Delete removes staged registration data.
func (r *PendingSignupRepository) Delete(ctx context.Context, email string) error {
	_, err := r.client.execContext(ctx, r.client.signupQ["delete"], auth.NormalizeEmail(email))
	return err
}

// OrgRepository is an implementation of auth.OrgRepository over the
// organization directory table owned by the surrounding application.
type OrgRepository struct {
	client *Client
}

// ByID retrieves an Organization.
func (r *OrgRepository) ByID(ctx context.Context, orgID string) (*auth.Organization, error) {
	org := auth.Organization{}
	row := r.client.queryRowContext(ctx, r.client.orgQ["byID"], orgID)
	if err := row.Scan(&org.ID, &org.Name); err != nil {
		return nil, err
	}

	return &org, nil
}

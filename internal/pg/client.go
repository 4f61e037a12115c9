// Package pg provides PostgreSQL repositories for the
// authentication core.
package pg

import (
	"context"
	"database/sql"
	"io"

	"github.com/go-kit/kit/log"
	// pq registers itself as a driver for the database/sql package.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

// Client represents a client for PostgreSQL.
type Client struct {
	db      *sql.DB
	tx      *sql.Tx
	entropy io.Reader
	logger  log.Logger

	userRepository    *UserRepository
	userQ             map[string]string
	otpRepository     *OtpTokenRepository
	otpQ              map[string]string
	deviceRepository  *TrustedDeviceRepository
	deviceQ           map[string]string
	throttleRepo      *ThrottleRepository
	throttleQ         map[string]string
	eventRepository   *AuthEventRepository
	eventQ            map[string]string
	signupRepository  *PendingSignupRepository
	signupQ           map[string]string
	orgRepository     *OrgRepository
	orgQ              map[string]string
}

// NewWithTransaction returns a copy of the client bound to a fresh
// transaction.
func (c *Client) NewWithTransaction(ctx context.Context) (auth.RepositoryManager, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	newClient := *c
	newClient.tx = tx
	newClient.userRepository = &UserRepository{client: &newClient}
	newClient.otpRepository = &OtpTokenRepository{client: &newClient}
	newClient.deviceRepository = &TrustedDeviceRepository{client: &newClient}
	newClient.throttleRepo = &ThrottleRepository{client: &newClient}
	newClient.eventRepository = &AuthEventRepository{client: &newClient}
	newClient.signupRepository = &PendingSignupRepository{client: &newClient}
	newClient.orgRepository = &OrgRepository{client: &newClient}
	return &newClient, nil
}

// WithAtomic performs an operation within a transaction. If the operation
// is successful it commits it, otherwise the operation will be rolled back.
func (c *Client) WithAtomic(operation func() (interface{}, error)) (interface{}, error) {
	if c.tx == nil {
		return nil, errors.New("cannot complete operation outside of transaction")
	}

	entity, err := operation()

	defer func() {
		c.tx = nil
	}()

	if err == nil {
		return entity, errors.Wrap(c.tx.Commit(), "commit failed")
	}

	if dbErr := c.tx.Rollback(); dbErr != nil {
		err = errors.Wrap(err, dbErr.Error())
	}

	return nil, err
}

func (c *Client) queryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Client) execContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}
	return c.db.ExecContext(ctx, query, args...)
}

// Close closes the PostgreSQL connection.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) User() auth.UserRepository {
	return c.userRepository
}

func (c *Client) OtpToken() auth.OtpTokenRepository {
	return c.otpRepository
}

func (c *Client) TrustedDevice() auth.TrustedDeviceRepository {
	return c.deviceRepository
}

func (c *Client) Throttle() auth.ThrottleRepository {
	return c.throttleRepo
}

func (c *Client) AuthEvent() auth.AuthEventRepository {
	return c.eventRepository
}

func (c *Client) PendingSignup() auth.PendingSignupRepository {
	return c.signupRepository
}

func (c *Client) Org() auth.OrgRepository {
	return c.orgRepository
}

func (c *Client) loadQueries() {
	c.userQ = map[string]string{
		"byEmail": `
			SELECT id, email, password, role, status, org_id, created_at, updated_at
			FROM auth_user
			WHERE email = $1;
		`,
		"forUpdate": `
			SELECT id, email, password, role, status, org_id, created_at, updated_at
			FROM auth_user
			WHERE id = $1
			FOR UPDATE;
		`,
		"insert": `
			INSERT INTO auth_user (
				id, email, password, role, status, org_id
			)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at;
		`,
		"updatePassword": `
			UPDATE auth_user
			SET password=$2, updated_at=$3
			WHERE id = $1;
		`,
	}

	c.otpQ = map[string]string{
		"insert": `
			INSERT INTO otp_token (
				id, purpose, email, code_hash, expires_at, ip, user_agent
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING issued_at;
		`,
		"latestUnverified": `
			SELECT id, purpose, email, code_hash, issued_at, expires_at,
				fail_count, verified_at, ip, user_agent
			FROM otp_token
			WHERE purpose = $1
			AND email = $2
			AND verified_at IS NULL
			ORDER BY issued_at DESC
			LIMIT 1;
		`,
		"forUpdate": `
			SELECT id, purpose, email, code_hash, issued_at, expires_at,
				fail_count, verified_at, ip, user_agent
			FROM otp_token
			WHERE purpose = $1
			AND email = $2
			AND verified_at IS NULL
			ORDER BY issued_at DESC
			LIMIT 1
			FOR UPDATE;
		`,
		"invalidateUnverified": `
			DELETE FROM otp_token
			WHERE purpose = $1
			AND email = $2
			AND verified_at IS NULL;
		`,
		"incrementFail": `
			UPDATE otp_token
			SET fail_count = fail_count + 1
			WHERE id = $1
			RETURNING fail_count;
		`,
		"markVerified": `
			UPDATE otp_token
			SET verified_at = current_timestamp
			WHERE id = $1
			AND verified_at IS NULL;
		`,
		"purgeExpired": `
			DELETE FROM otp_token
			WHERE expires_at < $1;
		`,
	}

	c.deviceQ = map[string]string{
		"byFingerprint": `
			SELECT user_id, fingerprint, status, trusted_at, last_seen_at,
				last_ip, last_user_agent
			FROM trusted_device
			WHERE user_id = $1
			AND fingerprint = $2;
		`,
		"upsert": `
			INSERT INTO trusted_device (
				user_id, fingerprint, status, last_ip, last_user_agent
			)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, fingerprint) DO UPDATE SET
				status = $3,
				last_seen_at = current_timestamp,
				last_ip = $4,
				last_user_agent = $5
			RETURNING trusted_at, last_seen_at;
		`,
	}

	c.throttleQ = map[string]string{
		"bucket": `
			SELECT action, scope, bucket_key, window_started_at, hit_count, blocked_until
			FROM throttle_bucket
			WHERE action = $1
			AND scope = $2
			AND bucket_key = $3;
		`,
		"increment": `
			INSERT INTO throttle_bucket (
				action, scope, bucket_key, window_started_at, hit_count
			)
			VALUES ($1, $2, $3, current_timestamp, 1)
			ON CONFLICT (action, scope, bucket_key) DO UPDATE SET
				hit_count = CASE
					WHEN throttle_bucket.window_started_at < current_timestamp - $4::interval THEN 1
					ELSE throttle_bucket.hit_count + 1
				END,
				window_started_at = CASE
					WHEN throttle_bucket.window_started_at < current_timestamp - $4::interval THEN current_timestamp
					ELSE throttle_bucket.window_started_at
				END,
				blocked_until = CASE
					WHEN throttle_bucket.window_started_at < current_timestamp - $4::interval
						AND (throttle_bucket.blocked_until IS NULL OR throttle_bucket.blocked_until <= current_timestamp)
						THEN NULL
					ELSE throttle_bucket.blocked_until
				END
			RETURNING window_started_at, hit_count, blocked_until;
		`,
		"setBlocked": `
			UPDATE throttle_bucket
			SET blocked_until = $4
			WHERE action = $1
			AND scope = $2
			AND bucket_key = $3;
		`,
	}

	c.eventQ = map[string]string{
		"insert": `
			INSERT INTO auth_event (
				id, event_type, user_id, email, ip, user_agent, detail
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at;
		`,
	}

	c.signupQ = map[string]string{
		"upsert": `
			INSERT INTO pending_signup (
				email, name, phone, org_id, password
			)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (email) DO UPDATE SET
				name = $2,
				phone = $3,
				org_id = $4,
				password = $5,
				updated_at = current_timestamp
			RETURNING created_at, updated_at;
		`,
		"byEmail": `
			SELECT email, name, phone, org_id, password, created_at, updated_at
			FROM pending_signup
			WHERE email = $1;
		`,
		"delete": `
			DELETE FROM pending_signup
			WHERE email = $1;
		`,
	}

	c.orgQ = map[string]string{
		"byID": `
			SELECT id, name
			FROM organization
			WHERE id = $1;
		`,
	}
}

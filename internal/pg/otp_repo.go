package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

// OtpTokenRepository is an implementation of auth.OtpTokenRepository.
type OtpTokenRepository struct {
	client *Client
}

// Create persists a new OtpToken.
func (r *OtpTokenRepository) Create(ctx context.Context, token *auth.OtpToken) error {
	tokenID, err := ulid.New(ulid.Now(), r.client.entropy)
	if err != nil {
		return errors.Wrap(err, "cannot generate unique token ID")
	}

	token.ID = tokenID.String()
	row := r.client.queryRowContext(
		ctx,
		r.client.otpQ["insert"],
		token.ID,
		token.Purpose,
		token.Email,
		token.CodeHash,
		token.ExpiresAt,
		token.IP,
		token.UserAgent,
	)
	return row.Scan(&token.IssuedAt)
}

// LatestUnverified retrieves the most recent unverified token for
// a purpose and email.
func (r *OtpTokenRepository) LatestUnverified(ctx context.Context, purpose auth.Purpose, email string) (*auth.OtpToken, error) {
	return r.scanToken(ctx, r.client.otpQ["latestUnverified"], purpose, email)
}

// GetForUpdate retrieves the most recent unverified token for a
// purpose and email, locking the row so concurrent verification
// attempts serialize.
func (r *OtpTokenRepository) GetForUpdate(ctx context.Context, purpose auth.Purpose, email string) (*auth.OtpToken, error) {
	return r.scanToken(ctx, r.client.otpQ["forUpdate"], purpose, email)
}

// InvalidateUnverified removes unverified tokens for a purpose and
// email so a new issuance supersedes them.
func (r *OtpTokenRepository) InvalidateUnverified(ctx context.Context, purpose auth.Purpose, email string) error {
	_, err := r.client.execContext(ctx, r.client.otpQ["invalidateUnverified"], purpose, email)
	return err
}

// IncrementFailCount atomically increments a token's fail counter
// and returns the post-increment value.
func (r *OtpTokenRepository) IncrementFailCount(ctx context.Context, tokenID string) (int, error) {
	var count int
	row := r.client.queryRowContext(ctx, r.client.otpQ["incrementFail"], tokenID)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// MarkVerified consumes a token exactly once. A second attempt
// against the same token ID affects no rows and fails.
func (r *OtpTokenRepository) MarkVerified(ctx context.Context, tokenID string) error {
	res, err := r.client.execContext(ctx, r.client.otpQ["markVerified"], tokenID)
	if err != nil {
		return err
	}

	updatedRows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if updatedRows != 1 {
		return fmt.Errorf("wrong number of tokens verified: %d", updatedRows)
	}
	return nil
}

// PurgeExpired removes tokens whose expiry predates the cutoff.
func (r *OtpTokenRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.client.execContext(ctx, r.client.otpQ["purgeExpired"], cutoff)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *OtpTokenRepository) scanToken(ctx context.Context, query string, purpose auth.Purpose, email string) (*auth.OtpToken, error) {
	token := auth.OtpToken{}
	row := r.client.queryRowContext(ctx, query, purpose, email)
	err := row.Scan(
		&token.ID, &token.Purpose, &token.Email, &token.CodeHash,
		&token.IssuedAt, &token.ExpiresAt, &token.FailCount,
		&token.VerifiedAt, &token.IP, &token.UserAgent,
	)
	if err != nil {
		return nil, err
	}

	return &token, nil
}

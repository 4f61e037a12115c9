// Package otp manages short-lived numeric codes delivered out of
// band for registration, password reset and device confirmation.
package otp

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/crypto"
)

const (
	defaultCodeLength  = 6
	defaultTTL         = time.Minute * 10
	defaultMaxFailures = 5
)

// service is an implementation of auth.OTPService. It carries no
// storage of its own; repositories are passed per call so issuance
// and verification join the caller's transaction.
type service struct {
	codeLength  int
	ttl         time.Duration
	maxFailures int
}

// Issue supersedes any unverified token for the purpose and email
// with a freshly generated one. The plaintext code is returned
// exactly once for delivery; only its hash is persisted.
func (s *service) Issue(ctx context.Context, repo auth.RepositoryManager, purpose auth.Purpose, email string, meta auth.RequestMeta) (string, error) {
	if err := repo.OtpToken().InvalidateUnverified(ctx, purpose, email); err != nil {
		return "", errors.Wrap(err, "cannot invalidate prior tokens")
	}

	code, err := crypto.Digits(s.codeLength)
	if err != nil {
		return "", errors.Wrap(err, "cannot generate code")
	}

	codeHash, err := crypto.Hash(code)
	if err != nil {
		return "", errors.Wrap(err, "cannot hash code")
	}

	now := time.Now()
	token := auth.OtpToken{
		Purpose:   purpose,
		Email:     email,
		CodeHash:  codeHash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		IP:        sql.NullString{String: meta.IP, Valid: meta.IP != ""},
		UserAgent: sql.NullString{String: meta.UserAgent, Valid: meta.UserAgent != ""},
	}
	if err = repo.OtpToken().Create(ctx, &token); err != nil {
		return "", errors.Wrap(err, "cannot create token")
	}

	return code, nil
}

// Verify consumes the latest unverified token for the purpose and
// email if the candidate code matches. A wrong code burns one
// attempt; the attempt budget, expiry and purpose are all enforced
// here. The token row is locked for the transaction so two
// concurrent submissions of the same code cannot both consume it.
func (s *service) Verify(ctx context.Context, repo auth.RepositoryManager, purpose auth.Purpose, email string, code string) error {
	token, err := repo.OtpToken().GetForUpdate(ctx, purpose, email)
	if err == sql.ErrNoRows {
		return auth.ErrNotFound("no code was requested")
	}
	if err != nil {
		return errors.Wrap(err, "cannot retrieve token")
	}

	if token.FailCount >= s.maxFailures {
		return auth.ErrMaxAttempts("too many failed attempts, request a new code")
	}

	if time.Now().After(token.ExpiresAt) {
		return auth.ErrExpiredCode("code is expired, request a new code")
	}

	codeHash, err := crypto.Hash(code)
	if err != nil {
		return errors.Wrap(err, "cannot hash code")
	}

	if subtle.ConstantTimeCompare([]byte(codeHash), []byte(token.CodeHash)) != 1 {
		failCount, err := repo.OtpToken().IncrementFailCount(ctx, token.ID)
		if err != nil {
			return errors.Wrap(err, "cannot record failed attempt")
		}
		if failCount >= s.maxFailures {
			return auth.ErrMaxAttempts("too many failed attempts, request a new code")
		}
		return auth.ErrInvalidCode("incorrect code")
	}

	if err = repo.OtpToken().MarkVerified(ctx, token.ID); err != nil {
		return errors.Wrap(err, "cannot consume token")
	}

	return nil
}

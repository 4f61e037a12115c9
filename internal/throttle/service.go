// Package throttle provides the throttle ledger: per identity
// counting windows with temporary blocks for abusive request
// patterns.
package throttle

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

// Ledger defaults. All windows are fifteen minutes with a fifteen
// minute block on breach. Request style actions cap at five hits,
// failure style actions at ten.
var (
	RequestPolicy = auth.ThrottlePolicy{
		Window:   time.Minute * 15,
		MaxHits:  5,
		BlockFor: time.Minute * 15,
	}
	FailurePolicy = auth.ThrottlePolicy{
		Window:   time.Minute * 15,
		MaxHits:  10,
		BlockFor: time.Minute * 15,
	}
)

const throttledMsg = "too many attempts, try again later"

// service is an implementation of auth.ThrottleService. Counting
// state lives in the durable store so concurrent workers observe a
// single bucket per identity. The ledger always writes through the
// base repository, never a flow transaction: a rolled back flow
// must still keep its penalty.
type service struct {
	logger   log.Logger
	repoMngr auth.RepositoryManager
}

// AssertNotBlocked fails with a throttle error if the identity
// carries an active block. It is read-only and cheap, suited as an
// early gate before password hashing or mail dispatch.
func (s *service) AssertNotBlocked(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string) error {
	bucket, err := s.repoMngr.Throttle().Bucket(ctx, action, scope, key)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "cannot read throttle bucket")
	}

	if bucket.IsBlocked(time.Now()) {
		return auth.ErrThrottle(throttledMsg)
	}

	return nil
}

// CheckAndIncrement counts a request against the identity's window
// and fails once the policy ceiling is exceeded, stamping a block
// so every subsequent gate check fails until it lapses.
func (s *service) CheckAndIncrement(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, policy auth.ThrottlePolicy) error {
	bucket, err := s.repoMngr.Throttle().Increment(ctx, action, scope, key, policy.Window)
	if err != nil {
		return errors.Wrap(err, "cannot increment throttle bucket")
	}

	if bucket.IsBlocked(time.Now()) {
		return auth.ErrThrottle(throttledMsg)
	}

	if bucket.HitCount <= policy.MaxHits {
		return nil
	}

	until := time.Now().Add(policy.BlockFor)
	if err = s.repoMngr.Throttle().SetBlocked(ctx, action, scope, key, until); err != nil {
		return errors.Wrap(err, "cannot block throttle bucket")
	}

	return auth.ErrThrottle(throttledMsg)
}

// Hit records a penalty on a failure path. Callers do not branch
// on its result, so errors are logged and swallowed here; the
// identity is still correctly blocked on its next gate check.
func (s *service) Hit(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, policy auth.ThrottlePolicy) {
	err := s.CheckAndIncrement(ctx, action, scope, key, policy)
	if err == nil {
		return
	}

	if auth.ErrorCode(err) == auth.EThrottle {
		return
	}

	level.Error(s.logger).Log(
		"source", "Throttle.Hit",
		"message", "failed to record throttle hit",
		"action", action,
		"scope", scope,
		"error", err,
	)
}

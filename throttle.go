package authcore

import (
	"context"
	"database/sql"
	"time"
)

// ThrottleAction identifies the event class a throttle bucket counts.
// Separate actions use separate buckets, so a block on one action
// never blocks another.
type ThrottleAction string

const (
	// ActionLoginFail counts failed password logins.
	ActionLoginFail ThrottleAction = "login_fail"
	// ActionDeviceOTPRequest counts device OTP issuance requests.
	ActionDeviceOTPRequest ThrottleAction = "device_otp_request"
	// ActionDeviceOTPVerifyFail counts failed device OTP verifications.
	ActionDeviceOTPVerifyFail ThrottleAction = "device_otp_verify_fail"
	// ActionRegisterRequest counts registration OTP issuance requests.
	ActionRegisterRequest ThrottleAction = "register_request"
	// ActionRegisterVerifyFail counts failed registration verifications.
	ActionRegisterVerifyFail ThrottleAction = "register_verify_fail"
	// ActionResetRequest counts password reset OTP requests.
	ActionResetRequest ThrottleAction = "reset_request"
	// ActionResetVerifyFail counts failed password reset verifications.
	ActionResetVerifyFail ThrottleAction = "reset_verify_fail"
)

// ThrottleScope is the dimension a throttle bucket is keyed on.
// Scopes are checked independently and combined with AND semantics:
// a single blocked dimension blocks the whole action.
type ThrottleScope string

const (
	// ScopeIP keys a bucket on the client IP alone, regardless
	// of email.
	ScopeIP ThrottleScope = "ip"
	// ScopeIPEmail keys a bucket on the combined IP and email pair.
	ScopeIPEmail ThrottleScope = "ip_email"
)

// ThrottleBucket is a counting and blocking record for one
// (action, scope, key) identity.
type ThrottleBucket struct {
	Action          ThrottleAction
	Scope           ThrottleScope
	Key             string
	WindowStartedAt time.Time
	HitCount        int
	BlockedUntil    sql.NullTime
}

// IsBlocked reports whether the bucket carries an active block.
func (b *ThrottleBucket) IsBlocked(now time.Time) bool {
	return b.BlockedUntil.Valid && b.BlockedUntil.Time.After(now)
}

// ThrottlePolicy bounds a bucket: how long a counting window lasts,
// how many hits it admits, and how long a breach blocks the key.
type ThrottlePolicy struct {
	Window   time.Duration
	MaxHits  int
	BlockFor time.Duration
}

// ThrottleRepository represents a local storage for ThrottleBucket.
type ThrottleRepository interface {
	// Bucket retrieves the bucket for an identity.
	Bucket(ctx context.Context, action ThrottleAction, scope ThrottleScope, key string) (*ThrottleBucket, error)
	// Increment atomically creates or advances a bucket: a missing
	// or expired window restarts at count 1, an active window
	// increments. The post-increment state is returned. Concurrent
	// increments against the same identity are serialized by the
	// store, never lost.
	Increment(ctx context.Context, action ThrottleAction, scope ThrottleScope, key string, window time.Duration) (*ThrottleBucket, error)
	// SetBlocked stamps a block expiry onto an existing bucket.
	SetBlocked(ctx context.Context, action ThrottleAction, scope ThrottleScope, key string, until time.Time) error
}

// ThrottleService is the throttle ledger: a read-only gate plus two
// counting calls sharing the same bucket identities, so that a gate
// check and its paired failure hit serialize through one row.
type ThrottleService interface {
	// AssertNotBlocked fails if the identity carries an active
	// block. It never mutates state and is run before any
	// expensive work.
	AssertNotBlocked(ctx context.Context, action ThrottleAction, scope ThrottleScope, key string) error
	// CheckAndIncrement counts a legitimate request and fails once
	// the policy ceiling is exceeded, stamping a block.
	CheckAndIncrement(ctx context.Context, action ThrottleAction, scope ThrottleScope, key string, policy ThrottlePolicy) error
	// Hit records a penalty on a failure path with the same
	// counting and blocking semantics as CheckAndIncrement. Callers
	// branch on the failure that triggered it, not on this result.
	Hit(ctx context.Context, action ThrottleAction, scope ThrottleScope, key string, policy ThrottlePolicy)
}

// ThrottleKeyIPEmail builds the combined key for ScopeIPEmail buckets.
func ThrottleKeyIPEmail(ip string, email string) string {
	return ip + "|" + email
}

package authcore

import (
	"context"
	"database/sql"
	"time"
)

// DeviceStatus describes the trust standing of a device record.
type DeviceStatus string

// DeviceTrusted marks a (user, fingerprint) pair that completed a
// device OTP challenge.
const DeviceTrusted DeviceStatus = "TRUSTED"

// TrustedDevice records a (user, fingerprint) pair that is exempt
// from repeat device challenges. The fingerprint is a stable
// correlation key derived from request metadata, not a security
// boundary on its own.
type TrustedDevice struct {
	UserID        string
	Fingerprint   string
	Status        DeviceStatus
	TrustedAt     time.Time
	LastSeenAt    time.Time
	LastIP        sql.NullString
	LastUserAgent sql.NullString
}

// TrustedDeviceRepository represents a local storage for TrustedDevice.
type TrustedDeviceRepository interface {
	// ByFingerprint retrieves a device record for an exact
	// (user, fingerprint) pair.
	ByFingerprint(ctx context.Context, userID string, fingerprint string) (*TrustedDevice, error)
	// Upsert inserts a trusted device or refreshes last-seen
	// metadata on an existing one. TrustedAt is set once on first
	// insert and never overwritten.
	Upsert(ctx context.Context, device *TrustedDevice) error
}

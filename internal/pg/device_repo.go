package pg

import (
	"context"

	auth "github.com/geomark/authcore"
)

// TrustedDeviceRepository is an implementation of
// auth.TrustedDeviceRepository.
type TrustedDeviceRepository struct {
	client *Client
}

// ByFingerprint retrieves a device record for an exact
// (user, fingerprint) pair.
func (r *TrustedDeviceRepository) ByFingerprint(ctx context.Context, userID string, fingerprint string) (*auth.TrustedDevice, error) {
	device := auth.TrustedDevice{}
	row := r.client.queryRowContext(ctx, r.client.deviceQ["byFingerprint"], userID, fingerprint)
	err := row.Scan(
		&device.UserID, &device.Fingerprint, &device.Status, &device.TrustedAt,
		&device.LastSeenAt, &device.LastIP, &device.LastUserAgent,
	)
	if err != nil {
		return nil, err
	}

	return &device, nil
}

// Upsert inserts a trusted device or refreshes last-seen metadata
// on an existing one. The trusted_at column is written by the
// insert default only, so it survives repeat upserts.
func (r *TrustedDeviceRepository) Upsert(ctx context.Context, device *auth.TrustedDevice) error {
	if device.UserID == "" || device.Fingerprint == "" {
		return auth.ErrInvalidField("user ID and fingerprint are required")
	}

	if device.Status == "" {
		device.Status = auth.DeviceTrusted
	}

	row := r.client.queryRowContext(
		ctx,
		r.client.deviceQ["upsert"],
		device.UserID,
		device.Fingerprint,
		device.Status,
		device.LastIP,
		device.LastUserAgent,
	)
	return row.Scan(&device.TrustedAt, &device.LastSeenAt)
}

package pg

import (
	"context"
	"database/sql"
	"testing"
	"time"

	auth "github.com/geomark/authcore"
)

func TestOtpTokenRepository_ReissueSupersedes(t *testing.T) {
	c, err := NewTestClient("otp_repo_reissue_test")
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	defer DropTestDB(c, "otp_repo_reissue_test")

	ctx := context.Background()
	email := "jane@example.com"

	first := auth.OtpToken{
		Purpose:   auth.PurposeDevice,
		Email:     email,
		CodeHash:  "hash-1",
		ExpiresAt: time.Now().Add(time.Minute * 10),
	}
	if err = c.OtpToken().Create(ctx, &first); err != nil {
		t.Fatal("failed to create token:", err)
	}

	if err = c.OtpToken().InvalidateUnverified(ctx, auth.PurposeDevice, email); err != nil {
		t.Fatal("failed to invalidate tokens:", err)
	}

	second := auth.OtpToken{
		Purpose:   auth.PurposeDevice,
		Email:     email,
		CodeHash:  "hash-2",
		ExpiresAt: time.Now().Add(time.Minute * 10),
	}
	if err = c.OtpToken().Create(ctx, &second); err != nil {
		t.Fatal("failed to create token:", err)
	}

	token, err := c.OtpToken().LatestUnverified(ctx, auth.PurposeDevice, email)
	if err != nil {
		t.Fatal("failed to load token:", err)
	}
	if token.CodeHash != "hash-2" {
		t.Errorf("latest unverified token is %s, want the reissued one", token.CodeHash)
	}

	// Purposes are isolated from one another.
	if _, err = c.OtpToken().LatestUnverified(ctx, auth.PurposeReset, email); err != sql.ErrNoRows {
		t.Error("expected sql.ErrNoRows for an unrelated purpose, got:", err)
	}
}

func TestOtpTokenRepository_MarkVerifiedConsumesOnce(t *testing.T) {
	c, err := NewTestClient("otp_repo_verify_test")
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	defer DropTestDB(c, "otp_repo_verify_test")

	ctx := context.Background()
	token := auth.OtpToken{
		Purpose:   auth.PurposeReset,
		Email:     "jane@example.com",
		CodeHash:  "hash",
		ExpiresAt: time.Now().Add(time.Minute * 10),
	}
	if err = c.OtpToken().Create(ctx, &token); err != nil {
		t.Fatal("failed to create token:", err)
	}

	if err = c.OtpToken().MarkVerified(ctx, token.ID); err != nil {
		t.Fatal("failed to mark token verified:", err)
	}

	if err = c.OtpToken().MarkVerified(ctx, token.ID); err == nil {
		t.Error("expected second consumption to fail")
	}

	// A consumed token no longer appears in the unverified lookup.
	if _, err = c.OtpToken().LatestUnverified(ctx, auth.PurposeReset, token.Email); err != sql.ErrNoRows {
		t.Error("expected sql.ErrNoRows after consumption, got:", err)
	}
}

func TestOtpTokenRepository_PurgeExpired(t *testing.T) {
	c, err := NewTestClient("otp_repo_purge_test")
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	defer DropTestDB(c, "otp_repo_purge_test")

	ctx := context.Background()
	stale := auth.OtpToken{
		Purpose:   auth.PurposeRegister,
		Email:     "old@example.com",
		CodeHash:  "hash",
		ExpiresAt: time.Now().Add(-time.Hour * 48),
	}
	if err = c.OtpToken().Create(ctx, &stale); err != nil {
		t.Fatal("failed to create token:", err)
	}

	fresh := auth.OtpToken{
		Purpose:   auth.PurposeRegister,
		Email:     "new@example.com",
		CodeHash:  "hash",
		ExpiresAt: time.Now().Add(time.Minute * 10),
	}
	if err = c.OtpToken().Create(ctx, &fresh); err != nil {
		t.Fatal("failed to create token:", err)
	}

	purged, err := c.OtpToken().PurgeExpired(ctx, time.Now().Add(-time.Hour*24))
	if err != nil {
		t.Fatal("failed to purge tokens:", err)
	}
	if purged != 1 {
		t.Errorf("purged %d tokens, want 1", purged)
	}

	if _, err = c.OtpToken().LatestUnverified(ctx, auth.PurposeRegister, fresh.Email); err != nil {
		t.Error("fresh token should survive the purge:", err)
	}
}

func TestTrustedDeviceRepository_TrustedAtSetOnce(t *testing.T) {
	c, err := NewTestClient("device_repo_upsert_test")
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	defer DropTestDB(c, "device_repo_upsert_test")

	ctx := context.Background()
	user := auth.User{
		Email:    "jane@example.com",
		Password: "swordfish-hash",
		Role:     auth.RoleUser,
		Status:   auth.UserActive,
	}
	if err = c.User().Create(ctx, &user); err != nil {
		t.Fatal("failed to create user:", err)
	}

	device := auth.TrustedDevice{
		UserID:      user.ID,
		Fingerprint: "fingerprint-1",
		LastIP:      sql.NullString{String: "127.0.0.1", Valid: true},
	}
	if err = c.TrustedDevice().Upsert(ctx, &device); err != nil {
		t.Fatal("failed to upsert device:", err)
	}
	trustedAt := device.TrustedAt

	device.LastIP = sql.NullString{String: "10.0.0.1", Valid: true}
	if err = c.TrustedDevice().Upsert(ctx, &device); err != nil {
		t.Fatal("failed to upsert device:", err)
	}

	if !device.TrustedAt.Equal(trustedAt) {
		t.Error("trusted_at was overwritten on repeat upsert")
	}
	if !device.LastSeenAt.After(trustedAt) && !device.LastSeenAt.Equal(trustedAt) {
		t.Error("last_seen_at was not refreshed")
	}

	stored, err := c.TrustedDevice().ByFingerprint(ctx, user.ID, "fingerprint-1")
	if err != nil {
		t.Fatal("failed to load device:", err)
	}
	if stored.LastIP.String != "10.0.0.1" {
		t.Errorf("last_ip is %s, want refreshed value", stored.LastIP.String)
	}
}

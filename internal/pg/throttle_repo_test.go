package pg

import (
	"context"
	"database/sql"
	"testing"
	"time"

	auth "github.com/geomark/authcore"
)

func TestThrottleRepository_IncrementStartsWindow(t *testing.T) {
	c, err := NewTestClient("throttle_repo_increment_test")
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	defer DropTestDB(c, "throttle_repo_increment_test")

	ctx := context.Background()
	window := time.Minute * 15

	bucket, err := c.Throttle().Increment(ctx, auth.ActionLoginFail, auth.ScopeIP, "127.0.0.1", window)
	if err != nil {
		t.Fatal("failed to increment bucket:", err)
	}
	if bucket.HitCount != 1 {
		t.Errorf("hit count is %d, want 1", bucket.HitCount)
	}

	for i := 0; i < 3; i++ {
		bucket, err = c.Throttle().Increment(ctx, auth.ActionLoginFail, auth.ScopeIP, "127.0.0.1", window)
		if err != nil {
			t.Fatal("failed to increment bucket:", err)
		}
	}
	if bucket.HitCount != 4 {
		t.Errorf("hit count is %d, want 4", bucket.HitCount)
	}

	// Separate actions use separate buckets.
	other, err := c.Throttle().Increment(ctx, auth.ActionResetRequest, auth.ScopeIP, "127.0.0.1", window)
	if err != nil {
		t.Fatal("failed to increment bucket:", err)
	}
	if other.HitCount != 1 {
		t.Errorf("hit count is %d, want 1", other.HitCount)
	}
}

func TestThrottleRepository_ExpiredWindowResets(t *testing.T) {
	c, err := NewTestClient("throttle_repo_window_test")
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	defer DropTestDB(c, "throttle_repo_window_test")

	ctx := context.Background()

	// A zero length window means every hit lands in an expired
	// window and restarts the count.
	for i := 0; i < 3; i++ {
		bucket, err := c.Throttle().Increment(ctx, auth.ActionLoginFail, auth.ScopeIP, "10.0.0.1", 0)
		if err != nil {
			t.Fatal("failed to increment bucket:", err)
		}
		if bucket.HitCount != 1 {
			t.Errorf("hit count is %d, want 1 after window reset", bucket.HitCount)
		}
	}
}

func TestThrottleRepository_SetBlocked(t *testing.T) {
	c, err := NewTestClient("throttle_repo_block_test")
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	defer DropTestDB(c, "throttle_repo_block_test")

	ctx := context.Background()
	key := auth.ThrottleKeyIPEmail("127.0.0.1", "jane@example.com")

	if _, err = c.Throttle().Bucket(ctx, auth.ActionLoginFail, auth.ScopeIPEmail, key); err != sql.ErrNoRows {
		t.Fatal("expected sql.ErrNoRows for missing bucket, got:", err)
	}

	_, err = c.Throttle().Increment(ctx, auth.ActionLoginFail, auth.ScopeIPEmail, key, time.Minute*15)
	if err != nil {
		t.Fatal("failed to increment bucket:", err)
	}

	until := time.Now().Add(time.Minute * 15)
	if err = c.Throttle().SetBlocked(ctx, auth.ActionLoginFail, auth.ScopeIPEmail, key, until); err != nil {
		t.Fatal("failed to block bucket:", err)
	}

	bucket, err := c.Throttle().Bucket(ctx, auth.ActionLoginFail, auth.ScopeIPEmail, key)
	if err != nil {
		t.Fatal("failed to read bucket:", err)
	}
	if !bucket.IsBlocked(time.Now()) {
		t.Error("bucket should be blocked")
	}
}

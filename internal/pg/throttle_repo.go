package pg

import (
	"context"
	"fmt"
	"time"

	auth "github.com/geomark/authcore"
)

// ThrottleRepository is an implementation of auth.ThrottleRepository.
type ThrottleRepository struct {
	client *Client
}

// Bucket retrieves the bucket for an identity.
func (r *ThrottleRepository) Bucket(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string) (*auth.ThrottleBucket, error) {
	bucket := auth.ThrottleBucket{}
	row := r.client.queryRowContext(ctx, r.client.throttleQ["bucket"], action, scope, key)
	err := row.Scan(
		&bucket.Action, &bucket.Scope, &bucket.Key,
		&bucket.WindowStartedAt, &bucket.HitCount, &bucket.BlockedUntil,
	)
	if err != nil {
		return nil, err
	}

	return &bucket, nil
}

// Increment atomically creates or advances a bucket. The upsert is
// a single statement, so concurrent hits against the same identity
// serialize on the row and no update is lost. An expired window
// restarts at count 1 and drops a lapsed block.
func (r *ThrottleRepository) Increment(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, window time.Duration) (*auth.ThrottleBucket, error) {
	bucket := auth.ThrottleBucket{
		Action: action,
		Scope:  scope,
		Key:    key,
	}
	interval := fmt.Sprintf("%d seconds", int64(window.Seconds()))
	row := r.client.queryRowContext(
		ctx,
		r.client.throttleQ["increment"],
		action,
		scope,
		key,
		interval,
	)
	err := row.Scan(&bucket.WindowStartedAt, &bucket.HitCount, &bucket.BlockedUntil)
	if err != nil {
		return nil, err
	}

	return &bucket, nil
}

// SetBlocked stamps a block expiry onto an existing bucket.
func (r *ThrottleRepository) SetBlocked(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, until time.Time) error {
	res, err := r.client.execContext(ctx, r.client.throttleQ["setBlocked"], action, scope, key, until)
	if err != nil {
		return err
	}

	updatedRows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if updatedRows != 1 {
		return fmt.Errorf("wrong number of buckets blocked: %d", updatedRows)
	}
	return nil
}

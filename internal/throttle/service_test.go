package throttle

import (
	"context"
	"database/sql"
	"testing"
	"time"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/test"
)

func TestThrottle_AssertNotBlocked(t *testing.T) {
	tt := []struct {
		name     string
		bucketFn func() (*auth.ThrottleBucket, error)
		errCode  auth.ErrCode
	}{
		{
			name: "No bucket is not blocked",
			bucketFn: func() (*auth.ThrottleBucket, error) {
				return nil, sql.ErrNoRows
			},
			errCode: auth.ErrCode(""),
		},
		{
			name: "Bucket without block is not blocked",
			bucketFn: func() (*auth.ThrottleBucket, error) {
				return &auth.ThrottleBucket{
					HitCount:        3,
					WindowStartedAt: time.Now(),
				}, nil
			},
			errCode: auth.ErrCode(""),
		},
		{
			name: "Lapsed block is not blocked",
			bucketFn: func() (*auth.ThrottleBucket, error) {
				return &auth.ThrottleBucket{
					HitCount: 20,
					BlockedUntil: sql.NullTime{
						Time:  time.Now().Add(-time.Minute),
						Valid: true,
					},
				}, nil
			},
			errCode: auth.ErrCode(""),
		},
		{
			name: "Active block is blocked",
			bucketFn: func() (*auth.ThrottleBucket, error) {
				return &auth.ThrottleBucket{
					HitCount: 20,
					BlockedUntil: sql.NullTime{
						Time:  time.Now().Add(time.Minute * 10),
						Valid: true,
					},
				}, nil
			},
			errCode: auth.EThrottle,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			throttleRepo := &test.ThrottleRepository{
				BucketFn: tc.bucketFn,
			}
			repoMngr := &test.RepositoryManager{
				ThrottleFn: func() auth.ThrottleRepository {
					return throttleRepo
				},
			}
			svc := NewService(WithRepoManager(repoMngr))

			err := svc.AssertNotBlocked(
				context.Background(),
				auth.ActionLoginFail,
				auth.ScopeIP,
				"94.156.0.4",
			)
			if code := auth.ErrorCode(err); code != tc.errCode {
				t.Errorf("incorrect error code, want '%s' got '%s'", tc.errCode, code)
			}
			if throttleRepo.Calls.Bucket != 1 {
				t.Errorf("incorrect Bucket calls, want 1 got %v", throttleRepo.Calls.Bucket)
			}
		})
	}
}

func TestThrottle_CheckAndIncrement(t *testing.T) {
	tt := []struct {
		name            string
		incrementFn     func() (*auth.ThrottleBucket, error)
		errCode         auth.ErrCode
		setBlockedCalls int
	}{
		{
			name: "Counts below the ceiling",
			incrementFn: func() (*auth.ThrottleBucket, error) {
				return &auth.ThrottleBucket{
					HitCount:        RequestPolicy.MaxHits,
					WindowStartedAt: time.Now(),
				}, nil
			},
			errCode:         auth.ErrCode(""),
			setBlockedCalls: 0,
		},
		{
			name: "Blocks above the ceiling",
			incrementFn: func() (*auth.ThrottleBucket, error) {
				return &auth.ThrottleBucket{
					HitCount:        RequestPolicy.MaxHits + 1,
					WindowStartedAt: time.Now(),
				}, nil
			},
			errCode:         auth.EThrottle,
			setBlockedCalls: 1,
		},
		{
			name: "Fails fast on an already blocked bucket",
			incrementFn: func() (*auth.ThrottleBucket, error) {
				return &auth.ThrottleBucket{
					HitCount: 30,
					BlockedUntil: sql.NullTime{
						Time:  time.Now().Add(time.Minute * 5),
						Valid: true,
					},
				}, nil
			},
			errCode:         auth.EThrottle,
			setBlockedCalls: 0,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			throttleRepo := &test.ThrottleRepository{
				IncrementFn: tc.incrementFn,
			}
			repoMngr := &test.RepositoryManager{
				ThrottleFn: func() auth.ThrottleRepository {
					return throttleRepo
				},
			}
			svc := NewService(WithRepoManager(repoMngr))

			err := svc.CheckAndIncrement(
				context.Background(),
				auth.ActionResetRequest,
				auth.ScopeIPEmail,
				auth.ThrottleKeyIPEmail("94.156.0.4", "jane@example.com"),
				RequestPolicy,
			)
			if code := auth.ErrorCode(err); code != tc.errCode {
				t.Errorf("incorrect error code, want '%s' got '%s'", tc.errCode, code)
			}
			if throttleRepo.Calls.SetBlocked != tc.setBlockedCalls {
				t.Errorf("incorrect SetBlocked calls, want %v got %v",
					tc.setBlockedCalls, throttleRepo.Calls.SetBlocked)
			}
		})
	}
}

func TestThrottle_HitSwallowsErrors(t *testing.T) {
	tt := []struct {
		name        string
		incrementFn func() (*auth.ThrottleBucket, error)
	}{
		{
			name: "Swallows storage errors",
			incrementFn: func() (*auth.ThrottleBucket, error) {
				return nil, sql.ErrConnDone
			},
		},
		{
			name: "Swallows throttle errors",
			incrementFn: func() (*auth.ThrottleBucket, error) {
				return &auth.ThrottleBucket{
					HitCount:        FailurePolicy.MaxHits + 1,
					WindowStartedAt: time.Now(),
				}, nil
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			throttleRepo := &test.ThrottleRepository{
				IncrementFn: tc.incrementFn,
			}
			repoMngr := &test.RepositoryManager{
				ThrottleFn: func() auth.ThrottleRepository {
					return throttleRepo
				},
			}
			svc := NewService(WithRepoManager(repoMngr))

			svc.Hit(
				context.Background(),
				auth.ActionLoginFail,
				auth.ScopeIP,
				"94.156.0.4",
				FailurePolicy,
			)
			if throttleRepo.Calls.Increment != 1 {
				t.Errorf("incorrect Increment calls, want 1 got %v", throttleRepo.Calls.Increment)
			}
		})
	}
}

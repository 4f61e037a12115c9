package loginapi

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/password"
	"github.com/geomark/authcore/internal/session"
	"github.com/geomark/authcore/internal/test"
)

// bcrypt hash of "swordfish"
const validPassword = "$2a$10$zURdae3ekOWKobmadhWdROZLolGAIWrCEzjSfegV6Y/nsxJ1wqM2y" // nolint

func TestLoginAPI_Login(t *testing.T) {
	activeUser := func() (*auth.User, error) {
		return &auth.User{
			ID:       "user-id",
			Email:    "jane@example.com",
			Password: validPassword,
			Role:     auth.RoleUser,
			Status:   auth.UserActive,
		}, nil
	}

	tt := []struct {
		name           string
		statusCode     int
		reqBody        []byte
		errMessage     string
		respState      string
		messagingCalls int
		hitCalls       int
		establishCalls int
		challengeCalls int
		auditDetail    string
		counted        []test.ThrottleCount
		userFn         func() (*auth.User, error)
		deviceFn       func() (*auth.TrustedDevice, error)
		notBlockedFn   func(action auth.ThrottleAction, scope auth.ThrottleScope, key string) error
	}{
		{
			name:       "Non existent user failure",
			statusCode: http.StatusBadRequest,
			reqBody: []byte(`{
				"email": "jane@example.com",
				"password": "swordfish"
			}`),
			errMessage: "invalid email or password",
			hitCalls:   2,
			userFn: func() (*auth.User, error) {
				return nil, sql.ErrNoRows
			},
		},
		{
			name:       "Invalid password failure",
			statusCode: http.StatusBadRequest,
			reqBody: []byte(`{
				"email": "jane@example.com",
				"password": "not-swordfish"
			}`),
			errMessage: "invalid email or password",
			hitCalls:   2,
			userFn:     activeUser,
		},
		{
			name:       "Suspended account failure matches the generic one",
			statusCode: http.StatusBadRequest,
			reqBody: []byte(`{
				"email": "jane@example.com",
				"password": "not-swordfish"
			}`),
			errMessage:  "invalid email or password",
			hitCalls:    2,
			auditDetail: "account suspended",
			userFn: func() (*auth.User, error) {
				user, _ := activeUser()
				user.Status = auth.UserSuspended
				return user, nil
			},
		},
		{
			name:       "Invalid request failure",
			statusCode: http.StatusBadRequest,
			reqBody: []byte(`{
				"email": "jane@",
				"password": "swordfish"
			}`),
			errMessage: "email address is invalid",
		},
		{
			name:       "Blocked identity failure",
			statusCode: http.StatusTooManyRequests,
			reqBody: []byte(`{
				"email": "jane@example.com",
				"password": "swordfish"
			}`),
			errMessage: "too many attempts, try again later",
			notBlockedFn: func(action auth.ThrottleAction, scope auth.ThrottleScope, key string) error {
				return auth.ErrThrottle("too many attempts, try again later")
			},
		},
		{
			name:       "User query failure",
			statusCode: http.StatusInternalServerError,
			reqBody: []byte(`{
				"email": "jane@example.com",
				"password": "swordfish"
			}`),
			errMessage: "An internal error occurred",
			userFn: func() (*auth.User, error) {
				return nil, errors.New("db connection failed")
			},
		},
		{
			name:       "Trusted device login",
			statusCode: http.StatusOK,
			reqBody: []byte(`{
				"email": "jane@example.com",
				"password": "swordfish"
			}`),
			respState:      string(auth.SessionAuthenticated),
			establishCalls: 1,
			userFn:         activeUser,
			deviceFn: func() (*auth.TrustedDevice, error) {
				return &auth.TrustedDevice{
					UserID: "user-id",
					Status: auth.DeviceTrusted,
				}, nil
			},
		},
		{
			name:       "Unrecognized device starts a challenge",
			statusCode: http.StatusOK,
			reqBody: []byte(`{
				"email": "jane@example.com",
				"password": "swordfish"
			}`),
			respState:      string(auth.SessionPendingDevice),
			messagingCalls: 1,
			challengeCalls: 1,
			counted: []test.ThrottleCount{
				{Action: auth.ActionDeviceOTPRequest, Scope: auth.ScopeIP},
				{Action: auth.ActionDeviceOTPRequest, Scope: auth.ScopeIPEmail},
			},
			userFn: activeUser,
			deviceFn: func() (*auth.TrustedDevice, error) {
				return nil, sql.ErrNoRows
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			router := mux.NewRouter()
			userRepo := &test.UserRepository{ByEmailFn: tc.userFn}
			deviceRepo := &test.TrustedDeviceRepository{ByFingerprintFn: tc.deviceFn}
			repoMngr := &test.RepositoryManager{
				UserFn: func() auth.UserRepository {
					return userRepo
				},
				TrustedDeviceFn: func() auth.TrustedDeviceRepository {
					return deviceRepo
				},
			}
			throttleSvc := &test.ThrottleService{AssertNotBlockedFn: tc.notBlockedFn}
			auditSvc := &test.AuditService{}
			messagingSvc := &test.MessagingService{}
			sessionSvc := &test.SessionService{}
			svc := NewService(
				WithLogger(&test.Logger{}),
				WithRepoManager(repoMngr),
				WithOTP(&test.OTPService{}),
				WithPassword(password.NewPassword()),
				WithSession(sessionSvc),
				WithThrottle(throttleSvc),
				WithAudit(auditSvc),
				WithMessaging(messagingSvc),
			)

			req, err := http.NewRequest(
				"POST",
				"/api/v1/login",
				bytes.NewBuffer(tc.reqBody),
			)
			if err != nil {
				t.Fatal("failed to create request:", err)
			}

			logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
			SetupHTTPHandler(svc, router, sessionSvc, logger)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.statusCode {
				t.Errorf("incorrect status code, want %v got %v", tc.statusCode, rr.Code)
				t.Error(rr.Body.String())
			}

			if messagingSvc.Calls.Send != tc.messagingCalls {
				t.Errorf("incorrect MessagingService.Send() call count, want %v got %v",
					tc.messagingCalls, messagingSvc.Calls.Send)
			}

			if throttleSvc.Calls.Hit != tc.hitCalls {
				t.Errorf("incorrect ThrottleService.Hit() call count, want %v got %v",
					tc.hitCalls, throttleSvc.Calls.Hit)
			}

			if diff := cmp.Diff(tc.counted, throttleSvc.Counted); diff != "" {
				t.Errorf("incorrect buckets counted (-want +got):\n%s", diff)
			}

			if tc.auditDetail != "" {
				last := len(auditSvc.Events) - 1
				if last < 0 || auditSvc.Events[last].Detail != tc.auditDetail {
					t.Errorf("incorrect audit detail, want %q", tc.auditDetail)
				}
			}

			if sessionSvc.Calls.Establish != tc.establishCalls {
				t.Errorf("incorrect SessionService.Establish() call count, want %v got %v",
					tc.establishCalls, sessionSvc.Calls.Establish)
			}

			if sessionSvc.Calls.Challenge != tc.challengeCalls {
				t.Errorf("incorrect SessionService.Challenge() call count, want %v got %v",
					tc.challengeCalls, sessionSvc.Calls.Challenge)
			}

			if err = test.ValidateErrMessage(tc.errMessage, rr.Body); err != nil {
				t.Error(err)
			}

			if tc.respState != "" {
				cookies := rr.Result().Cookies()
				if len(cookies) != 1 || cookies[0].Name != session.CookieName {
					t.Error("no session cookie was issued")
				}
			}
		})
	}
}

func TestLoginAPI_ResendDeviceOTP(t *testing.T) {
	router := mux.NewRouter()
	userRepo := &test.UserRepository{
		ByEmailFn: func() (*auth.User, error) {
			return &auth.User{
				ID:     "user-id",
				Email:  "jane@example.com",
				Role:   auth.RoleUser,
				Status: auth.UserActive,
			}, nil
		},
	}
	repoMngr := &test.RepositoryManager{
		UserFn: func() auth.UserRepository {
			return userRepo
		},
	}
	throttleSvc := &test.ThrottleService{}
	messagingSvc := &test.MessagingService{}
	sessionSvc := &test.SessionService{
		GetFn: func(token string) (*auth.Session, error) {
			return &auth.Session{
				Token:        token,
				State:        auth.SessionPendingDevice,
				PendingEmail: "jane@example.com",
			}, nil
		},
	}
	svc := NewService(
		WithLogger(&test.Logger{}),
		WithRepoManager(repoMngr),
		WithOTP(&test.OTPService{}),
		WithPassword(password.NewPassword()),
		WithSession(sessionSvc),
		WithThrottle(throttleSvc),
		WithAudit(&test.AuditService{}),
		WithMessaging(messagingSvc),
	)

	req, err := http.NewRequest(
		"POST",
		"/api/v1/login/device/resend",
		bytes.NewBufferString("{}"),
	)
	if err != nil {
		t.Fatal("failed to create request:", err)
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "challenge-token"})

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	SetupHTTPHandler(svc, router, sessionSvc, logger)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("incorrect status code, want %v got %v", http.StatusOK, rr.Code)
		t.Error(rr.Body.String())
	}

	if messagingSvc.Calls.Send != 1 {
		t.Errorf("incorrect MessagingService.Send() call count, want 1 got %v",
			messagingSvc.Calls.Send)
	}

	wantCounted := []test.ThrottleCount{
		{Action: auth.ActionDeviceOTPRequest, Scope: auth.ScopeIP},
		{Action: auth.ActionDeviceOTPRequest, Scope: auth.ScopeIPEmail},
	}
	if diff := cmp.Diff(wantCounted, throttleSvc.Counted); diff != "" {
		t.Errorf("incorrect buckets counted (-want +got):\n%s", diff)
	}
}

func TestLoginAPI_VerifyDevice(t *testing.T) {
	pendingSession := func(token string) (*auth.Session, error) {
		return &auth.Session{
			Token:        token,
			State:        auth.SessionPendingDevice,
			PendingEmail: "jane@example.com",
		}, nil
	}

	tt := []struct {
		name           string
		statusCode     int
		reqBody        []byte
		errMessage     string
		hitCalls       int
		upsertCalls    int
		establishCalls int
		verifyFn       func(code string) error
	}{
		{
			name:           "Successful verification trusts the device",
			statusCode:     http.StatusOK,
			reqBody:        []byte(`{"code": "123456"}`),
			upsertCalls:    1,
			establishCalls: 1,
		},
		{
			name:       "Wrong code failure",
			statusCode: http.StatusBadRequest,
			reqBody:    []byte(`{"code": "000000"}`),
			errMessage: "incorrect code",
			hitCalls:   2,
			verifyFn: func(code string) error {
				return auth.ErrInvalidCode("incorrect code")
			},
		},
		{
			name:       "Expired code failure",
			statusCode: http.StatusBadRequest,
			reqBody:    []byte(`{"code": "123456"}`),
			errMessage: "code is expired, request a new code",
			hitCalls:   2,
			verifyFn: func(code string) error {
				return auth.ErrExpiredCode("code is expired, request a new code")
			},
		},
		{
			name:       "Missing code failure",
			statusCode: http.StatusBadRequest,
			reqBody:    []byte(`{}`),
			errMessage: "code is required",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			router := mux.NewRouter()
			userRepo := &test.UserRepository{
				ByEmailFn: func() (*auth.User, error) {
					return &auth.User{
						ID:     "user-id",
						Email:  "jane@example.com",
						Role:   auth.RoleUser,
						Status: auth.UserActive,
					}, nil
				},
			}
			deviceRepo := &test.TrustedDeviceRepository{}
			repoMngr := &test.RepositoryManager{
				UserFn: func() auth.UserRepository {
					return userRepo
				},
				TrustedDeviceFn: func() auth.TrustedDeviceRepository {
					return deviceRepo
				},
			}
			throttleSvc := &test.ThrottleService{}
			sessionSvc := &test.SessionService{GetFn: pendingSession}
			svc := NewService(
				WithLogger(&test.Logger{}),
				WithRepoManager(repoMngr),
				WithOTP(&test.OTPService{VerifyFn: tc.verifyFn}),
				WithPassword(password.NewPassword()),
				WithSession(sessionSvc),
				WithThrottle(throttleSvc),
				WithAudit(&test.AuditService{}),
				WithMessaging(&test.MessagingService{}),
			)

			req, err := http.NewRequest(
				"POST",
				"/api/v1/login/device/verify",
				bytes.NewBuffer(tc.reqBody),
			)
			if err != nil {
				t.Fatal("failed to create request:", err)
			}
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "challenge-token"})

			logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
			SetupHTTPHandler(svc, router, sessionSvc, logger)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.statusCode {
				t.Errorf("incorrect status code, want %v got %v", tc.statusCode, rr.Code)
				t.Error(rr.Body.String())
			}

			if deviceRepo.Calls.Upsert != tc.upsertCalls {
				t.Errorf("incorrect TrustedDeviceRepository.Upsert() call count, want %v got %v",
					tc.upsertCalls, deviceRepo.Calls.Upsert)
			}

			if throttleSvc.Calls.Hit != tc.hitCalls {
				t.Errorf("incorrect ThrottleService.Hit() call count, want %v got %v",
					tc.hitCalls, throttleSvc.Calls.Hit)
			}

			if sessionSvc.Calls.Establish != tc.establishCalls {
				t.Errorf("incorrect SessionService.Establish() call count, want %v got %v",
					tc.establishCalls, sessionSvc.Calls.Establish)
			}

			if err = test.ValidateErrMessage(tc.errMessage, rr.Body); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestLoginAPI_Logout(t *testing.T) {
	router := mux.NewRouter()
	sessionSvc := &test.SessionService{
		GetFn: func(token string) (*auth.Session, error) {
			return &auth.Session{
				Token:  token,
				State:  auth.SessionAuthenticated,
				UserID: "user-id",
				Role:   auth.RoleUser,
			}, nil
		},
	}
	svc := NewService(
		WithLogger(&test.Logger{}),
		WithRepoManager(&test.RepositoryManager{}),
		WithSession(sessionSvc),
		WithThrottle(&test.ThrottleService{}),
		WithAudit(&test.AuditService{}),
	)

	req, err := http.NewRequest("POST", "/api/v1/logout", bytes.NewBufferString("{}"))
	if err != nil {
		t.Fatal("failed to create request:", err)
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "session-token"})

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	SetupHTTPHandler(svc, router, sessionSvc, logger)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("incorrect status code, want %v got %v", http.StatusOK, rr.Code)
		t.Error(rr.Body.String())
	}

	if sessionSvc.Calls.Terminate != 1 {
		t.Errorf("incorrect SessionService.Terminate() call count, want 1 got %v",
			sessionSvc.Calls.Terminate)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Error("session cookie was not expired")
	}
}

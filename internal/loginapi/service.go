// Package loginapi provides an HTTP API for password authentication
// and device confirmation.
package loginapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/httpapi"
	"github.com/geomark/authcore/internal/throttle"
)

// loginFailedMsg is returned on every failed login regardless of
// cause, so responses do not reveal whether an address is
// registered.
const loginFailedMsg = "invalid email or password"

type service struct {
	logger   log.Logger
	repoMngr auth.RepositoryManager
	otp      auth.OTPService
	password auth.PasswordService
	session  auth.SessionService
	throttle auth.ThrottleService
	audit    auth.AuditService
	message  auth.MessagingService
}

// Login checks a user's credentials. A recognized device yields an
// authenticated session immediately; an unrecognized one yields a
// pending-device session and a confirmation code.
func (s *service) Login(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	req, err := decodeLoginRequest(r)
	if err != nil {
		return nil, err
	}

	meta := httpapi.GetRequestMeta(r)
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, req.Email)

	if err = s.assertLoginNotBlocked(ctx, meta, req.Email); err != nil {
		return nil, err
	}

	user, err := s.repoMngr.User().ByEmail(ctx, req.Email)
	if err == sql.ErrNoRows {
		return nil, s.failLogin(ctx, "", req.Email, meta, "unknown email")
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive() {
		return nil, s.failLogin(ctx, user.ID, req.Email, meta, "account suspended")
	}

	if err = s.password.Validate(user, req.Password); err != nil {
		return nil, s.failLogin(ctx, user.ID, req.Email, meta, "bad password")
	}

	fingerprint := httpapi.GetFingerprint(r)
	device, err := s.repoMngr.TrustedDevice().ByFingerprint(ctx, user.ID, fingerprint)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	if device != nil {
		return s.establish(ctx, w, r, user, fingerprint, meta)
	}

	// Issuance counts against both dimensions; either bucket
	// filling up stops the flow.
	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionDeviceOTPRequest, auth.ScopeIP, meta.IP, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, user.ID, req.Email, meta, err)
		return nil, err
	}
	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionDeviceOTPRequest, auth.ScopeIPEmail, pairKey, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, user.ID, req.Email, meta, err)
		return nil, err
	}

	if err = s.issueDeviceOTP(ctx, user, req.Email, meta); err != nil {
		return nil, err
	}

	return s.challenge(ctx, w, r, req.Email)
}

// ResendDeviceOTP reissues the device confirmation code for a
// pending-device session, superseding the prior code.
func (s *service) ResendDeviceOTP(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	sess, err := httpapi.GetSession(r)
	if err != nil {
		return nil, err
	}

	meta := httpapi.GetRequestMeta(r)
	email := sess.PendingEmail
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, email)

	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionDeviceOTPRequest, auth.ScopeIP, meta.IP, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, "", email, meta, err)
		return nil, err
	}
	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionDeviceOTPRequest, auth.ScopeIPEmail, pairKey, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, "", email, meta, err)
		return nil, err
	}

	user, err := s.repoMngr.User().ByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return nil, auth.ErrInvalidSession("session is expired or invalid")
	}
	if err != nil {
		return nil, err
	}

	if err = s.issueDeviceOTP(ctx, user, email, meta); err != nil {
		return nil, err
	}

	return &messageResponse{Message: "a confirmation code has been sent"}, nil
}

// VerifyDevice confirms a device OTP code. The identity under
// confirmation comes from the session's challenge slot, never from
// the request body.
func (s *service) VerifyDevice(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	sess, err := httpapi.GetSession(r)
	if err != nil {
		return nil, err
	}

	req, err := decodeVerifyDeviceRequest(r)
	if err != nil {
		return nil, err
	}

	meta := httpapi.GetRequestMeta(r)
	email := sess.PendingEmail
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, email)

	if err = s.throttle.AssertNotBlocked(
		ctx, auth.ActionDeviceOTPVerifyFail, auth.ScopeIP, meta.IP,
	); err != nil {
		s.observeBlock(ctx, "", email, meta, err)
		return nil, err
	}
	if err = s.throttle.AssertNotBlocked(
		ctx, auth.ActionDeviceOTPVerifyFail, auth.ScopeIPEmail, pairKey,
	); err != nil {
		s.observeBlock(ctx, "", email, meta, err)
		return nil, err
	}

	user, err := s.repoMngr.User().ByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return nil, auth.ErrInvalidSession("session is expired or invalid")
	}
	if err != nil {
		return nil, err
	}

	fingerprint := httpapi.GetFingerprint(r)

	txClient, err := s.repoMngr.NewWithTransaction(ctx)
	if err != nil {
		return nil, err
	}
	entity, err := txClient.WithAtomic(func() (interface{}, error) {
		// A wrong code must commit: the burned attempt on the
		// token is the penalty and has to survive this
		// transaction.
		if err := s.otp.Verify(ctx, txClient, auth.PurposeDevice, email, req.Code); err != nil {
			if auth.DomainError(err) != nil {
				return &verifyOutcome{failure: err}, nil
			}
			return nil, err
		}

		device := &auth.TrustedDevice{
			UserID:        user.ID,
			Fingerprint:   fingerprint,
			Status:        auth.DeviceTrusted,
			LastIP:        sql.NullString{String: meta.IP, Valid: meta.IP != ""},
			LastUserAgent: sql.NullString{String: meta.UserAgent, Valid: meta.UserAgent != ""},
		}
		if err := txClient.TrustedDevice().Upsert(ctx, device); err != nil {
			return nil, err
		}

		event := auth.Event(auth.EventOTPVerifyOK, user.ID, email, meta, "device confirmed")
		if err := s.audit.Record(ctx, txClient, event); err != nil {
			return nil, err
		}
		event = auth.Event(auth.EventLoginOK, user.ID, email, meta, "device login")
		if err := s.audit.Record(ctx, txClient, event); err != nil {
			return nil, err
		}

		return &verifyOutcome{}, nil
	})
	if err != nil {
		// Storage faults roll back the unit but still count
		// against the caller.
		s.failVerify(ctx, user.ID, email, meta, err)
		return nil, err
	}

	outcome := entity.(*verifyOutcome)
	if outcome.failure != nil {
		s.failVerify(ctx, user.ID, email, meta, outcome.failure)
		return nil, outcome.failure
	}

	sessionToken := sessionTokenFromRequest(r)
	newSess, err := s.session.Establish(ctx, sessionToken, user)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, s.session.Cookie(newSess))
	return &verifyDeviceResponse{State: string(newSess.State), Trusted: true}, nil
}

// Logout terminates an authenticated session.
func (s *service) Logout(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	sess, err := httpapi.GetSession(r)
	if err != nil {
		return nil, err
	}

	if err = s.session.Terminate(ctx, sess.Token); err != nil {
		return nil, err
	}

	s.audit.Observe(ctx, auth.Event(
		auth.EventLogout, sess.UserID, "", httpapi.GetRequestMeta(r), "",
	))

	http.SetCookie(w, s.session.ExpiredCookie())
	return &messageResponse{Message: "logged out"}, nil
}

// assertLoginNotBlocked gates a login attempt on both throttle
// dimensions before any password work.
func (s *service) assertLoginNotBlocked(ctx context.Context, meta auth.RequestMeta, email string) error {
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, email)

	if err := s.throttle.AssertNotBlocked(
		ctx, auth.ActionLoginFail, auth.ScopeIP, meta.IP,
	); err != nil {
		s.observeBlock(ctx, "", email, meta, err)
		return err
	}
	if err := s.throttle.AssertNotBlocked(
		ctx, auth.ActionLoginFail, auth.ScopeIPEmail, pairKey,
	); err != nil {
		s.observeBlock(ctx, "", email, meta, err)
		return err
	}

	return nil
}

// failLogin records the penalty and audit trace of a failed login
// and returns the uniform failure. The detail never leaves the
// audit log.
func (s *service) failLogin(ctx context.Context, userID string, email string, meta auth.RequestMeta, detail string) error {
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, email)

	s.throttle.Hit(ctx, auth.ActionLoginFail, auth.ScopeIP, meta.IP, throttle.FailurePolicy)
	s.throttle.Hit(ctx, auth.ActionLoginFail, auth.ScopeIPEmail, pairKey, throttle.FailurePolicy)
	s.audit.Observe(ctx, auth.Event(auth.EventLoginFail, userID, email, meta, detail))

	return auth.ErrBadRequest(loginFailedMsg)
}

// failVerify penalizes a failed device confirmation on both
// throttle dimensions and leaves an audit trace.
func (s *service) failVerify(ctx context.Context, userID string, email string, meta auth.RequestMeta, err error) {
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, email)

	s.throttle.Hit(ctx, auth.ActionDeviceOTPVerifyFail, auth.ScopeIP, meta.IP, throttle.FailurePolicy)
	s.throttle.Hit(ctx, auth.ActionDeviceOTPVerifyFail, auth.ScopeIPEmail, pairKey, throttle.FailurePolicy)
	s.audit.Observe(ctx, auth.Event(
		auth.EventDeviceOTPFail, userID, email, meta, string(auth.ErrorCode(err)),
	))
}

func (s *service) observeBlock(ctx context.Context, userID string, email string, meta auth.RequestMeta, err error) {
	s.audit.Observe(ctx, auth.Event(
		auth.EventRiskBlock, userID, email, meta, string(auth.ErrorCode(err)),
	))
}

// issueDeviceOTP supersedes any outstanding device code with a
// fresh one. Delivery is part of the transaction so a failed send
// rolls back issuance and the client can safely retry.
func (s *service) issueDeviceOTP(ctx context.Context, user *auth.User, email string, meta auth.RequestMeta) error {
	txClient, err := s.repoMngr.NewWithTransaction(ctx)
	if err != nil {
		return err
	}
	_, err = txClient.WithAtomic(func() (interface{}, error) {
		code, err := s.otp.Issue(ctx, txClient, auth.PurposeDevice, email, meta)
		if err != nil {
			return nil, err
		}

		event := auth.Event(auth.EventDeviceOTPSent, user.ID, email, meta, "")
		if err = s.audit.Record(ctx, txClient, event); err != nil {
			return nil, err
		}

		if err = s.message.Send(ctx, auth.PurposeDevice, email, code); err != nil {
			return nil, errors.Wrap(err, "cannot deliver device code")
		}

		return nil, nil
	})

	return err
}

// establish finishes a login from a recognized device. The device
// row refresh and the audit event commit together; the session is
// issued only after they have.
func (s *service) establish(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User, fingerprint string, meta auth.RequestMeta) (interface{}, error) {
	txClient, err := s.repoMngr.NewWithTransaction(ctx)
	if err != nil {
		return nil, err
	}
	_, err = txClient.WithAtomic(func() (interface{}, error) {
		device := &auth.TrustedDevice{
			UserID:        user.ID,
			Fingerprint:   fingerprint,
			Status:        auth.DeviceTrusted,
			LastIP:        sql.NullString{String: meta.IP, Valid: meta.IP != ""},
			LastUserAgent: sql.NullString{String: meta.UserAgent, Valid: meta.UserAgent != ""},
		}
		if err := txClient.TrustedDevice().Upsert(ctx, device); err != nil {
			return nil, err
		}

		event := auth.Event(auth.EventLoginOK, user.ID, user.Email, meta, "trusted device")
		return nil, s.audit.Record(ctx, txClient, event)
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.session.Establish(ctx, sessionTokenFromRequest(r), user)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, s.session.Cookie(sess))
	return &loginResponse{State: string(sess.State)}, nil
}

// challenge starts a pending-device session. The email awaiting
// confirmation lives on the server side of the session only; the
// cookie issued here carries no authenticated identity.
func (s *service) challenge(ctx context.Context, w http.ResponseWriter, r *http.Request, email string) (interface{}, error) {
	sess, err := s.session.Challenge(ctx, sessionTokenFromRequest(r), email)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, s.session.Cookie(sess))
	return &loginResponse{State: string(sess.State), NeedsDeviceVerify: true}, nil
}

// verifyOutcome distinguishes a committed verification failure
// from a successful confirmation inside one transaction.
type verifyOutcome struct {
	failure error
}

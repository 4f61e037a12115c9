// Package signupapi provides an HTTP API for email-verified
// registration.
package signupapi

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

type service struct {
	logger   log.Logger
	repoMngr auth.RepositoryManager
	otp      auth.OTPService
	password auth.PasswordService
	throttle auth.ThrottleService
	audit    auth.AuditService
	message  auth.MessagingService
}

// SignUp stages a registration and sends a confirmation code. The
// account does not exist in the user store until the code is
// verified.
func (s *service) SignUp(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	req, err := decodeSignUpRequest(r)
	if err != nil {
		return nil, err
	}

	if err = s.password.OKForUser(req.Password); err != nil {
		return nil, err
	}

	meta := httpapi.GetRequestMeta(r)
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, req.Email)

	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionRegisterRequest, auth.ScopeIP, meta.IP, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}
	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionRegisterRequest, auth.ScopeIPEmail, pairKey, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}

	_, err = s.repoMngr.User().ByEmail(ctx, req.Email)
	if err == nil {
		s.audit.Observe(ctx, auth.Event(
			auth.EventRegisterFail, "", req.Email, meta, "email taken",
		))
		return nil, auth.ErrBadRequest("email address is already registered")
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	if req.OrgID != "" {
		if _, err = s.repoMngr.Org().ByID(ctx, req.OrgID); err == sql.ErrNoRows {
			return nil, auth.ErrBadRequest("organization is invalid")
		} else if err != nil {
			return nil, err
		}
	}

	passwordHash, err := s.password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	txClient, err := s.repoMngr.NewWithTransaction(ctx)
	if err != nil {
		return nil, err
	}
	_, err = txClient.WithAtomic(func() (interface{}, error) {
		signup := &auth.PendingSignup{
			Email:    req.Email,
			Name:     req.Name,
			Phone:    req.Phone,
			OrgID:    req.OrgID,
			Password: passwordHash,
		}
		if err := txClient.PendingSignup().Upsert(ctx, signup); err != nil {
			return nil, err
		}

		code, err := s.otp.Issue(ctx, txClient, auth.PurposeRegister, req.Email, meta)
		if err != nil {
			return nil, err
		}

		event := auth.Event(auth.EventRegisterRequested, "", req.Email, meta, "")
		if err = s.audit.Record(ctx, txClient, event); err != nil {
			return nil, err
		}

		if err = s.message.Send(ctx, auth.PurposeRegister, req.Email, code); err != nil {
			return nil, errors.Wrap(err, "cannot deliver registration code")
		}

		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return &messageResponse{Message: "a confirmation code has been sent"}, nil
}

// Verify confirms the code and materializes the account from the
// staged registration data, all in one transaction.
func (s *service) Verify(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	req, err := decodeVerifyRequest(r)
	if err != nil {
		return nil, err
	}

	meta := httpapi.GetRequestMeta(r)
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, req.Email)

	if err = s.throttle.AssertNotBlocked(
		ctx, auth.ActionRegisterVerifyFail, auth.ScopeIP, meta.IP,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}
	if err = s.throttle.AssertNotBlocked(
		ctx, auth.ActionRegisterVerifyFail, auth.ScopeIPEmail, pairKey,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}

	txClient, err := s.repoMngr.NewWithTransaction(ctx)
	if err != nil {
		return nil, err
	}
	entity, err := txClient.WithAtomic(func() (interface{}, error) {
		// A wrong code must commit so the burned attempt on the
		// token survives the rollback of everything else.
		if err := s.otp.Verify(ctx, txClient, auth.PurposeRegister, req.Email, req.Code); err != nil {
			if auth.DomainError(err) != nil {
				return &verifyOutcome{failure: err}, nil
			}
			return nil, err
		}

		signup, err := txClient.PendingSignup().ByEmail(ctx, req.Email)
		if err == sql.ErrNoRows {
			// Roll back so the consumed code stays usable once
			// the registration is staged again.
			return nil, auth.ErrNotFound("no registration is in progress")
		}
		if err != nil {
			return nil, err
		}

		user := &auth.User{
			Email:    signup.Email,
			Password: signup.Password,
			Role:     auth.RoleUser,
			Status:   auth.UserActive,
			OrgID:    sql.NullString{String: signup.OrgID, Valid: signup.OrgID != ""},
		}
		if err = txClient.User().Create(ctx, user); err != nil {
			return nil, err
		}

		if err = txClient.PendingSignup().Delete(ctx, req.Email); err != nil {
			return nil, err
		}

		event := auth.Event(auth.EventRegisterOK, user.ID, req.Email, meta, "")
		if err = s.audit.Record(ctx, txClient, event); err != nil {
			return nil, err
		}

		return &verifyOutcome{}, nil
	})
	if err != nil {
		// Storage faults roll back the unit but still count
		// against the caller.
		s.penalize(ctx, req.Email, pairKey, meta, err)
		return nil, err
	}

	outcome := entity.(*verifyOutcome)
	if outcome.failure != nil {
		s.penalize(ctx, req.Email, pairKey, meta, outcome.failure)
		return nil, outcome.failure
	}

	return &messageResponse{Message: "registration complete, you can now log in"}, nil
}

func (s *service) penalize(ctx context.Context, email string, pairKey string, meta auth.RequestMeta, err error) {
	s.throttle.Hit(ctx, auth.ActionRegisterVerifyFail, auth.ScopeIP, meta.IP, throttle.FailurePolicy)
	s.throttle.Hit(ctx, auth.ActionRegisterVerifyFail, auth.ScopeIPEmail, pairKey, throttle.FailurePolicy)
	s.audit.Observe(ctx, auth.Event(
		auth.EventRegisterFail, "", email, meta, string(auth.ErrorCode(err)),
	))
}

func (s *service) observeBlock(ctx context.Context, email string, meta auth.RequestMeta, err error) {
	s.audit.Observe(ctx, auth.Event(
		auth.EventRiskBlock, "", email, meta, string(auth.ErrorCode(err)),
	))
}

// verifyOutcome distinguishes a committed verification failure
// from a successful confirmation inside one transaction.
type verifyOutcome struct {
	failure error
}

// Package resetapi provides an HTTP API for email-verified
// password resets.
package resetapi

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

// resetAckMsg is returned on every reset request regardless of
// whether the address belongs to an account, so responses do not
// reveal which addresses are registered.
const resetAckMsg = "if the address exists, a reset code has been sent"

type service struct {
	logger   log.Logger
	repoMngr auth.RepositoryManager
	otp      auth.OTPService
	password auth.PasswordService
	throttle auth.ThrottleService
	audit    auth.AuditService
	message  auth.MessagingService
}

// Request sends a reset code if the address belongs to an active
// account. The acknowledgment is byte-identical either way; only
// the audit log records the difference.
func (s *service) Request(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	req, err := decodeRequestRequest(r)
	if err != nil {
		return nil, err
	}

	meta := httpapi.GetRequestMeta(r)
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, req.Email)

	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionResetRequest, auth.ScopeIP, meta.IP, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}
	if err = s.throttle.CheckAndIncrement(
		ctx, auth.ActionResetRequest, auth.ScopeIPEmail, pairKey, throttle.RequestPolicy,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}

	user, err := s.repoMngr.User().ByEmail(ctx, req.Email)
	if err == sql.ErrNoRows {
		s.audit.Observe(ctx, auth.Event(
			auth.EventResetFail, "", req.Email, meta, "unknown email",
		))
		return &messageResponse{Message: resetAckMsg}, nil
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive() {
		s.audit.Observe(ctx, auth.Event(
			auth.EventResetFail, user.ID, req.Email, meta, "account suspended",
		))
		return &messageResponse{Message: resetAckMsg}, nil
	}

	txClient, err := s.repoMngr.NewWithTransaction(ctx)
	if err != nil {
		return nil, err
	}
	_, err = txClient.WithAtomic(func() (interface{}, error) {
		code, err := s.otp.Issue(ctx, txClient, auth.PurposeReset, req.Email, meta)
		if err != nil {
			return nil, err
		}

		event := auth.Event(auth.EventResetOTPSent, user.ID, req.Email, meta, "")
		if err = s.audit.Record(ctx, txClient, event); err != nil {
			return nil, err
		}

		if err = s.message.Send(ctx, auth.PurposeReset, req.Email, code); err != nil {
			return nil, errors.Wrap(err, "cannot deliver reset code")
		}

		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return &messageResponse{Message: resetAckMsg}, nil
}

// Verify confirms the code and overwrites the password hash, all
// in one transaction.
func (s *service) Verify(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	req, err := decodeVerifyRequest(r)
	if err != nil {
		return nil, err
	}

	if err = s.password.OKForUser(req.Password); err != nil {
		return nil, err
	}

	meta := httpapi.GetRequestMeta(r)
	pairKey := auth.ThrottleKeyIPEmail(meta.IP, req.Email)

	if err = s.throttle.AssertNotBlocked(
		ctx, auth.ActionResetVerifyFail, auth.ScopeIP, meta.IP,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}
	if err = s.throttle.AssertNotBlocked(
		ctx, auth.ActionResetVerifyFail, auth.ScopeIPEmail, pairKey,
	); err != nil {
		s.observeBlock(ctx, req.Email, meta, err)
		return nil, err
	}

	user, err := s.repoMngr.User().ByEmail(ctx, req.Email)
	if err == sql.ErrNoRows {
		// An unknown address never has an outstanding code, so
		// this is indistinguishable from a never-requested reset.
		failure := auth.ErrNotFound("no code was requested")
		s.penalize(ctx, "", req.Email, pairKey, meta, failure)
		return nil, failure
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive() {
		failure := auth.ErrBadRequest("account is suspended")
		s.penalize(ctx, user.ID, req.Email, pairKey, meta, failure)
		return nil, failure
	}

	passwordHash, err := s.password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	txClient, err := s.repoMngr.NewWithTransaction(ctx)
	if err != nil {
		return nil, err
	}
	entity, err := txClient.WithAtomic(func() (interface{}, error) {
		// A wrong code must commit so the burned attempt on the
		// token survives the rollback of everything else.
		if err := s.otp.Verify(ctx, txClient, auth.PurposeReset, req.Email, req.Code); err != nil {
			if auth.DomainError(err) != nil {
				return &verifyOutcome{failure: err}, nil
			}
			return nil, err
		}

		// Lock the row so a concurrent reset or status change
		// serializes against the overwrite.
		if _, err := txClient.User().GetForUpdate(ctx, user.ID); err != nil {
			return nil, err
		}

		if err := txClient.User().UpdatePassword(ctx, user.ID, passwordHash); err != nil {
			return nil, err
		}

		event := auth.Event(auth.EventResetOK, user.ID, req.Email, meta, "")
		if err := s.audit.Record(ctx, txClient, event); err != nil {
			return nil, err
		}

		return &verifyOutcome{}, nil
	})
	if err != nil {
		// Storage faults roll back the unit but still count
		// against the caller.
		s.penalize(ctx, user.ID, req.Email, pairKey, meta, err)
		return nil, err
	}

	outcome := entity.(*verifyOutcome)
	if outcome.failure != nil {
		s.penalize(ctx, user.ID, req.Email, pairKey, meta, outcome.failure)
		return nil, outcome.failure
	}

	return &messageResponse{Message: "password updated, you can now log in"}, nil
}

func (s *service) penalize(ctx context.Context, userID string, email string, pairKey string, meta auth.RequestMeta, err error) {
	s.throttle.Hit(ctx, auth.ActionResetVerifyFail, auth.ScopeIP, meta.IP, throttle.FailurePolicy)
	s.throttle.Hit(ctx, auth.ActionResetVerifyFail, auth.ScopeIPEmail, pairKey, throttle.FailurePolicy)
	s.audit.Observe(ctx, auth.Event(
		auth.EventResetFail, userID, email, meta, string(auth.ErrorCode(err)),
	))
}

func (s *service) observeBlock(ctx context.Context, email string, meta auth.RequestMeta, err error) {
	s.audit.Observe(ctx, auth.Event(
		auth.EventRiskBlock, "", email, meta, string(auth.ErrorCode(err)),
	))
}

// verifyOutcome distinguishes a committed verification failure
// from a successful reset inside one transaction.
type verifyOutcome struct {
	failure error
}

package authcore

import (
	"context"
	"net/http"
)

// SessionState describes how far a session has progressed through
// authentication.
type SessionState string

const (
	// SessionAuthenticated sessions carry a fully verified identity.
	SessionAuthenticated SessionState = "authenticated"
	// SessionPendingDevice sessions have passed the password check
	// but still owe a device OTP verification. They carry no
	// authenticated identity.
	SessionPendingDevice SessionState = "pending_device"
)

// Session is the server-side state bound to an opaque, rotated
// session token. The token itself is never persisted; the store is
// keyed by its hash.
type Session struct {
	// Token is the opaque value handed to the client. It is set on
	// creation and never serialized into the store.
	Token string `json:"-"`

	State SessionState `json:"state"`

	// Claims of an authenticated session.
	UserID string `json:"user_id,omitempty"`
	Role   Role   `json:"role,omitempty"`
	OrgID  string `json:"org_id,omitempty"`

	// PendingEmail is the challenge slot of a pending-device
	// session. It is the single source of identity for device OTP
	// verification; client-supplied identity is never trusted there.
	PendingEmail string `json:"pending_email,omitempty"`

	IssuedAt int64 `json:"issued_at"`
}

// IsAuthenticated reports whether the session carries a verified
// identity.
func (s *Session) IsAuthenticated() bool {
	return s.State == SessionAuthenticated && s.UserID != ""
}

// SessionService establishes, inspects and terminates server-side
// sessions. Every state change rotates the session token so a
// pre-authentication token is never carried into an authenticated
// session.
type SessionService interface {
	// Establish creates an authenticated session for a user and
	// discards the prior token, if any. It must run only after all
	// durable writes of a flow have committed.
	Establish(ctx context.Context, priorToken string, user *User) (*Session, error)
	// Challenge creates a pending-device session holding the email
	// awaiting OTP confirmation, discarding the prior token.
	Challenge(ctx context.Context, priorToken string, email string) (*Session, error)
	// Get resolves a client token to its session.
	Get(ctx context.Context, token string) (*Session, error)
	// Terminate discards a session token and all claims bound to it.
	Terminate(ctx context.Context, token string) error
	// Cookie returns the cookie carrying a session token.
	Cookie(session *Session) *http.Cookie
	// ExpiredCookie returns a cookie that clears the session token
	// on the client.
	ExpiredCookie() *http.Cookie
}

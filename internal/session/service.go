// Package session issues and tracks server-side sessions backed
// by redis. Clients hold an opaque token; all claims live on the
// server keyed by the token's hash, and every state change rotates
// the token so a pre-authentication value never survives into an
// authenticated session.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/crypto"
)

const (
	// CookieName is the session cookie issued to clients.
	CookieName = "SESSIONID"

	tokenLength = 40
	keyPrefix   = "session:"

	defaultTTL = time.Hour * 24 * 7
)

// Rediser is the redis client surface the service depends on.
type Rediser interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// service is an implementation of auth.SessionService.
type service struct {
	db           Rediser
	ttl          time.Duration
	secureCookie bool
	cookieDomain string
}

// Establish creates an authenticated session for a user and
// discards the prior token, if any.
func (s *service) Establish(ctx context.Context, priorToken string, user *auth.User) (*auth.Session, error) {
	session := auth.Session{
		State:  auth.SessionAuthenticated,
		UserID: user.ID,
		Role:   user.Role,
	}
	if user.OrgID.Valid {
		session.OrgID = user.OrgID.String
	}

	return s.rotate(ctx, priorToken, &session)
}

// Challenge creates a pending-device session holding the email
// awaiting OTP confirmation, discarding the prior token. The
// session carries no authenticated identity.
func (s *service) Challenge(ctx context.Context, priorToken string, email string) (*auth.Session, error) {
	session := auth.Session{
		State:        auth.SessionPendingDevice,
		PendingEmail: email,
	}

	return s.rotate(ctx, priorToken, &session)
}

// Get resolves a client token to its session.
func (s *service) Get(ctx context.Context, token string) (*auth.Session, error) {
	key, err := storageKey(token)
	if err != nil {
		return nil, err
	}

	b, err := s.db.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, auth.ErrInvalidSession("session is expired or invalid")
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot retrieve session")
	}

	var session auth.Session
	if err = json.Unmarshal(b, &session); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal session")
	}

	session.Token = token
	return &session, nil
}

// Terminate discards a session token and all claims bound to it.
func (s *service) Terminate(ctx context.Context, token string) error {
	key, err := storageKey(token)
	if err != nil {
		return err
	}

	if err = s.db.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "cannot remove session")
	}

	return nil
}

// Cookie returns the cookie carrying a session token.
func (s *service) Cookie(session *auth.Session) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    session.Token,
		MaxAge:   int(s.ttl / time.Second),
		Domain:   s.cookieDomain,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredCookie returns a cookie that clears the session token on
// the client.
func (s *service) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		MaxAge:   -1,
		Domain:   s.cookieDomain,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}

// rotate persists a session under a freshly generated token and
// removes the prior one. The prior token is removed last so a
// storage failure can never leave the client with no session at
// all.
func (s *service) rotate(ctx context.Context, priorToken string, session *auth.Session) (*auth.Session, error) {
	token, err := crypto.String(tokenLength)
	if err != nil {
		return nil, errors.Wrap(err, "cannot generate session token")
	}

	session.Token = token
	session.IssuedAt = time.Now().Unix()

	key, err := storageKey(token)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(session)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal session")
	}

	if err = s.db.Set(ctx, key, b, s.ttl).Err(); err != nil {
		return nil, errors.Wrap(err, "cannot persist session")
	}

	if priorToken != "" {
		priorKey, err := storageKey(priorToken)
		if err != nil {
			return nil, err
		}
		if err = s.db.Del(ctx, priorKey).Err(); err != nil {
			return nil, errors.Wrap(err, "cannot remove prior session")
		}
	}

	return session, nil
}

// storageKey derives the redis key for a token. The raw token is
// never used as a key so a storage dump does not expose usable
// session credentials.
func storageKey(token string) (string, error) {
	h, err := crypto.Hash(token)
	if err != nil {
		return "", errors.Wrap(err, "cannot hash session token")
	}

	return keyPrefix + h, nil
}

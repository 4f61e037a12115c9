package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-kit/kit/log"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/session"
)

type contextKey string

const sessionContextKey contextKey = "session"

// ThrottleEveryOneSec is a coarse request ceiling of one request
// per second per client, applied before any handler work. The
// durable throttle ledger is the real abuse control; this only
// sheds mechanical floods.
const ThrottleEveryOneSec = 1

// SessionMiddleware resolves the session cookie and requires the
// session to be in an expected state. The session is stored on the
// request context for the wrapped handler.
func SessionMiddleware(jsonHandler JSONAPIHandler, sessionSvc auth.SessionService, state auth.SessionState) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		ctx := r.Context()

		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			return nil, auth.ErrInvalidSession("user is not authenticated")
		}

		sess, err := sessionSvc.Get(ctx, cookie.Value)
		if err != nil {
			return nil, err
		}

		if sess.State != state {
			return nil, auth.ErrInvalidSession("session state is not supported")
		}

		ctxWithSession := context.WithValue(ctx, sessionContextKey, sess)
		r = r.WithContext(ctxWithSession)

		return jsonHandler(w, r)
	}
}

// GetSession retrieves a session from context. It is only
// available on handlers wrapped in SessionMiddleware.
func GetSession(r *http.Request) (*auth.Session, error) {
	sess, ok := r.Context().Value(sessionContextKey).(*auth.Session)
	if !ok {
		return nil, auth.ErrInvalidSession("user is not authenticated")
	}
	return sess, nil
}

// RateLimitMiddleware applies a coarse per-client request ceiling
// before a handler runs.
func RateLimitMiddleware(jsonHandler JSONAPIHandler, lmt *limiter.Limiter) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		if httpError := tollbooth.LimitByRequest(lmt, w, r); httpError != nil {
			return nil, auth.ErrThrottle("requests are throttled, try again later")
		}
		return jsonHandler(w, r)
	}
}

// ErrorLoggingMiddleware logs any errors that are returned before
// being parsed to an HTTP response.
func ErrorLoggingMiddleware(jsonHandler JSONAPIHandler, source string, log log.Logger) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		response, err := jsonHandler(w, r)
		if err != nil {
			log.Log(
				"source", source,
				"error", err.Error(),
				"stack_trace", fmt.Sprintf("%+v", err),
			)
		}
		return response, err
	}
}

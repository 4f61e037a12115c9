package httpapi

import (
	"net"
	"net/http"
	"strings"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/crypto"
)

// GetIP retrieves the client IP of a request. The left-most
// X-Forwarded-For entry wins when a proxy supplied one.
func GetIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetUserAgent retrieves the client user agent of a request.
func GetUserAgent(r *http.Request) string {
	return r.UserAgent()
}

// GetRequestMeta collects the client metadata recorded with
// security relevant writes.
func GetRequestMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		IP:        GetIP(r),
		UserAgent: GetUserAgent(r),
	}
}

// GetFingerprint derives the device correlation key of a request.
func GetFingerprint(r *http.Request) string {
	return crypto.Fingerprint(GetUserAgent(r))
}

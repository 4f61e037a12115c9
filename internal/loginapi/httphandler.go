package loginapi

import (
	"net/http"

	"github.com/didip/tollbooth/v6"
	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/httpapi"
)

// SetupHTTPHandler converts a service's public methods
// to http handlers.
func SetupHTTPHandler(svc auth.LoginAPI, router *mux.Router, sessionSvc auth.SessionService, logger log.Logger) {
	var handler httpapi.JSONAPIHandler
	{
		handler = svc.Login
		handler = httpapi.RateLimitMiddleware(handler, tollbooth.NewLimiter(
			httpapi.ThrottleEveryOneSec, nil,
		))
		handler = httpapi.ErrorLoggingMiddleware(handler, "LoginAPI.Login", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/login", httpHandler).Methods("Post")
	}
	{
		handler = httpapi.SessionMiddleware(svc.ResendDeviceOTP, sessionSvc, auth.SessionPendingDevice)
		handler = httpapi.RateLimitMiddleware(handler, tollbooth.NewLimiter(
			httpapi.ThrottleEveryOneSec, nil,
		))
		handler = httpapi.ErrorLoggingMiddleware(handler, "LoginAPI.ResendDeviceOTP", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/login/device/resend", httpHandler).Methods("Post")
	}
	{
		handler = httpapi.SessionMiddleware(svc.VerifyDevice, sessionSvc, auth.SessionPendingDevice)
		handler = httpapi.RateLimitMiddleware(handler, tollbooth.NewLimiter(
			httpapi.ThrottleEveryOneSec, nil,
		))
		handler = httpapi.ErrorLoggingMiddleware(handler, "LoginAPI.VerifyDevice", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/login/device/verify", httpHandler).Methods("Post")
	}
	{
		handler = httpapi.SessionMiddleware(svc.Logout, sessionSvc, auth.SessionAuthenticated)
		handler = httpapi.ErrorLoggingMiddleware(handler, "LoginAPI.Logout", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/logout", httpHandler).Methods("Post")
	}
}

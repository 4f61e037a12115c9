package loginapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/contactchecker"
	"github.com/geomark/authcore/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyDeviceRequest struct {
	Code string `json:"code"`
}

type loginResponse struct {
	State             string `json:"state"`
	NeedsDeviceVerify bool   `json:"needs_device_verify"`
}

type verifyDeviceResponse struct {
	State   string `json:"state"`
	Trusted bool   `json:"trusted"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func decodeLoginRequest(r *http.Request) (*loginRequest, error) {
	var (
		req loginRequest
		err error
	)

	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, auth.ErrBadRequest("invalid JSON request"))
	}

	req.Email = auth.NormalizeEmail(req.Email)
	if !contactchecker.IsEmailValid(req.Email) {
		return nil, auth.ErrBadRequest("email address is invalid")
	}

	if req.Password == "" {
		return nil, auth.ErrBadRequest("password is required")
	}

	return &req, nil
}

func decodeVerifyDeviceRequest(r *http.Request) (*verifyDeviceRequest, error) {
	var (
		req verifyDeviceRequest
		err error
	)

	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, auth.ErrBadRequest("invalid JSON request"))
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return nil, auth.ErrBadRequest("code is required")
	}

	return &req, nil
}

// sessionTokenFromRequest returns the client's current session
// token, if any, so a new session can rotate it away.
func sessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

package resetapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/contactchecker"
)

type requestRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func decodeRequestRequest(r *http.Request) (*requestRequest, error) {
	var (
		req requestRequest
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

	return &req, nil
}

func decodeVerifyRequest(r *http.Request) (*verifyRequest, error) {
	var (
		req verifyRequest
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

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return nil, auth.ErrBadRequest("code is required")
	}

	if req.Password != req.ConfirmPassword {
		return nil, auth.ErrBadRequest("passwords do not match")
	}

	return &req, nil
}

package signupapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/contactchecker"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	OrgID    string `json:"org_id"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func decodeSignUpRequest(r *http.Request) (*signUpRequest, error) {
	var (
		req signUpRequest
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

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, auth.ErrBadRequest("name is required")
	}

	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone != "" && !contactchecker.IsPhoneValid(req.Phone) {
		return nil, auth.ErrBadRequest("phone number is invalid")
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

	return &req, nil
}

package authcore

import "net/http"

// LoginAPI provides HTTP handlers for password authentication and
// device confirmation.
type LoginAPI interface {
	// Login checks a user's credentials and either establishes an
	// authenticated session or starts a device confirmation
	// challenge.
	Login(w http.ResponseWriter, r *http.Request) (interface{}, error)
	// ResendDeviceOTP reissues the device confirmation code for a
	// pending-device session.
	ResendDeviceOTP(w http.ResponseWriter, r *http.Request) (interface{}, error)
	// VerifyDevice confirms a device OTP code, marks the device
	// trusted and establishes an authenticated session.
	VerifyDevice(w http.ResponseWriter, r *http.Request) (interface{}, error)
	// Logout terminates an authenticated session.
	Logout(w http.ResponseWriter, r *http.Request) (interface{}, error)
}

// SignUpAPI provides HTTP handlers for email-verified registration.
type SignUpAPI interface {
	// SignUp stages a registration and sends a confirmation code.
	SignUp(w http.ResponseWriter, r *http.Request) (interface{}, error)
	// Verify confirms the code and materializes the account.
	Verify(w http.ResponseWriter, r *http.Request) (interface{}, error)
}

// ResetAPI provides HTTP handlers for email-verified password
// resets.
type ResetAPI interface {
	// Request sends a reset code if the address belongs to an
	// account, acknowledging identically either way.
	Request(w http.ResponseWriter, r *http.Request) (interface{}, error)
	// Verify confirms the code and overwrites the password.
	Verify(w http.ResponseWriter, r *http.Request) (interface{}, error)
}

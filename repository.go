package authcore

import "context"

// RepositoryManager manages repositories stored in storage
// and provides a transactional boundary around multi-step
// mutations.
type RepositoryManager interface {
	// NewWithTransaction returns a new manager bound to a fresh
	// transaction.
	NewWithTransaction(ctx context.Context) (RepositoryManager, error)
	// WithAtomic runs an operation inside the manager's
	// transaction, committing on success and rolling back on error.
	WithAtomic(operation func() (interface{}, error)) (interface{}, error)

	User() UserRepository
	OtpToken() OtpTokenRepository
	TrustedDevice() TrustedDeviceRepository
	Throttle() ThrottleRepository
	AuthEvent() AuthEventRepository
	PendingSignup() PendingSignupRepository
	Org() OrgRepository
}

// MessagingService requests delivery of an OTP code to an address.
// The physical transport is an external concern; the core only
// requires that a failed send surfaces an error so the issuing
// transaction can roll back.
type MessagingService interface {
	// Send delivers a purpose-specific message carrying the code.
	Send(ctx context.Context, purpose Purpose, email string, code string) error
}

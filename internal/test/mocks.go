// Package test provides hand rolled mocks for the authentication
// core's interfaces.
package test

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
)

// OTPCode is a commonly used test code.
const OTPCode = "123456"

// RepositoryManager mocks auth.RepositoryManager.
type RepositoryManager struct {
	NewWithTransactionFn func() (auth.RepositoryManager, error)
	WithAtomicFn         func(operation func() (interface{}, error)) (interface{}, error)
	UserFn               func() auth.UserRepository
	OtpTokenFn           func() auth.OtpTokenRepository
	TrustedDeviceFn      func() auth.TrustedDeviceRepository
	ThrottleFn           func() auth.ThrottleRepository
	AuthEventFn          func() auth.AuthEventRepository
	PendingSignupFn      func() auth.PendingSignupRepository
	OrgFn                func() auth.OrgRepository
	Calls                struct {
		NewWithTransaction int
		WithAtomic         int
		User               int
		OtpToken           int
		TrustedDevice      int
		Throttle           int
		AuthEvent          int
		PendingSignup      int
		Org                int
	}
}

// NewWithTransaction mock. By default the manager acts as its own
// transaction so flows can be exercised without a database.
func (m *RepositoryManager) NewWithTransaction(ctx context.Context) (auth.RepositoryManager, error) {
	m.Calls.NewWithTransaction++
	if m.NewWithTransactionFn != nil {
		return m.NewWithTransactionFn()
	}
	return m, nil
}

// WithAtomic mock. By default it runs the operation directly.
func (m *RepositoryManager) WithAtomic(operation func() (interface{}, error)) (interface{}, error) {
	m.Calls.WithAtomic++
	if m.WithAtomicFn != nil {
		return m.WithAtomicFn(operation)
	}
	return operation()
}

// User mock.
func (m *RepositoryManager) User() auth.UserRepository {
	m.Calls.User++
	if m.UserFn != nil {
		return m.UserFn()
	}
	return &UserRepository{}
}

// OtpToken mock.
func (m *RepositoryManager) OtpToken() auth.OtpTokenRepository {
	m.Calls.OtpToken++
	if m.OtpTokenFn != nil {
		return m.OtpTokenFn()
	}
	return &OtpTokenRepository{}
}

// TrustedDevice mock.
func (m *RepositoryManager) TrustedDevice() auth.TrustedDeviceRepository {
	m.Calls.TrustedDevice++
	if m.TrustedDeviceFn != nil {
		return m.TrustedDeviceFn()
	}
	return &TrustedDeviceRepository{}
}

// Throttle mock.
func (m *RepositoryManager) Throttle() auth.ThrottleRepository {
	m.Calls.Throttle++
	if m.ThrottleFn != nil {
		return m.ThrottleFn()
	}
	return &ThrottleRepository{}
}

// AuthEvent mock.
func (m *RepositoryManager) AuthEvent() auth.AuthEventRepository {
	m.Calls.AuthEvent++
	if m.AuthEventFn != nil {
		return m.AuthEventFn()
	}
	return &AuthEventRepository{}
}

// PendingSignup mock.
func (m *RepositoryManager) PendingSignup() auth.PendingSignupRepository {
	m.Calls.PendingSignup++
	if m.PendingSignupFn != nil {
		return m.PendingSignupFn()
	}
	return &PendingSignupRepository{}
}

// Org mock.
func (m *RepositoryManager) Org() auth.OrgRepository {
	m.Calls.Org++
	if m.OrgFn != nil {
		return m.OrgFn()
	}
	return &OrgRepository{}
}

// UserRepository mocks auth.UserRepository.
type UserRepository struct {
	ByEmailFn        func() (*auth.User, error)
	GetForUpdateFn   func() (*auth.User, error)
	CreateFn         func() error
	UpdatePasswordFn func() error
	Calls            struct {
		ByEmail        int
		GetForUpdate   int
		Create         int
		UpdatePassword int
	}
}

// ByEmail mock.
func (m *UserRepository) ByEmail(ctx context.Context, email string) (*auth.User, error) {
	m.Calls.ByEmail++
	if m.ByEmailFn != nil {
		return m.ByEmailFn()
	}
	return nil, errors.New("no mock response configured")
}

// GetForUpdate mock.
func (m *UserRepository) GetForUpdate(ctx context.Context, userID string) (*auth.User, error) {
	m.Calls.GetForUpdate++
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn()
	}
	return nil, errors.New("no mock response configured")
}

// Create mock.
func (m *UserRepository) Create(ctx context.Context, u *auth.User) error {
	m.Calls.Create++
	if m.CreateFn != nil {
		return m.CreateFn()
	}
	return nil
}

// UpdatePassword mock.
func (m *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	m.Calls.UpdatePassword++
	if m.UpdatePasswordFn != nil {
		return m.UpdatePasswordFn()
	}
	return nil
}

// OtpTokenRepository mocks auth.OtpTokenRepository.
type OtpTokenRepository struct {
	CreateFn               func(token *auth.OtpToken) error
	LatestUnverifiedFn     func() (*auth.OtpToken, error)
	GetForUpdateFn         func() (*auth.OtpToken, error)
	InvalidateUnverifiedFn func() error
	IncrementFailCountFn   func() (int, error)
	MarkVerifiedFn         func() error
	PurgeExpiredFn         func() (int64, error)
	Calls                  struct {
		Create               int
		LatestUnverified     int
		GetForUpdate         int
		InvalidateUnverified int
		IncrementFailCount   int
		MarkVerified         int
		PurgeExpired         int
	}
}

// Create mock.
func (m *OtpTokenRepository) Create(ctx context.Context, token *auth.OtpToken) error {
	m.Calls.Create++
	if m.CreateFn != nil {
		return m.CreateFn(token)
	}
	return nil
}

// LatestUnverified mock.
func (m *OtpTokenRepository) LatestUnverified(ctx context.Context, purpose auth.Purpose, email string) (*auth.OtpToken, error) {
	m.Calls.LatestUnverified++
	if m.LatestUnverifiedFn != nil {
		return m.LatestUnverifiedFn()
	}
	return nil, errors.New("no mock response configured")
}

// GetForUpdate mock.
func (m *OtpTokenRepository) GetForUpdate(ctx context.Context, purpose auth.Purpose, email string) (*auth.OtpToken, error) {
	m.Calls.GetForUpdate++
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn()
	}
	return nil, errors.New("no mock response configured")
}

// InvalidateUnverified mock.
func (m *OtpTokenRepository) InvalidateUnverified(ctx context.Context, purpose auth.Purpose, email string) error {
	m.Calls.InvalidateUnverified++
	if m.InvalidateUnverifiedFn != nil {
		return m.InvalidateUnverifiedFn()
	}
	return nil
}

// IncrementFailCount mock.
func (m *OtpTokenRepository) IncrementFailCount(ctx context.Context, tokenID string) (int, error) {
	m.Calls.IncrementFailCount++
	if m.IncrementFailCountFn != nil {
		return m.IncrementFailCountFn()
	}
	return 1, nil
}

// MarkVerified mock.
func (m *OtpTokenRepository) MarkVerified(ctx context.Context, tokenID string) error {
	m.Calls.MarkVerified++
	if m.MarkVerifiedFn != nil {
		return m.MarkVerifiedFn()
	}
	return nil
}

// PurgeExpired mock.
func (m *OtpTokenRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.Calls.PurgeExpired++
	if m.PurgeExpiredFn != nil {
		return m.PurgeExpiredFn()
	}
	return 0, nil
}

// TrustedDeviceRepository mocks auth.TrustedDeviceRepository.
type TrustedDeviceRepository struct {
	ByFingerprintFn func() (*auth.TrustedDevice, error)
	UpsertFn        func(device *auth.TrustedDevice) error
	Calls           struct {
		ByFingerprint int
		Upsert        int
	}
}

// ByFingerprint mock.
func (m *TrustedDeviceRepository) ByFingerprint(ctx context.Context, userID string, fingerprint string) (*auth.TrustedDevice, error) {
	m.Calls.ByFingerprint++
	if m.ByFingerprintFn != nil {
		return m.ByFingerprintFn()
	}
	return nil, errors.New("no mock response configured")
}

// Upsert mock.
func (m *TrustedDeviceRepository) Upsert(ctx context.Context, device *auth.TrustedDevice) error {
	m.Calls.Upsert++
	if m.UpsertFn != nil {
		return m.UpsertFn(device)
	}
	return nil
}

// ThrottleRepository mocks auth.ThrottleRepository.
type ThrottleRepository struct {
	BucketFn     func() (*auth.ThrottleBucket, error)
	IncrementFn  func() (*auth.ThrottleBucket, error)
	SetBlockedFn func() error
	Calls        struct {
		Bucket     int
		Increment  int
		SetBlocked int
	}
}

// Bucket mock.
func (m *ThrottleRepository) Bucket(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string) (*auth.ThrottleBucket, error) {
	m.Calls.Bucket++
	if m.BucketFn != nil {
		return m.BucketFn()
	}
	return nil, errors.New("no mock response configured")
}

// Increment mock.
func (m *ThrottleRepository) Increment(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, window time.Duration) (*auth.ThrottleBucket, error) {
	m.Calls.Increment++
	if m.IncrementFn != nil {
		return m.IncrementFn()
	}
	return nil, errors.New("no mock response configured")
}

// SetBlocked mock.
func (m *ThrottleRepository) SetBlocked(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, until time.Time) error {
	m.Calls.SetBlocked++
	if m.SetBlockedFn != nil {
		return m.SetBlockedFn()
	}
	return nil
}

// AuthEventRepository mocks auth.AuthEventRepository.
type AuthEventRepository struct {
	CreateFn func(event *auth.AuthEvent) error
	Events   []auth.AuthEvent
	Calls    struct {
		Create int
	}
}

// Create mock. Events are collected for assertions.
func (m *AuthEventRepository) Create(ctx context.Context, event *auth.AuthEvent) error {
	m.Calls.Create++
	m.Events = append(m.Events, *event)
	if m.CreateFn != nil {
		return m.CreateFn(event)
	}
	return nil
}

// PendingSignupRepository mocks auth.PendingSignupRepository.
type PendingSignupRepository struct {
	UpsertFn  func(signup *auth.PendingSignup) error
	ByEmailFn func() (*auth.PendingSignup, error)
	DeleteFn  func() error
	Calls     struct {
		Upsert  int
		ByEmail int
		Delete  int
	}
}

// Upsert mock.
func (m *PendingSignupRepository) Upsert(ctx context.Context, signup *auth.PendingSignup) error {
	m.Calls.Upsert++
	if m.UpsertFn != nil {
		return m.UpsertFn(signup)
	}
	return nil
}

// ByEmail mock.
func (m *PendingSignupRepository) ByEmail(ctx context.Context, email string) (*auth.PendingSignup, error) {
	m.Calls.ByEmail++
	if m.ByEmailFn != nil {
		return m.ByEmailFn()
	}
	return nil, errors.New("no mock response configured")
}

// Delete mock.
func (m *PendingSignupRepository) Delete(ctx context.Context, email string) error {
	m.Calls.Delete++
	if m.DeleteFn != nil {
		return m.DeleteFn()
	}
	return nil
}

// OrgRepository mocks auth.OrgRepository.
type OrgRepository struct {
	ByIDFn func() (*auth.Organization, error)
	Calls  struct {
		ByID int
	}
}

// ByID mock.
func (m *OrgRepository) ByID(ctx context.Context, orgID string) (*auth.Organization, error) {
	m.Calls.ByID++
	if m.ByIDFn != nil {
		return m.ByIDFn()
	}
	return nil, errors.New("no mock response configured")
}

// ThrottleService mocks auth.ThrottleService.
// ThrottleCount identifies one bucket a ThrottleService mock
// counted a request against.
type ThrottleCount struct {
	Action auth.ThrottleAction
	Scope  auth.ThrottleScope
}

type ThrottleService struct {
	AssertNotBlockedFn  func(action auth.ThrottleAction, scope auth.ThrottleScope, key string) error
	CheckAndIncrementFn func(action auth.ThrottleAction, scope auth.ThrottleScope, key string) error
	HitFn               func(action auth.ThrottleAction, scope auth.ThrottleScope, key string)
	Counted             []ThrottleCount
	Calls               struct {
		AssertNotBlocked  int
		CheckAndIncrement int
		Hit               int
	}
}

// AssertNotBlocked mock.
func (m *ThrottleService) AssertNotBlocked(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string) error {
	m.Calls.AssertNotBlocked++
	if m.AssertNotBlockedFn != nil {
		return m.AssertNotBlockedFn(action, scope, key)
	}
	return nil
}

// CheckAndIncrement mock.
func (m *ThrottleService) CheckAndIncrement(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, policy auth.ThrottlePolicy) error {
	m.Calls.CheckAndIncrement++
	m.Counted = append(m.Counted, ThrottleCount{Action: action, Scope: scope})
	if m.CheckAndIncrementFn != nil {
		return m.CheckAndIncrementFn(action, scope, key)
	}
	return nil
}

// Hit mock.
func (m *ThrottleService) Hit(ctx context.Context, action auth.ThrottleAction, scope auth.ThrottleScope, key string, policy auth.ThrottlePolicy) {
	m.Calls.Hit++
	if m.HitFn != nil {
		m.HitFn(action, scope, key)
	}
}

// OTPService mocks auth.OTPService.
type OTPService struct {
	IssueFn  func() (string, error)
	VerifyFn func(code string) error
	Calls    struct {
		Issue  int
		Verify int
	}
}

// Issue mock.
func (m *OTPService) Issue(ctx context.Context, repo auth.RepositoryManager, purpose auth.Purpose, email string, meta auth.RequestMeta) (string, error) {
	m.Calls.Issue++
	if m.IssueFn != nil {
		return m.IssueFn()
	}
	return OTPCode, nil
}

// Verify mock.
func (m *OTPService) Verify(ctx context.Context, repo auth.RepositoryManager, purpose auth.Purpose, email string, code string) error {
	m.Calls.Verify++
	if m.VerifyFn != nil {
		return m.VerifyFn(code)
	}
	return nil
}

// SessionService mocks auth.SessionService.
type SessionService struct {
	EstablishFn func(priorToken string, user *auth.User) (*auth.Session, error)
	ChallengeFn func(priorToken string, email string) (*auth.Session, error)
	GetFn       func(token string) (*auth.Session, error)
	TerminateFn func(token string) error
	Calls       struct {
		Establish int
		Challenge int
		Get       int
		Terminate int
	}
}

// Establish mock.
func (m *SessionService) Establish(ctx context.Context, priorToken string, user *auth.User) (*auth.Session, error) {
	m.Calls.Establish++
	if m.EstablishFn != nil {
		return m.EstablishFn(priorToken, user)
	}
	return &auth.Session{
		Token:  "session-token",
		State:  auth.SessionAuthenticated,
		UserID: user.ID,
		Role:   user.Role,
	}, nil
}

// Challenge mock.
func (m *SessionService) Challenge(ctx context.Context, priorToken string, email string) (*auth.Session, error) {
	m.Calls.Challenge++
	if m.ChallengeFn != nil {
		return m.ChallengeFn(priorToken, email)
	}
	return &auth.Session{
		Token:        "challenge-token",
		State:        auth.SessionPendingDevice,
		PendingEmail: email,
	}, nil
}

// Get mock.
func (m *SessionService) Get(ctx context.Context, token string) (*auth.Session, error) {
	m.Calls.Get++
	if m.GetFn != nil {
		return m.GetFn(token)
	}
	return nil, auth.ErrInvalidSession("session is expired or invalid")
}

// Terminate mock.
func (m *SessionService) Terminate(ctx context.Context, token string) error {
	m.Calls.Terminate++
	if m.TerminateFn != nil {
		return m.TerminateFn(token)
	}
	return nil
}

// Cookie mock.
func (m *SessionService) Cookie(session *auth.Session) *http.Cookie {
	return &http.Cookie{
		Name:  "SESSIONID",
		Value: session.Token,
		Path:  "/",
	}
}

// ExpiredCookie mock.
func (m *SessionService) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:   "SESSIONID",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}
}

// PasswordService mocks auth.PasswordService.
type PasswordService struct {
	HashFn      func(password string) (string, error)
	ValidateFn  func(user *auth.User, password string) error
	OKForUserFn func(password string) error
	Calls       struct {
		Hash      int
		Validate  int
		OKForUser int
	}
}

// Hash mock.
func (m *PasswordService) Hash(password string) (string, error) {
	m.Calls.Hash++
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	return "hashed-" + password, nil
}

// Validate mock.
func (m *PasswordService) Validate(user *auth.User, password string) error {
	m.Calls.Validate++
	if m.ValidateFn != nil {
		return m.ValidateFn(user, password)
	}
	return nil
}

// OKForUser mock.
func (m *PasswordService) OKForUser(password string) error {
	m.Calls.OKForUser++
	if m.OKForUserFn != nil {
		return m.OKForUserFn(password)
	}
	return nil
}

// MessagingService mocks auth.MessagingService.
type MessagingService struct {
	SendFn func(purpose auth.Purpose, email string, code string) error
	Calls  struct {
		Send int
	}
}

// Send mock.
func (m *MessagingService) Send(ctx context.Context, purpose auth.Purpose, email string, code string) error {
	m.Calls.Send++
	if m.SendFn != nil {
		return m.SendFn(purpose, email, code)
	}
	return nil
}

// AuditService mocks auth.AuditService.
type AuditService struct {
	RecordFn func(event auth.AuthEvent) error
	Events   []auth.AuthEvent
	Calls    struct {
		Record  int
		Observe int
	}
}

// Record mock. Events are collected for assertions.
func (m *AuditService) Record(ctx context.Context, repo auth.RepositoryManager, event auth.AuthEvent) error {
	m.Calls.Record++
	m.Events = append(m.Events, event)
	if m.RecordFn != nil {
		return m.RecordFn(event)
	}
	return nil
}

// Observe mock. Events are collected for assertions.
func (m *AuditService) Observe(ctx context.Context, event auth.AuthEvent) {
	m.Calls.Observe++
	m.Events = append(m.Events, event)
}

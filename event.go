package authcore

import (
	"context"
	"database/sql"
	"time"
)

// EventType enumerates auditable authentication outcomes.
type EventType string

const (
	EventLoginOK           EventType = "LOGIN_OK"
	EventLoginFail         EventType = "LOGIN_FAIL"
	EventDeviceOTPSent     EventType = "DEVICE_OTP_SENT"
	EventDeviceOTPFail     EventType = "DEVICE_OTP_FAIL"
	EventOTPVerifyOK       EventType = "OTP_VERIFY_OK"
	EventOTPVerifyFail     EventType = "OTP_VERIFY_FAIL"
	EventRegisterRequested EventType = "REGISTER_REQUESTED"
	EventRegisterOK        EventType = "REGISTER_OK"
	EventRegisterFail      EventType = "REGISTER_FAIL"
	EventResetOTPSent      EventType = "RESET_OTP_SENT"
	EventResetOK           EventType = "RESET_OK"
	EventResetFail         EventType = "RESET_FAIL"
	EventRiskBlock         EventType = "RISK_BLOCK"
	EventLogout            EventType = "LOGOUT"
)

// AuthEvent is one append-only audit row. The core never updates
// or deletes events; retention is an external housekeeping concern.
type AuthEvent struct {
	ID        string
	Type      EventType
	UserID    sql.NullString
	Email     sql.NullString
	IP        sql.NullString
	UserAgent sql.NullString
	Detail    string
	CreatedAt time.Time
}

// AuthEventRepository represents an append-only storage for AuthEvent.
type AuthEventRepository interface {
	// Create persists a new AuthEvent.
	Create(ctx context.Context, event *AuthEvent) error
}

// AuditService records authentication outcomes.
type AuditService interface {
	// Record writes an event through the supplied repository so it
	// can participate in a flow's transaction.
	Record(ctx context.Context, repo RepositoryManager, event AuthEvent) error
	// Observe writes an event outside of any transaction, best
	// effort. Failure-path audits use it so a rolled back flow
	// still leaves a trace.
	Observe(ctx context.Context, event AuthEvent)
}

// Event builds an AuthEvent from common optional fields.
func Event(eventType EventType, userID string, email string, meta RequestMeta, detail string) AuthEvent {
	return AuthEvent{
		Type:      eventType,
		UserID:    nullString(userID),
		Email:     nullString(email),
		IP:        nullString(meta.IP),
		UserAgent: nullString(meta.UserAgent),
		Detail:    detail,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

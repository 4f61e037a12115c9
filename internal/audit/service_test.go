package audit

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	auth "github.com/geomark/authcore"
	"github.com/geomark/authcore/internal/test"
)

func TestAudit_RecordUsesSuppliedRepo(t *testing.T) {
	baseEvents := &test.AuthEventRepository{}
	base := &test.RepositoryManager{
		AuthEventFn: func() auth.AuthEventRepository {
			return baseEvents
		},
	}
	txEvents := &test.AuthEventRepository{}
	tx := &test.RepositoryManager{
		AuthEventFn: func() auth.AuthEventRepository {
			return txEvents
		},
	}
	svc := NewService(WithRepoManager(base))

	event := auth.Event(auth.EventLoginOK, "user-id", "jane@example.com",
		auth.RequestMeta{IP: "94.156.0.4"}, "")
	if err := svc.Record(context.Background(), tx, event); err != nil {
		t.Fatal("failed to record event:", err)
	}

	if txEvents.Calls.Create != 1 {
		t.Errorf("incorrect transactional Create calls, want 1 got %v", txEvents.Calls.Create)
	}
	if baseEvents.Calls.Create != 0 {
		t.Errorf("incorrect base Create calls, want 0 got %v", baseEvents.Calls.Create)
	}
	if txEvents.Events[0].Type != auth.EventLoginOK {
		t.Errorf("incorrect event type, got '%s'", txEvents.Events[0].Type)
	}
}

func TestAudit_ObserveSwallowsErrors(t *testing.T) {
	events := &test.AuthEventRepository{
		CreateFn: func(event *auth.AuthEvent) error {
			return errors.New("whoops")
		},
	}
	base := &test.RepositoryManager{
		AuthEventFn: func() auth.AuthEventRepository {
			return events
		},
	}
	svc := NewService(WithRepoManager(base))

	svc.Observe(context.Background(), auth.Event(
		auth.EventLoginFail, "", "jane@example.com", auth.RequestMeta{}, "bad password",
	))

	if events.Calls.Create != 1 {
		t.Errorf("incorrect Create calls, want 1 got %v", events.Calls.Create)
	}
}

package passAuth

import (
	"context"
	"testing"
	"time"
)

func newAuditedEngine(t *testing.T, repo Repository) (*Engine, *ChannelSink) {
	t.Helper()

	sink := NewChannelSink(64)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	engine, err := New().
		WithConfig(cfg).
		WithRepository(repo).
		WithAuditSink(sink).
		WithClock(newTestClock().Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, sink
}

func nextAuditEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditSignUpAndSignIn(t *testing.T) {
	engine, sink := newAuditedEngine(t, newMockRepository())
	ctx := WithUserAgent(WithClientIP(context.Background(), "192.0.2.1"), "test-agent")

	user, err := engine.SignUp(ctx, SignUpAttributes{Name: "alice"}, nil)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	ev := nextAuditEvent(t, sink)
	if ev.EventType != "signup_success" || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.UserID != user.ID || ev.UserName != "alice" {
		t.Fatalf("expected alice in event, got %+v", ev)
	}
	if ev.IP != "192.0.2.1" || ev.UserAgent != "test-agent" {
		t.Fatalf("expected request context in event, got %+v", ev)
	}
	if ev.ID == "" {
		t.Fatal("expected event id")
	}

	_, err = engine.SignIn(ctx, &user, "not-the-placeholder", nil)
	requireCode(t, err, CodeInvalidPassword)

	ev = nextAuditEvent(t, sink)
	if ev.EventType != "signin_failure" || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Error != string(CodeInvalidPassword) {
		t.Fatalf("expected failure code in event, got %q", ev.Error)
	}
	if ev.Metadata["op"] != "SignIn" {
		t.Fatalf("expected op metadata, got %v", ev.Metadata)
	}
}

func TestAuditGuestFailureHasNoUser(t *testing.T) {
	engine, sink := newAuditedEngine(t, newMockRepository())

	_, err := engine.GenerateResetToken(context.Background(), "nobody", nil)
	requireCode(t, err, CodeUserNotFound)

	ev := nextAuditEvent(t, sink)
	if ev.EventType != "reset_token_failure" {
		t.Fatalf("unexpected event type %q", ev.EventType)
	}
	if ev.UserID != 0 || ev.UserName != "" {
		t.Fatalf("guest must not be recorded as a user, got %+v", ev)
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	sink := NewChannelSink(1)
	engine, err := New().
		WithConfig(testConfig()).
		WithRepository(newMockRepository()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	_ = engine.SignOut(context.Background(), nil)
	engine.Close()

	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("expected no drops")
	}
}

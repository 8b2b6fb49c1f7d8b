package passAuth

import (
	"testing"
	"time"

	"github.com/MrEthical07/passAuth/expiry"
)

func TestSessionExpiredBoundary(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	alice := &UserRecord{ID: 1, Name: "alice"}

	tests := []struct {
		name      string
		snapshot  SessionSnapshot
		wantLapse bool
	}{
		{"expires now", SessionSnapshot{CurrentUser: alice, ExpiresAt: now}, true},
		{"expires in one second", SessionSnapshot{CurrentUser: alice, ExpiresAt: now.Add(time.Second)}, false},
		{"expired yesterday", SessionSnapshot{CurrentUser: alice, ExpiresAt: now.Add(-24 * time.Hour)}, true},
		{"missing expiry", SessionSnapshot{CurrentUser: alice}, true},
		{"nil user", SessionSnapshot{ExpiresAt: now.Add(-time.Hour)}, false},
		{"guest with past expiry", SessionSnapshot{CurrentUser: &UserRecord{ID: 0, Name: GuestName}, ExpiresAt: now.Add(-time.Hour)}, false},
		{"guest without expiry", SessionSnapshot{CurrentUser: &UserRecord{ID: -1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SessionExpiredAt(tt.snapshot, now); got != tt.wantLapse {
				t.Fatalf("SessionExpiredAt = %v, want %v", got, tt.wantLapse)
			}
		})
	}
}

func TestUpdateSessionExpiry(t *testing.T) {
	clock := newTestClock()
	engine := newTestEngine(t, newMockRepository(), clock)
	alice := &UserRecord{ID: 1, Name: "alice"}

	got := engine.UpdateSessionExpiry(SessionSnapshot{CurrentUser: alice})
	if got.CurrentUser == nil || got.CurrentUser.ID != 1 {
		t.Fatalf("expected alice kept, got %+v", got.CurrentUser)
	}
	if want := clock.Now().Add(DefaultSessionExpiry); !got.ExpiresAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got.ExpiresAt)
	}
	if engine.SessionExpired(got) {
		t.Fatal("fresh session must not be expired")
	}

	clock.Advance(DefaultSessionExpiry)
	if !engine.SessionExpired(got) {
		t.Fatal("session must be expired at the boundary")
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricSessionRefreshed] != 1 || snap.Counters[MetricSessionExpired] != 1 {
		t.Fatalf("unexpected session metrics %v", snap.Counters)
	}
}

func TestUpdateSessionExpiryGuest(t *testing.T) {
	clock := newTestClock()
	engine := newTestEngine(t, newMockRepository(), clock)

	got := engine.UpdateSessionExpiry(SessionSnapshot{})
	if !IsGuest(got.CurrentUser) || got.CurrentUser == nil || got.CurrentUser.Name != GuestName {
		t.Fatalf("expected explicit guest, got %+v", got.CurrentUser)
	}
	if want := clock.Now().Add(expiry.GuestHorizon); !got.ExpiresAt.Equal(want) {
		t.Fatalf("expected far future expiry, got %v", got.ExpiresAt)
	}
	if got.ExpiresAt.Year()-clock.Now().Year() < 99 {
		t.Fatal("guest horizon must be about a century")
	}
}

func TestUpdateSessionExpiryDoesNotAliasInput(t *testing.T) {
	alice := &UserRecord{ID: 1, Name: "alice", Profile: map[string]string{"k": "v"}}
	got := UpdateSessionExpiryAt(SessionSnapshot{CurrentUser: alice}, time.Now(), time.Minute)
	got.CurrentUser.Profile["k"] = "changed"
	if alice.Profile["k"] != "v" {
		t.Fatal("snapshot must not alias the caller's user")
	}
}

package passAuth

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/passAuth/expiry"
)

func TestSignUpCreatesMustResetAccount(t *testing.T) {
	repo := newMockRepository()
	clock := newTestClock()
	engine := newTestEngine(t, repo, clock)

	user, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "alice"}, nil)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if user.ID < 1 || user.IsGuest() {
		t.Fatalf("expected registered user, got id %d", user.ID)
	}
	if user.PasswordHash == "" {
		t.Fatal("expected placeholder password hash")
	}
	if user.Token == "" || user.TokenExpiresAt.IsZero() {
		t.Fatal("expected reset token and expiry")
	}
	if want := clock.Now().Add(DefaultResetExpiry); !user.TokenExpiresAt.Equal(want) {
		t.Fatalf("expected token expiry %v, got %v", want, user.TokenExpiresAt)
	}
	if !user.CreatedAt.Equal(clock.Now()) || !user.UpdatedAt.Equal(clock.Now()) {
		t.Fatal("expected timestamps at clock time")
	}
	if repo.count() != 1 {
		t.Fatalf("expected one record, got %d", repo.count())
	}

	// The placeholder password is unknown, so nothing signs in.
	for _, pw := range []string{"", "alice", user.Token} {
		if _, err := engine.SignIn(context.Background(), &user, pw, nil); CodeOf(err) != CodeInvalidPassword {
			t.Fatalf("expected invalid_password for %q, got %v", pw, err)
		}
	}
}

func TestSignUpPlaceholderHashesDiffer(t *testing.T) {
	repo := newMockRepository()
	engine := newTestEngine(t, repo, newTestClock())
	ctx := context.Background()

	a, err := engine.SignUp(ctx, SignUpAttributes{Name: "a"}, nil)
	if err != nil {
		t.Fatalf("SignUp a: %v", err)
	}
	b, err := engine.SignUp(ctx, SignUpAttributes{Name: "b"}, nil)
	if err != nil {
		t.Fatalf("SignUp b: %v", err)
	}
	if a.PasswordHash == b.PasswordHash {
		t.Fatal("expected distinct placeholder hashes")
	}
	if a.Token == b.Token {
		t.Fatal("expected distinct reset tokens")
	}
}

func TestSignUpDuplicateNameRejected(t *testing.T) {
	repo := newMockRepository()
	engine := newTestEngine(t, repo, newTestClock())
	ctx := context.Background()

	if _, err := engine.SignUp(ctx, SignUpAttributes{Name: "alice"}, nil); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}
	_, err := engine.SignUp(ctx, SignUpAttributes{Name: "alice"}, nil)
	f := requireCode(t, err, CodeUserAlreadyExists)
	if f.UserName != "alice" {
		t.Fatalf("expected UserName alice, got %q", f.UserName)
	}
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatal("expected errors.Is ErrUserAlreadyExists")
	}
	if repo.count() != 1 {
		t.Fatalf("expected exactly one record, got %d", repo.count())
	}
	if got := engine.MetricsSnapshot().Counters[MetricSignUpDuplicate]; got != 1 {
		t.Fatalf("expected duplicate metric 1, got %d", got)
	}
}

func TestSignUpRaceLostAtCreateMapsToAlreadyExists(t *testing.T) {
	repo := newMockRepository()
	repo.createErr = ErrDuplicateName
	engine := newTestEngine(t, repo, newTestClock())

	_, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "alice"}, nil)
	requireCode(t, err, CodeUserAlreadyExists)
}

func TestSignUpRejectsAuthenticatedCaller(t *testing.T) {
	repo := newMockRepository()
	engine := newTestEngine(t, repo, newTestClock())

	current := UserRecord{ID: 7, Name: "bob"}
	_, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "alice"}, &current)
	requireCode(t, err, CodeCurrentUserExists)
	if repo.calls() != 0 {
		t.Fatalf("expected no repository access, got %d calls", repo.calls())
	}
}

func TestSignUpGuestCurrentUserAllowed(t *testing.T) {
	repo := newMockRepository()
	engine := newTestEngine(t, repo, newTestClock())

	guest := Guest()
	if _, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "alice"}, &guest); err != nil {
		t.Fatalf("expected guest to sign up, got %v", err)
	}
}

func TestSignUpCreateFailure(t *testing.T) {
	repo := newMockRepository()
	cause := errors.New("disk full")
	repo.createErr = cause
	engine := newTestEngine(t, repo, newTestClock())

	_, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "alice"}, nil)
	f := requireCode(t, err, CodeUserCreationFailed)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be preserved")
	}
	if f.Code.UserFacing() {
		t.Fatal("creation failure must not be user facing")
	}
	if got := engine.MetricsSnapshot().Counters[MetricRepositoryError]; got != 1 {
		t.Fatalf("expected repository error metric 1, got %d", got)
	}
}

func TestSignUpLookupFailure(t *testing.T) {
	repo := newMockRepository()
	repo.findByNameErr = errors.New("connection reset")
	engine := newTestEngine(t, repo, newTestClock())

	_, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "alice"}, nil)
	requireCode(t, err, CodeRepositoryError)
	if repo.createCalls != 0 {
		t.Fatal("expected no create after failed lookup")
	}
}

func TestSignUpBlankName(t *testing.T) {
	repo := newMockRepository()
	engine := newTestEngine(t, repo, newTestClock())

	_, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "  "}, nil)
	requireCode(t, err, CodeUserCreationFailed)
	if repo.calls() != 0 {
		t.Fatal("expected no repository access for blank name")
	}
}

func TestSignUpProfileDropsManagedKeys(t *testing.T) {
	repo := newMockRepository()
	engine := newTestEngine(t, repo, newTestClock())

	user, err := engine.SignUp(context.Background(), SignUpAttributes{
		Name: "alice",
		Profile: map[string]string{
			"email":    "alice@example.com",
			"Password": "hunter2",
			"token":    "forged",
		},
	}, nil)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if len(user.Profile) != 1 || user.Profile["email"] != "alice@example.com" {
		t.Fatalf("unexpected profile %v", user.Profile)
	}
	if user.Token == "forged" {
		t.Fatal("caller must not set the token")
	}
}

func TestSignUpTokenStillValidAtResetExpiryMinusOne(t *testing.T) {
	repo := newMockRepository()
	clock := newTestClock()
	engine := newTestEngine(t, repo, clock)

	user, err := engine.SignUp(context.Background(), SignUpAttributes{Name: "alice"}, nil)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if expiry.IsExpired(user.TokenExpiresAt, clock.Now().Add(DefaultResetExpiry-1)) {
		t.Fatal("token expired too early")
	}
	if !expiry.IsExpired(user.TokenExpiresAt, clock.Now().Add(DefaultResetExpiry)) {
		t.Fatal("token must expire at the boundary")
	}
}

//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	passAuth "github.com/MrEthical07/passAuth"
)

func TestLifecycleAcrossBackends(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			engine := newEngine(t, b.setup(t))

			alice, err := engine.SignUp(ctx, passAuth.SignUpAttributes{Name: "alice", Profile: map[string]string{"email": "a@example.com"}}, nil)
			if err != nil {
				t.Fatalf("SignUp: %v", err)
			}
			if !alice.HasResetToken() {
				t.Fatal("expected a reset token after sign-up")
			}

			if _, err := engine.ResetPassword(ctx, alice.Token, "first-pass", nil); err != nil {
				t.Fatalf("ResetPassword: %v", err)
			}
			if _, err := engine.ResetPassword(ctx, alice.Token, "again", nil); passAuth.CodeOf(err) != passAuth.CodeTokenNotFound {
				t.Fatalf("expected single-use token, got %v", err)
			}

			signedIn, err := engine.SignInByName(ctx, "alice", "first-pass", nil)
			if err != nil {
				t.Fatalf("SignInByName: %v", err)
			}
			if signedIn.Profile["email"] != "a@example.com" {
				t.Fatalf("profile not persisted: %+v", signedIn.Profile)
			}

			if _, err := engine.ChangePassword(ctx, &signedIn, "first-pass", "second-pass"); err != nil {
				t.Fatalf("ChangePassword: %v", err)
			}
			if _, err := engine.SignInByName(ctx, "alice", "first-pass", nil); passAuth.CodeOf(err) != passAuth.CodeInvalidPassword {
				t.Fatalf("old password must stop working, got %v", err)
			}

			issued, err := engine.GenerateResetToken(ctx, "alice", nil)
			if err != nil {
				t.Fatalf("GenerateResetToken: %v", err)
			}
			if issued.Token == alice.Token {
				t.Fatal("expected a fresh token")
			}
			if _, err := engine.ResetPassword(ctx, issued.Token, "third-pass", nil); err != nil {
				t.Fatalf("ResetPassword: %v", err)
			}
			if _, err := engine.SignInByName(ctx, "alice", "third-pass", nil); err != nil {
				t.Fatalf("SignInByName after reset: %v", err)
			}
		})
	}
}

func TestConcurrentSignUpSameNameAcrossBackends(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			engine := newEngine(t, b.setup(t))

			const workers = 8
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				ok   int
				dups int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := engine.SignUp(context.Background(), passAuth.SignUpAttributes{Name: "bob"}, nil)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, passAuth.ErrUserAlreadyExists):
						dups++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			if ok != 1 || dups != workers-1 {
				t.Fatalf("expected 1 success and %d duplicates, got %d and %d", workers-1, ok, dups)
			}
		})
	}
}

func TestDistinctTokensAcrossBackends(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			engine := newEngine(t, b.setup(t))
			seen := map[string]bool{}
			for i := 0; i < 20; i++ {
				u, err := engine.SignUp(context.Background(), passAuth.SignUpAttributes{Name: fmt.Sprintf("user-%d", i)}, nil)
				if err != nil {
					t.Fatalf("SignUp: %v", err)
				}
				if seen[u.Token] {
					t.Fatalf("duplicate token %q", u.Token)
				}
				seen[u.Token] = true
			}
		})
	}
}

package passAuth

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailureMatchesSentinel(t *testing.T) {
	for code, sentinel := range sentinelByCode {
		err := fmt.Errorf("wrapped: %w", fail("Op", code))
		if !errors.Is(err, sentinel) {
			t.Fatalf("%s: expected errors.Is sentinel", code)
		}
		if CodeOf(err) != code {
			t.Fatalf("%s: CodeOf returned %s", code, CodeOf(err))
		}
	}
}

func TestFailureIsSameCode(t *testing.T) {
	err := failWith("SignUp", CodeRepositoryError, errors.New("boom"))
	if !errors.Is(err, &Failure{Code: CodeRepositoryError}) {
		t.Fatal("expected match on equal code")
	}
	if errors.Is(err, &Failure{Code: CodeInternalError}) {
		t.Fatal("unexpected match on different code")
	}
	if errors.Is(err, ErrInternal) {
		t.Fatal("unexpected match on foreign sentinel")
	}
}

func TestFailureErrorString(t *testing.T) {
	err := failWith("ResetPassword", CodeRepositoryError, errors.New("timeout"))
	if got := err.Error(); got != "ResetPassword: repository_error: timeout" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := fail("", CodeTokenNotFound).Error(); got != "token_not_found" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestUserFacingCodes(t *testing.T) {
	internal := map[FailureCode]bool{
		CodeUserCreationFailed: true,
		CodeRepositoryError:    true,
		CodeInternalError:      true,
	}
	for code := range sentinelByCode {
		if code.UserFacing() == internal[code] {
			t.Fatalf("%s: unexpected UserFacing %v", code, code.UserFacing())
		}
	}
	if FailureCode("").UserFacing() {
		t.Fatal("empty code is not user facing")
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if CodeOf(nil) != "" || CodeOf(errors.New("x")) != "" {
		t.Fatal("expected empty code")
	}
	if _, ok := AsFailure(errors.New("x")); ok {
		t.Fatal("expected no failure")
	}
}

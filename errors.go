package passAuth

import (
	"errors"
	"fmt"
)

// FailureCode names an expected outcome of an engine operation.
type FailureCode string

const (
	// CodeCurrentUserExists is returned by SignUp when an authenticated user calls it.
	CodeCurrentUserExists FailureCode = "current_user_exists"
	// CodeIllegalCurrentUser is returned by SignIn when another user is already signed in.
	CodeIllegalCurrentUser FailureCode = "illegal_current_user"
	// CodeInvalidCurrentUser is returned by ResetPassword for authenticated callers.
	CodeInvalidCurrentUser FailureCode = "invalid_current_user"
	// CodeUserLoggedIn is returned by GenerateResetToken for authenticated callers.
	CodeUserLoggedIn FailureCode = "user_logged_in"
	// CodeUserIsGuest is returned by SignIn when the target is the guest.
	CodeUserIsGuest FailureCode = "user_is_guest"
	// CodeInvalidUser is returned by ChangePassword for guest or incomplete records.
	CodeInvalidUser FailureCode = "invalid_user"
	// CodeInvalidPassword is returned by SignIn on a credential mismatch.
	CodeInvalidPassword FailureCode = "invalid_password"
	// CodeBadPassword is returned by ChangePassword on a credential mismatch.
	CodeBadPassword FailureCode = "bad_password"
	// CodeUserAlreadyExists is returned by SignUp for a taken name.
	CodeUserAlreadyExists FailureCode = "user_already_exists"
	// CodeUserNotFound is returned by GenerateResetToken for an unknown name.
	CodeUserNotFound FailureCode = "user_not_found"
	// CodeTokenNotFound is returned by ResetPassword for an unknown token.
	CodeTokenNotFound FailureCode = "token_not_found"
	// CodeExpiredToken is returned by ResetPassword for an expired token.
	CodeExpiredToken FailureCode = "expired_token"
	// CodeUserCreationFailed is returned by SignUp when the repository rejects the record.
	CodeUserCreationFailed FailureCode = "user_creation_failed"
	// CodeRepositoryError wraps any other repository failure.
	CodeRepositoryError FailureCode = "repository_error"
	// CodeInternalError reports a hashing or random source failure.
	CodeInternalError FailureCode = "internal_error"
	// CodeRateLimited is returned by SignIn while the sign-in throttle is engaged.
	CodeRateLimited FailureCode = "rate_limited"
)

// UserFacing reports whether the failure is safe to show to an end user.
// Collaborator failures should be logged by the host instead.
func (c FailureCode) UserFacing() bool {
	switch c {
	case CodeUserCreationFailed, CodeRepositoryError, CodeInternalError:
		return false
	default:
		return c != ""
	}
}

func (c FailureCode) String() string {
	return string(c)
}

// Sentinels for errors.Is matching. A *Failure matches the sentinel of its code.
var (
	ErrCurrentUserExists  = errors.New("current user exists")
	ErrIllegalCurrentUser = errors.New("illegal current user")
	ErrInvalidCurrentUser = errors.New("invalid current user")
	ErrUserLoggedIn       = errors.New("user logged in")
	ErrUserIsGuest        = errors.New("user is guest")
	ErrInvalidUser        = errors.New("invalid user")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrBadPassword        = errors.New("bad password")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrExpiredToken       = errors.New("expired token")
	ErrUserCreationFailed = errors.New("user creation failed")
	ErrRepository         = errors.New("repository error")
	ErrInternal           = errors.New("internal error")
	ErrRateLimited        = errors.New("sign-in rate limited")
)

var sentinelByCode = map[FailureCode]error{
	CodeCurrentUserExists:  ErrCurrentUserExists,
	CodeIllegalCurrentUser: ErrIllegalCurrentUser,
	CodeInvalidCurrentUser: ErrInvalidCurrentUser,
	CodeUserLoggedIn:       ErrUserLoggedIn,
	CodeUserIsGuest:        ErrUserIsGuest,
	CodeInvalidUser:        ErrInvalidUser,
	CodeInvalidPassword:    ErrInvalidPassword,
	CodeBadPassword:        ErrBadPassword,
	CodeUserAlreadyExists:  ErrUserAlreadyExists,
	CodeUserNotFound:       ErrUserNotFound,
	CodeTokenNotFound:      ErrTokenNotFound,
	CodeExpiredToken:       ErrExpiredToken,
	CodeUserCreationFailed: ErrUserCreationFailed,
	CodeRepositoryError:    ErrRepository,
	CodeInternalError:      ErrInternal,
	CodeRateLimited:        ErrRateLimited,
}

// Failure is the error returned for every expected and collaborator failure
// of an engine operation.
//
// Only the auxiliary fields meaningful for Code are populated. CurrentUser is
// set when the calling session was the problem and, as the guest, for
// CodeUserNotFound. UserName is set for name lookups and Token for every
// ResetPassword failure. Cause holds the underlying error for collaborator
// failures.
type Failure struct {
	Code        FailureCode
	Op          string
	CurrentUser *UserRecord
	UserName    string
	Token       string
	Cause       error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	msg := string(f.Code)
	if f.Op != "" {
		msg = f.Op + ": " + msg
	}
	if f.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Cause)
	}
	return msg
}

// Unwrap exposes the underlying collaborator error.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

// Is matches the Err* sentinel of the failure code and other failures with
// the same code.
func (f *Failure) Is(target error) bool {
	if f == nil {
		return false
	}
	if other, ok := target.(*Failure); ok {
		return other.Code == f.Code
	}
	sentinel, ok := sentinelByCode[f.Code]
	return ok && sentinel == target
}

// CodeOf returns the failure code carried by err, or "" when err is nil or not
// a *Failure.
func CodeOf(err error) FailureCode {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return f.Code
	}
	return ""
}

// AsFailure extracts the *Failure carried by err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return f, true
	}
	return nil, false
}

func fail(op string, code FailureCode) *Failure {
	return &Failure{Op: op, Code: code}
}

func failWith(op string, code FailureCode, cause error) *Failure {
	return &Failure{Op: op, Code: code, Cause: cause}
}

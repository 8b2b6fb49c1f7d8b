package passAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/passAuth/internal/rate"
)

// SignIn authenticates user with a cleartext password.
//
// Rules are checked in order: the guest cannot sign in (CodeUserIsGuest); a
// signed-in current user may only re-authenticate as itself
// (CodeIllegalCurrentUser, regardless of the password); the password must
// match (CodeInvalidPassword). When the sign-in throttle is enabled and the
// name or client IP is over budget the call fails CodeRateLimited before the
// password is checked.
//
// On success user is returned unchanged. The engine does not touch the
// session; the host stores the user and calls [Engine.UpdateSessionExpiry].
func (e *Engine) SignIn(ctx context.Context, user *UserRecord, password string, current *UserRecord) (signedIn UserRecord, err error) {
	const op = "SignIn"
	ctx, span := e.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if IsGuest(user) {
		return UserRecord{}, e.reject(ctx, fail(op, CodeUserIsGuest), auditEventSignInFailure, MetricSignInFailure, nil)
	}
	if !IsGuest(current) && current.Name != user.Name {
		f := fail(op, CodeIllegalCurrentUser)
		f.CurrentUser = cloneUser(current)
		return UserRecord{}, e.reject(ctx, f, auditEventSignInFailure, MetricSignInFailure, user)
	}

	ip := clientIPFromContext(ctx)
	if e.limiter != nil {
		if lerr := e.limiter.Check(ctx, user.Name, ip); lerr != nil {
			if errors.Is(lerr, rate.ErrRateLimited) {
				return UserRecord{}, e.reject(ctx, fail(op, CodeRateLimited), auditEventSignInRateLimited, MetricSignInRateLimited, user)
			}
			e.logger.WarnContext(ctx, "passAuth: sign-in throttle unavailable", "error", lerr)
		}
	}

	if !e.verifyPassword(user.PasswordHash, password) {
		if e.limiter != nil {
			if lerr := e.limiter.RecordFailure(ctx, user.Name, ip); lerr != nil && !errors.Is(lerr, rate.ErrRateLimited) {
				e.logger.WarnContext(ctx, "passAuth: sign-in throttle unavailable", "error", lerr)
			}
		}
		return UserRecord{}, e.reject(ctx, fail(op, CodeInvalidPassword), auditEventSignInFailure, MetricSignInFailure, user)
	}

	if e.limiter != nil {
		if lerr := e.limiter.Reset(ctx, user.Name); lerr != nil {
			e.logger.WarnContext(ctx, "passAuth: sign-in throttle reset failed", "error", lerr)
		}
	}

	e.metricInc(MetricSignInSuccess)
	e.emitAudit(ctx, auditEventSignInSuccess, user, nil, nil)

	return user.Clone(), nil
}

// SignInByName looks up name and signs that user in. An unknown name
// resolves to the repository's guest user and therefore fails
// CodeUserIsGuest, exactly as if the host had looked it up itself.
func (e *Engine) SignInByName(ctx context.Context, name, password string, current *UserRecord) (UserRecord, error) {
	user, found, err := e.repo.FindByName(ctx, name)
	if err != nil {
		f := failWith("SignIn", CodeRepositoryError, err)
		f.UserName = name
		return UserRecord{}, e.reject(ctx, f, auditEventSignInFailure, MetricSignInFailure, nil)
	}
	if !found {
		user = e.repo.GuestUser()
	}
	return e.SignIn(ctx, &user, password, current)
}

// SignOut always succeeds. It performs no repository or hashing work; the
// host resets its session to the guest. The call exists for a uniform
// call-and-result shape and records an audit event.
func (e *Engine) SignOut(ctx context.Context, current *UserRecord) error {
	e.metricInc(MetricSignOut)
	e.emitAudit(ctx, auditEventSignOut, current, nil, nil)
	return nil
}

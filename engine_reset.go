package passAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/passAuth/expiry"
	"github.com/MrEthical07/passAuth/internal"
)

// GenerateResetToken issues a reset token for userName, replacing any token
// issued before. Only the most recent token is ever redeemable.
//
// Failures: CodeUserLoggedIn (with CurrentUser set) when current is not the
// guest; CodeUserNotFound (with the guest as CurrentUser and UserName set)
// for an unknown name; CodeRepositoryError when the lookup or update fails.
func (e *Engine) GenerateResetToken(ctx context.Context, userName string, current *UserRecord) (user UserRecord, err error) {
	const op = "GenerateResetToken"
	ctx, span := e.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if !IsGuest(current) {
		f := fail(op, CodeUserLoggedIn)
		f.CurrentUser = cloneUser(current)
		return UserRecord{}, e.reject(ctx, f, auditEventResetTokenFailure, MetricResetTokenRejected, current)
	}

	found, ok, err := e.repo.FindByName(ctx, userName)
	if err != nil {
		f := failWith(op, CodeRepositoryError, err)
		f.UserName = userName
		return UserRecord{}, e.reject(ctx, f, auditEventResetTokenFailure, MetricResetTokenRejected, nil)
	}
	if !ok {
		guest := e.repo.GuestUser()
		f := fail(op, CodeUserNotFound)
		f.CurrentUser = &guest
		f.UserName = userName
		return UserRecord{}, e.reject(ctx, f, auditEventResetTokenFailure, MetricResetTokenRejected, nil)
	}

	token, err := internal.NewToken(e.config.Token.ByteLength)
	if err != nil {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeInternalError, err), auditEventResetTokenFailure, MetricResetTokenRejected, &found)
	}

	user, err = e.repo.Update(ctx, found.ID, UserChanges{
		Token: &ResetToken{
			Value:     token,
			ExpiresAt: expiry.At(e.now(), e.config.ResetExpiry),
		},
	})
	if err != nil {
		f := failWith(op, CodeRepositoryError, err)
		f.UserName = userName
		return UserRecord{}, e.reject(ctx, f, auditEventResetTokenFailure, MetricResetTokenRejected, &found)
	}

	e.metricInc(MetricResetTokenIssued)
	e.emitAudit(ctx, auditEventResetTokenIssued, &user, nil, nil)

	return user, nil
}

// ResetPassword redeems a reset token: it sets the password hash, clears the
// token and returns the updated record.
//
// Every failure carries the presented token in Failure.Token and leaves the
// repository untouched. Failures: CodeInvalidCurrentUser when current is not
// the guest, CodeTokenNotFound for an unknown or empty token,
// CodeExpiredToken once TokenExpiresAt has been reached.
//
// The update is conditional on the token still being current, so of two
// concurrent redemptions exactly one succeeds and a token replaced by
// [Engine.GenerateResetToken] mid-flight fails CodeTokenNotFound.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string, current *UserRecord) (user UserRecord, err error) {
	const op = "ResetPassword"
	ctx, span := e.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	rejectToken := func(f *Failure, metric MetricID, u *UserRecord) error {
		f.Token = token
		return e.reject(ctx, f, auditEventPasswordResetFailure, metric, u)
	}

	if !IsGuest(current) {
		f := fail(op, CodeInvalidCurrentUser)
		f.CurrentUser = cloneUser(current)
		return UserRecord{}, rejectToken(f, MetricPasswordResetFailure, current)
	}

	if token == "" {
		return UserRecord{}, rejectToken(fail(op, CodeTokenNotFound), MetricPasswordResetFailure, nil)
	}

	found, ok, err := e.repo.FindByToken(ctx, token)
	if err != nil {
		return UserRecord{}, rejectToken(failWith(op, CodeRepositoryError, err), MetricPasswordResetFailure, nil)
	}
	if !ok {
		return UserRecord{}, rejectToken(fail(op, CodeTokenNotFound), MetricPasswordResetFailure, nil)
	}

	now := e.now()
	if expiry.IsExpired(found.TokenExpiresAt, now) {
		return UserRecord{}, rejectToken(fail(op, CodeExpiredToken), MetricPasswordResetExpired, &found)
	}

	hash, err := e.hashPassword(newPassword)
	if err != nil {
		return UserRecord{}, rejectToken(failWith(op, CodeInternalError, err), MetricPasswordResetFailure, &found)
	}

	user, err = e.repo.Update(ctx, found.ID, UserChanges{
		PasswordHash: &hash,
		ClearToken:   true,
		UpdatedAt:    now,
		IfToken:      token,
	})
	if errors.Is(err, ErrTokenMismatch) {
		// Redeemed or replaced since the lookup.
		return UserRecord{}, rejectToken(fail(op, CodeTokenNotFound), MetricPasswordResetFailure, nil)
	}
	if err != nil {
		return UserRecord{}, rejectToken(failWith(op, CodeRepositoryError, err), MetricPasswordResetFailure, &found)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetSuccess, &user, nil, nil)

	return user, nil
}

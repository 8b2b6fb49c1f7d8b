package passAuth

import "context"

// ChangePassword replaces the password of an authenticated user.
//
// user must be a registered record (CodeInvalidUser otherwise, without any
// repository access) and currentPassword must match its stored hash
// (CodeBadPassword otherwise, without mutation). On success the new hash and
// UpdatedAt are persisted and the updated record is returned; any cached copy
// the host holds is stale.
func (e *Engine) ChangePassword(ctx context.Context, user *UserRecord, currentPassword, newPassword string) (updated UserRecord, err error) {
	const op = "ChangePassword"
	ctx, span := e.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if IsGuest(user) || user.Name == "" || user.PasswordHash == "" {
		return UserRecord{}, e.reject(ctx, fail(op, CodeInvalidUser), auditEventPasswordChangeFailure, MetricPasswordChangeFailure, nil)
	}

	if !e.verifyPassword(user.PasswordHash, currentPassword) {
		return UserRecord{}, e.reject(ctx, fail(op, CodeBadPassword), auditEventPasswordChangeFailure, MetricPasswordChangeFailure, user)
	}

	hash, err := e.hashPassword(newPassword)
	if err != nil {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeInternalError, err), auditEventPasswordChangeFailure, MetricPasswordChangeFailure, user)
	}

	updated, err = e.repo.Update(ctx, user.ID, UserChanges{
		PasswordHash: &hash,
		UpdatedAt:    e.now(),
	})
	if err != nil {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeRepositoryError, err), auditEventPasswordChangeFailure, MetricPasswordChangeFailure, user)
	}

	if e.limiter != nil {
		// Best effort: a stale throttle counter must not fail a completed change.
		if lerr := e.limiter.Reset(ctx, user.Name); lerr != nil {
			e.logger.WarnContext(ctx, "passAuth: sign-in throttle reset failed after password change", "error", lerr)
		}
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, &updated, nil, nil)

	return updated, nil
}

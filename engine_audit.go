package passAuth

import (
	"context"

	internalaudit "github.com/MrEthical07/passAuth/internal/audit"
)

const (
	auditEventSignUpSuccess         = "signup_success"
	auditEventSignUpFailure         = "signup_failure"
	auditEventSignInSuccess         = "signin_success"
	auditEventSignInFailure         = "signin_failure"
	auditEventSignInRateLimited     = "signin_rate_limited"
	auditEventSignOut               = "signout"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventResetTokenIssued      = "reset_token_issued"
	auditEventResetTokenFailure     = "reset_token_failure"
	auditEventPasswordResetSuccess  = "password_reset_success"
	auditEventPasswordResetFailure  = "password_reset_failure"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	user *UserRecord,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.NewEvent(eventType, e.now())
	event.Success = err == nil
	event.IP = clientIPFromContext(ctx)
	event.UserAgent = userAgentFromContext(ctx)
	if user != nil && !IsGuest(user) {
		event.UserID = user.ID
		event.UserName = user.Name
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) string {
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return string(CodeInternalError)
}

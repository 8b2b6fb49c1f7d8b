package passAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/passAuth/expiry"
	"github.com/MrEthical07/passAuth/internal"
)

var errEmptyName = errors.New("name must not be empty")

// managedProfileKeys are attributes owned by the engine; callers cannot set
// them through the profile.
var managedProfileKeys = map[string]struct{}{
	"id":               {},
	"name":             {},
	"password":         {},
	"password_hash":    {},
	"token":            {},
	"token_expires_at": {},
	"created_at":       {},
	"updated_at":       {},
}

// SignUp registers a new account.
//
// The account starts with a random placeholder password nobody knows and a
// freshly issued reset token valid for Config.ResetExpiry; the host delivers
// the token and the user sets a password through [Engine.ResetPassword].
//
// Failures: CodeCurrentUserExists when current is not the guest,
// CodeUserAlreadyExists for a taken name, CodeUserCreationFailed when the
// repository rejects the record, CodeRepositoryError when the name lookup
// fails.
func (e *Engine) SignUp(ctx context.Context, attrs SignUpAttributes, current *UserRecord) (user UserRecord, err error) {
	const op = "SignUp"
	ctx, span := e.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if !IsGuest(current) {
		return UserRecord{}, e.reject(ctx, fail(op, CodeCurrentUserExists), auditEventSignUpFailure, MetricSignUpFailure, current)
	}

	name := attrs.Name
	if strings.TrimSpace(name) == "" {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeUserCreationFailed, errEmptyName), auditEventSignUpFailure, MetricSignUpFailure, nil)
	}

	_, found, err := e.repo.FindByName(ctx, name)
	if err != nil {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeRepositoryError, err), auditEventSignUpFailure, MetricSignUpFailure, nil)
	}
	if found {
		f := fail(op, CodeUserAlreadyExists)
		f.UserName = name
		return UserRecord{}, e.reject(ctx, f, auditEventSignUpFailure, MetricSignUpDuplicate, nil)
	}

	placeholder, err := internal.RandomPassword()
	if err != nil {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeInternalError, err), auditEventSignUpFailure, MetricSignUpFailure, nil)
	}
	hash, err := e.hashPassword(placeholder)
	if err != nil {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeInternalError, err), auditEventSignUpFailure, MetricSignUpFailure, nil)
	}
	token, err := internal.NewToken(e.config.Token.ByteLength)
	if err != nil {
		return UserRecord{}, e.reject(ctx, failWith(op, CodeInternalError, err), auditEventSignUpFailure, MetricSignUpFailure, nil)
	}

	now := e.now()
	record := UserRecord{
		Name:           name,
		PasswordHash:   hash,
		Token:          token,
		TokenExpiresAt: expiry.At(now, e.config.ResetExpiry),
		Profile:        sanitizeProfile(attrs.Profile),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := e.repo.Create(ctx, record)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			f := fail(op, CodeUserAlreadyExists)
			f.UserName = name
			return UserRecord{}, e.reject(ctx, f, auditEventSignUpFailure, MetricSignUpDuplicate, nil)
		}
		f := failWith(op, CodeUserCreationFailed, err)
		f.UserName = name
		return UserRecord{}, e.reject(ctx, f, auditEventSignUpFailure, MetricSignUpFailure, nil)
	}

	e.metricInc(MetricSignUpSuccess)
	e.emitAudit(ctx, auditEventSignUpSuccess, &created, nil, nil)

	return created, nil
}

func sanitizeProfile(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if _, managed := managedProfileKeys[strings.ToLower(k)]; managed {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

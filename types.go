package passAuth

import (
	"context"
	"errors"
	"maps"
	"time"
)

// GuestName is the name carried by the [Guest] sentinel.
const GuestName = "guest"

// UserRecord is the persisted account entity.
//
// Token and TokenExpiresAt are either both set or both zero. An ID below 1 is
// reserved for the guest sentinel and never persisted.
type UserRecord struct {
	ID             int64
	Name           string
	PasswordHash   string
	Token          string
	TokenExpiresAt time.Time
	Profile        map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Guest returns the sentinel value representing "no authenticated user".
func Guest() UserRecord {
	return UserRecord{ID: 0, Name: GuestName}
}

// IsGuest reports whether u is the guest sentinel. A nil record is treated as
// the guest.
func IsGuest(u *UserRecord) bool {
	return u == nil || u.ID < 1
}

// IsGuest reports whether u is the guest sentinel.
func (u UserRecord) IsGuest() bool {
	return IsGuest(&u)
}

// HasResetToken reports whether a reset token is currently issued.
func (u UserRecord) HasResetToken() bool {
	return u.Token != "" && !u.TokenExpiresAt.IsZero()
}

// Clone returns a deep copy of u.
func (u UserRecord) Clone() UserRecord {
	out := u
	if u.Profile != nil {
		out.Profile = maps.Clone(u.Profile)
	}
	return out
}

// ResetToken is a reset token paired with its expiry.
type ResetToken struct {
	Value     string
	ExpiresAt time.Time
}

// UserChanges describes a partial update applied by [Repository.Update].
//
// Nil pointers leave the corresponding field untouched. ClearToken removes the
// reset token and its expiry; it takes precedence over Token.
//
// A non-empty IfToken makes the update conditional: it applies only while the
// stored record still holds exactly that token, and otherwise fails with
// [ErrTokenMismatch] leaving the record untouched. The read of the current
// token and the write must be atomic in the adapter.
type UserChanges struct {
	PasswordHash *string
	Token        *ResetToken
	ClearToken   bool
	UpdatedAt    time.Time
	IfToken      string
}

// Check reports whether the changes may be applied to u.
func (c UserChanges) Check(u UserRecord) error {
	if c.IfToken != "" && u.Token != c.IfToken {
		return ErrTokenMismatch
	}
	return nil
}

// Apply returns u with the changes applied. Storage adapters use it to keep
// the update semantics identical across backends.
func (c UserChanges) Apply(u UserRecord) UserRecord {
	out := u.Clone()
	if c.PasswordHash != nil {
		out.PasswordHash = *c.PasswordHash
	}
	if c.ClearToken {
		out.Token = ""
		out.TokenExpiresAt = time.Time{}
	} else if c.Token != nil {
		out.Token = c.Token.Value
		out.TokenExpiresAt = c.Token.ExpiresAt
	}
	if !c.UpdatedAt.IsZero() {
		out.UpdatedAt = c.UpdatedAt
	}
	return out
}

var (
	// ErrDuplicateName must be wrapped by [Repository.Create] when the name
	// is already taken.
	ErrDuplicateName = errors.New("user name already exists")
	// ErrRecordNotFound is returned by [Repository.Update] for an unknown id.
	ErrRecordNotFound = errors.New("user record not found")
	// ErrTokenMismatch is returned by [Repository.Update] when
	// UserChanges.IfToken no longer matches the stored token.
	ErrTokenMismatch = errors.New("reset token no longer current")
)

// Repository is the user-record store consumed by the engine.
//
// Find methods return found=false with a nil error when nothing matches; a
// non-nil error means the store itself failed. Implementations must be safe
// for concurrent use.
type Repository interface {
	FindByName(ctx context.Context, name string) (UserRecord, bool, error)
	FindByToken(ctx context.Context, token string) (UserRecord, bool, error)
	Create(ctx context.Context, user UserRecord) (UserRecord, error)
	Update(ctx context.Context, id int64, changes UserChanges) (UserRecord, error)
	GuestUser() UserRecord
}

// SignUpAttributes are the caller-supplied attributes of a new account.
//
// There is deliberately no password field: new accounts start with a random
// placeholder password and must redeem the issued reset token.
type SignUpAttributes struct {
	Name    string
	Profile map[string]string
}

// SessionSnapshot is the host-owned session state the engine reasons about.
// A zero ExpiresAt is treated as the epoch.
type SessionSnapshot struct {
	CurrentUser *UserRecord
	ExpiresAt   time.Time
}

// User returns the current user, resolving nil to the guest sentinel.
func (s SessionSnapshot) User() UserRecord {
	if s.CurrentUser == nil {
		return Guest()
	}
	return *s.CurrentUser
}

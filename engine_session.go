package passAuth

import (
	"time"

	"github.com/MrEthical07/passAuth/expiry"
)

// SessionExpired reports whether the session in s has lapsed at the engine's
// current time. Guest sessions never expire. A registered session with a
// zero ExpiresAt is expired.
func (e *Engine) SessionExpired(s SessionSnapshot) bool {
	expired := SessionExpiredAt(s, e.now())
	if expired {
		e.metricInc(MetricSessionExpired)
	}
	return expired
}

// UpdateSessionExpiry returns the snapshot the host should store for the
// current request: the guest gets an effectively infinite expiry, anyone
// else now + Config.SessionExpiry. Hosts call it unconditionally on every
// request.
func (e *Engine) UpdateSessionExpiry(s SessionSnapshot) SessionSnapshot {
	out := UpdateSessionExpiryAt(s, e.now(), e.config.SessionExpiry)
	if !IsGuest(out.CurrentUser) {
		e.metricInc(MetricSessionRefreshed)
	}
	return out
}

// SessionExpiredAt is the clock-free form of [Engine.SessionExpired].
func SessionExpiredAt(s SessionSnapshot, now time.Time) bool {
	if IsGuest(s.CurrentUser) {
		return false
	}
	return expiry.IsExpired(s.ExpiresAt, now)
}

// UpdateSessionExpiryAt is the clock-free form of
// [Engine.UpdateSessionExpiry].
func UpdateSessionExpiryAt(s SessionSnapshot, now time.Time, sessionExpiry time.Duration) SessionSnapshot {
	if IsGuest(s.CurrentUser) {
		guest := Guest()
		return SessionSnapshot{
			CurrentUser: &guest,
			ExpiresAt:   expiry.At(now, expiry.GuestHorizon),
		}
	}
	return SessionSnapshot{
		CurrentUser: cloneUser(s.CurrentUser),
		ExpiresAt:   expiry.At(now, sessionExpiry),
	}
}

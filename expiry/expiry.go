// Package expiry computes expiry instants and inclusive expiry checks.
//
// A zero time.Time stands for an absent expiry and is treated as the epoch,
// so it is always expired.
package expiry

import "time"

// GuestHorizon is how far in the future a guest session "expires".
const GuestHorizon = 100 * 365 * 24 * time.Hour

// At returns now + d.
func At(now time.Time, d time.Duration) time.Time {
	return now.Add(d)
}

// IsExpired reports whether expiresAt has been reached at now. The boundary
// is inclusive: now == expiresAt is expired.
func IsExpired(expiresAt, now time.Time) bool {
	if expiresAt.IsZero() {
		return true
	}
	return !now.Before(expiresAt)
}

// Remaining returns the time left until expiresAt, or zero once expired.
func Remaining(expiresAt, now time.Time) time.Duration {
	if IsExpired(expiresAt, now) {
		return 0
	}
	return expiresAt.Sub(now)
}

// Clock supplies the current time.
type Clock func() time.Time

// SystemClock returns time.Now in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

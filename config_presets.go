package passAuth

import "time"

// HighSecurityConfig returns a preset using argon2id, longer reset tokens,
// short expiries and the sign-in throttle. The throttle requires
// [Builder.WithRedis].
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Algorithm = AlgorithmArgon2id
	cfg.Password.Cost = 3
	cfg.Token.ByteLength = 32
	cfg.ResetExpiry = time.Hour
	cfg.SessionExpiry = 10 * time.Minute
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.SignInThrottle.Enabled = true
	cfg.SignInThrottle.EnableIPThrottle = true
	cfg.SignInThrottle.MaxAttempts = 5
	cfg.SignInThrottle.Cooldown = 30 * time.Minute
	return cfg
}

// DevelopmentConfig returns a preset with the cheapest hashing cost, for
// tests and local development only.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Cost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

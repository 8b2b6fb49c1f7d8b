package password

// Hasher produces and verifies opaque password hash strings.
//
// Hash output is salted, so hashing the same input twice yields different
// strings. Verify never returns an error: a malformed or foreign hash simply
// does not verify. Implementations are safe for concurrent use.
type Hasher interface {
	Hash(cleartext string, cost int) (string, error)
	Verify(hash string, candidate string) bool
}

// Identify returns the algorithm name encoded in hash, or "" when hash is not
// produced by a known algorithm.
func Identify(hash string) string {
	switch {
	case isArgon2Hash(hash):
		return algorithmID
	case isBcryptHash(hash):
		return "bcrypt"
	default:
		return ""
	}
}

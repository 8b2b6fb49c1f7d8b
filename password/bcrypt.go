package password

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinBcryptCost is the lowest cost accepted by bcrypt.
	MinBcryptCost = bcrypt.MinCost
	// MaxBcryptCost is the highest cost accepted by bcrypt.
	MaxBcryptCost = bcrypt.MaxCost

	bcryptMaxInput = 72
)

// Bcrypt hashes passwords with bcrypt.
type Bcrypt struct{}

// NewBcrypt returns a bcrypt [Hasher].
func NewBcrypt() *Bcrypt {
	return &Bcrypt{}
}

// Hash returns the bcrypt hash of cleartext at the given cost. Costs outside
// bcrypt's range are clamped.
func (Bcrypt) Hash(cleartext string, cost int) (string, error) {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > MaxBcryptCost {
		cost = MaxBcryptCost
	}

	out, err := bcrypt.GenerateFromPassword(bcryptInput(cleartext), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether candidate matches hash.
func (Bcrypt) Verify(hash string, candidate string) bool {
	if !isBcryptHash(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(candidate)) == nil
}

// Cost returns the cost encoded in hash.
func (Bcrypt) Cost(hash string) (int, error) {
	return bcrypt.Cost([]byte(hash))
}

// bcrypt rejects inputs over 72 bytes; longer passwords are reduced to a
// fixed-size digest first.
func bcryptInput(cleartext string) []byte {
	if len(cleartext) <= bcryptMaxInput {
		return []byte(cleartext)
	}
	sum := sha256.Sum256([]byte(cleartext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func isBcryptHash(hash string) bool {
	return len(hash) == 60 &&
		(strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$"))
}

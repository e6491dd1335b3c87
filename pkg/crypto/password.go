package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for inputs bcrypt would silently reject.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// MaxPasswordBytes is the longest input bcrypt reads; later bytes are ignored.
const MaxPasswordBytes = 72

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher, clamping cost into bcrypt's accepted range.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

// Cost reports the bcrypt cost in use.
func (h Hasher) Cost() int {
	if h.cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.cost
}

// Hash hashes plaintext using bcrypt.
func (h Hasher) Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), h.Cost())
}

// Verify reports whether plain matches the stored hash. Inputs longer than
// MaxPasswordBytes never match, since bcrypt would compare only their prefix.
func (h Hasher) Verify(hash []byte, plain string) bool {
	if len(plain) > MaxPasswordBytes {
		return false
	}
	return ComparePassword(hash, plain) == nil
}

// ComparePassword compares plaintext to hashed secret.
func ComparePassword(hash []byte, plain string) error {
	if len(hash) == 0 {
		return errors.New("empty password hash")
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}

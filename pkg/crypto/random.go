package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// MinTokenBytes is the smallest entropy accepted for opaque public tokens.
const MinTokenBytes = 16

// RandomToken returns n bytes from crypto/rand encoded as unpadded base64url.
// n below MinTokenBytes is raised to MinTokenBytes.
func RandomToken(n int) (string, error) {
	if n < MinTokenBytes {
		n = MinTokenBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

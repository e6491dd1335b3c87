package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// MaxLeeway bounds the clock skew tolerated during verification.
const MaxLeeway = 5 * time.Minute

// ErrInvalidToken is returned for every verification failure.
var ErrInvalidToken = errors.New("jwt: invalid token")

// Claims defines JWT payload.
type Claims struct {
	jwtlib.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens whose subject is a user id.
type Issuer struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer. The secret must not be empty.
func NewIssuer(secret, issuer string, leeway time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	if leeway < 0 {
		leeway = 0
	}
	if leeway > MaxLeeway {
		leeway = MaxLeeway
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, leeway: leeway, now: time.Now}, nil
}

// Issue returns a signed token for subjectID that expires after ttl.
func (i *Issuer) Issue(subjectID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("jwt: ttl must be positive")
	}
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify validates token and returns its subject. Any failure yields an error
// matching ErrInvalidToken; the wrapped cause is meant for server logs only.
func (i *Issuer) Verify(token string) (int64, error) {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(i.leeway),
		jwtlib.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(i.issuer))
	}
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return id, nil
}

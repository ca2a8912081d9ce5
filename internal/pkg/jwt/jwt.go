package jwt

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the shortest HS512 key accepted, in bytes.
const MinSecretLen = 64

var (
	ErrInvalidSigningMethod = errors.New("jwt: invalid signing method")
	ErrSigningKeyTooShort   = errors.New("jwt: HS512 signing key must be at least 64 bytes")
	ErrTokenExpired         = errors.New("jwt: token has expired")
	ErrInvalidToken         = errors.New("jwt: invalid token")
)

// JWT signs and verifies operator tokens.
type JWT interface {
	Generate(uid int64, email string) (string, error)
	Verify(token string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// Config builds an HS512 signer.
type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	// TTL is the lifetime of generated tokens.
	TTL time.Duration
	// Leeway tolerates clock skew between the issuer and this service.
	Leeway time.Duration
	Clock  clocker
	UUID   generator
}

// Claims are the registered claims plus the operator identity. Subject holds
// the operator id and is what the authorization policy matches on.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"user_id,string"`
	UserEmail string `json:"user_email"`
}

// Operator returns the policy subject, falling back to UserID when the
// issuer left Subject empty.
func (c Claims) Operator() string {
	if c.Subject != "" {
		return c.Subject
	}
	if c.UserID != 0 {
		return strconv.FormatInt(c.UserID, 10)
	}
	return ""
}

type claimsKey struct{}

// GetAuth returns the verified claims of the request, or nil.
func GetAuth(ctx context.Context) *Claims {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	if !ok {
		return nil
	}
	return &c
}

// SetAuth stores verified claims in ctx.
func SetAuth(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

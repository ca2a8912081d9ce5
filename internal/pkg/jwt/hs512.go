package jwt

import (
	"errors"
	"strconv"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// HS512 signs and verifies tokens with a shared secret.
type HS512 struct {
	cfg    Config
	parser *libJWT.Parser
}

// NewHS512 validates the key length and prepares a parser that requires the
// configured issuer and audiences.
func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < MinSecretLen {
		return nil, ErrSigningKeyTooShort
	}

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
		libJWT.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, libJWT.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, libJWT.WithAudience(cfg.Audiences...))
	}
	if cfg.Clock != nil {
		opts = append(opts, libJWT.WithTimeFunc(cfg.Clock.Now))
	}

	return &HS512{cfg: cfg, parser: libJWT.NewParser(opts...)}, nil
}

// Generate signs a token for operator uid valid for the configured TTL.
func (h *HS512) Generate(uid int64, email string) (string, error) {
	now := h.cfg.Clock.Now()

	var id string
	if h.cfg.UUID != nil {
		id = h.cfg.UUID.Generate()
	}

	return libJWT.NewWithClaims(libJWT.SigningMethodHS512, Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(uid, 10),
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audiences,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(h.cfg.TTL)),
		},
		UserID:    uid,
		UserEmail: email,
	}).SignedString(h.cfg.Secret)
}

// Verify returns ErrTokenExpired for an expired token and ErrInvalidToken
// for any other failure.
func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := h.parser.ParseWithClaims(token, &claims, func(t *libJWT.Token) (any, error) {
		if t.Method != libJWT.SigningMethodHS512 {
			return nil, ErrInvalidSigningMethod
		}
		return h.cfg.Secret, nil
	})

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, libJWT.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	default:
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
}

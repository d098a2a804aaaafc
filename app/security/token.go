package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	ErrTokenMalformed    = errors.New("token is malformed or has an invalid signature")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenKindMismatch = errors.New("token kind does not match the expected kind")
)

type Claims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256-signed JWTs carrying a subject
// identity and a token kind. A token whose exp equals the current instant is
// already expired. Clock skew between issuer and verifier is not
// compensated; both are expected to run on synchronized clocks.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type TokenCodecOption func(*TokenCodec)

func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...TokenCodecOption) *TokenCodec {
	codec := &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(codec)
	}
	return codec
}

// WithClock overrides the codec's time source.
func WithClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	if kind == TokenKindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func (c *TokenCodec) Issue(userID, email string, kind TokenKind) (string, error) {
	now := c.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(kind))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the signature, expiry, and kind of tokenString. The three
// failure modes are reported distinctly so callers can log them apart, even
// though all of them mean "unauthenticated" at the boundary.
func (c *TokenCodec) Verify(tokenString string, expected TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	// exp == now rejects; the library guarantees this, the check keeps the
	// boundary explicit and independent of its leeway defaults.
	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(c.now()) {
		return nil, ErrTokenExpired
	}

	if claims.Kind != expected {
		return nil, ErrTokenKindMismatch
	}

	return claims, nil
}

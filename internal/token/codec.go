// Package token issues and verifies the short-lived signed tokens used for
// sessions and password resets.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tags a token with the single flow it is valid for.
type Purpose string

const (
	// PurposeSession marks tokens issued at login.
	PurposeSession Purpose = "session"
	// PurposeReset marks one-time password-reset tokens.
	PurposeReset Purpose = "password_reset"
)

// Typed verification failures. Attacker-supplied garbage always surfaces as
// one of these, never as a panic.
var (
	ErrInvalid = errors.New("token: invalid")
	ErrExpired = errors.New("token: expired")
)

// Claims carries the signed token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email   string  `json:"email,omitempty"`
	Purpose Purpose `json:"purpose"`
}

// Codec signs and verifies compact expiring tokens with a process-wide
// secret handed in at construction.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec constructs a Codec. The secret must be non-empty; the caller
// validates that at config load time.
func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a token for the given subject. The returned Claims expose the
// generated token ID so callers can key revocation entries on it.
func (c *Codec) Issue(subject, email string, purpose Purpose, ttl time.Duration) (string, *Claims, error) {
	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:   email,
		Purpose: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature and expiry and that the token was minted for the
// expected purpose. A session token is never accepted on the reset path and
// vice versa.
func (c *Codec) Verify(raw string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalid
	}
	return claims, nil
}

// Remaining reports how long the claims stay valid from now. Zero when
// already expired; used to bound revocation-entry TTLs.
func (c *Codec) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}

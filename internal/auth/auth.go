// Package auth issues and verifies session tokens for the REST API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated is returned when an operation needs a user session.
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrNoSecret        = errors.New("jwt secret must not be empty")
)

const issuer = "safeurl"

type claims struct {
	jwt.RegisteredClaims
}

// Issuer signs HS256 session tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer for the shared secret.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a signed token for user valid for ttl.
func (i *Issuer) Issue(user string, ttl time.Duration) (string, error) {
	if user == "" {
		return "", errors.New("user must not be empty")
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verifier validates tokens produced by an Issuer with the same secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the shared secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify returns the user a token was issued to.
func (v *Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	keyFn := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, keyFn,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

type ctxKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the authenticated user, or "" if there is none.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(ctxKey{}).(string)
	return user
}

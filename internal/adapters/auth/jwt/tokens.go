// Package jwt emite y verifica bearer tokens HS256 para la API.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"med-tracker/internal/ports/auth"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type claims struct {
	Email string `json:"email,omitempty"`
	gojwt.RegisteredClaims
}

// Tokens implementa auth.Issuer y auth.Verifier con la misma clave.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func New(cfg Config) (*Tokens, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (t *Tokens) Issue(_ context.Context, c auth.Claims) (string, time.Time, error) {
	if strings.TrimSpace(c.UserID) == "" {
		return "", time.Time{}, errors.New("user id is required")
	}

	now := t.now()
	exp := now.Add(t.ttl)
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims{
		Email: c.Email,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    t.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (t *Tokens) Verify(_ context.Context, token string) (auth.Claims, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(t.issuer))
	}

	var c claims
	_, err := gojwt.ParseWithClaims(token, &c, func(*gojwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return auth.Claims{UserID: c.Subject, Email: c.Email}, nil
}

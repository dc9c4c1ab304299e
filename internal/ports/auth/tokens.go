package auth

import (
	"context"
	"time"
)

// Verifier valida un bearer token y devuelve sus claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Issuer emite un token firmado para las claims dadas.
type Issuer interface {
	Issue(ctx context.Context, claims Claims) (token string, expiresAt time.Time, err error)
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"med-tracker/internal/platform/logger"
	"med-tracker/internal/ports/auth"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// DebugUserHeader identifica al usuario en modo dev (sin verifier).
const DebugUserHeader = "X-Debug-User-ID"

type claimsCtxKey struct{}

// Authenticate resuelve el usuario del request.
//
// Sin verifier (modo dev) toma el id de DebugUserHeader.
// Con verifier exige "Authorization: Bearer <jwt>" válido cuando el header viene;
// un header mal formado o un token inválido cortan con 401. Sin header el request
// sigue anónimo y cada handler decide si exige auth.
func Authenticate(verifier auth.Verifier, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				if uid := strings.TrimSpace(r.Header.Get(DebugUserHeader)); uid != "" {
					r = r.WithContext(WithClaims(r.Context(), auth.Claims{UserID: uid}))
				}
				next.ServeHTTP(w, r)
				return
			}

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				reject(w, r, log, "malformed authorization header", nil)
				return
			}
			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				reject(w, r, log, "invalid bearer token", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims guarda las claims del usuario autenticado en ctx.
func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey{}).(auth.Claims)
	return c, ok
}

func reject(w http.ResponseWriter, r *http.Request, log logger.Logger, msg string, err error) {
	fields := map[string]any{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     http.StatusUnauthorized,
		"request_id": chimw.GetReqID(r.Context()),
	}
	if err != nil {
		fields["error"] = err
	}
	log.Warn(msg, fields)

	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

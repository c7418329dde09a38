package auth

import (
	"context"
	"net/http"

	"github.com/lumenworks/frameio-relay/internal/httpx"
)

const SessionCookie = "session"

type ctxKey int

const ctxKeyClaims ctxKey = iota

// ContextWithClaims attaches verified session claims to the context. Exposed
// for handlers under test that bypass RequireSession.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ctxKeyClaims).(*Claims)
	return claims
}

// RequireSession gates a handler behind a valid session cookie. Cookie
// verification happens here and nowhere else.
func RequireSession(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			claims, err := ParseAndVerifyHS256(cookie.Value, secret)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid session")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

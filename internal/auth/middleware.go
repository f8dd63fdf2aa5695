package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can read or shadow the
// identity stored by this one.
type contextKey string

const claimsKey contextKey = "claims"

const bearerPrefix = "Bearer "

var errNoBearer = errors.New("auth: missing bearer token")

// unauthorizedBody is written verbatim on 401. It has the same shape as the
// handler package's error responses.
const unauthorizedBody = `{"error":"token missing or invalid","code":"unauthorized"}` + "\n"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header, validates
// it, and stores the Claims in the request context. If the token is missing or
// invalid, it returns 401 Unauthorized and stops the request chain.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="bloglist"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(unauthorizedBody))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth extracts the identity if a valid token is present but never
// blocks the request. Used on PUT /api/blogs/{id}, where anonymous callers may
// still change likes.
//
// A header that is present but invalid is ignored here; the service decides
// whether an anonymous caller is allowed to do what it asked.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := claimsFromRequest(r, tokens); err == nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims returns a copy of ctx carrying the given identity.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext retrieves the authenticated identity from the context.
//
// Returns (nil, false) if the request is anonymous.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil && c.UserID != ""
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively, as RFC 6750 allows.
func BearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func claimsFromRequest(r *http.Request, tokens *TokenService) (*Claims, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, errNoBearer
	}
	return tokens.Validate(token)
}

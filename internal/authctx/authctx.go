// Package authctx carries the pre-authenticated caller identity through a
// request's context. Auth issuance itself is out of scope (§1) — the HTTP
// layer resolves a username once at the edge and every handler below reads
// it from here instead of re-deriving it.
package authctx

import (
	"context"
	"net/http"
)

type contextKey string

const usernameKey contextKey = "nirva.username"

// WithUsername returns a new context carrying the given username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// Username extracts the caller's username from context, if present.
func Username(ctx context.Context) (string, bool) {
	v := ctx.Value(usernameKey)
	if v == nil {
		return "", false
	}
	u, ok := v.(string)
	return u, ok && u != ""
}

// Middleware resolves a request's username and attaches it to the request
// context. Until real auth issuance exists, the username is taken from the
// X-Nirva-User header or the "username" query parameter, matching the
// bearer-token handoff the rest of the API already expects upstream of this
// middleware (BearerAuth/RequireAuth gate access; this just identifies who).
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get("X-Nirva-User")
		if username == "" {
			username = r.URL.Query().Get("username")
		}
		if username == "" {
			http.Error(w, `{"code":"unauthorized","error":"missing caller identity"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
	})
}

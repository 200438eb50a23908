// ABOUTME: RequireAuthenticated middleware for JWT access-token cookie auth.
// ABOUTME: Injects the authenticated user ID into the request context.
package api

import (
	"context"
	"net/http"

	"github.com/healertrix/taskmaster/internal/auth"
)

// RequireAuthenticated returns a middleware that requires a valid JWT
// access-token cookie. On success it injects ctxUserID into the request
// context.
func (srv *Server) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("access_token")
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAccessToken(cookie.Value, []byte(srv.cfg.JWTSecret))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/services"
)

type contextKey int

const userContextKey contextKey = iota

// UserLoader loads the authenticated user's row once per request.
type UserLoader interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserFrom returns the authenticated user placed in the context by
// RequireAuth.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userContextKey).(*models.User)
	return u, ok
}

// WithUser returns a context carrying the authenticated user. Exported for
// handler tests.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// bearerToken extracts the opaque token from the Authorization header.
// Both "Bearer <token>" and the legacy "Token <token>" scheme are accepted.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	for _, scheme := range []string{"Bearer ", "Token "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):])
		}
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"Authentication credentials were not provided or are invalid"}`))
}

// RequireAuth validates the bearer token, loads the user, and stores it in
// the request context. Requests without a valid token for an active account
// get 401.
func RequireAuth(tokens services.TokenIssuer, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			userID, ok, err := tokens.Resolve(r.Context(), token)
			if err != nil || !ok {
				unauthorized(w)
				return
			}

			user, err := users.ByID(r.Context(), userID)
			if err != nil || !user.IsActive {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireStaff rejects non-staff users. Must be mounted inside RequireAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok || !user.IsStaff {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"success":false,"message":"You do not have permission to perform this action"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const sessionUserKey contextKey = "sessionUser"

// RequireSession guards endpoints that need a logged-in user. The session
// token is read from the Authorization bearer header and the resolved user
// is stored on the request context.
func RequireSession(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")

			session, err := service.Verify(r.Context(), token)
			if errors.Is(err, ErrSessionNotFound) {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), session.User)))
		})
	}
}

// WithUser attaches the session user to the context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, sessionUserKey, u)
}

// UserFromContext returns the session user set by RequireSession.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(sessionUserKey).(User)
	return u, ok
}

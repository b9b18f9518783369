package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	firstNameKey contextKey = "first_name"
)

// TokenValidator decouples this package from the user service; any type with
// the method satisfies it.
type TokenValidator interface {
	ValidateToken(tokenString string) (uuid.UUID, string, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(v TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: v}
}

// Handle authenticates the request from the session cookie and injects the
// caller's identity into the context.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("token")
		if err != nil || cookie.Value == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}

		userID, firstName, err := am.validator.ValidateToken(cookie.Value)
		if err != nil {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, firstNameKey, firstName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated caller's id from the context.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// FirstName returns the authenticated caller's first name from the context.
func FirstName(ctx context.Context) string {
	name, _ := ctx.Value(firstNameKey).(string)
	return name
}

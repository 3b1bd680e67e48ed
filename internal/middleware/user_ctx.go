package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/galaktika/backend/internal/models"
)

type contextKey string

const ctxUserKey contextKey = "user"

// UserLookup resolves the user id forwarded by the gateway.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserCtx resolves the X-User-ID header set by the upstream gateway
// (which has already authenticated the Telegram session) into the user
// row and stores it in request context. Requests without a resolvable
// user are rejected.
func UserCtx(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				http.Error(w, `{"error":"missing X-User-ID header"}`, http.StatusUnauthorized)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, `{"error":"malformed X-User-ID header"}`, http.StatusUnauthorized)
				return
			}
			user, err := users.GetByID(r.Context(), id)
			if err != nil {
				http.Error(w, `{"error":"unknown user"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromCtx returns the resolved user or nil.
func UserFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUserKey).(*models.User)
	return u
}

// WithUser returns a context carrying the given user. Used by tests.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

package middleware

import (
	"net/http"
)

// FrozenGuard rejects writes from accounts frozen by a failed ledger
// reconciliation. Frozen accounts stay readable; only mutations are
// halted pending operator review. Apply after UserCtx.
func FrozenGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromCtx(r.Context())
			if user == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if user.IsFrozen {
				http.Error(w, `{"error":"account frozen pending review"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

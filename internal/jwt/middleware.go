package jwt

import (
	"net/http"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
)

// AuthMiddlewareFunc validates tokens, checks the required capability, and
// injects claims into the request context. Used for HTTP routes.
func AuthMiddlewareFunc(mgr *Manager, required user.Capability) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, err := FromAuthorization(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := mgr.ParseAndValidate(raw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			// capability check happens once here, at the boundary
			if err := CapabilityAllowed(claims, required); err != nil {
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}

			ctx := InjectClaims(r.Context(), claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireClaims extracts JWT claims from the request context.
func RequireClaims(r *http.Request) *Claims {
	c, _ := FromContext(r.Context())
	return c
}

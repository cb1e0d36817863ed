package middleware

import (
	"net/http"

	"github.com/fleetworks/workshop-backend-go/internal/domain/identity"
	"github.com/fleetworks/workshop-backend-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RequirePrivileged requires supervisor or admin role
func RequirePrivileged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, identity.ErrForbidden)
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok {
			response.HandleError(w, identity.ErrForbidden)
			return
		}

		if !identity.Role(roleStr).Privileged() {
			response.HandleError(w, identity.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin requires admin role
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, identity.ErrForbidden)
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok {
			response.HandleError(w, identity.ErrForbidden)
			return
		}

		if !identity.Role(roleStr).Global() {
			response.HandleError(w, identity.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

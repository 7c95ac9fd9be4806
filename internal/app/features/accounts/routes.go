// internal/app/features/accounts/routes.go
package accounts

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/auth.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(sm.RequireSignedIn).Get("/profile", h.Profile)
	return r
}

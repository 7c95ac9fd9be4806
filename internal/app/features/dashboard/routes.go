// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the HTML pages under whatever mount point the top-level
// router chooses (e.g., "/dashboard").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/guest", h.ServeGuest)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
		pr.Get("/{role}", h.ServeRole)
	})
	return r
}

// APIRoutes mounts under /api/dashboard. Staff only.
func APIRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(string(models.RoleFaculty), string(models.RoleAdmin)))
	r.Get("/stats", h.Stats)
	r.Get("/pending", h.Pending)
	return r
}

// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/events.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.Create)
		pr.Post("/{id}/register", h.Register)
		pr.Post("/{id}/cancel", h.Cancel)

		pr.Group(func(staff chi.Router) {
			staff.Use(sm.RequireRole(string(models.RoleFaculty), string(models.RoleAdmin)))
			staff.Post("/{id}/approve", h.Approve)
			staff.Post("/{id}/reject", h.Reject)
		})
	})
	return r
}

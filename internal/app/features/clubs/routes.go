// internal/app/features/clubs/routes.go
package clubs

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/clubs. Browsing is public; everything else
// requires a signed-in user, and the service enforces club-level policy.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.With(sm.RequireRole(string(models.RoleFaculty), string(models.RoleAdmin))).Post("/", h.Create)
		pr.Post("/{id}/join", h.Join)
		pr.Post("/{id}/members/{userID}/approve", h.ApproveMember)
		pr.Post("/{id}/members/{userID}/reject", h.RejectMember)
	})
	return r
}

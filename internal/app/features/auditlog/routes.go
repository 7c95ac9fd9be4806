// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log API (typically at "/api/audit"). Admins only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(string(models.RoleAdmin)))
	r.Get("/", h.ServeList)
	return r
}

// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"
	"strings"

	accountsvc "github.com/dalemusser/clubhub/internal/app/service/accounts"
	clubsvc "github.com/dalemusser/clubhub/internal/app/service/clubs"
	dashsvc "github.com/dalemusser/clubhub/internal/app/service/dashboard"
	eventsvc "github.com/dalemusser/clubhub/internal/app/service/events"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/formutil"
	"github.com/dalemusser/clubhub/internal/app/system/respond"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the role landing pages and the staff dashboard API.
type Handler struct {
	Dashboard *dashsvc.Service
	Accounts  *accountsvc.Service
	Clubs     *clubsvc.Service
	Events    *eventsvc.Service
	Log       *zap.Logger
}

func NewHandler(dash *dashsvc.Service, accounts *accountsvc.Service, clubs *clubsvc.Service, events *eventsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Dashboard: dash,
		Accounts:  accounts,
		Clubs:     clubs,
		Events:    events,
		Log:       logger,
	}
}

type staffData struct {
	formutil.Base
	Stats   dashsvc.Stats
	Pending dashsvc.Pending
}

type studentData struct {
	formutil.Base
	Clubs    []accountsvc.ProfileClub
	Upcoming []models.Event
}

type guestData struct {
	formutil.Base
	Clubs    []models.Club
	Upcoming []models.Event
}

// ServeDashboard sends a signed-in user to their role's page.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	http.Redirect(w, r, "/dashboard/"+string(u.Role), http.StatusSeeOther)
}

// ServeRole handles GET /dashboard/{role}. A user asking for another
// role's page is redirected to their own.
func (h *Handler) ServeRole(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	want := strings.ToLower(chi.URLParam(r, "role"))
	if want != string(u.Role) {
		http.Redirect(w, r, "/dashboard/"+string(u.Role), http.StatusSeeOther)
		return
	}

	switch u.Role {
	case models.RoleAdmin, models.RoleFaculty:
		h.serveStaff(w, r)
	case models.RoleStudent:
		h.serveStudent(w, r, u)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (h *Handler) serveStaff(w http.ResponseWriter, r *http.Request) {
	var data staffData
	formutil.SetBase(&data.Base, r, "Staff Dashboard", "/")

	stats, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		h.Log.Error("dashboard stats", zap.Error(err))
		data.SetError("Some figures could not be loaded.")
	}
	pending, err := h.Dashboard.PendingApprovals(r.Context())
	if err != nil {
		h.Log.Error("dashboard pending approvals", zap.Error(err))
		data.SetError("Some figures could not be loaded.")
	}
	data.Stats, data.Pending = stats, pending
	templates.Render(w, r, "dashboard_staff", data)
}

func (h *Handler) serveStudent(w http.ResponseWriter, r *http.Request, u *auth.SessionUser) {
	var data studentData
	formutil.SetBase(&data.Base, r, "My Dashboard", "/")

	if p, err := h.Accounts.Profile(r.Context(), u.ID); err != nil {
		h.Log.Error("dashboard profile", zap.Error(err))
		data.SetError("Your clubs could not be loaded.")
	} else {
		data.Clubs = p.Clubs
	}
	data.Upcoming = h.upcoming(r)
	templates.Render(w, r, "dashboard_student", data)
}

// ServeGuest handles GET /dashboard/guest: active clubs and upcoming
// approved events, no sign-in required.
func (h *Handler) ServeGuest(w http.ResponseWriter, r *http.Request) {
	var data guestData
	formutil.SetBase(&data.Base, r, "Browse Clubs", "/login")

	clubs, err := h.Clubs.List(r.Context(), clubsvc.ListInput{})
	if err != nil {
		h.Log.Error("guest clubs", zap.Error(err))
		data.SetError("Clubs could not be loaded.")
	}
	data.Clubs = clubs
	data.Upcoming = h.upcoming(r)
	templates.Render(w, r, "dashboard_guest", data)
}

func (h *Handler) upcoming(r *http.Request) []models.Event {
	evs, err := h.Events.List(r.Context(), eventsvc.ListInput{Status: string(models.EventApproved), Upcoming: true})
	if err != nil {
		h.Log.Error("upcoming events", zap.Error(err))
		return nil
	}
	return evs
}

// Stats handles GET /api/dashboard/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Pending handles GET /api/dashboard/pending.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	out, err := h.Dashboard.PendingApprovals(r.Context())
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// internal/app/features/clubs/handler.go
package clubs

import (
	"context"
	"net/http"

	clubsvc "github.com/dalemusser/clubhub/internal/app/service/clubs"
	"github.com/dalemusser/clubhub/internal/app/system/auditlog"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/formutil"
	"github.com/dalemusser/clubhub/internal/app/system/respond"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the /api/clubs endpoints.
type Handler struct {
	Clubs *clubsvc.Service
	Audit *auditlog.Logger // nil disables auditing
	Log   *zap.Logger
}

func NewHandler(svc *clubsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Clubs: svc, Log: logger}
}

type messageResponse struct {
	Message string `json:"message"`
}

type createResponse struct {
	Message string      `json:"message"`
	Club    models.Club `json:"club"`
}

// List handles GET /api/clubs?category=&search=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.Clubs.List(r.Context(), clubsvc.ListInput{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Get handles GET /api/clubs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "Club")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	c, err := h.Clubs.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

// Create handles POST /api/clubs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	var in clubsvc.CreateClubInput
	if err := formutil.DecodeJSON(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	c, err := h.Clubs.Create(r.Context(), u.ID, in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.ClubCreated(r.Context(), r, u.ID, c.ID, c.Name)
	respond.JSON(w, http.StatusCreated, createResponse{Message: "Club created successfully", Club: c})
}

// Join handles POST /api/clubs/{id}/join.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := formutil.PathID(r, "id", "Club")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Clubs.Join(r.Context(), id, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, messageResponse{Message: "Membership request sent successfully"})
}

// ApproveMember handles POST /api/clubs/{id}/members/{userID}/approve.
func (h *Handler) ApproveMember(w http.ResponseWriter, r *http.Request) {
	h.decideMember(w, r, h.Clubs.ApproveMembership, true, "Membership approved successfully")
}

// RejectMember handles POST /api/clubs/{id}/members/{userID}/reject.
func (h *Handler) RejectMember(w http.ResponseWriter, r *http.Request) {
	h.decideMember(w, r, h.Clubs.RejectMembership, false, "Membership rejected")
}

func (h *Handler) decideMember(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, clubID, memberID, approverID primitive.ObjectID) error, approve bool, ok string) {
	u, _ := auth.CurrentUser(r)
	clubID, err := formutil.PathID(r, "id", "Club")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	memberID, err := formutil.PathID(r, "userID", "Member")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := decide(r.Context(), clubID, memberID, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.MembershipDecided(r.Context(), r, u.ID, clubID, memberID, approve)
	respond.JSON(w, http.StatusOK, messageResponse{Message: ok})
}

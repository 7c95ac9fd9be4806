// internal/app/features/events/handler.go
package events

import (
	"net/http"
	"strconv"

	eventsvc "github.com/dalemusser/clubhub/internal/app/service/events"
	"github.com/dalemusser/clubhub/internal/app/store/audit"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auditlog"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/formutil"
	"github.com/dalemusser/clubhub/internal/app/system/respond"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the /api/events endpoints.
type Handler struct {
	Events *eventsvc.Service
	Audit  *auditlog.Logger // nil disables auditing
	Log    *zap.Logger
}

func NewHandler(svc *eventsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Events: svc, Log: logger}
}

type messageResponse struct {
	Message string `json:"message"`
}

type createResponse struct {
	Message string       `json:"message"`
	Event   models.Event `json:"event"`
}

type rejectRequest struct {
	ApprovalNotes string `json:"approvalNotes"`
}

// List handles GET /api/events?status=&clubId=&upcoming=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := eventsvc.ListInput{Status: q.Get("status"), ClubID: q.Get("clubId")}
	if v := q.Get("upcoming"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respond.Error(w, h.Log, apperr.Validation("Upcoming must be true or false."))
			return
		}
		in.Upcoming = b
	}
	out, err := h.Events.List(r.Context(), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Get handles GET /api/events/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "Event")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ev, err := h.Events.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, ev)
}

// Create handles POST /api/events.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	var in eventsvc.CreateEventInput
	if err := formutil.DecodeJSON(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ev, err := h.Events.Create(r.Context(), u.ID, in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, createResponse{Message: "Event created successfully", Event: ev})
}

// Register handles POST /api/events/{id}/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := formutil.PathID(r, "id", "Event")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Events.Register(r.Context(), id, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, messageResponse{Message: "Successfully registered for event"})
}

// Approve handles POST /api/events/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := formutil.PathID(r, "id", "Event")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in eventsvc.ApproveInput
	if err := formutil.DecodeJSON(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Events.Approve(r.Context(), id, u.ID, in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.EventDecided(r.Context(), r, u.ID, id, audit.EventEventApproved)
	respond.JSON(w, http.StatusOK, messageResponse{Message: "Event approved successfully"})
}

// Reject handles POST /api/events/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := formutil.PathID(r, "id", "Event")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in rejectRequest
	if err := formutil.DecodeJSON(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Events.Reject(r.Context(), id, u.ID, in.ApprovalNotes); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.EventDecided(r.Context(), r, u.ID, id, audit.EventEventRejected)
	respond.JSON(w, http.StatusOK, messageResponse{Message: "Event rejected"})
}

// Cancel handles POST /api/events/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := formutil.PathID(r, "id", "Event")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Events.Cancel(r.Context(), id, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.EventDecided(r.Context(), r, u.ID, id, audit.EventEventCancelled)
	respond.JSON(w, http.StatusOK, messageResponse{Message: "Event cancelled"})
}

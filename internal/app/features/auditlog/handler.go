// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/clubhub/internal/app/store/audit"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/respond"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 500

// Querier reads audit events. *audit.Store satisfies it.
type Querier interface {
	Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error)
}

type Handler struct {
	Events Querier
	Log    *zap.Logger
}

// NewHandler constructs an audit log feature handler.
func NewHandler(events Querier, logger *zap.Logger) *Handler {
	return &Handler{Events: events, Log: logger}
}

// ServeList handles GET /api/audit. Query parameters: category, eventType,
// userId, since (YYYY-MM-DD), limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		respond.Error(w, h.Log, apperr.Internal("Failed to get audit log", err))
		return
	}
	respond.JSON(w, http.StatusOK, events)
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("eventType")),
		Limit:     audit.DefaultLimit,
	}

	switch f.Category {
	case "", audit.CategoryAuth, audit.CategoryAdmin:
	default:
		return f, apperr.Validation("Category must be auth or admin.")
	}

	if raw := strings.TrimSpace(q.Get("userId")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return f, apperr.Validation("User is not a valid id.")
		}
		f.UserID = &id
	}

	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, apperr.Validation("Since must be a date in YYYY-MM-DD format.")
		}
		f.Since = &t
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			return f, apperr.Validation("Limit must be between 1 and 500.")
		}
		f.Limit = int64(n)
	}
	return f, nil
}

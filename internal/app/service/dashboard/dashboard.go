// Package dashboard aggregates the numbers and queues shown to staff.
package dashboard

import (
	"context"
	"time"

	clubstore "github.com/dalemusser/clubhub/internal/app/store/clubs"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	metricsstore "github.com/dalemusser/clubhub/internal/app/store/metrics"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RecentLimit is how many recently created events Stats returns.
const RecentLimit = 5

type (
	Counter interface {
		DashboardCounts(ctx context.Context, now time.Time) (metricsstore.Counts, error)
	}

	ClubStore interface {
		CountByCategory(ctx context.Context) ([]clubstore.CategoryCount, error)
		WithPendingMembers(ctx context.Context) ([]models.Club, error)
	}

	EventStore interface {
		List(ctx context.Context, f eventstore.Filter) ([]models.Event, error)
		Recent(ctx context.Context, n int64) ([]models.Event, error)
	}

	UserStore interface {
		GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	}

	Service struct {
		counts Counter
		clubs  ClubStore
		events EventStore
		users  UserStore
		log    *zap.Logger
		now    func() time.Time
	}
)

func NewService(counts Counter, clubs ClubStore, events EventStore, users UserStore, log *zap.Logger) *Service {
	return &Service{counts: counts, clubs: clubs, events: events, users: users, log: log, now: time.Now}
}

// Stats is the staff dashboard summary.
type Stats struct {
	Stats           metricsstore.Counts       `json:"stats"`
	ClubsByCategory []clubstore.CategoryCount `json:"clubsByCategory"`
	RecentEvents    []models.Event            `json:"recentEvents"`
}

// PendingUser is the requester shown next to a pending membership.
type PendingUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// PendingMembership is one membership request awaiting a decision.
type PendingMembership struct {
	ClubID      string      `json:"clubId"`
	ClubName    string      `json:"clubName"`
	User        PendingUser `json:"user"`
	RequestDate time.Time   `json:"requestDate"`
}

// Pending is everything awaiting staff approval.
type Pending struct {
	PendingEvents      []models.Event      `json:"pendingEvents"`
	PendingMemberships []PendingMembership `json:"pendingMemberships"`
}

// Stats returns totals, the active-club tally by category (largest first),
// and the most recently created events.
func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "dashboard.stats")
	defer cancel()

	counts, err := svc.counts.DashboardCounts(ctx, svc.now().UTC())
	if err != nil {
		return Stats{}, apperr.Internal("Failed to get stats", err)
	}
	out := Stats{Stats: counts}

	cats, err := svc.clubs.CountByCategory(ctx)
	if err != nil {
		return Stats{}, apperr.Internal("Failed to get stats", err)
	}
	out.ClubsByCategory = cats

	recent, err := svc.events.Recent(ctx, RecentLimit)
	if err != nil {
		return Stats{}, apperr.Internal("Failed to get stats", err)
	}
	out.RecentEvents = recent
	return out, nil
}

// PendingApprovals lists pending events and pending membership requests.
// Requests from users that no longer resolve are skipped.
func (svc *Service) PendingApprovals(ctx context.Context) (Pending, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "dashboard.pending")
	defer cancel()

	evs, err := svc.events.List(ctx, eventstore.Filter{Status: models.EventPending})
	if err != nil {
		return Pending{}, apperr.Internal("Failed to get pending approvals", err)
	}

	clubs, err := svc.clubs.WithPendingMembers(ctx)
	if err != nil {
		return Pending{}, apperr.Internal("Failed to get pending approvals", err)
	}

	var ids []primitive.ObjectID
	for _, c := range clubs {
		for _, m := range c.Members {
			if m.Status == models.MembershipPending {
				ids = append(ids, m.UserID)
			}
		}
	}
	byID := map[primitive.ObjectID]models.User{}
	if len(ids) > 0 {
		users, err := svc.users.GetByIDs(ctx, ids)
		if err != nil {
			return Pending{}, apperr.Internal("Failed to get pending approvals", err)
		}
		for _, u := range users {
			byID[u.ID] = u
		}
	}

	out := Pending{PendingEvents: evs, PendingMemberships: []PendingMembership{}}
	for _, c := range clubs {
		for _, m := range c.Members {
			if m.Status != models.MembershipPending {
				continue
			}
			u, ok := byID[m.UserID]
			if !ok {
				continue
			}
			out.PendingMemberships = append(out.PendingMemberships, PendingMembership{
				ClubID:   c.ID.Hex(),
				ClubName: c.Name,
				User: PendingUser{
					ID:         u.ID.Hex(),
					Name:       u.Name,
					Email:      u.Email,
					Department: u.Department,
				},
				RequestDate: m.JoinedAt,
			})
		}
	}
	return out, nil
}

package metricsstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals shown on the staff dashboard.
type Counts struct {
	ActiveUsers    int64 `json:"totalUsers"`
	ActiveClubs    int64 `json:"totalClubs"`
	Events         int64 `json:"totalEvents"`
	PendingEvents  int64 `json:"pendingEvents"`
	UpcomingEvents int64 `json:"upcomingEvents"`
}

// FetchDashboardCounts returns the high-level counts used by the dashboard.
// The first failed count aborts the call. Upcoming means approved and dated
// at or after now.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database, now time.Time) (Counts, error) {
	var out Counts
	events := db.Collection("events")

	counts := []struct {
		dst    *int64
		coll   *mongo.Collection
		filter bson.M
		what   string
	}{
		{&out.ActiveUsers, db.Collection("users"), bson.M{"is_active": true}, "active users"},
		{&out.ActiveClubs, db.Collection("clubs"), bson.M{"is_active": true}, "active clubs"},
		{&out.Events, events, bson.M{}, "events"},
		{&out.PendingEvents, events, bson.M{"status": models.EventPending}, "pending events"},
		{&out.UpcomingEvents, events, bson.M{"status": models.EventApproved, "date": bson.M{"$gte": now}}, "upcoming events"},
	}
	for _, c := range counts {
		n, err := c.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", c.what, err)
		}
		*c.dst = n
	}
	return out, nil
}

// Store binds FetchDashboardCounts to a database for callers that take an
// interface.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// DashboardCounts is FetchDashboardCounts against the bound database.
func (s *Store) DashboardCounts(ctx context.Context, now time.Time) (Counts, error) {
	return FetchDashboardCounts(ctx, s.db, now)
}

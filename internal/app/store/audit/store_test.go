package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/store/audit"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log_AutoGeneratesIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.Query(ctx, audit.QueryFilter{UserID: &userID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	seed := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailed},
		{Category: audit.CategoryAdmin, EventType: audit.EventClubCreated, ActorID: &actor, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventEventApproved, ActorID: &actor, Success: true},
	}
	for i, e := range seed {
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	since := base.Add(90 * time.Second)

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   []string
	}{
		{"all newest first", audit.QueryFilter{}, []string{
			audit.EventEventApproved, audit.EventClubCreated, audit.EventLoginFailed, audit.EventLoginSuccess,
		}},
		{"category", audit.QueryFilter{Category: audit.CategoryAuth}, []string{audit.EventLoginFailed, audit.EventLoginSuccess}},
		{"event type", audit.QueryFilter{EventType: audit.EventClubCreated}, []string{audit.EventClubCreated}},
		{"actor", audit.QueryFilter{ActorID: &actor}, []string{audit.EventEventApproved, audit.EventClubCreated}},
		{"since", audit.QueryFilter{Since: &since}, []string{audit.EventEventApproved, audit.EventClubCreated}},
		{"limit", audit.QueryFilter{Limit: 1}, []string{audit.EventEventApproved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			got := make([]string, len(events))
			for i, e := range events {
				got[i] = e.EventType
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}

	n, err := store.Count(ctx, audit.QueryFilter{Category: audit.CategoryAdmin})
	if err != nil || n != 2 {
		t.Errorf("Count admin: got %d, %v; want 2", n, err)
	}
}

package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "correct-horse-battery"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db  *mongo.Database
	t   *testing.T
	seq int
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// stamp returns strictly increasing timestamps so ordering by created_at is
// deterministic within a test.
func (f *Fixtures) stamp() time.Time {
	f.seq++
	return time.Now().UTC().Truncate(time.Millisecond).Add(time.Duration(f.seq) * time.Millisecond)
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser creates an active user with the given role and TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string, role models.Role) models.User {
	f.t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := f.stamp()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		Clubs:        []models.ClubRef{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateStudent creates an active first-year student.
func (f *Fixtures) CreateStudent(ctx context.Context, name, email, studentID string) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, name, email, models.RoleStudent)
	_, err := f.db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": bson.M{"student_id": studentID, "year": 1}})
	if err != nil {
		f.t.Fatalf("failed to set student fields: %v", err)
	}
	u.StudentID = studentID
	u.Year = 1
	return u
}

// CreateClub creates an active club at version 1 with the given members.
func (f *Fixtures) CreateClub(ctx context.Context, name, category string, members ...models.Membership) models.Club {
	f.t.Helper()

	if members == nil {
		members = []models.Membership{}
	}
	now := f.stamp()
	c := models.Club{
		ID:              primitive.NewObjectID(),
		Name:            name,
		NameCI:          text.Fold(name),
		Description:     name + " description",
		Category:        category,
		Mission:         "Test mission",
		Vision:          "Test vision",
		EstablishedDate: now,
		IsActive:        true,
		Members:         members,
		Events:          []primitive.ObjectID{},
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.insert(ctx, "clubs", c)
	return c
}

// CreateEvent inserts e after filling in an id, timestamps, and an empty
// registration list.
func (f *Fixtures) CreateEvent(ctx context.Context, e models.Event) models.Event {
	f.t.Helper()

	e.ID = primitive.NewObjectID()
	if e.Status == "" {
		e.Status = models.EventPending
	}
	if e.RegisteredParticipants == nil {
		e.RegisteredParticipants = []models.Registration{}
	}
	if e.StartTime == "" {
		e.StartTime, e.EndTime = "18:00", "20:00"
	}
	now := f.stamp()
	e.CreatedAt = now
	e.UpdatedAt = now
	f.insert(ctx, "events", e)
	return e
}

// Deactivate sets is_active=false on the document with id in coll.
func (f *Fixtures) Deactivate(ctx context.Context, coll string, id primitive.ObjectID) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		f.t.Fatalf("failed to deactivate %s/%s: %v", coll, id.Hex(), err)
	}
}

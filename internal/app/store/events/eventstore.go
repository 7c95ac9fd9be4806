// Package eventstore persists events and their embedded registrations.
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no event matches the lookup.
var ErrNotFound = errors.New("event not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	Status models.EventStatus
	ClubID primitive.ObjectID
	// From keeps events dated on or after this instant.
	From time.Time
}

func (f Filter) query() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.ClubID.IsZero() {
		filter["club_id"] = f.ClubID
	}
	if !f.From.IsZero() {
		filter["date"] = bson.M{"$gte": f.From}
	}
	return filter
}

// Create inserts a new event with an empty registration list.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	e.ID = primitive.NewObjectID()
	if e.RegisteredParticipants == nil {
		e.RegisteredParticipants = []models.Registration{}
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// GetByID loads an event by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns events matching f ordered by date, then start time.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}})
	return s.find(ctx, f.query(), opts)
}

// Recent returns the n most recently created events.
func (s *Store) Recent(ctx context.Context, n int64) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(n)
	return s.find(ctx, bson.M{}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddRegistration appends reg if the user is not yet registered and the
// event has room (max_participants <= 0 means unlimited). It reports false
// when the guard did not match; callers re-read the event to find out why.
func (s *Store) AddRegistration(ctx context.Context, eventID primitive.ObjectID, reg models.Registration) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":                             eventID,
			"registered_participants.user_id": bson.M{"$ne": reg.UserID},
			"$expr": bson.M{"$or": bson.A{
				bson.M{"$lte": bson.A{"$max_participants", 0}},
				bson.M{"$lt": bson.A{
					bson.M{"$size": bson.M{"$ifNull": bson.A{"$registered_participants", bson.A{}}}},
					"$max_participants",
				}},
			}},
		},
		bson.M{
			"$push": bson.M{"registered_participants": reg},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Transition persists the approval fields of ev only if the stored status is
// still from. It reports false when another writer moved the event first.
func (s *Store) Transition(ctx context.Context, ev *models.Event, from models.EventStatus) (bool, error) {
	set := bson.M{
		"status":          ev.Status,
		"approval_notes":  ev.ApprovalNotes,
		"budget.approved": ev.Budget.Approved,
		"updated_at":      time.Now().UTC(),
	}
	if ev.ApprovedBy != nil {
		set["approved_by"] = *ev.ApprovedBy
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": ev.ID, "status": from},
		bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Count counts events matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

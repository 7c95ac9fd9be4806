// Package clubstore persists clubs and their embedded member lists.
//
// Member and event-reference appends are single atomic updates guarded by
// filter predicates. Whole-document writes go through Replace, which is
// checked against the document's version counter.
package clubstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/normalize"
	"github.com/dalemusser/clubhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no club matches the lookup.
	ErrNotFound = errors.New("club not found")
	// ErrDuplicateName is returned when a club with the same folded name exists.
	ErrDuplicateName = errors.New("club name already exists")
	// ErrVersionConflict is returned by Replace when the stored version no
	// longer matches the one that was loaded.
	ErrVersionConflict = errors.New("club was modified concurrently")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("clubs")}
}

// Filter narrows List. Empty fields do not filter.
type Filter struct {
	Category string
	Search   string
	// IncludeInactive lists soft-disabled clubs as well.
	IncludeInactive bool
}

// CategoryCount is one row of the active-clubs-by-category tally.
type CategoryCount struct {
	Category string `bson:"_id" json:"category"`
	Count    int64  `bson:"count" json:"count"`
}

// Create inserts a new club with an empty member list at version 1.
func (s *Store) Create(ctx context.Context, c models.Club) (models.Club, error) {
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.Category = normalize.Category(c.Category)
	if c.Members == nil {
		c.Members = []models.Membership{}
	}
	if c.Events == nil {
		c.Events = []primitive.ObjectID{}
	}
	c.Version = 1
	now := time.Now().UTC()
	if c.EstablishedDate.IsZero() {
		c.EstablishedDate = now
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Club{}, ErrDuplicateName
		}
		return models.Club{}, err
	}
	return c, nil
}

// GetByID loads a club by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Club, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByName looks up a club by case- and diacritic-insensitive name.
func (s *Store) GetByName(ctx context.Context, name string) (*models.Club, error) {
	return s.findOne(ctx, bson.M{"name_ci": text.Fold(name)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Club, error) {
	var c models.Club
	if err := s.c.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByIDs loads every listed club that exists.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Club, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

// List returns clubs matching f ordered by name. Category "all" does not
// filter. Search is a case-insensitive substring match on name or
// description.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Club, error) {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["is_active"] = true
	}
	if cat := normalize.Category(f.Category); cat != "" && cat != "all" {
		filter["category"] = cat
	}
	if q := normalize.Search(f.Search); q != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
}

// WithPendingMembers returns clubs holding at least one pending membership.
func (s *Store) WithPendingMembers(ctx context.Context) ([]models.Club, error) {
	return s.find(ctx, bson.M{"members.status": models.MembershipPending},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Club, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Club{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMember appends m to an active club's member list unless the user
// already holds a membership. It reports false when the guard did not match:
// the club is missing, inactive, or already has the user.
func (s *Store) AddMember(ctx context.Context, clubID primitive.ObjectID, m models.Membership) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":             clubID,
			"is_active":       true,
			"members.user_id": bson.M{"$ne": m.UserID},
		},
		bson.M{
			"$push": bson.M{"members": m},
			"$inc":  bson.M{"version": 1},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// AddEvent records eventID on the club. Repeated calls are harmless.
func (s *Store) AddEvent(ctx context.Context, clubID, eventID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": clubID},
		bson.M{
			"$addToSet": bson.M{"events": eventID},
			"$inc":      bson.M{"version": 1},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Replace writes c back if the stored version still equals c.Version, then
// advances c.Version. A mismatch returns ErrVersionConflict and leaves c
// unchanged.
func (s *Store) Replace(ctx context.Context, c *models.Club) error {
	loaded := c.Version
	next := *c
	next.Version = loaded + 1
	next.UpdatedAt = time.Now().UTC()
	next.NameCI = text.Fold(next.Name)

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": c.ID, "version": loaded}, next)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	*c = next
	return nil
}

// CountActive counts clubs that are not soft-disabled.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"is_active": true})
}

// CountByCategory tallies active clubs per category, largest first. Ties
// are ordered by category name.
func (s *Store) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []CategoryCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/normalize"
	"github.com/dalemusser/clubhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicateStudentID is returned when a student id is already registered.
	ErrDuplicateStudentID = errors.New("student id already exists")
	errBadRole            = errors.New(`role must be "student"|"faculty"|"admin"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a new user after normalizing identity fields. Non-students
// never carry a student id or year.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if !u.Role.Valid() {
		return models.User{}, errBadRole
	}
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.Role == models.RoleStudent {
		u.StudentID = normalize.StudentID(u.StudentID)
	} else {
		u.StudentID = ""
		u.Year = 0
	}
	if u.Clubs == nil {
		u.Clubs = []models.ClubRef{}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			if strings.Contains(err.Error(), "student_id") {
				return models.User{}, ErrDuplicateStudentID
			}
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByStudentID looks up a student by student id.
func (s *Store) GetByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"student_id": normalize.StudentID(studentID)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads every listed user that exists, in no particular order.
// The password hash is not loaded.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetProjection(bson.M{"password": 0})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddClubRef appends a club reference to the user unless one for the same
// club is already present.
func (s *Store) AddClubRef(ctx context.Context, userID primitive.ObjectID, ref models.ClubRef) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "clubs.club_id": bson.M{"$ne": ref.ClubID}},
		bson.M{
			"$push": bson.M{"clubs": ref},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}

// SetActive enables or disables login for a user. Users are never deleted.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActive counts users that can log in.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"is_active": true})
}

package userstore

import (
	"context"

	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher so every request sees the user's
// current role and active flag rather than what was true at sign-in.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser returns nil if the user is not found, inactive, or the lookup
// fails.
func (f *Fetcher) FetchUser(ctx context.Context, id primitive.ObjectID) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":       1,
		"name":      1,
		"email":     1,
		"role":      1,
		"is_active": 1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": id}, proj).Decode(&u); err != nil {
		return nil
	}
	if !u.IsActive {
		return nil
	}
	return &auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// internal/domain/models/club.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Club is an organizational unit with a faculty coordinator, an embedded
// member list, and references to its events.
//
// NOTE:
//   - Name is globally unique (enforced on name_ci).
//   - Version increases on every write to the document and guards
//     read-modify-replace paths (membership approval/rejection).
type Club struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Mission     string             `bson:"mission" json:"mission"`
	Vision      string             `bson:"vision" json:"vision"`

	FacultyCoordinator primitive.ObjectID `bson:"faculty_coordinator" json:"facultyCoordinator"`
	EstablishedDate    time.Time          `bson:"established_date" json:"establishedDate"`
	IsActive           bool               `bson:"is_active" json:"isActive"`

	Members []Membership         `bson:"members" json:"members"`
	Events  []primitive.ObjectID `bson:"events" json:"events"`

	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Membership is a user's relationship to a club.
// At most one per (club, user).
type Membership struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Role     string             `bson:"role" json:"role"`
	Status   MembershipStatus   `bson:"status" json:"status"`
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
}

// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents students, faculty, and admins.
//
// NOTE:
//   - Email is stored normalized (trimmed, lowercase) and is unique.
//   - StudentID is only set for students and is unique among them.
//   - Users are never hard-deleted; IsActive=false disables login.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Role         Role               `bson:"role" json:"role"`

	StudentID  string `bson:"student_id,omitempty" json:"studentId,omitempty"`
	Year       int    `bson:"year,omitempty" json:"year,omitempty"`
	Department string `bson:"department" json:"department"`

	IsActive bool      `bson:"is_active" json:"isActive"`
	Clubs    []ClubRef `bson:"clubs,omitempty" json:"clubs,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ClubRef is the denormalized pointer a user keeps to each club they asked
// to join. Club documents remain authoritative for membership status.
type ClubRef struct {
	ClubID primitive.ObjectID `bson:"club_id" json:"clubId"`
	Role   string             `bson:"role" json:"role"`
}

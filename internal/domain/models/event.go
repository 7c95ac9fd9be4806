// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a scheduled activity owned by a club. It is created pending,
// approved or rejected by faculty/admins, and accepts registrations up to
// MaxParticipants (0 means unlimited).
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	ClubID      primitive.ObjectID `bson:"club_id" json:"clubId"`
	Organizer   primitive.ObjectID `bson:"organizer" json:"organizer"`
	EventType   string             `bson:"event_type" json:"eventType"`
	Venue       string             `bson:"venue" json:"venue"`
	Date        time.Time          `bson:"date" json:"date"`
	StartTime   string             `bson:"start_time" json:"startTime"` // "HH:MM"
	EndTime     string             `bson:"end_time" json:"endTime"`     // "HH:MM"

	MaxParticipants int    `bson:"max_participants" json:"maxParticipants"`
	Budget          Budget `bson:"budget" json:"budget"`

	Status                 EventStatus    `bson:"status" json:"status"`
	RegisteredParticipants []Registration `bson:"registered_participants" json:"registeredParticipants"`

	ApprovedBy    *primitive.ObjectID `bson:"approved_by,omitempty" json:"approvedBy,omitempty"`
	ApprovalNotes string              `bson:"approval_notes,omitempty" json:"approvalNotes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Budget holds the requested and approved amounts for an event.
type Budget struct {
	Requested float64 `bson:"requested" json:"requested"`
	Approved  float64 `bson:"approved" json:"approved"`
}

// Registration records a user's sign-up for an event.
// At most one per (event, user).
type Registration struct {
	UserID       primitive.ObjectID `bson:"user_id" json:"userId"`
	RegisteredAt time.Time          `bson:"registered_at" json:"registeredAt"`
}

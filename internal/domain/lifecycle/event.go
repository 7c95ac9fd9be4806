package lifecycle

import (
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApproveEvent moves a pending event to approved and records the approver,
// notes, and approved budget.
func ApproveEvent(ev *models.Event, approverID primitive.ObjectID, notes string, approvedBudget float64) error {
	if err := requirePending(ev); err != nil {
		return err
	}
	ev.Status = models.EventApproved
	ev.ApprovedBy = &approverID
	ev.ApprovalNotes = notes
	ev.Budget.Approved = approvedBudget
	return nil
}

// RejectEvent moves a pending event to rejected.
func RejectEvent(ev *models.Event, approverID primitive.ObjectID, notes string) error {
	if err := requirePending(ev); err != nil {
		return err
	}
	ev.Status = models.EventRejected
	ev.ApprovedBy = &approverID
	ev.ApprovalNotes = notes
	return nil
}

// CancelEvent moves an event in any other state to cancelled.
func CancelEvent(ev *models.Event) error {
	if ev.Status == models.EventCancelled {
		return ErrEventCancelled
	}
	ev.Status = models.EventCancelled
	return nil
}

func requirePending(ev *models.Event) error {
	if ev.Status != models.EventPending {
		return ErrEventNotPending
	}
	return nil
}

// FindRegistration returns the index of userID's registration, or -1.
func FindRegistration(ev *models.Event, userID primitive.ObjectID) int {
	for i := range ev.RegisteredParticipants {
		if ev.RegisteredParticipants[i].UserID == userID {
			return i
		}
	}
	return -1
}

// CheckRegister reports why userID cannot register for ev, or nil if a
// registration would be accepted.
func CheckRegister(ev *models.Event, userID primitive.ObjectID) error {
	if FindRegistration(ev, userID) >= 0 {
		return ErrAlreadyRegistered
	}
	if ev.MaxParticipants > 0 && len(ev.RegisteredParticipants) >= ev.MaxParticipants {
		return ErrEventFull
	}
	return nil
}

// Register appends a registration for userID stamped with now.
func Register(ev *models.Event, userID primitive.ObjectID, now time.Time) (models.Registration, error) {
	if err := CheckRegister(ev, userID); err != nil {
		return models.Registration{}, err
	}
	reg := models.Registration{UserID: userID, RegisteredAt: now}
	ev.RegisteredParticipants = append(ev.RegisteredParticipants, reg)
	return reg, nil
}

package lifecycle

import (
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FindMember returns the index of userID's membership in club, or -1.
func FindMember(club *models.Club, userID primitive.ObjectID) int {
	for i := range club.Members {
		if club.Members[i].UserID == userID {
			return i
		}
	}
	return -1
}

// NewMembership builds the pending membership created by a join request.
func NewMembership(userID primitive.ObjectID, now time.Time) models.Membership {
	return models.Membership{
		UserID:   userID,
		Role:     models.ClubRoleMember,
		Status:   models.MembershipPending,
		JoinedAt: now,
	}
}

// Join appends a pending membership for userID.
// Any existing membership, whatever its status, is a conflict.
func Join(club *models.Club, userID primitive.ObjectID, now time.Time) (models.Membership, error) {
	if FindMember(club, userID) >= 0 {
		return models.Membership{}, ErrAlreadyMember
	}
	m := NewMembership(userID, now)
	club.Members = append(club.Members, m)
	return m, nil
}

// Approve moves userID's membership to active. Approving an already active
// membership leaves it unchanged.
func Approve(club *models.Club, userID primitive.ObjectID) error {
	i := FindMember(club, userID)
	if i < 0 {
		return ErrMemberNotFound
	}
	club.Members[i].Status = models.MembershipActive
	return nil
}

// Reject moves a pending membership to rejected.
func Reject(club *models.Club, userID primitive.ObjectID) error {
	i := FindMember(club, userID)
	if i < 0 {
		return ErrMemberNotFound
	}
	if club.Members[i].Status != models.MembershipPending {
		return ErrMembershipNotPending
	}
	club.Members[i].Status = models.MembershipRejected
	return nil
}

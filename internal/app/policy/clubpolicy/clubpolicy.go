// Package clubpolicy decides who may act on a club and its events.
//
// Authorization rules:
//   - Faculty and admins can approve memberships, create events, approve,
//     reject or cancel events, and create clubs
//   - Active club officers (president, vice-president, secretary) can approve
//     or reject membership requests for their club
//   - Any active member can create events for their club
//   - The organizer of an event can cancel it
//   - Event approval is decided by global role only; club officers cannot
//     approve events
//
// Every function is pure. Callers pass the club as loaded in the current
// operation, never a cached copy.
package clubpolicy

import (
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipOf returns userID's membership in club, or nil.
func MembershipOf(club *models.Club, userID primitive.ObjectID) *models.Membership {
	if club == nil {
		return nil
	}
	for i := range club.Members {
		if club.Members[i].UserID == userID {
			return &club.Members[i]
		}
	}
	return nil
}

// CanApproveMembership reports whether the actor may approve or reject
// membership requests for club.
func CanApproveMembership(club *models.Club, actorRole models.Role, m *models.Membership) bool {
	if actorRole.IsStaff() {
		return true
	}
	if m == nil {
		return false
	}
	return m.Status == models.MembershipActive && models.IsOfficerRole(m.Role)
}

// CanCreateEvent reports whether the actor may create an event for club.
func CanCreateEvent(club *models.Club, actorRole models.Role, m *models.Membership) bool {
	if actorRole.IsStaff() {
		return true
	}
	return m != nil && m.Status == models.MembershipActive
}

// CanApproveEvent reports whether the actor may approve or reject events.
func CanApproveEvent(actorRole models.Role) bool {
	return actorRole.IsStaff()
}

// CanCreateClub reports whether the actor may create clubs.
func CanCreateClub(actorRole models.Role) bool {
	return actorRole.IsStaff()
}

// CanCancelEvent reports whether the actor may cancel ev.
func CanCancelEvent(ev *models.Event, actorID primitive.ObjectID, actorRole models.Role) bool {
	if actorRole.IsStaff() {
		return true
	}
	return ev != nil && !actorID.IsZero() && ev.Organizer == actorID
}

// internal/domain/models/roles.go
package models

import (
	"fmt"
	"strings"
)

// Role is a user's global role.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r is faculty or admin.
func (r Role) IsStaff() bool {
	return r == RoleFaculty || r == RoleAdmin
}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// MembershipStatus is the state of a club membership.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipActive   MembershipStatus = "active"
	MembershipRejected MembershipStatus = "rejected"
)

// Valid reports whether s is one of the known membership statuses.
func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipPending, MembershipActive, MembershipRejected:
		return true
	}
	return false
}

// EventStatus is the approval state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPending   EventStatus = "pending"
	EventApproved  EventStatus = "approved"
	EventRejected  EventStatus = "rejected"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is one of the known event statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPending, EventApproved, EventRejected, EventCancelled:
		return true
	}
	return false
}

// ParseEventStatus normalizes s and returns the matching EventStatus.
func ParseEventStatus(s string) (EventStatus, error) {
	st := EventStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown event status %q", s)
	}
	return st, nil
}

// In-club role labels. The label is free-form; these are the values the
// policy layer recognizes.
const (
	ClubRoleMember        = "member"
	ClubRolePresident     = "president"
	ClubRoleVicePresident = "vice-president"
	ClubRoleSecretary     = "secretary"
)

// IsOfficerRole reports whether label names a club officer. Labels match
// exactly; "President" or "secretary " are not officers.
func IsOfficerRole(label string) bool {
	switch label {
	case ClubRolePresident, ClubRoleVicePresident, ClubRoleSecretary:
		return true
	}
	return false
}

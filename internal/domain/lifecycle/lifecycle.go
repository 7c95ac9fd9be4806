// Package lifecycle holds the state transitions for club memberships, event
// approval, and event registration.
//
// Every function here is pure: it inspects and mutates the in-memory model
// it is handed and never touches a store. Callers load the current document,
// apply a transition, and persist the result (see the clubs and events
// services). Failures are reported with the sentinel errors below so the
// service layer can map them onto its error taxonomy.
package lifecycle

import "errors"

var (
	// ErrAlreadyMember is returned by Join when the user already has a
	// membership of any status in the club.
	ErrAlreadyMember = errors.New("already a member of this club")
	// ErrMemberNotFound is returned when no membership exists for the user.
	ErrMemberNotFound = errors.New("member not found")
	// ErrMembershipNotPending is returned by Reject for non-pending members.
	ErrMembershipNotPending = errors.New("membership is not pending")

	// ErrEventNotPending is returned when approving or rejecting an event
	// that has already left the pending state.
	ErrEventNotPending = errors.New("event is not pending approval")
	// ErrEventCancelled is returned when cancelling an already cancelled event.
	ErrEventCancelled = errors.New("event is already cancelled")

	// ErrAlreadyRegistered is returned when the user is already registered.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrEventFull is returned when the event has reached capacity.
	ErrEventFull = errors.New("event is full")
)

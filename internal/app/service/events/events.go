// Package events creates events, runs them through approval, and takes
// registrations.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/policy/clubpolicy"
	clubstore "github.com/dalemusser/clubhub/internal/app/store/clubs"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/clubhub/internal/app/system/inputval"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/domain/lifecycle"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrEventNotFound     = apperr.NotFound("Event not found")
	ErrClubNotFound      = apperr.NotFound("Club not found")
	ErrCreateForbidden   = apperr.Forbidden("Not authorized to create events for this club")
	ErrApproveForbidden  = apperr.Forbidden("Unauthorized to approve events")
	ErrCancelForbidden   = apperr.Forbidden("Not authorized to cancel this event")
	ErrAlreadyRegistered = apperr.Conflict("Already registered for this event")
	ErrEventFull         = apperr.Conflict("Event is full")
	ErrNotPending        = apperr.Conflict("Event is not pending approval")
	ErrAlreadyCancelled  = apperr.Conflict("Event is already cancelled")
	ErrConcurrentUpdate  = apperr.Conflict("Event was modified concurrently; retry")
)

type (
	EventStore interface {
		Create(ctx context.Context, e models.Event) (models.Event, error)
		GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
		List(ctx context.Context, f eventstore.Filter) ([]models.Event, error)
		AddRegistration(ctx context.Context, eventID primitive.ObjectID, reg models.Registration) (bool, error)
		Transition(ctx context.Context, ev *models.Event, from models.EventStatus) (bool, error)
	}

	ClubStore interface {
		GetByID(ctx context.Context, id primitive.ObjectID) (*models.Club, error)
		AddEvent(ctx context.Context, clubID, eventID primitive.ObjectID) error
	}

	UserStore interface {
		GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	}

	Service struct {
		events EventStore
		clubs  ClubStore
		users  UserStore
		notify notify.Publisher
		log    *zap.Logger
		now    func() time.Time
	}
)

func NewService(events EventStore, clubs ClubStore, users UserStore, pub notify.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = notify.Discard
	}
	return &Service{events: events, clubs: clubs, users: users, notify: pub, log: log, now: time.Now}
}

// CreateEventInput is the body of a create-event request.
type CreateEventInput struct {
	Title           string  `json:"title" validate:"required,notblank,max=200" label:"Title"`
	Description     string  `json:"description" validate:"required,notblank,max=4000" label:"Description"`
	ClubID          string  `json:"clubId" validate:"required,objectid" label:"Club"`
	EventType       string  `json:"eventType" validate:"required,notblank,max=60" label:"Event type"`
	Venue           string  `json:"venue" validate:"required,notblank,max=200" label:"Venue"`
	Date            string  `json:"date" validate:"required,ymd" label:"Date"`
	StartTime       string  `json:"startTime" validate:"required,hhmm" label:"Start time"`
	EndTime         string  `json:"endTime" validate:"required,hhmm" label:"End time"`
	MaxParticipants int     `json:"maxParticipants" validate:"gte=0" label:"Max participants"`
	Budget          float64 `json:"budget" validate:"gte=0" label:"Budget"`
}

// ApproveInput is the body of an approve request. ApprovedBudget defaults
// to 0.
type ApproveInput struct {
	ApprovalNotes  string  `json:"approvalNotes" validate:"max=2000" label:"Approval notes"`
	ApprovedBudget float64 `json:"approvedBudget" validate:"gte=0" label:"Approved budget"`
}

// ListInput narrows List. Zero fields do not filter.
type ListInput struct {
	Status   string
	ClubID   string
	Upcoming bool
}

// Create schedules a pending event for a club. Faculty, admins, and active
// members of the club may create events.
func (svc *Service) Create(ctx context.Context, actorID primitive.ObjectID, in CreateEventInput) (models.Event, error) {
	in.Title = htmlsanitize.PlainText(in.Title)
	in.EventType = htmlsanitize.PlainText(in.EventType)
	in.Venue = htmlsanitize.PlainText(in.Venue)
	in.Description = htmlsanitize.Sanitize(in.Description)
	if res := inputval.Validate(in); res.HasErrors() {
		return models.Event{}, apperr.Validation(res.First())
	}
	clubID, _ := primitive.ObjectIDFromHex(in.ClubID)
	date, _ := time.Parse(time.DateOnly, in.Date)

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "events.create")
	defer cancel()

	club, err := svc.clubs.GetByID(ctx, clubID)
	if errors.Is(err, clubstore.ErrNotFound) {
		return models.Event{}, ErrClubNotFound
	}
	if err != nil {
		return models.Event{}, apperr.Internal("Failed to create event", err)
	}
	if !club.IsActive {
		return models.Event{}, ErrClubNotFound
	}

	actor, err := svc.loadActor(ctx, actorID, "Failed to create event")
	if err != nil {
		return models.Event{}, err
	}
	if actor == nil || !clubpolicy.CanCreateEvent(club, actor.Role, clubpolicy.MembershipOf(club, actorID)) {
		return models.Event{}, ErrCreateForbidden
	}

	ev, err := svc.events.Create(ctx, models.Event{
		Title:           in.Title,
		Description:     in.Description,
		ClubID:          clubID,
		Organizer:       actorID,
		EventType:       in.EventType,
		Venue:           in.Venue,
		Date:            date,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		MaxParticipants: in.MaxParticipants,
		Budget:          models.Budget{Requested: in.Budget},
		Status:          models.EventPending,
	})
	if err != nil {
		return models.Event{}, apperr.Internal("Failed to create event", err)
	}
	if err := svc.clubs.AddEvent(ctx, clubID, ev.ID); err != nil {
		return models.Event{}, apperr.Internal("Failed to create event", err)
	}

	svc.log.Info("event created", zap.String("event_id", ev.ID.Hex()), zap.String("club_id", clubID.Hex()))
	svc.notify.Publish(ctx, notify.TopicEvents, notify.Message{
		Type:      notify.EventCreated,
		EventID:   ev.ID.Hex(),
		ClubID:    clubID.Hex(),
		ClubName:  club.Name,
		Title:     ev.Title,
		Organizer: actor.Name,
	})
	return ev, nil
}

// Register signs userID up for the event. Registration is not restricted
// by event status.
func (svc *Service) Register(ctx context.Context, eventID, userID primitive.ObjectID) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "events.register")
	defer cancel()

	ev, err := svc.loadEvent(ctx, eventID, "Failed to register for event")
	if err != nil {
		return err
	}
	if err := lifecycle.CheckRegister(ev, userID); err != nil {
		return mapLifecycle(err)
	}

	reg := models.Registration{UserID: userID, RegisteredAt: svc.now().UTC()}
	added, err := svc.events.AddRegistration(ctx, eventID, reg)
	if err != nil {
		return apperr.Internal("Failed to register for event", err)
	}
	if !added {
		// Lost a race for the last seat or a double submit; re-read to say which.
		ev, err := svc.loadEvent(ctx, eventID, "Failed to register for event")
		if err != nil {
			return err
		}
		if err := lifecycle.CheckRegister(ev, userID); err != nil {
			return mapLifecycle(err)
		}
		return ErrConcurrentUpdate
	}
	return nil
}

// Approve moves a pending event to approved. Only faculty and admins may
// approve, whatever their standing in the club.
func (svc *Service) Approve(ctx context.Context, eventID, approverID primitive.ObjectID, in ApproveInput) error {
	in.ApprovalNotes = htmlsanitize.PlainText(in.ApprovalNotes)
	if res := inputval.Validate(in); res.HasErrors() {
		return apperr.Validation(res.First())
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "events.approve")
	defer cancel()

	approver, err := svc.requireApprover(ctx, approverID, "Failed to approve event")
	if err != nil {
		return err
	}
	ev, err := svc.loadEvent(ctx, eventID, "Failed to approve event")
	if err != nil {
		return err
	}
	if err := lifecycle.ApproveEvent(ev, approverID, in.ApprovalNotes, in.ApprovedBudget); err != nil {
		return mapLifecycle(err)
	}
	if err := svc.transition(ctx, ev, models.EventPending, "Failed to approve event"); err != nil {
		return err
	}

	svc.log.Info("event approved", zap.String("event_id", eventID.Hex()), zap.String("by", approverID.Hex()))
	svc.notify.Publish(ctx, notify.TopicEvents, notify.Message{
		Type:       notify.EventApproved,
		EventID:    eventID.Hex(),
		ClubID:     ev.ClubID.Hex(),
		ClubName:   svc.clubName(ctx, ev.ClubID),
		Title:      ev.Title,
		ApprovedBy: approver.Name,
	})
	return nil
}

// Reject moves a pending event to rejected.
func (svc *Service) Reject(ctx context.Context, eventID, approverID primitive.ObjectID, notes string) error {
	notes = htmlsanitize.PlainText(notes)

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "events.reject")
	defer cancel()

	approver, err := svc.requireApprover(ctx, approverID, "Failed to reject event")
	if err != nil {
		return err
	}
	ev, err := svc.loadEvent(ctx, eventID, "Failed to reject event")
	if err != nil {
		return err
	}
	if err := lifecycle.RejectEvent(ev, approverID, notes); err != nil {
		return mapLifecycle(err)
	}
	if err := svc.transition(ctx, ev, models.EventPending, "Failed to reject event"); err != nil {
		return err
	}

	svc.log.Info("event rejected", zap.String("event_id", eventID.Hex()), zap.String("by", approverID.Hex()))
	svc.notify.Publish(ctx, notify.TopicEvents, notify.Message{
		Type:       notify.EventRejected,
		EventID:    eventID.Hex(),
		ClubID:     ev.ClubID.Hex(),
		ClubName:   svc.clubName(ctx, ev.ClubID),
		Title:      ev.Title,
		ApprovedBy: approver.Name,
	})
	return nil
}

// Cancel cancels an event. Faculty, admins, and the event's organizer may
// cancel.
func (svc *Service) Cancel(ctx context.Context, eventID, actorID primitive.ObjectID) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "events.cancel")
	defer cancel()

	actor, err := svc.loadActor(ctx, actorID, "Failed to cancel event")
	if err != nil {
		return err
	}
	ev, err := svc.loadEvent(ctx, eventID, "Failed to cancel event")
	if err != nil {
		return err
	}
	if actor == nil || !clubpolicy.CanCancelEvent(ev, actorID, actor.Role) {
		return ErrCancelForbidden
	}

	from := ev.Status
	if err := lifecycle.CancelEvent(ev); err != nil {
		return mapLifecycle(err)
	}
	if err := svc.transition(ctx, ev, from, "Failed to cancel event"); err != nil {
		if errors.Is(err, ErrNotPending) {
			return ErrConcurrentUpdate
		}
		return err
	}

	svc.log.Info("event cancelled", zap.String("event_id", eventID.Hex()), zap.String("by", actorID.Hex()))
	svc.notify.Publish(ctx, notify.TopicEvents, notify.Message{
		Type:     notify.EventCancelled,
		EventID:  eventID.Hex(),
		ClubID:   ev.ClubID.Hex(),
		ClubName: svc.clubName(ctx, ev.ClubID),
		Title:    ev.Title,
	})
	return nil
}

// List returns events ordered by date. Upcoming keeps events dated now or
// later.
func (svc *Service) List(ctx context.Context, in ListInput) ([]models.Event, error) {
	var f eventstore.Filter
	if in.Status != "" {
		st, err := models.ParseEventStatus(in.Status)
		if err != nil {
			return nil, apperr.Validation("Status must be one of: draft, pending, approved, rejected, cancelled.")
		}
		f.Status = st
	}
	if in.ClubID != "" {
		id, err := primitive.ObjectIDFromHex(in.ClubID)
		if err != nil {
			return nil, apperr.Validation("Club is not a valid id.")
		}
		f.ClubID = id
	}
	if in.Upcoming {
		f.From = svc.now().UTC()
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "events.list")
	defer cancel()

	evs, err := svc.events.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("Failed to get events", err)
	}
	return evs, nil
}

// Get returns one event.
func (svc *Service) Get(ctx context.Context, eventID primitive.ObjectID) (*models.Event, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), svc.log, "events.get")
	defer cancel()
	return svc.loadEvent(ctx, eventID, "Failed to get event")
}

// transition persists ev if its stored status is still from.
func (svc *Service) transition(ctx context.Context, ev *models.Event, from models.EventStatus, failure string) error {
	ok, err := svc.events.Transition(ctx, ev, from)
	if err != nil {
		return apperr.Internal(failure, err)
	}
	if !ok {
		return ErrNotPending
	}
	return nil
}

func (svc *Service) requireApprover(ctx context.Context, id primitive.ObjectID, failure string) (*models.User, error) {
	u, err := svc.loadActor(ctx, id, failure)
	if err != nil {
		return nil, err
	}
	if u == nil || !clubpolicy.CanApproveEvent(u.Role) {
		return nil, ErrApproveForbidden
	}
	return u, nil
}

func (svc *Service) loadEvent(ctx context.Context, id primitive.ObjectID, failure string) (*models.Event, error) {
	ev, err := svc.events.GetByID(ctx, id)
	if errors.Is(err, eventstore.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, apperr.Internal(failure, err)
	}
	return ev, nil
}

// loadActor returns the acting user, or nil when they do not exist or are
// inactive.
func (svc *Service) loadActor(ctx context.Context, id primitive.ObjectID, failure string) (*models.User, error) {
	u, err := svc.users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(failure, err)
	}
	if !u.IsActive {
		return nil, nil
	}
	return u, nil
}

// clubName is for notifications only; a lookup failure yields "".
func (svc *Service) clubName(ctx context.Context, id primitive.ObjectID) string {
	c, err := svc.clubs.GetByID(ctx, id)
	if err != nil {
		return ""
	}
	return c.Name
}

func mapLifecycle(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrAlreadyRegistered):
		return ErrAlreadyRegistered
	case errors.Is(err, lifecycle.ErrEventFull):
		return ErrEventFull
	case errors.Is(err, lifecycle.ErrEventNotPending):
		return ErrNotPending
	case errors.Is(err, lifecycle.ErrEventCancelled):
		return ErrAlreadyCancelled
	}
	return apperr.Internal("Event update failed", err)
}

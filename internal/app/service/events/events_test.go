package events_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/service/events"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/clubhub/internal/testutil/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc     *events.Service
	ms      *memstore.Store
	rec     *memstore.Recorder
	faculty models.User
	member  models.User
	pending models.User
	club    models.Club
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := memstore.New()
	rec := &memstore.Recorder{}
	f := &fixture{
		svc:     events.NewService(ms.Events, ms.Clubs, ms.Users, rec, zap.NewNop()),
		ms:      ms,
		rec:     rec,
		faculty: ms.SeedUser(t, "Prof Ada", models.RoleFaculty),
		member:  ms.SeedUser(t, "Mia Member", models.RoleStudent),
		pending: ms.SeedUser(t, "Pete Pending", models.RoleStudent),
	}
	f.club = ms.Clubs.Put(models.Club{
		Name:     "Robotics",
		Category: "technology",
		IsActive: true,
		Members: []models.Membership{
			{UserID: f.member.ID, Role: "member", Status: models.MembershipActive},
			{UserID: f.pending.ID, Role: "member", Status: models.MembershipPending},
		},
	})
	return f
}

func (f *fixture) input() events.CreateEventInput {
	return events.CreateEventInput{
		Title:           "Robot Wars",
		Description:     "Bring your bot.",
		ClubID:          f.club.ID.Hex(),
		EventType:       "competition",
		Venue:           "Hall A",
		Date:            "2030-05-01",
		StartTime:       "18:00",
		EndTime:         "20:30",
		MaxParticipants: 10,
		Budget:          150,
	}
}

// seedEvent stores an event in the given state.
func (f *fixture) seedEvent(status models.EventStatus, max int) models.Event {
	return f.ms.Events.Put(models.Event{
		Title:           "Workshop",
		ClubID:          f.club.ID,
		Organizer:       f.member.ID,
		Date:            time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:          status,
		MaxParticipants: max,
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	for name, actor := range map[string]func(*fixture) primitive.ObjectID{
		"faculty":       func(f *fixture) primitive.ObjectID { return f.faculty.ID },
		"active member": func(f *fixture) primitive.ObjectID { return f.member.ID },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ev, err := f.svc.Create(ctx, actor(f), f.input())
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if ev.Status != models.EventPending {
				t.Errorf("status: got %q, want pending", ev.Status)
			}
			if ev.Organizer != actor(f) || ev.ClubID != f.club.ID {
				t.Errorf("organizer/club: %+v", ev)
			}
			if !ev.Date.Equal(time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("date: got %v", ev.Date)
			}
			if ev.Budget != (models.Budget{Requested: 150}) {
				t.Errorf("budget: %+v", ev.Budget)
			}

			club, _ := f.ms.Clubs.GetByID(ctx, f.club.ID)
			if !reflect.DeepEqual(club.Events, []primitive.ObjectID{ev.ID}) {
				t.Errorf("club events: %v", club.Events)
			}
			if len(f.rec.Messages) != 1 || f.rec.Messages[0].Type != notify.EventCreated || f.rec.Topics[0] != notify.TopicEvents {
				t.Errorf("notifications: %+v", f.rec.Messages)
			}
		})
	}
}

func TestCreate_Forbidden(t *testing.T) {
	f := newFixture(t)
	outsider := f.ms.SeedUser(t, "Olly Outsider", models.RoleStudent)

	for name, actor := range map[string]primitive.ObjectID{
		"pending member": f.pending.ID,
		"non-member":     outsider.ID,
		"unknown":        primitive.NewObjectID(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), actor, f.input())
			if !errors.Is(err, events.ErrCreateForbidden) {
				t.Errorf("got %v, want ErrCreateForbidden", err)
			}
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		mutate func(*events.CreateEventInput)
		want   string
	}{
		{"missing title", func(in *events.CreateEventInput) { in.Title = "" }, "Title is required."},
		{"bad club id", func(in *events.CreateEventInput) { in.ClubID = "xyz" }, "Club is not a valid id."},
		{"bad date", func(in *events.CreateEventInput) { in.Date = "2030-13-01" }, "Date must be a date in YYYY-MM-DD format."},
		{"bad time", func(in *events.CreateEventInput) { in.StartTime = "6pm" }, "Start time must be a time in HH:MM format."},
		{"negative capacity", func(in *events.CreateEventInput) { in.MaxParticipants = -1 }, "Max participants must be at least 0."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input()
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), f.faculty.ID, in)
			if apperr.KindOf(err) != apperr.KindValidation || apperr.Message(err) != tt.want {
				t.Errorf("got %v (%v), want validation %q", apperr.KindOf(err), err, tt.want)
			}
		})
	}
}

func TestCreate_ClubMissingOrInactive(t *testing.T) {
	f := newFixture(t)
	inactive := f.ms.Clubs.Put(models.Club{Name: "Defunct", IsActive: false})

	for name, id := range map[string]primitive.ObjectID{
		"missing":  primitive.NewObjectID(),
		"inactive": inactive.ID,
	} {
		t.Run(name, func(t *testing.T) {
			in := f.input()
			in.ClubID = id.Hex()
			if _, err := f.svc.Create(context.Background(), f.faculty.ID, in); !errors.Is(err, events.ErrClubNotFound) {
				t.Errorf("got %v, want ErrClubNotFound", err)
			}
		})
	}
}

func TestRegister_Capacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(models.EventApproved, 3)

	for i := 0; i < 3; i++ {
		if err := f.svc.Register(ctx, ev.ID, primitive.NewObjectID()); err != nil {
			t.Fatalf("Register %d failed: %v", i, err)
		}
	}
	got, _ := f.ms.Events.GetByID(ctx, ev.ID)
	if len(got.RegisteredParticipants) != 3 {
		t.Fatalf("registrations: got %d, want 3", len(got.RegisteredParticipants))
	}

	err := f.svc.Register(ctx, ev.ID, primitive.NewObjectID())
	if !errors.Is(err, events.ErrEventFull) {
		t.Fatalf("got %v, want ErrEventFull", err)
	}
	if apperr.Message(err) != "Event is full" {
		t.Errorf("message: got %q", apperr.Message(err))
	}
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(models.EventApproved, 0)

	if err := f.svc.Register(ctx, ev.ID, f.member.ID); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := f.svc.Register(ctx, ev.ID, f.member.ID); !errors.Is(err, events.ErrAlreadyRegistered) {
		t.Errorf("got %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegister_NotFound(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Register(context.Background(), primitive.NewObjectID(), f.member.ID); !errors.Is(err, events.ErrEventNotFound) {
		t.Errorf("got %v, want ErrEventNotFound", err)
	}
}

func TestRegister_ConcurrentLastSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(models.EventApproved, 1)

	var (
		wg   sync.WaitGroup
		ok   atomic.Int32
		full atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.svc.Register(ctx, ev.ID, primitive.NewObjectID())
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, events.ErrEventFull):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || full.Load() != 19 {
		t.Errorf("winners=%d full=%d, want 1 and 19", ok.Load(), full.Load())
	}
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(models.EventPending, 0)

	err := f.svc.Approve(ctx, ev.ID, f.faculty.ID, events.ApproveInput{ApprovalNotes: "Looks good", ApprovedBudget: 100})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	got, _ := f.ms.Events.GetByID(ctx, ev.ID)
	if got.Status != models.EventApproved || got.ApprovalNotes != "Looks good" || got.Budget.Approved != 100 {
		t.Errorf("event: %+v", got)
	}
	if got.ApprovedBy == nil || *got.ApprovedBy != f.faculty.ID {
		t.Errorf("approved_by: %v", got.ApprovedBy)
	}

	msg := f.rec.Messages[0]
	if msg.Type != notify.EventApproved || msg.ClubName != "Robotics" || msg.ApprovedBy != "Prof Ada" {
		t.Errorf("notification: %+v", msg)
	}

	// Approving again is a conflict.
	err = f.svc.Approve(ctx, ev.ID, f.faculty.ID, events.ApproveInput{})
	if !errors.Is(err, events.ErrNotPending) || apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("second approve: got %v, want ErrNotPending", err)
	}
}

func TestApprove_GlobalRoleOnly(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvent(models.EventPending, 0)
	president := f.ms.SeedUser(t, "Pat President", models.RoleStudent)
	f.ms.Clubs.Put(models.Club{
		ID:       f.club.ID,
		Name:     f.club.Name,
		IsActive: true,
		Members:  []models.Membership{{UserID: president.ID, Role: "president", Status: models.MembershipActive}},
	})

	err := f.svc.Approve(context.Background(), ev.ID, president.ID, events.ApproveInput{})
	if !errors.Is(err, events.ErrApproveForbidden) {
		t.Errorf("officer approve: got %v, want ErrApproveForbidden", err)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(models.EventPending, 0)

	if err := f.svc.Reject(ctx, ev.ID, f.member.ID, "no"); !errors.Is(err, events.ErrApproveForbidden) {
		t.Errorf("student reject: got %v", err)
	}
	if err := f.svc.Reject(ctx, ev.ID, f.faculty.ID, "Over budget"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	got, _ := f.ms.Events.GetByID(ctx, ev.ID)
	if got.Status != models.EventRejected || got.ApprovalNotes != "Over budget" {
		t.Errorf("event: %+v", got)
	}
	if f.rec.Types()[0] != notify.EventRejected {
		t.Errorf("notifications: %v", f.rec.Types())
	}
	if err := f.svc.Approve(ctx, ev.ID, f.faculty.ID, events.ApproveInput{}); !errors.Is(err, events.ErrNotPending) {
		t.Errorf("approve rejected: got %v, want ErrNotPending", err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  models.EventStatus
		actor   func(*fixture) primitive.ObjectID
		wantErr error
	}{
		{"organizer cancels approved", models.EventApproved, func(f *fixture) primitive.ObjectID { return f.member.ID }, nil},
		{"faculty cancels pending", models.EventPending, func(f *fixture) primitive.ObjectID { return f.faculty.ID }, nil},
		{"other student", models.EventApproved, func(f *fixture) primitive.ObjectID { return f.pending.ID }, events.ErrCancelForbidden},
		{"already cancelled", models.EventCancelled, func(f *fixture) primitive.ObjectID { return f.faculty.ID }, events.ErrAlreadyCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ev := f.seedEvent(tt.status, 0)

			err := f.svc.Cancel(ctx, ev.ID, tt.actor(f))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			got, _ := f.ms.Events.GetByID(ctx, ev.ID)
			if tt.wantErr == nil {
				if got.Status != models.EventCancelled {
					t.Errorf("status: got %q", got.Status)
				}
				if f.rec.Types()[0] != notify.EventCancelled {
					t.Errorf("notifications: %v", f.rec.Types())
				}
			} else if got.Status != tt.status {
				t.Errorf("status changed to %q", got.Status)
			}
		})
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.ms.Clubs.Put(models.Club{Name: "Chess", IsActive: true})

	past := f.ms.Events.Put(models.Event{Title: "Past", ClubID: f.club.ID, Status: models.EventApproved, Date: time.Now().AddDate(0, 0, -7)})
	soon := f.ms.Events.Put(models.Event{Title: "Soon", ClubID: f.club.ID, Status: models.EventApproved, Date: time.Now().AddDate(0, 0, 7)})
	later := f.ms.Events.Put(models.Event{Title: "Later", ClubID: other.ID, Status: models.EventPending, Date: time.Now().AddDate(0, 1, 0)})

	tests := []struct {
		name string
		in   events.ListInput
		want []primitive.ObjectID
	}{
		{"all", events.ListInput{}, []primitive.ObjectID{past.ID, soon.ID, later.ID}},
		{"status", events.ListInput{Status: "Approved"}, []primitive.ObjectID{past.ID, soon.ID}},
		{"club", events.ListInput{ClubID: other.ID.Hex()}, []primitive.ObjectID{later.ID}},
		{"upcoming", events.ListInput{Upcoming: true}, []primitive.ObjectID{soon.ID, later.ID}},
		{"upcoming approved", events.ListInput{Upcoming: true, Status: "approved"}, []primitive.ObjectID{soon.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.List(ctx, tt.in)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			ids := []primitive.ObjectID{}
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("got %v, want %v", ids, tt.want)
			}
		})
	}

	for _, bad := range []events.ListInput{{Status: "archived"}, {ClubID: "nope"}} {
		if _, err := f.svc.List(ctx, bad); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("List(%+v): got %v, want validation error", bad, err)
		}
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvent(models.EventPending, 0)
	got, err := f.svc.Get(context.Background(), ev.ID)
	if err != nil || got.Title != "Workshop" {
		t.Fatalf("Get: %v %+v", err, got)
	}
	if _, err := f.svc.Get(context.Background(), primitive.NewObjectID()); !errors.Is(err, events.ErrEventNotFound) {
		t.Errorf("missing: got %v", err)
	}
}

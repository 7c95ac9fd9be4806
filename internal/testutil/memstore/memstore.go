// Package memstore provides in-memory implementations of the user, club,
// and event stores for service tests. They honor the same guards and return
// the same sentinel errors as the Mongo-backed stores.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	clubstore "github.com/dalemusser/clubhub/internal/app/store/clubs"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	metricsstore "github.com/dalemusser/clubhub/internal/app/store/metrics"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/normalize"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInjected is returned by a store whose Fail field is set.
var ErrInjected = errors.New("injected store failure")

// Store bundles one of each in-memory store.
type Store struct {
	Users   *Users
	Clubs   *Clubs
	Events  *Events
	Metrics *Metrics
	Audit   *Audit
}

// New returns empty stores.
func New() *Store {
	s := &Store{
		Users:  &Users{byID: map[primitive.ObjectID]*models.User{}},
		Clubs:  &Clubs{byID: map[primitive.ObjectID]*models.Club{}},
		Events: &Events{byID: map[primitive.ObjectID]*models.Event{}},
		Audit:  &Audit{},
	}
	s.Metrics = &Metrics{users: s.Users, clubs: s.Clubs, events: s.Events}
	return s
}

// clock hands out strictly increasing timestamps.
type clock struct {
	last time.Time
}

func (c *clock) now() time.Time {
	t := time.Now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

/* ---------- users ---------- */

// Users is an in-memory userstore.
type Users struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.User
	clock clock
	// Fail makes every call return ErrInjected.
	Fail bool
	// FailClubRefs makes only AddClubRef return ErrInjected.
	FailClubRefs bool
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Clubs = append([]models.ClubRef(nil), u.Clubs...)
	return &cp
}

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return models.User{}, ErrInjected
	}
	if !u.Role.Valid() {
		return models.User{}, errors.New("invalid role")
	}
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.Role == models.RoleStudent {
		u.StudentID = normalize.StudentID(u.StudentID)
	} else {
		u.StudentID = ""
		u.Year = 0
	}
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
		if u.StudentID != "" && existing.StudentID == u.StudentID {
			return models.User{}, userstore.ErrDuplicateStudentID
		}
	}
	if u.Clubs == nil {
		u.Clubs = []models.ClubRef{}
	}
	u.CreatedAt = s.clock.now()
	u.UpdatedAt = u.CreatedAt
	s.byID[u.ID] = cloneUser(&u)
	return u, nil
}

func (s *Users) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	for _, u := range s.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = normalize.Email(email)
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s *Users) GetByStudentID(_ context.Context, studentID string) (*models.User, error) {
	studentID = normalize.StudentID(studentID)
	return s.find(func(u *models.User) bool { return studentID != "" && u.StudentID == studentID })
}

func (s *Users) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	var out []models.User
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			cp := cloneUser(u)
			cp.PasswordHash = ""
			out = append(out, *cp)
		}
	}
	return out, nil
}

func (s *Users) AddClubRef(_ context.Context, userID primitive.ObjectID, ref models.ClubRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail || s.FailClubRefs {
		return ErrInjected
	}
	u, ok := s.byID[userID]
	if !ok {
		return nil
	}
	for _, r := range u.Clubs {
		if r.ClubID == ref.ClubID {
			return nil
		}
	}
	u.Clubs = append(u.Clubs, ref)
	u.UpdatedAt = s.clock.now()
	return nil
}

func (s *Users) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrInjected
	}
	u, ok := s.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	u.IsActive = active
	return nil
}

// FetchUser implements auth.UserFetcher.
func (s *Users) FetchUser(_ context.Context, id primitive.ObjectID) *auth.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok || !u.IsActive || s.Fail {
		return nil
	}
	return &auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (s *Users) CountActive(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return 0, ErrInjected
	}
	var n int64
	for _, u := range s.byID {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

/* ---------- clubs ---------- */

// Clubs is an in-memory clubstore.
type Clubs struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.Club
	clock clock
	// Fail makes every call return ErrInjected.
	Fail bool
	// BeforeReplace, if set, runs at the start of Replace without the lock
	// held. Tests use it to interleave a concurrent write.
	BeforeReplace func()
}

func cloneClub(c *models.Club) *models.Club {
	cp := *c
	cp.Members = append([]models.Membership{}, c.Members...)
	cp.Events = append([]primitive.ObjectID{}, c.Events...)
	return &cp
}

func (s *Clubs) Create(_ context.Context, c models.Club) (models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return models.Club{}, ErrInjected
	}
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.Category = normalize.Category(c.Category)
	for _, existing := range s.byID {
		if existing.NameCI == c.NameCI {
			return models.Club{}, clubstore.ErrDuplicateName
		}
	}
	if c.Members == nil {
		c.Members = []models.Membership{}
	}
	if c.Events == nil {
		c.Events = []primitive.ObjectID{}
	}
	c.Version = 1
	now := s.clock.now()
	if c.EstablishedDate.IsZero() {
		c.EstablishedDate = now
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	s.byID[c.ID] = cloneClub(&c)
	return c, nil
}

// Put stores c as-is, for seeding tests with members already in place.
func (s *Clubs) Put(c models.Club) models.Club {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.NameCI == "" {
		c.NameCI = text.Fold(c.Name)
	}
	if c.Version == 0 {
		c.Version = 1
	}
	s.byID[c.ID] = cloneClub(&c)
	return c
}

func (s *Clubs) GetByID(_ context.Context, id primitive.ObjectID) (*models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	c, ok := s.byID[id]
	if !ok {
		return nil, clubstore.ErrNotFound
	}
	return cloneClub(c), nil
}

func (s *Clubs) GetByName(_ context.Context, name string) (*models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	folded := text.Fold(name)
	for _, c := range s.byID {
		if c.NameCI == folded {
			return cloneClub(c), nil
		}
	}
	return nil, clubstore.ErrNotFound
}

func (s *Clubs) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	var out []models.Club
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			out = append(out, *cloneClub(c))
		}
	}
	return out, nil
}

func (s *Clubs) List(_ context.Context, f clubstore.Filter) ([]models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	cat := normalize.Category(f.Category)
	q := strings.ToLower(normalize.Search(f.Search))

	out := []models.Club{}
	for _, c := range s.byID {
		if !f.IncludeInactive && !c.IsActive {
			continue
		}
		if cat != "" && cat != "all" && c.Category != cat {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Description), q) {
			continue
		}
		out = append(out, *cloneClub(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameCI < out[j].NameCI })
	return out, nil
}

func (s *Clubs) WithPendingMembers(context.Context) ([]models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	out := []models.Club{}
	for _, c := range s.byID {
		for _, m := range c.Members {
			if m.Status == models.MembershipPending {
				out = append(out, *cloneClub(c))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameCI < out[j].NameCI })
	return out, nil
}

func (s *Clubs) AddMember(_ context.Context, clubID primitive.ObjectID, m models.Membership) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return false, ErrInjected
	}
	c, ok := s.byID[clubID]
	if !ok || !c.IsActive {
		return false, nil
	}
	for _, existing := range c.Members {
		if existing.UserID == m.UserID {
			return false, nil
		}
	}
	c.Members = append(c.Members, m)
	c.Version++
	c.UpdatedAt = s.clock.now()
	return true, nil
}

func (s *Clubs) AddEvent(_ context.Context, clubID, eventID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrInjected
	}
	c, ok := s.byID[clubID]
	if !ok {
		return clubstore.ErrNotFound
	}
	for _, id := range c.Events {
		if id == eventID {
			return nil
		}
	}
	c.Events = append(c.Events, eventID)
	c.Version++
	c.UpdatedAt = s.clock.now()
	return nil
}

func (s *Clubs) Replace(_ context.Context, c *models.Club) error {
	if s.BeforeReplace != nil {
		s.BeforeReplace()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrInjected
	}
	cur, ok := s.byID[c.ID]
	if !ok || cur.Version != c.Version {
		return clubstore.ErrVersionConflict
	}
	next := cloneClub(c)
	next.Version = c.Version + 1
	next.UpdatedAt = s.clock.now()
	s.byID[c.ID] = next
	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *Clubs) CountActive(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return 0, ErrInjected
	}
	var n int64
	for _, c := range s.byID {
		if c.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *Clubs) CountByCategory(context.Context) ([]clubstore.CategoryCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	tally := map[string]int64{}
	for _, c := range s.byID {
		if c.IsActive {
			tally[c.Category]++
		}
	}
	out := []clubstore.CategoryCount{}
	for cat, n := range tally {
		out = append(out, clubstore.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

/* ---------- events ---------- */

// Events is an in-memory eventstore.
type Events struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.Event
	clock clock
	// Fail makes every call return ErrInjected.
	Fail bool
}

func cloneEvent(e *models.Event) *models.Event {
	cp := *e
	cp.RegisteredParticipants = append([]models.Registration{}, e.RegisteredParticipants...)
	if e.ApprovedBy != nil {
		id := *e.ApprovedBy
		cp.ApprovedBy = &id
	}
	return &cp
}

func matches(e *models.Event, f eventstore.Filter) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if !f.ClubID.IsZero() && e.ClubID != f.ClubID {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	return true
}

func (s *Events) Create(_ context.Context, e models.Event) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return models.Event{}, ErrInjected
	}
	e.ID = primitive.NewObjectID()
	if e.RegisteredParticipants == nil {
		e.RegisteredParticipants = []models.Registration{}
	}
	e.CreatedAt = s.clock.now()
	e.UpdatedAt = e.CreatedAt
	s.byID[e.ID] = cloneEvent(&e)
	return e, nil
}

// Put stores e as-is, for seeding tests.
func (s *Events) Put(e models.Event) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.now()
	}
	s.byID[e.ID] = cloneEvent(&e)
	return e
}

func (s *Events) GetByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	e, ok := s.byID[id]
	if !ok {
		return nil, eventstore.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *Events) List(_ context.Context, f eventstore.Filter) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	out := []models.Event{}
	for _, e := range s.byID {
		if matches(e, f) {
			out = append(out, *cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *Events) Recent(_ context.Context, n int64) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	out := []models.Event{}
	for _, e := range s.byID {
		out = append(out, *cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *Events) AddRegistration(_ context.Context, eventID primitive.ObjectID, reg models.Registration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return false, ErrInjected
	}
	e, ok := s.byID[eventID]
	if !ok {
		return false, nil
	}
	for _, r := range e.RegisteredParticipants {
		if r.UserID == reg.UserID {
			return false, nil
		}
	}
	if e.MaxParticipants > 0 && len(e.RegisteredParticipants) >= e.MaxParticipants {
		return false, nil
	}
	e.RegisteredParticipants = append(e.RegisteredParticipants, reg)
	e.UpdatedAt = s.clock.now()
	return true, nil
}

func (s *Events) Transition(_ context.Context, ev *models.Event, from models.EventStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return false, ErrInjected
	}
	cur, ok := s.byID[ev.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	cur.Status = ev.Status
	cur.ApprovalNotes = ev.ApprovalNotes
	cur.Budget.Approved = ev.Budget.Approved
	if ev.ApprovedBy != nil {
		id := *ev.ApprovedBy
		cur.ApprovedBy = &id
	}
	cur.UpdatedAt = s.clock.now()
	return true, nil
}

func (s *Events) Count(_ context.Context, f eventstore.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return 0, ErrInjected
	}
	var n int64
	for _, e := range s.byID {
		if matches(e, f) {
			n++
		}
	}
	return n, nil
}

/* ---------- metrics ---------- */

// Metrics computes dashboard counts over the sibling stores.
type Metrics struct {
	users  *Users
	clubs  *Clubs
	events *Events
}

func (m *Metrics) DashboardCounts(ctx context.Context, now time.Time) (metricsstore.Counts, error) {
	var out metricsstore.Counts
	var err error
	if out.ActiveUsers, err = m.users.CountActive(ctx); err != nil {
		return metricsstore.Counts{}, err
	}
	if out.ActiveClubs, err = m.clubs.CountActive(ctx); err != nil {
		return metricsstore.Counts{}, err
	}
	if out.Events, err = m.events.Count(ctx, eventstore.Filter{}); err != nil {
		return metricsstore.Counts{}, err
	}
	if out.PendingEvents, err = m.events.Count(ctx, eventstore.Filter{Status: models.EventPending}); err != nil {
		return metricsstore.Counts{}, err
	}
	if out.UpcomingEvents, err = m.events.Count(ctx, eventstore.Filter{Status: models.EventApproved, From: now}); err != nil {
		return metricsstore.Counts{}, err
	}
	return out, nil
}

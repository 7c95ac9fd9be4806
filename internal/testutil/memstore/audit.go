package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dalemusser/clubhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit is an in-memory audit event store.
type Audit struct {
	mu     sync.Mutex
	clock  clock
	events []audit.Event
	Fail   bool
}

func (s *Audit) Log(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrInjected
	}
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock.now()
	}
	s.events = append(s.events, e)
	return nil
}

func (s *Audit) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrInjected
	}
	out := []audit.Event{}
	for _, e := range s.events {
		switch {
		case f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID),
			f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID),
			f.Category != "" && e.Category != f.Category,
			f.EventType != "" && e.EventType != f.EventType,
			f.Since != nil && e.Timestamp.Before(*f.Since):
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	limit := f.Limit
	if limit <= 0 {
		limit = audit.DefaultLimit
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Types returns the event types recorded so far, oldest first.
func (s *Audit) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}

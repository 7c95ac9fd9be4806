package memstore

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/domain/models"
)

// SeedUser creates an active user with the given name and role. The email is
// derived from the name.
func (s *Store) SeedUser(t *testing.T, name string, role models.Role) models.User {
	t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@uni.edu"
	u := models.User{Name: name, Email: email, Role: role, IsActive: true}
	if role == models.RoleStudent {
		u.StudentID = "S-" + strings.ToUpper(strings.ReplaceAll(name, " ", ""))
		u.Year = 1
	}
	created, err := s.Users.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("seed user %q: %v", name, err)
	}
	return created
}

// Recorder is a notify.Publisher that keeps every message.
type Recorder struct {
	mu       sync.Mutex
	Messages []notify.Message
	Topics   []string
}

func (r *Recorder) Publish(_ context.Context, topic string, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Topics = append(r.Topics, topic)
	r.Messages = append(r.Messages, msg)
}

// Types returns the recorded message types in order.
func (r *Recorder) Types() []notify.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Type, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.Type
	}
	return out
}

package lifecycle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/lifecycle"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newClub() *models.Club {
	return &models.Club{ID: primitive.NewObjectID(), Name: "Chess Club", IsActive: true}
}

func TestJoin_CreatesPendingMember(t *testing.T) {
	club := newClub()
	uid := primitive.NewObjectID()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	m, err := lifecycle.Join(club, uid, now)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if m.Status != models.MembershipPending {
		t.Errorf("status: got %q, want %q", m.Status, models.MembershipPending)
	}
	if m.Role != models.ClubRoleMember {
		t.Errorf("role: got %q, want %q", m.Role, models.ClubRoleMember)
	}
	if !m.JoinedAt.Equal(now) {
		t.Errorf("joined_at: got %v, want %v", m.JoinedAt, now)
	}
	if len(club.Members) != 1 {
		t.Fatalf("members: got %d, want 1", len(club.Members))
	}
}

func TestJoin_Twice_Conflict(t *testing.T) {
	club := newClub()
	uid := primitive.NewObjectID()

	if _, err := lifecycle.Join(club, uid, time.Now()); err != nil {
		t.Fatalf("first Join failed: %v", err)
	}
	_, err := lifecycle.Join(club, uid, time.Now())
	if !errors.Is(err, lifecycle.ErrAlreadyMember) {
		t.Fatalf("second Join: got %v, want ErrAlreadyMember", err)
	}
	if len(club.Members) != 1 {
		t.Errorf("members: got %d, want exactly 1", len(club.Members))
	}
}

func TestJoin_RejectedMemberCannotRejoin(t *testing.T) {
	club := newClub()
	uid := primitive.NewObjectID()
	club.Members = []models.Membership{{UserID: uid, Role: "member", Status: models.MembershipRejected}}

	if _, err := lifecycle.Join(club, uid, time.Now()); !errors.Is(err, lifecycle.ErrAlreadyMember) {
		t.Errorf("got %v, want ErrAlreadyMember", err)
	}
}

func TestApprove(t *testing.T) {
	club := newClub()
	uid := primitive.NewObjectID()
	other := primitive.NewObjectID()
	club.Members = []models.Membership{
		{UserID: other, Role: "member", Status: models.MembershipPending},
		{UserID: uid, Role: "member", Status: models.MembershipPending},
	}

	if err := lifecycle.Approve(club, uid); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if club.Members[1].Status != models.MembershipActive {
		t.Errorf("status: got %q, want active", club.Members[1].Status)
	}
	if club.Members[0].Status != models.MembershipPending {
		t.Errorf("other member changed: got %q", club.Members[0].Status)
	}

	// Re-approving is a no-op.
	if err := lifecycle.Approve(club, uid); err != nil {
		t.Fatalf("second Approve failed: %v", err)
	}
	if len(club.Members) != 2 || club.Members[1].Status != models.MembershipActive {
		t.Errorf("second Approve changed state: %+v", club.Members)
	}
}

func TestApprove_NoMembership(t *testing.T) {
	club := newClub()
	if err := lifecycle.Approve(club, primitive.NewObjectID()); !errors.Is(err, lifecycle.ErrMemberNotFound) {
		t.Errorf("got %v, want ErrMemberNotFound", err)
	}
}

func TestReject(t *testing.T) {
	tests := []struct {
		name    string
		status  models.MembershipStatus
		wantErr error
		want    models.MembershipStatus
	}{
		{"pending", models.MembershipPending, nil, models.MembershipRejected},
		{"active", models.MembershipActive, lifecycle.ErrMembershipNotPending, models.MembershipActive},
		{"rejected", models.MembershipRejected, lifecycle.ErrMembershipNotPending, models.MembershipRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			club := newClub()
			uid := primitive.NewObjectID()
			club.Members = []models.Membership{{UserID: uid, Role: "member", Status: tt.status}}

			err := lifecycle.Reject(club, uid)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Reject: got %v, want %v", err, tt.wantErr)
			}
			if club.Members[0].Status != tt.want {
				t.Errorf("status: got %q, want %q", club.Members[0].Status, tt.want)
			}
		})
	}
}

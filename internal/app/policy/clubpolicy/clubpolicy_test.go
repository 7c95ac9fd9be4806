package clubpolicy_test

import (
	"testing"

	"github.com/dalemusser/clubhub/internal/app/policy/clubpolicy"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func membership(role string, status models.MembershipStatus) *models.Membership {
	return &models.Membership{UserID: primitive.NewObjectID(), Role: role, Status: status}
}

func TestCanApproveMembership(t *testing.T) {
	club := &models.Club{Name: "Debate"}

	tests := []struct {
		name string
		role models.Role
		m    *models.Membership
		want bool
	}{
		{"faculty without membership", models.RoleFaculty, nil, true},
		{"admin without membership", models.RoleAdmin, nil, true},
		{"faculty with pending membership", models.RoleFaculty, membership("member", models.MembershipPending), true},
		{"student without membership", models.RoleStudent, nil, false},
		{"student plain active member", models.RoleStudent, membership("member", models.MembershipActive), false},
		{"student active president", models.RoleStudent, membership("president", models.MembershipActive), true},
		{"student active vice-president", models.RoleStudent, membership("vice-president", models.MembershipActive), true},
		{"student active secretary", models.RoleStudent, membership("secretary", models.MembershipActive), true},
		{"student pending president", models.RoleStudent, membership("president", models.MembershipPending), false},
		{"student rejected secretary", models.RoleStudent, membership("secretary", models.MembershipRejected), false},
		{"student active treasurer", models.RoleStudent, membership("treasurer", models.MembershipActive), false},
		{"student active President capitalized", models.RoleStudent, membership("President", models.MembershipActive), false},
		{"student active secretary with trailing space", models.RoleStudent, membership("secretary ", models.MembershipActive), false},
		{"student active padded vice-president", models.RoleStudent, membership(" vice-president", models.MembershipActive), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clubpolicy.CanApproveMembership(club, tt.role, tt.m); got != tt.want {
				t.Errorf("CanApproveMembership = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanCreateEvent(t *testing.T) {
	club := &models.Club{Name: "Robotics"}

	tests := []struct {
		name string
		role models.Role
		m    *models.Membership
		want bool
	}{
		{"faculty", models.RoleFaculty, nil, true},
		{"admin", models.RoleAdmin, nil, true},
		{"active plain member", models.RoleStudent, membership("member", models.MembershipActive), true},
		{"active officer", models.RoleStudent, membership("president", models.MembershipActive), true},
		{"pending member", models.RoleStudent, membership("member", models.MembershipPending), false},
		{"rejected member", models.RoleStudent, membership("member", models.MembershipRejected), false},
		{"no membership", models.RoleStudent, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clubpolicy.CanCreateEvent(club, tt.role, tt.m); got != tt.want {
				t.Errorf("CanCreateEvent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanApproveEvent_GlobalRoleOnly(t *testing.T) {
	if !clubpolicy.CanApproveEvent(models.RoleFaculty) || !clubpolicy.CanApproveEvent(models.RoleAdmin) {
		t.Error("faculty and admin must be able to approve events")
	}
	if clubpolicy.CanApproveEvent(models.RoleStudent) {
		t.Error("students, including club officers, must not approve events")
	}
}

func TestCanCreateClub(t *testing.T) {
	if clubpolicy.CanCreateClub(models.RoleStudent) {
		t.Error("students must not create clubs")
	}
	if !clubpolicy.CanCreateClub(models.RoleFaculty) {
		t.Error("faculty must create clubs")
	}
}

func TestCanCancelEvent(t *testing.T) {
	organizer := primitive.NewObjectID()
	ev := &models.Event{Organizer: organizer}

	if !clubpolicy.CanCancelEvent(ev, organizer, models.RoleStudent) {
		t.Error("organizer must be able to cancel")
	}
	if clubpolicy.CanCancelEvent(ev, primitive.NewObjectID(), models.RoleStudent) {
		t.Error("other students must not cancel")
	}
	if !clubpolicy.CanCancelEvent(ev, primitive.NewObjectID(), models.RoleAdmin) {
		t.Error("admin must be able to cancel")
	}
}

func TestMembershipOf(t *testing.T) {
	uid := primitive.NewObjectID()
	club := &models.Club{Members: []models.Membership{
		{UserID: primitive.NewObjectID(), Role: "member", Status: models.MembershipActive},
		{UserID: uid, Role: "secretary", Status: models.MembershipActive},
	}}

	m := clubpolicy.MembershipOf(club, uid)
	if m == nil || m.Role != "secretary" {
		t.Fatalf("MembershipOf = %+v, want secretary", m)
	}
	if clubpolicy.MembershipOf(club, primitive.NewObjectID()) != nil {
		t.Error("expected nil for non-member")
	}
	if clubpolicy.MembershipOf(nil, uid) != nil {
		t.Error("expected nil for nil club")
	}
}

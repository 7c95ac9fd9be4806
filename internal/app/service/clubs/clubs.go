// Package clubs creates clubs and manages membership requests.
//
// Join is a single guarded append on the club document. Approve and reject
// load the club, evaluate the policy against that copy, apply the lifecycle
// transition, and write it back with a version check; a concurrent write in
// between surfaces as ErrConcurrentUpdate.
package clubs

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/clubhub/internal/app/policy/clubpolicy"
	clubstore "github.com/dalemusser/clubhub/internal/app/store/clubs"
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
	ErrClubNotFound            = apperr.NotFound("Club not found")
	ErrClubExists              = apperr.Conflict("Club name already exists")
	ErrCreateForbidden         = apperr.Forbidden("Unauthorized to create clubs")
	ErrInsufficientPermissions = apperr.Forbidden("Insufficient permissions")
	ErrAlreadyMember           = apperr.Conflict("Already a member of this club")
	ErrMemberNotFound          = apperr.NotFound("Member not found")
	ErrNotPending              = apperr.Conflict("Membership is not pending")
	ErrConcurrentUpdate        = apperr.Conflict("Club was modified concurrently; retry")
	ErrUserNotFound            = apperr.NotFound("User not found")
)

type (
	ClubStore interface {
		Create(ctx context.Context, c models.Club) (models.Club, error)
		GetByID(ctx context.Context, id primitive.ObjectID) (*models.Club, error)
		GetByName(ctx context.Context, name string) (*models.Club, error)
		List(ctx context.Context, f clubstore.Filter) ([]models.Club, error)
		AddMember(ctx context.Context, clubID primitive.ObjectID, m models.Membership) (bool, error)
		Replace(ctx context.Context, c *models.Club) error
	}

	UserStore interface {
		GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
		AddClubRef(ctx context.Context, userID primitive.ObjectID, ref models.ClubRef) error
	}

	Service struct {
		clubs  ClubStore
		users  UserStore
		notify notify.Publisher
		log    *zap.Logger
		now    func() time.Time
	}
)

func NewService(clubs ClubStore, users UserStore, pub notify.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = notify.Discard
	}
	return &Service{clubs: clubs, users: users, notify: pub, log: log, now: time.Now}
}

// CreateClubInput is the body of a create-club request.
type CreateClubInput struct {
	Name            string `json:"name" validate:"required,notblank,max=120" label:"Club name"`
	Description     string `json:"description" validate:"required,notblank,max=4000" label:"Description"`
	Category        string `json:"category" validate:"required,notblank,max=60" label:"Category"`
	Mission         string `json:"mission" validate:"required,notblank,max=2000" label:"Mission"`
	Vision          string `json:"vision" validate:"required,notblank,max=2000" label:"Vision"`
	EstablishedDate string `json:"establishedDate,omitempty" validate:"omitempty,ymd" label:"Established date"`
}

// ListInput narrows List. Category "all" or empty lists every category.
type ListInput struct {
	Category string
	Search   string
}

// Create registers a new club coordinated by the acting faculty member or
// admin.
func (svc *Service) Create(ctx context.Context, actorID primitive.ObjectID, in CreateClubInput) (models.Club, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "clubs.create")
	defer cancel()

	actor, err := svc.loadActor(ctx, actorID, "Failed to create club")
	if err != nil {
		return models.Club{}, err
	}
	if actor == nil || !clubpolicy.CanCreateClub(actor.Role) {
		return models.Club{}, ErrCreateForbidden
	}

	in.Name = htmlsanitize.PlainText(in.Name)
	in.Category = htmlsanitize.PlainText(in.Category)
	in.Description = htmlsanitize.Sanitize(in.Description)
	in.Mission = htmlsanitize.Sanitize(in.Mission)
	in.Vision = htmlsanitize.Sanitize(in.Vision)
	if res := inputval.Validate(in); res.HasErrors() {
		return models.Club{}, apperr.Validation(res.First())
	}

	if _, err := svc.clubs.GetByName(ctx, in.Name); err == nil {
		return models.Club{}, ErrClubExists
	} else if !errors.Is(err, clubstore.ErrNotFound) {
		return models.Club{}, apperr.Internal("Failed to create club", err)
	}

	club := models.Club{
		Name:               in.Name,
		Description:        in.Description,
		Category:           in.Category,
		Mission:            in.Mission,
		Vision:             in.Vision,
		FacultyCoordinator: actor.ID,
		IsActive:           true,
	}
	if in.EstablishedDate != "" {
		club.EstablishedDate, _ = time.Parse(time.DateOnly, in.EstablishedDate)
	}

	created, err := svc.clubs.Create(ctx, club)
	if errors.Is(err, clubstore.ErrDuplicateName) {
		return models.Club{}, ErrClubExists
	}
	if err != nil {
		return models.Club{}, apperr.Internal("Failed to create club", err)
	}

	svc.log.Info("club created", zap.String("club_id", created.ID.Hex()), zap.String("by", actor.ID.Hex()))
	svc.notify.Publish(ctx, notify.TopicClubs, notify.Message{
		Type:     notify.ClubCreated,
		ClubID:   created.ID.Hex(),
		ClubName: created.Name,
	})
	return created, nil
}

// Join files a pending membership request for userID.
func (svc *Service) Join(ctx context.Context, clubID, userID primitive.ObjectID) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "clubs.join")
	defer cancel()

	user, err := svc.users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return apperr.Internal("Failed to join club", err)
	}

	club, err := svc.loadClub(ctx, clubID, "Failed to join club")
	if err != nil {
		return err
	}
	if !club.IsActive {
		return ErrClubNotFound
	}
	if lifecycle.FindMember(club, userID) >= 0 {
		return ErrAlreadyMember
	}

	m := lifecycle.NewMembership(userID, svc.now().UTC())
	added, err := svc.clubs.AddMember(ctx, clubID, m)
	if err != nil {
		return apperr.Internal("Failed to join club", err)
	}
	if !added {
		return svc.classifyJoinMiss(ctx, clubID, userID)
	}

	// The club's member list is authoritative; the user's club refs are a
	// denormalized index, so a failed ref write leaves the request filed.
	if err := svc.users.AddClubRef(ctx, userID, models.ClubRef{ClubID: clubID, Role: m.Role}); err != nil {
		svc.log.Warn("club ref not recorded",
			zap.String("club_id", clubID.Hex()),
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
	}

	svc.notify.Publish(ctx, notify.TopicClubs, notify.Message{
		Type:     notify.MembershipRequest,
		ClubID:   clubID.Hex(),
		ClubName: club.Name,
		UserID:   userID.Hex(),
		UserName: user.Name,
	})
	return nil
}

// classifyJoinMiss re-reads the club after the guarded append matched
// nothing and reports why.
func (svc *Service) classifyJoinMiss(ctx context.Context, clubID, userID primitive.ObjectID) error {
	club, err := svc.loadClub(ctx, clubID, "Failed to join club")
	if err != nil {
		return err
	}
	if !club.IsActive {
		return ErrClubNotFound
	}
	if _, err := lifecycle.Join(club, userID, svc.now()); errors.Is(err, lifecycle.ErrAlreadyMember) {
		return ErrAlreadyMember
	}
	return ErrConcurrentUpdate
}

// ApproveMembership activates memberID's membership. Faculty, admins, and
// the club's active officers may approve.
func (svc *Service) ApproveMembership(ctx context.Context, clubID, memberID, approverID primitive.ObjectID) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "clubs.approve_membership")
	defer cancel()

	club, err := svc.authorizeMembershipChange(ctx, clubID, approverID, "Failed to approve membership")
	if err != nil {
		return err
	}
	if err := lifecycle.Approve(club, memberID); err != nil {
		return mapLifecycle(err)
	}
	if err := svc.replace(ctx, club, "Failed to approve membership"); err != nil {
		return err
	}

	svc.log.Info("membership approved",
		zap.String("club_id", clubID.Hex()),
		zap.String("member_id", memberID.Hex()),
		zap.String("by", approverID.Hex()))
	svc.notify.Publish(ctx, notify.TopicClubs, notify.Message{
		Type:     notify.MembershipApproved,
		ClubID:   clubID.Hex(),
		ClubName: club.Name,
		UserID:   memberID.Hex(),
	})
	return nil
}

// RejectMembership rejects memberID's pending membership. The same actors
// who may approve may reject.
func (svc *Service) RejectMembership(ctx context.Context, clubID, memberID, approverID primitive.ObjectID) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "clubs.reject_membership")
	defer cancel()

	club, err := svc.authorizeMembershipChange(ctx, clubID, approverID, "Failed to reject membership")
	if err != nil {
		return err
	}
	if err := lifecycle.Reject(club, memberID); err != nil {
		return mapLifecycle(err)
	}
	if err := svc.replace(ctx, club, "Failed to reject membership"); err != nil {
		return err
	}

	svc.log.Info("membership rejected",
		zap.String("club_id", clubID.Hex()),
		zap.String("member_id", memberID.Hex()),
		zap.String("by", approverID.Hex()))
	return nil
}

// authorizeMembershipChange loads the current club and checks that
// approverID may decide on its membership requests.
func (svc *Service) authorizeMembershipChange(ctx context.Context, clubID, approverID primitive.ObjectID, failure string) (*models.Club, error) {
	club, err := svc.loadClub(ctx, clubID, failure)
	if err != nil {
		return nil, err
	}
	approver, err := svc.loadActor(ctx, approverID, failure)
	if err != nil {
		return nil, err
	}
	if approver == nil {
		return nil, ErrInsufficientPermissions
	}
	if !clubpolicy.CanApproveMembership(club, approver.Role, clubpolicy.MembershipOf(club, approverID)) {
		return nil, ErrInsufficientPermissions
	}
	return club, nil
}

func (svc *Service) replace(ctx context.Context, club *models.Club, failure string) error {
	err := svc.clubs.Replace(ctx, club)
	if errors.Is(err, clubstore.ErrVersionConflict) {
		return ErrConcurrentUpdate
	}
	if err != nil {
		return apperr.Internal(failure, err)
	}
	return nil
}

// List returns active clubs, optionally narrowed by category and a search
// term matched against name and description.
func (svc *Service) List(ctx context.Context, in ListInput) ([]models.Club, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "clubs.list")
	defer cancel()

	clubs, err := svc.clubs.List(ctx, clubstore.Filter{Category: in.Category, Search: in.Search})
	if err != nil {
		return nil, apperr.Internal("Failed to get clubs", err)
	}
	return clubs, nil
}

// Get returns one club.
func (svc *Service) Get(ctx context.Context, clubID primitive.ObjectID) (*models.Club, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), svc.log, "clubs.get")
	defer cancel()
	return svc.loadClub(ctx, clubID, "Failed to get club")
}

func (svc *Service) loadClub(ctx context.Context, id primitive.ObjectID, failure string) (*models.Club, error) {
	club, err := svc.clubs.GetByID(ctx, id)
	if errors.Is(err, clubstore.ErrNotFound) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, apperr.Internal(failure, err)
	}
	return club, nil
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

func mapLifecycle(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrMemberNotFound):
		return ErrMemberNotFound
	case errors.Is(err, lifecycle.ErrMembershipNotPending):
		return ErrNotPending
	case errors.Is(err, lifecycle.ErrAlreadyMember):
		return ErrAlreadyMember
	}
	return apperr.Internal("Membership update failed", err)
}

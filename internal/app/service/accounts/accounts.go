// Package accounts registers users, logs them in, and builds their profile.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/inputval"
	"github.com/dalemusser/clubhub/internal/app/system/normalize"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Failures callers compare against.
var (
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	ErrEmailExists        = apperr.Conflict("Email already exists")
	ErrStudentIDExists    = apperr.Conflict("Student ID already exists")
	ErrUserNotFound       = apperr.NotFound("User not found")
)

type (
	// UserStore is the subset of the user store the service needs.
	UserStore interface {
		Create(ctx context.Context, u models.User) (models.User, error)
		GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
		GetByEmail(ctx context.Context, email string) (*models.User, error)
		GetByStudentID(ctx context.Context, studentID string) (*models.User, error)
	}

	// ClubReader resolves the clubs a user has joined.
	ClubReader interface {
		GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Club, error)
	}

	Service struct {
		users  UserStore
		clubs  ClubReader
		tokens *auth.TokenIssuer
		log    *zap.Logger
	}
)

func NewService(users UserStore, clubs ClubReader, tokens *auth.TokenIssuer, log *zap.Logger) *Service {
	return &Service{users: users, clubs: clubs, tokens: tokens, log: log}
}

// RegisterInput is the body of a registration request. Students must also
// supply a student id and year.
type RegisterInput struct {
	Name       string `json:"name" validate:"required,notblank,max=120" label:"Name"`
	Email      string `json:"email" validate:"required,email,max=254" label:"Email"`
	Password   string `json:"password" validate:"required,min=8,max=72" label:"Password"`
	Role       string `json:"role" validate:"required,userrole" label:"Role"`
	StudentID  string `json:"studentId" validate:"required_if=Role student,max=32" label:"Student ID"`
	Year       int    `json:"year" validate:"required_if=Role student,lte=8" label:"Year"`
	Department string `json:"department" validate:"max=120" label:"Department"`
}

// LoginInput is the body of a login request. Role, when set, must match the
// account's role; the login page sends the radio the user picked.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// ProfileClub is one joined club as shown on the profile.
type ProfileClub struct {
	ClubID   primitive.ObjectID `json:"clubId"`
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Role     string             `json:"role"`
}

// Profile is a user with their clubs resolved.
type Profile struct {
	*models.User
	Clubs []ProfileClub `json:"clubs"`
}

// Register creates an account and signs it in.
func (svc *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		return AuthResult{}, apperr.Validation(res.First())
	}
	role := models.Role(in.Role)

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), svc.log, "accounts.register")
	defer cancel()

	// Pre-checks give precise messages; the unique indexes remain the
	// authority under races.
	if _, err := svc.users.GetByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, ErrEmailExists
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return AuthResult{}, apperr.Internal("Registration failed", err)
	}
	if role == models.RoleStudent {
		if _, err := svc.users.GetByStudentID(ctx, in.StudentID); err == nil {
			return AuthResult{}, ErrStudentIDExists
		} else if !errors.Is(err, userstore.ErrNotFound) {
			return AuthResult{}, apperr.Internal("Registration failed", err)
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal("Registration failed", err)
	}

	u, err := svc.users.Create(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		StudentID:    in.StudentID,
		Year:         in.Year,
		Department:   normalize.Name(in.Department),
		IsActive:     true,
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return AuthResult{}, ErrEmailExists
	case errors.Is(err, userstore.ErrDuplicateStudentID):
		return AuthResult{}, ErrStudentIDExists
	case err != nil:
		return AuthResult{}, apperr.Internal("Registration failed", err)
	}

	svc.log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", string(u.Role)))
	return svc.authResult("User registered successfully", &u)
}

// Login verifies credentials and issues a token. Unknown email, inactive
// account, wrong password, and role mismatch all report the same error.
func (svc *Service) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), svc.log, "accounts.login")
	defer cancel()

	u, err := svc.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, apperr.Internal("Login failed", err)
	}
	if !u.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(u.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			svc.log.Warn("password check failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
		return AuthResult{}, ErrInvalidCredentials
	}
	if in.Role != "" {
		if want, err := models.ParseRole(in.Role); err != nil || want != u.Role {
			return AuthResult{}, ErrInvalidCredentials
		}
	}

	return svc.authResult("Login successful", u)
}

func (svc *Service) authResult(msg string, u *models.User) (AuthResult, error) {
	token, exp, err := svc.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return AuthResult{}, apperr.Internal("Failed to issue token", err)
	}
	u.PasswordHash = ""
	return AuthResult{
		Message:   msg,
		Token:     token,
		ExpiresAt: exp.Format(time.RFC3339),
		User:      u,
	}, nil
}

// Profile returns the user with each club reference resolved against the
// current club documents. References to clubs that no longer exist are
// skipped.
func (svc *Service) Profile(ctx context.Context, userID primitive.ObjectID) (Profile, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), svc.log, "accounts.profile")
	defer cancel()

	u, err := svc.users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		return Profile{}, ErrUserNotFound
	}
	if err != nil {
		return Profile{}, apperr.Internal("Failed to get profile", err)
	}
	u.PasswordHash = ""

	ids := make([]primitive.ObjectID, 0, len(u.Clubs))
	for _, ref := range u.Clubs {
		ids = append(ids, ref.ClubID)
	}
	clubs, err := svc.clubs.GetByIDs(ctx, ids)
	if err != nil {
		return Profile{}, apperr.Internal("Failed to get profile", err)
	}
	byID := make(map[primitive.ObjectID]models.Club, len(clubs))
	for _, c := range clubs {
		byID[c.ID] = c
	}

	p := Profile{User: u, Clubs: []ProfileClub{}}
	for _, ref := range u.Clubs {
		c, ok := byID[ref.ClubID]
		if !ok {
			continue
		}
		p.Clubs = append(p.Clubs, ProfileClub{ClubID: c.ID, Name: c.Name, Category: c.Category, Role: ref.Role})
	}
	return p, nil
}

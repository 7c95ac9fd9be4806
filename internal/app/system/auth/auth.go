// Package auth authenticates requests and carries the signed-in user
// through the request context.
//
// A caller is identified either by a bearer JWT in the Authorization header
// (API clients) or by the gorilla session cookie set by the login page
// (browsers). Either way only the user id is trusted from the credential;
// role and active flag are reloaded through a UserFetcher on every request.
package auth

import (
	"context"
	"net/http"

	"github.com/dalemusser/clubhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionUser is the authenticated caller injected into r.Context().
type SessionUser struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Role  models.Role
}

// UserFetcher loads the current state of a user. It returns nil when the
// user does not exist, is inactive, or cannot be loaded.
type UserFetcher interface {
	FetchUser(ctx context.Context, id primitive.ObjectID) *SessionUser
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	viaCookieKey   ctxKey = "viaSessionCookie"
)

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	return UserFromContext(r.Context())
}

// UserFromContext is CurrentUser for code that only has a context.
func UserFromContext(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context, bypassing credentials.
// Intended for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func withCookieUser(r *http.Request, u *SessionUser) *http.Request {
	ctx := context.WithValue(r.Context(), viaCookieKey, true)
	return r.WithContext(context.WithValue(ctx, currentUserKey, u))
}

// viaSessionCookie reports whether the current user came from the session
// cookie rather than a bearer token.
func viaSessionCookie(r *http.Request) bool {
	v, _ := r.Context().Value(viaCookieKey).(bool)
	return v
}

// Package formutil reads request input for the JSON API and the login page.
//
// JSON handlers decode bodies and path ids through DecodeJSON and PathID so a
// malformed request is reported like any other validation failure:
//
//	var in clubs.CreateClubInput
//	if err := formutil.DecodeJSON(r, &in); err != nil {
//		respond.Error(w, h.Log, err)
//		return
//	}
//
// Server-rendered forms embed Base to carry the page title, the signed-in
// user, and the flash messages shown above the form.
package formutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes caps how much of a JSON body DecodeJSON reads.
const MaxBodyBytes = 1 << 20

// ErrBadBody is returned for a body that is not a JSON object of the
// expected shape.
var ErrBadBody = apperr.Validation("Invalid request body")

// DecodeJSON decodes r's body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return ErrBadBody
}

// PathID parses the chi URL parameter name as an ObjectID. label names the
// parameter in the error message.
func PathID(r *http.Request, name, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(label + " is not a valid id.")
	}
	return id, nil
}

// Base contains common fields for form pages that can be embedded in form data structs.
type Base struct {
	Title       string
	IsLoggedIn  bool
	Role        string
	UserName    string
	BackURL     string
	CurrentPath string
	Error       string
	Success     string
	CSRFToken   string
}

// SetBase populates the common Base fields from the request context.
//
// Parameters:
//   - b: pointer to the Base struct to populate
//   - r: the HTTP request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func SetBase(b *Base, r *http.Request, title, backDefault string) {
	b.Title = title
	if u, ok := auth.CurrentUser(r); ok {
		b.IsLoggedIn = true
		b.Role = string(u.Role)
		b.UserName = u.Name
	}
	b.BackURL = httpnav.ResolveBackURL(r, backDefault)
	b.CurrentPath = httpnav.CurrentPath(r)
	b.CSRFToken = csrf.Token(r)
}

// SetError sets the error message shown above the form.
func (b *Base) SetError(msg string) {
	b.Error = msg
}

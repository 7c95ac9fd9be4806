// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/system/formutil"
	"github.com/dalemusser/waffle/pantry/templates"
)

// pageData is the basic view model for error pages.
type pageData struct {
	formutil.Base
	Message string
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "You don't have permission to view this page.")
}

// CSRFFailure is the gorilla/csrf error handler for the HTML pages: a form
// posted without a valid token gets the access-denied page.
func (h *Handler) CSRFFailure(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "Your form has expired. Reload the page and try again.")
}

// NotFound renders the HTML 404 page for unmatched browser routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	var data pageData
	formutil.SetBase(&data.Base, r, "Page not found", "/")
	data.Message = "The page you asked for does not exist."
	renderPage(w, r, http.StatusNotFound, data)
}

// RenderForbidden shows the access-denied page with msg.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg string) {
	var data pageData
	formutil.SetBase(&data.Base, r, "Access denied", "/")
	data.Message = msg
	renderPage(w, r, http.StatusForbidden, data)
}

func renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}

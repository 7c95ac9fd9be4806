package errors_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/clubhub/internal/app/features/errors"
	"github.com/dalemusser/clubhub/internal/testutil"
)

func TestForbidden(t *testing.T) {
	testutil.BootTemplates(t)
	h := uierrors.NewHandler()
	rec := testutil.NewRecorder()
	h.Forbidden(rec, testutil.NewAuthenticatedRequest("GET", "/forbidden", testutil.StudentUser()))

	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "Access denied")
	rec.AssertContains(t, "permission to view this page")
	rec.AssertContains(t, "Test Student (student)")
}

func TestNotFound(t *testing.T) {
	testutil.BootTemplates(t)
	h := uierrors.NewHandler()
	rec := testutil.NewRecorder()
	h.NotFound(rec, testutil.NewRequest("GET", "/nowhere"))

	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "Page not found")
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type: got %q", ct)
	}
}

func TestCSRFFailure(t *testing.T) {
	testutil.BootTemplates(t)
	h := uierrors.NewHandler()
	rec := testutil.NewRecorder()
	h.CSRFFailure(rec, testutil.NewRequest("POST", "/login"))

	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "Your form has expired")
}

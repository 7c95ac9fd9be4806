package auth_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sessionCookies(t *testing.T, sm *auth.SessionManager, id primitive.ObjectID) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/login", nil), id, false); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	return rec.Result().Cookies()
}

func TestBearerOnlyWrites(t *testing.T) {
	sm := newTestSessionManager(t)
	ti := newIssuer(t)
	id := primitive.NewObjectID()
	users := fakeUsers{id: {ID: id, Name: "Fay", Role: models.RoleFaculty}}
	cookies := sessionCookies(t, sm, id)
	raw, _, err := ti.Issue(id, "fay@uni.edu", models.RoleFaculty)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	h := sm.LoadUser(ti, users)(auth.BearerOnlyWrites(echoUser))

	tests := []struct {
		name   string
		method string
		bearer bool
		want   string
	}{
		{"cookie GET", http.MethodGet, false, "faculty"},
		{"cookie POST", http.MethodPost, false, "anonymous"},
		{"cookie PUT", http.MethodPut, false, "anonymous"},
		{"cookie DELETE", http.MethodDelete, false, "anonymous"},
		{"bearer POST", http.MethodPost, true, "faculty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/clubs", nil)
			if tt.bearer {
				req.Header.Set("Authorization", "Bearer "+raw)
			} else {
				for _, c := range cookies {
					req.AddCookie(c)
				}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCSRF_EmptyKey(t *testing.T) {
	if _, err := auth.CSRF("", false, nil); err == nil {
		t.Error("expected error for empty key")
	}
}

var tokenField = regexp.MustCompile(`value="([^"]+)"`)

func TestCSRF_FormToken(t *testing.T) {
	mw, err := auth.CSRF("test-session-key-must-be-32-chars-long", false, nil)
	if err != nil {
		t.Fatalf("CSRF failed: %v", err)
	}
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`<input name="` + auth.CSRFFieldName + `" value="` + csrf.Token(r) + `">`))
			return
		}
		w.Write([]byte("accepted"))
	}))

	// GET issues the token cookie and a masked form token.
	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/login", nil))
	m := tokenField.FindStringSubmatch(get.Body.String())
	if m == nil || m[1] == "" {
		t.Fatalf("no token in form: %s", get.Body.String())
	}
	cookies := get.Result().Cookies()

	post := func(form url.Values, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("matching token", func(t *testing.T) {
		rec := post(url.Values{auth.CSRFFieldName: {m[1]}}, "")
		if rec.Code != http.StatusOK || rec.Body.String() != "accepted" {
			t.Errorf("got %d %q, want 200 accepted", rec.Code, rec.Body.String())
		}
	})
	t.Run("missing token", func(t *testing.T) {
		if rec := post(url.Values{}, ""); rec.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want 403", rec.Code)
		}
	})
	t.Run("foreign origin", func(t *testing.T) {
		if rec := post(url.Values{auth.CSRFFieldName: {m[1]}}, "http://evil.example"); rec.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want 403", rec.Code)
		}
	})
}

func TestCSRF_FailureHandler(t *testing.T) {
	var reason error
	onFailure := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason = csrf.FailureReason(r)
		http.Error(w, "expired", http.StatusForbidden)
	})
	mw, err := auth.CSRF("test-session-key-must-be-32-chars-long", false, onFailure)
	if err != nil {
		t.Fatalf("CSRF failed: %v", err)
	}
	rec := httptest.NewRecorder()
	mw(echoUser).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "expired") {
		t.Errorf("got %d %q, want 403 expired", rec.Code, rec.Body.String())
	}
	if reason == nil {
		t.Error("failure reason not recorded")
	}
}

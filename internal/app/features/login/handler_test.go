package login_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/features/login"
	accountsvc "github.com/dalemusser/clubhub/internal/app/service/accounts"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/clubhub/internal/testutil"
	"github.com/dalemusser/clubhub/internal/testutil/memstore"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	adminEmail    = "deepa@uni.edu"
	adminPassword = "Kmit123@secure"
	sessionName   = "clubhub-test"
)

type env struct {
	router http.Handler
	ms     *memstore.Store
}

func newEnv(t *testing.T, limiter *ratelimit.LoginLimiter) *env {
	t.Helper()
	testutil.BootTemplates(t)
	logger := zap.NewNop()
	ms := memstore.New()

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := ms.Users.Create(context.Background(), models.User{
		Name:         "Deepa Admin",
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	tokens, err := auth.NewTokenIssuer(strings.Repeat("k", auth.MinSecretLen), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	sm, err := auth.NewSessionManager(strings.Repeat("s", 32), sessionName, "", 30*24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}

	svc := accountsvc.NewService(ms.Users, ms.Clubs, tokens, logger)
	h := login.NewHandler(svc, sm, limiter, logger)
	return &env{router: login.Routes(h), ms: ms}
}

func (e *env) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func (e *env) post(t *testing.T, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func credentials(username, password, role string) url.Values {
	return url.Values{"username": {username}, "password": {password}, "role": {role}}
}

/* ---------- html helpers ---------- */

func parse(t *testing.T, rec *httptest.ResponseRecorder) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(rec.Body.String()))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func byID(doc *html.Node, id string) *html.Node {
	return find(doc, func(n *html.Node) bool {
		v, _ := attr(n, "id")
		return v == id
	})
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func visible(n *html.Node) bool {
	_, hidden := attr(n, "hidden")
	return !hidden
}

/* ---------- tests ---------- */

func TestServeLogin_RendersForm(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	doc := parse(t, rec)

	for _, id := range []string{"username", "password", "rememberMe", "forgotPasswordLink", "errorMessage", "successMessage"} {
		if byID(doc, id) == nil {
			t.Errorf("missing element #%s", id)
		}
	}
	for _, role := range []string{"student", "faculty", "admin"} {
		n := byID(doc, role)
		if n == nil {
			t.Errorf("missing role radio #%s", role)
			continue
		}
		if typ, _ := attr(n, "type"); typ != "radio" {
			t.Errorf("#%s type: got %q, want radio", role, typ)
		}
	}

	form := find(doc, func(n *html.Node) bool { return n.Data == "form" })
	if form == nil {
		t.Fatal("missing form")
	}
	submit := find(form, func(n *html.Node) bool {
		typ, _ := attr(n, "type")
		return n.Data == "button" && typ == "submit"
	})
	if submit == nil {
		t.Error("missing form button[type=submit]")
	}

	guest := find(doc, func(n *html.Node) bool { return n.Data == "a" && text(n) == "Browse as Guest" })
	if guest == nil {
		t.Error(`missing "Browse as Guest" link`)
	}

	if visible(byID(doc, "errorMessage")) {
		t.Error("errorMessage should be hidden on first load")
	}
	if _, checked := attr(byID(doc, "student"), "checked"); !checked {
		t.Error("student should be the default role")
	}
}

func TestServeLogin_FormCarriesCSRFToken(t *testing.T) {
	e := newEnv(t, nil)
	protect, err := auth.CSRF(strings.Repeat("s", 32), false, nil)
	if err != nil {
		t.Fatalf("CSRF: %v", err)
	}
	rec := httptest.NewRecorder()
	protect(e.router).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	field := find(parse(t, rec), func(n *html.Node) bool {
		name, _ := attr(n, "name")
		return n.Data == "input" && name == auth.CSRFFieldName
	})
	if field == nil {
		t.Fatal("missing csrf field")
	}
	if v, _ := attr(field, "value"); v == "" {
		t.Error("csrf field is empty")
	}
}

func TestServeLogin_ForgotPassword(t *testing.T) {
	e := newEnv(t, nil)
	doc := parse(t, e.get(t, "/?forgot=1"))
	msg := byID(doc, "successMessage")
	if !visible(msg) || !strings.Contains(text(msg), "reset your password") {
		t.Errorf("successMessage: %q", text(msg))
	}
}

func TestServeLogin_SignedInRedirects(t *testing.T) {
	e := newEnv(t, nil)
	req := testutil.NewAuthenticatedRequest("GET", "/", testutil.FacultyUser())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard/faculty" {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHandleLoginPost_AdminRedirectsToDashboard(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.post(t, credentials(adminEmail, adminPassword, "admin"))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303\n%s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard/admin" {
		t.Errorf("Location: got %q, want /dashboard/admin", loc)
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("expected a session cookie")
	}
	if session.MaxAge != 0 {
		t.Errorf("without rememberMe the cookie should be a session cookie, MaxAge=%d", session.MaxAge)
	}
}

func TestHandleLoginPost_RememberMe(t *testing.T) {
	e := newEnv(t, nil)
	form := credentials(adminEmail, adminPassword, "admin")
	form.Set("rememberMe", "on")
	rec := e.post(t, form)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			if c.MaxAge != int((30 * 24 * time.Hour).Seconds()) {
				t.Errorf("MaxAge: got %d", c.MaxAge)
			}
			return
		}
	}
	t.Fatal("expected a session cookie")
}

func TestHandleLoginPost_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"unknown user", credentials("invalid@user", "wrongpass", "student")},
		{"wrong password", credentials(adminEmail, "wrongpass", "admin")},
		{"role mismatch", credentials(adminEmail, adminPassword, "student")},
		{"empty", url.Values{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, nil)
			rec := e.post(t, tt.form)
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rec.Code)
			}
			doc := parse(t, rec)
			msg := byID(doc, "errorMessage")
			if !visible(msg) {
				t.Fatal("errorMessage should be visible")
			}
			if !strings.Contains(text(msg), "Invalid credentials") {
				t.Errorf("errorMessage: got %q", text(msg))
			}
			if v, _ := attr(byID(doc, "username"), "value"); v != tt.form.Get("username") {
				t.Errorf("username not echoed: got %q", v)
			}
			for _, c := range rec.Result().Cookies() {
				if c.Name == sessionName {
					t.Error("no session cookie should be set on failure")
				}
			}
		})
	}
}

func TestHandleLoginPost_Throttled(t *testing.T) {
	limiter := ratelimit.NewLoginLimiterFrom(ratelimit.New(1, time.Hour), ratelimit.New(10, time.Minute))
	e := newEnv(t, limiter)

	e.post(t, credentials("invalid@user", "wrongpass", "student"))
	rec := e.post(t, credentials(adminEmail, adminPassword, "admin"))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d, want 429", rec.Code)
	}
	if msg := text(byID(parse(t, rec), "errorMessage")); !strings.Contains(msg, "Too many login attempts") {
		t.Errorf("errorMessage: got %q", msg)
	}
}

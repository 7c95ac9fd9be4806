// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"strings"

	accountsvc "github.com/dalemusser/clubhub/internal/app/service/accounts"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auditlog"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/formutil"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgTryAgain           = "Something went wrong. Please try again."
	msgForgotPassword     = "Contact your club coordinator or the IT help desk to reset your password."
	msgSignedOut          = "You have been signed out."
)

type Handler struct {
	Accounts   *accountsvc.Service
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter // nil disables throttling
	Audit      *auditlog.Logger        // nil disables auditing
	Log        *zap.Logger
}

func NewHandler(svc *accountsvc.Service, sessionMgr *auth.SessionManager, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   svc,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type roleOption struct {
	Value   string
	Label   string
	Checked bool
}

type loginFormData struct {
	formutil.Base
	Username   string // what the user typed; an email address
	ReturnURL  string
	RememberMe bool
	Roles      []roleOption
}

func newFormData(r *http.Request, selected string) loginFormData {
	var data loginFormData
	formutil.SetBase(&data.Base, r, "Sign in", "/")
	if selected == "" {
		selected = string(models.RoleStudent)
	}
	for _, opt := range []struct{ value, label string }{
		{string(models.RoleStudent), "Student"},
		{string(models.RoleFaculty), "Faculty"},
		{string(models.RoleAdmin), "Admin"},
	} {
		data.Roles = append(data.Roles, roleOption{Value: opt.value, Label: opt.label, Checked: opt.value == selected})
	}
	return data
}

// ServeLogin handles GET /login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, dashboardFor(u.Role), http.StatusSeeOther)
		return
	}

	data := newFormData(r, "")
	data.ReturnURL = query.Get(r, "return")
	switch {
	case query.Get(r, "forgot") != "":
		data.Success = msgForgotPassword
	case query.Get(r, "signedout") != "":
		data.Success = msgSignedOut
	}
	templates.Render(w, r, "login", data)
}

// HandleLoginPost handles POST /login. On success the session cookie is set
// and the user is sent to the return URL or their role's dashboard; on
// failure the form is shown again with the reason.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, newFormData(r, ""), "Invalid form submission.")
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	role := strings.ToLower(strings.TrimSpace(r.PostFormValue("role")))
	remember := r.PostFormValue("rememberMe") != ""
	ret := r.PostFormValue("return")

	data := newFormData(r, role)
	data.Username = username
	data.ReturnURL = ret
	data.RememberMe = remember

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, username); !ok {
			h.Log.Warn("login throttled", zap.String("ip", ratelimit.ClientIP(r)))
			h.Audit.LoginRateLimited(r.Context(), r, username, "page")
			h.renderError(w, r, http.StatusTooManyRequests, data, msg)
			return
		}
	}

	res, err := h.Accounts.Login(r.Context(), accountsvc.LoginInput{
		Email:    username,
		Password: password,
		Role:     role,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			h.Audit.LoginFailed(r.Context(), r, username, apperr.Message(err), "page")
			h.renderError(w, r, http.StatusOK, data, msgInvalidCredentials)
			return
		}
		h.Log.Error("login failed", zap.Error(err))
		h.renderError(w, r, http.StatusOK, data, msgTryAgain)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, res.User.ID, remember); err != nil {
		h.Log.Error("save session", zap.Error(err))
		h.renderError(w, r, http.StatusOK, data, msgTryAgain)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(username)
	}
	h.Audit.LoginSuccess(r.Context(), r, res.User.ID, res.User.Email, "page")
	h.Log.Info("user signed in", zap.String("user_id", res.User.ID.Hex()), zap.String("role", string(res.User.Role)))

	dest := urlutil.SafeReturn(ret, "", dashboardFor(res.User.Role))
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, data loginFormData, msg string) {
	h.Log.Debug("login rejected", zap.String("username", data.Username), zap.String("reason", msg))
	data.SetError(msg)
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	templates.Render(w, r, "login", data)
}

func dashboardFor(role models.Role) string {
	return "/dashboard/" + string(role)
}

// internal/app/features/accounts/handler.go
package accounts

import (
	"net/http"

	accountsvc "github.com/dalemusser/clubhub/internal/app/service/accounts"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auditlog"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/formutil"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhub/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler serves the /api/auth endpoints.
type Handler struct {
	Accounts *accountsvc.Service
	Limiter  *ratelimit.LoginLimiter // nil disables throttling
	Audit    *auditlog.Logger        // nil disables auditing
	Log      *zap.Logger
}

func NewHandler(svc *accountsvc.Service, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{Accounts: svc, Limiter: limiter, Log: logger}
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in accountsvc.RegisterInput
	if err := formutil.DecodeJSON(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	res, err := h.Accounts.Register(r.Context(), in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.UserRegistered(r.Context(), r, res.User.ID, string(res.User.Role))
	respond.JSON(w, http.StatusCreated, res)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in accountsvc.LoginInput
	if err := formutil.DecodeJSON(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, in.Email); !ok {
			h.Log.Warn("login throttled", zap.String("ip", ratelimit.ClientIP(r)))
			h.Audit.LoginRateLimited(r.Context(), r, in.Email, "api")
			respond.Message(w, http.StatusTooManyRequests, msg)
			return
		}
	}
	res, err := h.Accounts.Login(r.Context(), in)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			h.Audit.LoginFailed(r.Context(), r, in.Email, apperr.Message(err), "api")
		}
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.LoginSuccess(r.Context(), r, res.User.ID, res.User.Email, "api")
	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	respond.JSON(w, http.StatusOK, res)
}

// Profile handles GET /api/auth/profile for the signed-in user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	p, err := h.Accounts.Profile(r.Context(), u.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

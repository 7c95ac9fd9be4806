// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"sync"
	"time"

	accountsfeature "github.com/dalemusser/clubhub/internal/app/features/accounts"
	auditfeature "github.com/dalemusser/clubhub/internal/app/features/auditlog"
	clubsfeature "github.com/dalemusser/clubhub/internal/app/features/clubs"
	dashboardfeature "github.com/dalemusser/clubhub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/clubhub/internal/app/features/errors"
	eventsfeature "github.com/dalemusser/clubhub/internal/app/features/events"
	healthfeature "github.com/dalemusser/clubhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/clubhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/clubhub/internal/app/features/logout"
	_ "github.com/dalemusser/clubhub/internal/app/features/shared/views" // registers the layout
	accountsvc "github.com/dalemusser/clubhub/internal/app/service/accounts"
	clubsvc "github.com/dalemusser/clubhub/internal/app/service/clubs"
	dashsvc "github.com/dalemusser/clubhub/internal/app/service/dashboard"
	eventsvc "github.com/dalemusser/clubhub/internal/app/service/events"
	"github.com/dalemusser/clubhub/internal/app/store/audit"
	clubstore "github.com/dalemusser/clubhub/internal/app/store/clubs"
	eventstore "github.com/dalemusser/clubhub/internal/app/store/events"
	metricsstore "github.com/dalemusser/clubhub/internal/app/store/metrics"
	userstore "github.com/dalemusser/clubhub/internal/app/store/users"
	"github.com/dalemusser/clubhub/internal/app/system/auditlog"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhub/internal/app/system/respond"
	"github.com/dalemusser/clubhub/internal/app/system/tasks"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type (
	// UserBackend is every user-store method the services and the session
	// loader need.
	UserBackend interface {
		accountsvc.UserStore
		clubsvc.UserStore
		dashsvc.UserStore
		auth.UserFetcher
	}

	ClubBackend interface {
		clubsvc.ClubStore
		eventsvc.ClubStore
		dashsvc.ClubStore
		accountsvc.ClubReader
	}

	EventBackend interface {
		eventsvc.EventStore
		dashsvc.EventStore
	}

	AuditBackend interface {
		auditlog.Store
		auditfeature.Querier
	}
)

// Backends are the stores and sinks the router is built over. BuildHandler
// fills it from MongoDB; tests fill it from in-memory stores.
type Backends struct {
	Users   UserBackend
	Clubs   ClubBackend
	Events  EventBackend
	Metrics dashsvc.Counter
	DB      healthfeature.Pinger
	Audit   AuditBackend // nil keeps audit events in the zap log only

	Publisher notify.Publisher
	Hub       http.Handler // nil leaves /notifications/ws unmounted
}

// Settings are the non-backend inputs to NewRouter.
type Settings struct {
	SessionKey      string
	SessionName     string
	SessionDomain   string
	SessionRemember time.Duration
	Secure          bool
	DevTemplates    bool
	JWTSecret       string
	JWTTTL          time.Duration
	Limiter         *ratelimit.LoginLimiter
	Audit           auditlog.Config
}

// mongoUsers joins the user store with the per-request session fetcher.
type mongoUsers struct {
	*userstore.Store
	*userstore.Fetcher
}

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. ClubHub builds the notification bus
// (Redis and the websocket hub), starts the login-limiter sweeper, and
// hands the MongoDB stores to NewRouter.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	var sinks []notify.Sink
	var hub *notify.Hub
	if deps.Redis != nil {
		sinks = append(sinks, notify.NewRedisSink(deps.Redis))
	}
	if appCfg.WSEnabled {
		hub = notify.NewHub(logger)
		sinks = append(sinks, hub)
		onShutdown(hub.Close)
	}

	limiter := ratelimit.NewLoginLimiter()
	sweeper := workers.NewRunner(tasks.LoginLimiterSweepJob(limiter, logger), timeouts.Short(), logger)
	sweeper.Start()
	onShutdown(sweeper.Stop)

	b := Backends{
		Users:     mongoUsers{userstore.New(db), userstore.NewFetcher(db)},
		Clubs:     clubstore.New(db),
		Events:    eventstore.New(db),
		Metrics:   metricsstore.New(db),
		DB:        deps.MongoClient,
		Audit:     audit.New(db),
		Publisher: notify.NewBus(logger, sinks...),
	}
	if hub != nil {
		b.Hub = hub
	}

	return NewRouter(Settings{
		SessionKey:      appCfg.SessionKey,
		SessionName:     appCfg.SessionName,
		SessionDomain:   appCfg.SessionDomain,
		SessionRemember: appCfg.SessionRemember,
		Secure:          coreCfg.Env == "prod",
		DevTemplates:    coreCfg.Env == "dev",
		JWTSecret:       appCfg.JWTSecret,
		JWTTTL:          appCfg.JWTTTL,
		Limiter:         limiter,
		Audit:           auditlog.Config{Auth: appCfg.AuditLogAuth, Admin: appCfg.AuditLogAdmin},
	}, b, logger)
}

// NewRouter wires services and feature routers over b.
func NewRouter(s Settings, b Backends, logger *zap.Logger) (http.Handler, error) {
	sessionMgr, err := auth.NewSessionManager(s.SessionKey, s.SessionName, s.SessionDomain, s.SessionRemember, s.Secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(s.JWTSecret, s.JWTTTL)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}

	// Initialize and boot the template engine once per router.
	eng := templates.New(s.DevTemplates)
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	limiter := s.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	pub := b.Publisher
	if pub == nil {
		pub = notify.Discard
	}

	accounts := accountsvc.NewService(b.Users, b.Clubs, tokens, logger)
	clubs := clubsvc.NewService(b.Clubs, b.Users, pub, logger)
	events := eventsvc.NewService(b.Events, b.Clubs, b.Users, pub, logger)
	dash := dashsvc.NewService(b.Metrics, b.Clubs, b.Events, b.Users, logger)

	var auditStore auditlog.Store
	if b.Audit != nil {
		auditStore = b.Audit
	}
	auditLog := auditlog.New(auditStore, logger, s.Audit)

	errorsHandler := errorsfeature.NewHandler()
	csrfProtect, err := auth.CSRF(s.SessionKey, s.Secure, http.HandlerFunc(errorsHandler.CSRFFailure))
	if err != nil {
		logger.Error("csrf init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Resolves the bearer token or session cookie into the current user.
	r.Use(sessionMgr.LoadUser(tokens, b.Users))

	r.NotFound(notFound(errorsHandler))

	if b.DB != nil {
		r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(b.DB, logger)))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})

	// HTML pages: every form post carries a gorilla/csrf token.
	loginHandler := loginfeature.NewHandler(accounts, sessionMgr, limiter, logger)
	loginHandler.Audit = auditLog
	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	logoutHandler.Audit = auditLog
	dashboardHandler := dashboardfeature.NewHandler(dash, accounts, clubs, events, logger)

	r.Group(func(pages chi.Router) {
		pages.Use(csrfProtect)
		pages.Mount("/login", loginfeature.Routes(loginHandler))
		pages.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))
		pages.Get("/forbidden", errorsHandler.Forbidden)
		pages.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))
	})

	accountsHandler := accountsfeature.NewHandler(accounts, limiter, logger)
	accountsHandler.Audit = auditLog
	clubsHandler := clubsfeature.NewHandler(clubs, logger)
	clubsHandler.Audit = auditLog
	eventsHandler := eventsfeature.NewHandler(events, logger)
	eventsHandler.Audit = auditLog

	// JSON API: the session cookie only authenticates reads; writes need a
	// bearer token.
	r.Route("/api", func(api chi.Router) {
		api.Use(auth.BearerOnlyWrites)
		api.Mount("/auth", accountsfeature.Routes(accountsHandler, sessionMgr))
		api.Mount("/clubs", clubsfeature.Routes(clubsHandler, sessionMgr))
		api.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr))
		api.Mount("/dashboard", dashboardfeature.APIRoutes(dashboardHandler, sessionMgr))
		if b.Audit != nil {
			api.Mount("/audit", auditfeature.Routes(auditfeature.NewHandler(b.Audit, logger), sessionMgr))
		}
	})

	if b.Hub != nil {
		r.Handle("/notifications/ws", b.Hub)
	}

	return r, nil
}

// notFound answers API paths with JSON and everything else with the HTML
// error page.
func notFound(errorsHandler *errorsfeature.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			respond.Message(w, http.StatusNotFound, "Route not found")
			return
		}
		errorsHandler.NotFound(w, r)
	}
}

var (
	bgMu       sync.Mutex
	background []func()
)

func onShutdown(stop func()) {
	bgMu.Lock()
	defer bgMu.Unlock()
	background = append(background, stop)
}

func stopBackground() {
	bgMu.Lock()
	stops := background
	background = nil
	bgMu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

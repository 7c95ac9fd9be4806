// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/auditlog"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
	devJWTSecret  = "dev-only-jwt-secret-change-me-0123456789"
)

// appConfigKeys defines the configuration keys for ClubHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CLUBHUB_MONGO_URI, CLUBHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "clubhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "clubhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_remember", Default: "720h", Desc: "Session lifetime when 'remember me' is ticked"},

	// API tokens
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 signing secret for API bearer tokens"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime"},

	// Notifications
	{Name: "redis_enabled", Default: false, Desc: "Publish notifications to Redis pub/sub"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (host:port)"},
	{Name: "ws_enabled", Default: true, Desc: "Serve the websocket notification hub"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, in order of precedence,
// flags > env > files > defaults, reading WAFFLE_* for core settings and
// CLUBHUB_* for the keys above.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CLUBHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:      appValues.String("session_key"),
		SessionName:     appValues.String("session_name"),
		SessionDomain:   appValues.String("session_domain"),
		SessionRemember: appValues.Duration("session_remember", 30*24*time.Hour),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", auth.DefaultTokenTTL),

		RedisEnabled: appValues.Bool("redis_enabled"),
		RedisAddr:    appValues.String("redis_addr"),
		WSEnabled:    appValues.Bool("ws_enabled"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI format is checked here so a typo fails before any
// connection attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if len(appCfg.JWTSecret) < auth.MinSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", auth.MinSecretLen)
	}
	if appCfg.JWTTTL <= 0 {
		return errors.New("jwt_ttl must be positive")
	}
	if appCfg.RedisEnabled && appCfg.RedisAddr == "" {
		return errors.New("redis_enabled requires redis_addr")
	}
	if !auditlog.ValidMode(appCfg.AuditLogAuth) || !auditlog.ValidMode(appCfg.AuditLogAdmin) {
		return errors.New("audit_log_auth and audit_log_admin must be one of all, db, log, off")
	}
	if env == "prod" && (appCfg.SessionKey == devSessionKey || appCfg.JWTSecret == devJWTSecret) {
		return errors.New("session_key and jwt_secret must be set in production")
	}
	return nil
}

// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS); AppConfig is
// everything specific to ClubHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration (login page cookie)
	SessionKey      string // Secret key for signing session cookies (must be strong in production)
	SessionName     string // Cookie name for sessions (default: clubhub-session)
	SessionDomain   string // Cookie domain (blank means current host)
	SessionRemember time.Duration

	// Bearer tokens for the JSON API
	JWTSecret string
	JWTTTL    time.Duration

	// Notification fan-out
	RedisEnabled bool   // Publish club/event notifications to Redis pub/sub
	RedisAddr    string // host:port of the Redis server
	WSEnabled    bool   // Serve the in-process websocket hub at /notifications/ws

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogAuth  string
	AuditLogAdmin string
}

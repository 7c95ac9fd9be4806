// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/store/audit"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Logging modes for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether m is one of the logging modes.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Auth controls sign-in, sign-out, and registration events.
	Auth string
	// Admin controls staff decisions: club creation, membership and event
	// approvals, cancellations.
	Admin string
}

// Store persists audit events. *audit.Store satisfies it.
type Store interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to the Store and to structured logs, per Config.
type Logger struct {
	store  Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers built without auditing still work.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func request(r *http.Request, e audit.Event) audit.Event {
	e.IP = ratelimit.ClientIP(r)
	e.UserAgent = r.UserAgent()
	return e
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in. via names the entry point
// ("api" or "page").
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, via string) {
	l.Log(ctx, request(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email, "via": via},
	}))
}

// LoginFailed logs a rejected sign-in. The account may not exist, so only
// the attempted email is recorded.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason, via string) {
	l.Log(ctx, request(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		FailureReason: reason,
		Details:       map[string]string{"attempted_email": email, "via": via},
	}))
}

// LoginRateLimited logs a sign-in refused by the throttle.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email, via string) {
	l.Log(ctx, request(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginRateLimited,
		FailureReason: "rate limited",
		Details:       map[string]string{"attempted_email": email, "via": via},
	}))
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, request(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    &userID,
		Success:   true,
	}))
}

// UserRegistered logs a new account.
func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	l.Log(ctx, request(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUserRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"role": role},
	}))
}

// --- Admin Events ---

// ClubCreated logs a new club.
func (l *Logger) ClubCreated(ctx context.Context, r *http.Request, actorID, clubID primitive.ObjectID, name string) {
	l.Log(ctx, request(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventClubCreated,
		ActorID:   &actorID,
		Success:   true,
		Details:   map[string]string{"club_id": clubID.Hex(), "club_name": name},
	}))
}

// MembershipDecided logs an approve or reject of a membership request.
func (l *Logger) MembershipDecided(ctx context.Context, r *http.Request, actorID, clubID, memberID primitive.ObjectID, approved bool) {
	eventType := audit.EventMembershipRejected
	if approved {
		eventType = audit.EventMembershipApproved
	}
	l.Log(ctx, request(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		UserID:    &memberID,
		Success:   true,
		Details:   map[string]string{"club_id": clubID.Hex()},
	}))
}

// EventDecided logs an approve, reject, or cancel of an event. eventType is
// one of the audit.EventEvent* constants.
func (l *Logger) EventDecided(ctx context.Context, r *http.Request, actorID, eventID primitive.ObjectID, eventType string) {
	l.Log(ctx, request(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		Success:   true,
		Details:   map[string]string{"event_id": eventID.Hex()},
	}))
}

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

// SessionManager owns the cookie store used by the login page.
type SessionManager struct {
	store    *sessions.CookieStore
	name     string
	remember time.Duration
	log      *zap.Logger
}

// NewSessionManager builds a cookie-backed session store. remember is the
// cookie lifetime when the user ticks "remember me"; otherwise the cookie
// lasts for the browser session.
//
// In production (secure=true) cookies are Secure + SameSite=None. In local
// dev over http://localhost use secure=false so cookies are accepted.
func NewSessionManager(key, name, domain string, remember time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if key == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(key) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, remember: remember, log: logger}, nil
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// GetSession returns the request's session. On a decode error (rotated
// key, tampered cookie) a fresh session is returned alongside the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// SignIn records userID in the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, remember bool) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed; starting fresh", zap.Error(err))
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID.Hex()
	sess.Options.MaxAge = 0
	if remember && sm.remember > 0 {
		sess.Options.MaxAge = int(sm.remember.Seconds())
	}
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed during logout", zap.Error(err))
	}
	delete(sess.Values, isAuthKey)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// sessionUserID returns the signed-in user id, if any.
func (sm *SessionManager) sessionUserID(r *http.Request) (primitive.ObjectID, bool) {
	sess, err := sm.GetSession(r)
	if err != nil {
		return primitive.NilObjectID, false
	}
	if ok, _ := sess.Values[isAuthKey].(bool); !ok {
		return primitive.NilObjectID, false
	}
	hex, _ := sess.Values[userIDKey].(string)
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

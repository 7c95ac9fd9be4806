package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/clubhub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// LoadUser resolves the caller from a bearer token or, failing that, the
// session cookie, reloads them through users, and injects the result into
// the request context. Requests without valid credentials pass through
// anonymously; Require* middleware decides what to do with them.
func (sm *SessionManager) LoadUser(tokens *TokenIssuer, users UserFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := primitive.NilObjectID, false
			fromCookie := false

			if raw, found := bearerToken(r); found && tokens != nil {
				claims, err := tokens.Parse(raw)
				if err != nil {
					sm.log.Debug("rejecting bearer token", zap.Error(err))
				} else {
					id, ok = claims.UserID(), true
				}
			} else {
				id, ok = sm.sessionUserID(r)
				fromCookie = ok
			}

			if ok {
				if u := users.FetchUser(r.Context(), id); u != nil {
					if fromCookie {
						r = withCookieUser(r, u)
					} else {
						r = withUser(r, u)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSignedIn ensures there is a user in context (set by LoadUser).
// If not signed in:
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 with a JSON error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		unauthenticated(w, r)
	})
}

// RequireRole ensures there is a user with one of the allowed roles.
// Wrong-role HTML requests are redirected to /forbidden; API requests get
// a 403 JSON error.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				unauthenticated(w, r)
				return
			}
			if _, has := set[strings.ToLower(string(u.Role))]; !has {
				if wantsHTML(r) {
					http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
					return
				}
				respond.Message(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	respond.Message(w, http.StatusUnauthorized, "Authentication required")
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

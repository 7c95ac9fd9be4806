package auth

import (
	"crypto/sha256"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/csrf"
	"golang.org/x/crypto/hkdf"
)

// CSRFFieldName is the hidden form field the HTML forms carry the token in.
const CSRFFieldName = "gorilla.csrf.Token"

// CSRF returns gorilla/csrf middleware for the server-rendered pages. The
// 32-byte token key is derived from the session key, so rotating the session
// key also invalidates outstanding form tokens. onFailure renders the
// rejection; csrf.FailureReason(r) holds the cause.
//
// Without TLS the requests are marked plaintext, which skips the strict
// Referer check gorilla applies to HTTPS; the token and Origin checks still
// run.
func CSRF(sessionKey string, secure bool, onFailure http.Handler) (func(http.Handler) http.Handler, error) {
	if sessionKey == "" {
		return nil, errors.New("csrf: empty session key")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(sessionKey), nil, []byte("clubhub csrf")), key); err != nil {
		return nil, err
	}

	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName(CSRFFieldName),
	}
	if onFailure != nil {
		opts = append(opts, csrf.ErrorHandler(onFailure))
	}
	protect := csrf.Protect(key, opts...)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}, nil
}

// BearerOnlyWrites drops a user resolved from the session cookie on
// state-changing requests, so JSON writes need the Authorization header.
// A cross-site page can make a browser send the cookie but never the token.
func BearerOnlyWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !safeMethod(r.Method) && viaSessionCookie(r) {
			r = withUser(r, nil)
		}
		next.ServeHTTP(w, r)
	})
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Package respond writes JSON API responses and maps service errors onto
// HTTP status codes.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// Message writes {"error": msg} with the given status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// Status maps an error kind to its HTTP status.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Error writes err as {"error": message} with the status of its kind.
// Internal errors are also logged.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	Message(w, Status(kind), apperr.Message(err))
}

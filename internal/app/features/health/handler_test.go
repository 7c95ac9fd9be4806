package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/features/health"
	"github.com/dalemusser/clubhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type downDB struct{}

func (downDB) Ping(context.Context, *readpref.ReadPref) error {
	return errors.New("connection refused")
}

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, healthBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	health.Routes(h).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, body
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rec, body := serve(t, health.NewHandler(db.Client(), zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	if body.Status != "ok" || body.Database != "connected" {
		t.Errorf("body: %+v", body)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	rec, body := serve(t, health.NewHandler(downDB{}, zap.NewNop()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	want := healthBody{Status: "error", Database: "disconnected", Message: "Database unavailable", Error: "connection refused"}
	if body != want {
		t.Errorf("got %+v, want %+v", body, want)
	}
}

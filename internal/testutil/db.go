package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dalemusser/clubhub/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DBConfig points store tests at a MongoDB server.
type DBConfig struct {
	URI         string        `env:"CLUBHUB_TEST_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	DialTimeout time.Duration `env:"CLUBHUB_TEST_MONGO_DIAL_TIMEOUT" envDefault:"2s"`
	Required    bool          `env:"CLUBHUB_TEST_MONGO_REQUIRED" envDefault:"false"`
}

// TestContext returns a context with a timeout suitable for a single test.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB connects to MongoDB, creates a database unique to the test
// with all indexes in place, and drops it when the test ends. The test is
// skipped when no server answers, unless CLUBHUB_TEST_MONGO_REQUIRED is set.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	var cfg DBConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse test db env: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.DialTimeout))
	if err == nil {
		err = client.Ping(ctx, nil)
	}
	if err != nil {
		if client != nil {
			_ = client.Disconnect(context.Background())
		}
		if cfg.Required {
			t.Fatalf("mongo unavailable at %s: %v", cfg.URI, err)
		}
		t.Skipf("mongo unavailable at %s: %v", cfg.URI, err)
	}

	name := "clubhub_test_" + strings.ToLower(primitive.NewObjectID().Hex())
	db := client.Database(name)

	ictx, icancel := TestContext()
	defer icancel()
	if err := indexes.EnsureAll(ictx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		cctx, ccancel := TestContext()
		defer ccancel()
		_ = db.Drop(cctx)
		_ = client.Disconnect(cctx)
	})
	return db
}

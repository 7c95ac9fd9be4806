package testutil

import (
	"testing"

	_ "github.com/dalemusser/clubhub/internal/app/features/shared/views" // registers the layout
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// BootTemplates compiles every template set registered so far and installs
// the engine used by templates.Render. Tests import the feature packages
// whose pages they render, so their sets are registered by the time this
// runs.
func BootTemplates(t *testing.T) {
	t.Helper()
	eng := templates.New(true)
	if err := eng.Boot(zap.NewNop()); err != nil {
		t.Fatalf("template boot failed: %v", err)
	}
	templates.UseEngine(eng, zap.NewNop())
}

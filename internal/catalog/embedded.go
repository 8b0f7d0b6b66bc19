package catalog

import (
	"context"
	_ "embed"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

//go:embed seed.yaml
var seedCatalog []byte

// EmbeddedSource serves the seed catalog compiled into the binary.
type EmbeddedSource struct{}

// Name identifies the source in events and errors.
func (EmbeddedSource) Name() string { return "embedded" }

// Load parses the embedded seed catalog.
func (EmbeddedSource) Load(_ context.Context) ([]models.Question, error) {
	return ParseYAML(seedCatalog)
}

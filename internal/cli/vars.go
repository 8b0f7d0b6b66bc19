package cli

import (
	"github.com/valter-silva-au/adaptive-assessment/internal/catalog"
	"github.com/valter-silva-au/adaptive-assessment/internal/core"
	"github.com/valter-silva-au/adaptive-assessment/internal/observability"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// SessionLister lists stored sessions. The session store implements it.
type SessionLister interface {
	ListSessions(filter models.SessionFilter) ([]models.SessionSummary, error)
}

// Service instances, set during app initialization in app.go.
var (
	BasePath string

	Sessions     core.SessionManager
	SessionIndex SessionLister
	Catalog      *catalog.Catalog
	CatalogCfg   models.CatalogConfig
	Pathways     []models.Pathway
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)

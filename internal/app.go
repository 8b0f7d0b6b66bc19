// Package internal provides the App struct that wires the engine, the
// catalog, the session store and observability together and initializes the
// CLI layer.
package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/adaptive-assessment/internal/catalog"
	"github.com/valter-silva-au/adaptive-assessment/internal/cli"
	"github.com/valter-silva-au/adaptive-assessment/internal/core"
	"github.com/valter-silva-au/adaptive-assessment/internal/observability"
	"github.com/valter-silva-au/adaptive-assessment/internal/storage"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// EventLogFile is the JSON Lines event log, relative to the base path.
const EventLogFile = ".aqe_events.jsonl"

// App holds all service dependencies.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    models.EngineConfig

	// Question catalog and pathway table
	Catalog  *catalog.Catalog
	Pathways []models.Pathway

	// Storage layer
	SessionStore storage.SessionStore

	// Core services
	Engine   *core.Engine
	Sessions core.SessionManager

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components. basePath is the root directory
// where sessions, the event log and .aqeconfig.yaml live.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = *cfg

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFile))
	if err != nil {
		// Non-fatal: run without an event log.
		app.EventLog = nil
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = observability.NewEventLogger(app.EventLog)
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.ThresholdsFromConfig(cfg.Alerts))
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.SlackWebhookURL)
	}

	// --- Catalog and pathways ---
	app.Catalog, err = catalog.New(context.Background(), catalogSource(cfg.Catalog), events)
	if err != nil {
		app.closeLog()
		return nil, err
	}
	app.Pathways, err = core.LoadPathwayTable(cfg.PathwaysFile)
	if err != nil {
		app.closeLog()
		return nil, err
	}

	// --- Storage layer ---
	app.SessionStore = storage.NewSessionStore(basePath)
	_ = app.SessionStore.Load() // Non-fatal: empty index on first use.

	// --- Core services ---
	app.Engine, err = core.NewEngine(app.Catalog, app.Pathways, *cfg, events, app.SessionStore)
	if err != nil {
		app.closeLog()
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	app.Sessions = core.NewSessionManager(app.Engine, app.SessionStore, app.Catalog)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Sessions = app.Sessions
	cli.SessionIndex = app.SessionStore
	cli.Catalog = app.Catalog
	cli.CatalogCfg = cfg.Catalog
	cli.Pathways = app.Pathways

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// catalogSource picks the configured catalog: SQLite first, then a YAML
// file, then the built-in seed catalog.
func catalogSource(c models.CatalogConfig) catalog.Source {
	switch {
	case c.SQLitePath != "":
		return catalog.SQLiteSource{Path: c.SQLitePath}
	case c.Path != "":
		return catalog.YAMLSource{Path: c.Path}
	default:
		return catalog.EmbeddedSource{}
	}
}

func (a *App) closeLog() {
	if a.EventLog != nil {
		_ = a.EventLog.Close()
	}
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the data directory. It checks the AQE_HOME env
// var, then walks up from the current directory looking for .aqeconfig.yaml,
// then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("AQE_HOME"); home != "" {
		return home
	}
	if dir, err := os.Getwd(); err == nil {
		for {
			if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	cwd, _ := os.Getwd()
	return cwd
}

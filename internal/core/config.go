package core

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// ConfigFileName is the name of the engine configuration file, without
// extension, looked up in the base directory.
const ConfigFileName = ".aqeconfig"

// ConfigurationManager loads and validates the engine configuration.
type ConfigurationManager interface {
	LoadConfig() (*models.EngineConfig, error)
	ValidateConfig(cfg *models.EngineConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file and AQE_* environment overrides.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .aqeconfig.yaml from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

func (cm *viperConfigManager) newViper(def models.EngineConfig) *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("AQE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for tier, budget := range def.Budgets {
		v.SetDefault("budgets."+string(tier), budget)
	}
	v.SetDefault("batch_size", def.BatchSize)
	v.SetDefault("phases.branching_at", def.Phases.BranchingAt)
	v.SetDefault("phases.refinement_at", def.Phases.RefinementAt)
	v.SetDefault("planner.initial_ratio", def.InitialRatio)

	w := def.Selection
	v.SetDefault("selection.pathway_boost", w.PathwayBoost)
	v.SetDefault("selection.added_subcategory_boost", w.AddedSubcategoryBoost)
	v.SetDefault("selection.trait_multiplier", w.TraitMultiplier)
	v.SetDefault("selection.trait_signal_threshold", w.TraitSignalThreshold)
	v.SetDefault("selection.redundancy_penalty", w.RedundancyPenalty)
	v.SetDefault("selection.redundancy_trait_cutoff", w.RedundancyTraitCutoff)
	v.SetDefault("selection.extreme_forced_choice_bonus", w.ExtremeForcedChoiceBonus)
	v.SetDefault("selection.central_slider_bonus", w.CentralSliderBonus)

	v.SetDefault("scale.min", def.Scale.Min)
	v.SetDefault("scale.max", def.Scale.Max)
	v.SetDefault("scale.midpoint", def.Scale.Midpoint)
	v.SetDefault("scale.high_threshold", def.Scale.HighThreshold)

	v.SetDefault("default_norm.mean", def.DefaultNorm.Mean)
	v.SetDefault("default_norm.stddev", def.DefaultNorm.StdDev)

	v.SetDefault("catalog.path", def.Catalog.Path)
	v.SetDefault("catalog.sqlite", def.Catalog.SQLitePath)
	v.SetDefault("catalog.refresh_interval", def.Catalog.RefreshInterval)
	v.SetDefault("pathways_file", def.PathwaysFile)

	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("notifications.slack_webhook_url", def.Notifications.SlackWebhookURL)
	v.SetDefault("alerts.stalled_hours", def.Alerts.StalledHours)
	v.SetDefault("alerts.max_low_validity", def.Alerts.MaxLowValidity)
	v.SetDefault("alerts.max_exhaust_events", def.Alerts.MaxExhaustEvents)
	return v
}

// LoadConfig reads .aqeconfig.yaml from the base path. Missing keys keep
// their defaults; a missing file yields the default configuration.
// Relative file paths are resolved against the base path.
func (cm *viperConfigManager) LoadConfig() (*models.EngineConfig, error) {
	cfg := models.DefaultEngineConfig()
	v := cm.newViper(cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	for tier := range cfg.Budgets {
		cfg.Budgets[tier] = v.GetInt("budgets." + string(tier))
	}
	cfg.BatchSize = v.GetInt("batch_size")
	cfg.Phases.BranchingAt = v.GetFloat64("phases.branching_at")
	cfg.Phases.RefinementAt = v.GetFloat64("phases.refinement_at")
	cfg.InitialRatio = v.GetFloat64("planner.initial_ratio")

	w := &cfg.Selection
	w.PathwayBoost = v.GetFloat64("selection.pathway_boost")
	w.AddedSubcategoryBoost = v.GetFloat64("selection.added_subcategory_boost")
	w.TraitMultiplier = v.GetFloat64("selection.trait_multiplier")
	w.TraitSignalThreshold = v.GetFloat64("selection.trait_signal_threshold")
	w.RedundancyPenalty = v.GetFloat64("selection.redundancy_penalty")
	w.RedundancyTraitCutoff = v.GetFloat64("selection.redundancy_trait_cutoff")
	w.ExtremeForcedChoiceBonus = v.GetFloat64("selection.extreme_forced_choice_bonus")
	w.CentralSliderBonus = v.GetFloat64("selection.central_slider_bonus")
	for category := range v.GetStringMap("selection.category_caps") {
		w.CategoryCaps[category] = v.GetInt("selection.category_caps." + category)
	}

	for tier := range cfg.TierAccess {
		key := "tier_access." + string(tier)
		if !v.IsSet(key) {
			continue
		}
		var tiers []models.QuestionTier
		for _, t := range v.GetStringSlice(key) {
			tiers = append(tiers, models.QuestionTier(t))
		}
		cfg.TierAccess[tier] = tiers
	}

	cfg.Scale = models.Scale{
		Min:           v.GetInt("scale.min"),
		Max:           v.GetInt("scale.max"),
		Midpoint:      v.GetInt("scale.midpoint"),
		HighThreshold: v.GetInt("scale.high_threshold"),
	}

	cfg.DefaultNorm = models.Norm{
		Mean:   v.GetFloat64("default_norm.mean"),
		StdDev: v.GetFloat64("default_norm.stddev"),
	}
	for trait := range v.GetStringMap("norms") {
		prefix := "norms." + trait
		norm := cfg.NormFor(models.Trait(trait))
		if v.IsSet(prefix + ".mean") {
			norm.Mean = v.GetFloat64(prefix + ".mean")
		}
		if v.IsSet(prefix + ".stddev") {
			norm.StdDev = v.GetFloat64(prefix + ".stddev")
		}
		cfg.Norms[models.Trait(trait)] = norm
	}

	cfg.Catalog.Path = cm.resolve(v.GetString("catalog.path"))
	cfg.Catalog.SQLitePath = cm.resolve(v.GetString("catalog.sqlite"))
	cfg.Catalog.RefreshInterval = v.GetDuration("catalog.refresh_interval")
	cfg.PathwaysFile = cm.resolve(v.GetString("pathways_file"))

	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.SlackWebhookURL = v.GetString("notifications.slack_webhook_url")
	cfg.Alerts.StalledHours = v.GetInt("alerts.stalled_hours")
	cfg.Alerts.MaxLowValidity = v.GetInt("alerts.max_low_validity")
	cfg.Alerts.MaxExhaustEvents = v.GetInt("alerts.max_exhaust_events")

	return &cfg, nil
}

func (cm *viperConfigManager) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cm.basePath, path)
}

// ValidateConfig checks every field and reports all problems at once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.EngineConfig) error {
	return ValidateEngineConfig(cfg)
}

// ValidateEngineConfig checks an EngineConfig for invalid values.
func ValidateEngineConfig(cfg *models.EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	tiers := make([]string, 0, len(cfg.Budgets))
	for tier := range cfg.Budgets {
		tiers = append(tiers, string(tier))
	}
	sort.Strings(tiers)
	for _, tier := range tiers {
		st := models.SessionTier(tier)
		if err := models.ValidateSessionTier(st); err != nil {
			errs = append(errs, fmt.Sprintf("budgets: %v", err))
			continue
		}
		if cfg.Budgets[st] <= 0 {
			errs = append(errs, fmt.Sprintf("budgets.%s must be positive, got %d", tier, cfg.Budgets[st]))
		}
		for _, qt := range cfg.TierAccess[st] {
			if !qt.IsValid() {
				errs = append(errs, fmt.Sprintf("tier_access.%s: unknown question tier %q", tier, qt))
			}
		}
	}

	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Sprintf("batch_size must be positive, got %d", cfg.BatchSize))
	}

	p := cfg.Phases
	if p.BranchingAt <= 0 || p.BranchingAt >= 1 || p.RefinementAt <= p.BranchingAt || p.RefinementAt >= 1 {
		errs = append(errs, fmt.Sprintf(
			"phases must satisfy 0 < branching_at < refinement_at < 1, got %.2f and %.2f",
			p.BranchingAt, p.RefinementAt,
		))
	}
	if cfg.InitialRatio <= 0 || cfg.InitialRatio > 1 {
		errs = append(errs, fmt.Sprintf("planner.initial_ratio must be in (0, 1], got %.2f", cfg.InitialRatio))
	}

	s := cfg.Scale
	if s.Min >= s.Max || !s.Contains(s.Midpoint) || !s.Contains(s.HighThreshold) {
		errs = append(errs, fmt.Sprintf(
			"scale must satisfy min < max with midpoint and high_threshold inside, got %d..%d mid %d high %d",
			s.Min, s.Max, s.Midpoint, s.HighThreshold,
		))
	}

	for category, limit := range cfg.Selection.CategoryCaps {
		if limit < 0 {
			errs = append(errs, fmt.Sprintf("selection.category_caps.%s must be non-negative, got %d", category, limit))
		}
	}

	for trait, norm := range cfg.Norms {
		if err := models.ValidateTrait(trait); err != nil {
			errs = append(errs, fmt.Sprintf("norms: %v", err))
		}
		if norm.StdDev <= 0 {
			errs = append(errs, fmt.Sprintf("norms.%s.stddev must be positive, got %.2f", trait, norm.StdDev))
		}
	}
	if cfg.DefaultNorm.StdDev <= 0 {
		errs = append(errs, fmt.Sprintf("default_norm.stddev must be positive, got %.2f", cfg.DefaultNorm.StdDev))
	}

	if cfg.Catalog.RefreshInterval < 0 {
		errs = append(errs, "catalog.refresh_interval must not be negative")
	}
	if cfg.Notifications.Enabled && cfg.Notifications.SlackWebhookURL == "" {
		errs = append(errs, "notifications.slack_webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("engine config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

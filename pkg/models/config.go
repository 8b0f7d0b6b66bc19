package models

import "time"

// SelectionWeights are the empirical ranking constants of the selector.
type SelectionWeights struct {
	PathwayBoost             float64        `yaml:"pathway_boost" mapstructure:"pathway_boost"`
	AddedSubcategoryBoost    float64        `yaml:"added_subcategory_boost" mapstructure:"added_subcategory_boost"`
	TraitMultiplier          float64        `yaml:"trait_multiplier" mapstructure:"trait_multiplier"`
	TraitSignalThreshold     float64        `yaml:"trait_signal_threshold" mapstructure:"trait_signal_threshold"`
	RedundancyPenalty        float64        `yaml:"redundancy_penalty" mapstructure:"redundancy_penalty"`
	RedundancyTraitCutoff    float64        `yaml:"redundancy_trait_cutoff" mapstructure:"redundancy_trait_cutoff"`
	ExtremeForcedChoiceBonus float64        `yaml:"extreme_forced_choice_bonus" mapstructure:"extreme_forced_choice_bonus"`
	CentralSliderBonus       float64        `yaml:"central_slider_bonus" mapstructure:"central_slider_bonus"`
	CategoryCaps             map[string]int `yaml:"category_caps" mapstructure:"category_caps"`
}

// DefaultSelectionWeights returns the stock ranking constants.
func DefaultSelectionWeights() SelectionWeights {
	return SelectionWeights{
		PathwayBoost:             30,
		AddedSubcategoryBoost:    20,
		TraitMultiplier:          10,
		TraitSignalThreshold:     3.5,
		RedundancyPenalty:        20,
		RedundancyTraitCutoff:    4.5,
		ExtremeForcedChoiceBonus: 15,
		CentralSliderBonus:       10,
		CategoryCaps: map[string]int{
			CategoryPersonality:        10,
			CategoryNeurodiversity:     15,
			CategoryMentalHealth:       8,
			CategoryCognitiveFunctions: 6,
		},
	}
}

// PhaseBoundaries are budget fractions at which the phase changes.
type PhaseBoundaries struct {
	BranchingAt  float64 `yaml:"branching_at" mapstructure:"branching_at"`
	RefinementAt float64 `yaml:"refinement_at" mapstructure:"refinement_at"`
}

// Norm is a reference population for one trait.
type Norm struct {
	Mean   float64 `yaml:"mean" mapstructure:"mean"`
	StdDev float64 `yaml:"stddev" mapstructure:"stddev"`
}

// CatalogConfig locates the question catalog.
type CatalogConfig struct {
	Path            string        `yaml:"path" mapstructure:"path"`
	SQLitePath      string        `yaml:"sqlite" mapstructure:"sqlite"`
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// NotificationConfig configures alert delivery.
type NotificationConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	SlackWebhookURL string `yaml:"slack_webhook_url" mapstructure:"slack_webhook_url"`
}

// AlertConfig configures alert thresholds.
type AlertConfig struct {
	StalledHours     int `yaml:"stalled_hours" mapstructure:"stalled_hours"`
	MaxLowValidity   int `yaml:"max_low_validity" mapstructure:"max_low_validity"`
	MaxExhaustEvents int `yaml:"max_exhaust_events" mapstructure:"max_exhaust_events"`
}

// EngineConfig holds every tunable of the engine, read from .aqeconfig via
// Viper.
type EngineConfig struct {
	Budgets       map[SessionTier]int            `yaml:"budgets" mapstructure:"budgets"`
	BatchSize     int                            `yaml:"batch_size" mapstructure:"batch_size"`
	Phases        PhaseBoundaries                `yaml:"phases" mapstructure:"phases"`
	InitialRatio  float64                        `yaml:"initial_ratio" mapstructure:"initial_ratio"`
	Selection     SelectionWeights               `yaml:"selection" mapstructure:"selection"`
	TierAccess    map[SessionTier][]QuestionTier `yaml:"tier_access" mapstructure:"tier_access"`
	Scale         Scale                          `yaml:"scale" mapstructure:"scale"`
	Norms         map[Trait]Norm                 `yaml:"norms" mapstructure:"norms"`
	DefaultNorm   Norm                           `yaml:"default_norm" mapstructure:"default_norm"`
	Catalog       CatalogConfig                  `yaml:"catalog" mapstructure:"catalog"`
	PathwaysFile  string                         `yaml:"pathways_file" mapstructure:"pathways_file"`
	Notifications NotificationConfig             `yaml:"notifications" mapstructure:"notifications"`
	Alerts        AlertConfig                    `yaml:"alerts" mapstructure:"alerts"`
}

// DefaultEngineConfig returns the stock configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Budgets: map[SessionTier]int{
			TierQuick:    20,
			TierStandard: 45,
			TierDeep:     75,
		},
		BatchSize:    5,
		Phases:       PhaseBoundaries{BranchingAt: 0.4, RefinementAt: 0.7},
		InitialRatio: 0.4,
		Selection:    DefaultSelectionWeights(),
		TierAccess: map[SessionTier][]QuestionTier{
			TierQuick: {
				QuestionTierFree, QuestionTierCore, QuestionTierQuick, QuestionTierScreening,
			},
			TierStandard: {
				QuestionTierFree, QuestionTierCore, QuestionTierQuick, QuestionTierScreening,
				QuestionTierStandard, QuestionTierComprehensive,
			},
			TierDeep: {
				QuestionTierFree, QuestionTierCore, QuestionTierQuick, QuestionTierScreening,
				QuestionTierStandard, QuestionTierComprehensive, QuestionTierDeep, QuestionTierSpecialized,
			},
		},
		Scale: DefaultScale(),
		Norms: map[Trait]Norm{
			TraitOpenness:          {Mean: 3.2, StdDev: 0.8},
			TraitConscientiousness: {Mean: 3.1, StdDev: 0.8},
			TraitExtraversion:      {Mean: 3.0, StdDev: 0.9},
			TraitAgreeableness:     {Mean: 3.3, StdDev: 0.7},
			TraitNeuroticism:       {Mean: 2.8, StdDev: 0.9},
		},
		DefaultNorm: Norm{Mean: 3.0, StdDev: 0.8},
		Catalog: CatalogConfig{
			RefreshInterval: 5 * time.Minute,
		},
		Alerts: AlertConfig{
			StalledHours:     48,
			MaxLowValidity:   0,
			MaxExhaustEvents: 0,
		},
	}
}

// NormFor returns the reference population for t, falling back to the
// default norm.
func (c EngineConfig) NormFor(t Trait) Norm {
	if n, ok := c.Norms[t]; ok {
		return n
	}
	return c.DefaultNorm
}

package models

// Pathway is a branching rule. Once fired, it biases selection toward its
// subcategories for the rest of the session.
type Pathway struct {
	ID                         string      `yaml:"id" json:"id"`
	Name                       string      `yaml:"name,omitempty" json:"name,omitempty"`
	TriggerIndicators          []Indicator `yaml:"trigger_indicators,omitempty" json:"trigger_indicators,omitempty"`
	IndicatorThreshold         int         `yaml:"indicator_threshold,omitempty" json:"indicator_threshold,omitempty"`
	ScoreThreshold             *float64    `yaml:"score_threshold,omitempty" json:"score_threshold,omitempty"`
	Trait                      Trait       `yaml:"trait,omitempty" json:"trait,omitempty"`
	CombinedOf                 []string    `yaml:"combined_of,omitempty" json:"combined_of,omitempty"`
	PriorityBoostSubcategories []string    `yaml:"priority_boost_subcategories,omitempty" json:"priority_boost_subcategories,omitempty"`
	AddedSubcategories         []string    `yaml:"added_subcategories,omitempty" json:"added_subcategories,omitempty"`
}

// IsCombined reports whether the pathway fires from other pathways rather
// than from indicators.
func (p Pathway) IsCombined() bool {
	return len(p.CombinedOf) > 0
}

// ScoreTrait returns the trait whose accumulated sum is compared against
// ScoreThreshold. It defaults to the pathway ID.
func (p Pathway) ScoreTrait() Trait {
	if p.Trait != "" {
		return p.Trait
	}
	return Trait(p.ID)
}

// PathwayTable is the on-disk shape of a pathway definition file.
type PathwayTable struct {
	Version  string    `yaml:"version"`
	Pathways []Pathway `yaml:"pathways"`
}

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}

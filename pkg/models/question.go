package models

// QuestionTier is the access tier a catalog question belongs to.
type QuestionTier string

const (
	QuestionTierFree          QuestionTier = "free"
	QuestionTierCore          QuestionTier = "core"
	QuestionTierComprehensive QuestionTier = "comprehensive"
	QuestionTierSpecialized   QuestionTier = "specialized"
	QuestionTierQuick         QuestionTier = "quick"
	QuestionTierStandard      QuestionTier = "standard"
	QuestionTierDeep          QuestionTier = "deep"
	QuestionTierScreening     QuestionTier = "screening"
)

// validQuestionTiers is the set of allowed question tiers.
var validQuestionTiers = map[QuestionTier]bool{
	QuestionTierFree:          true,
	QuestionTierCore:          true,
	QuestionTierComprehensive: true,
	QuestionTierSpecialized:   true,
	QuestionTierQuick:         true,
	QuestionTierStandard:      true,
	QuestionTierDeep:          true,
	QuestionTierScreening:     true,
}

// IsValid reports whether the tier is part of the known vocabulary.
func (t QuestionTier) IsValid() bool {
	return validQuestionTiers[t]
}

// ResponseType describes how a question is answered.
type ResponseType string

const (
	ResponseLikert         ResponseType = "likert"
	ResponseMultipleChoice ResponseType = "multiple-choice"
	ResponseForcedChoice   ResponseType = "forced-choice"
	ResponseSlider         ResponseType = "slider"
	ResponseBinary         ResponseType = "binary"
)

var validResponseTypes = map[ResponseType]bool{
	ResponseLikert:         true,
	ResponseMultipleChoice: true,
	ResponseForcedChoice:   true,
	ResponseSlider:         true,
	ResponseBinary:         true,
}

// IsValid reports whether the response type is known.
func (r ResponseType) IsValid() bool {
	return validResponseTypes[r]
}

// Question categories used by the planner, the selector caps and the
// hidden-pattern rules.
const (
	CategoryPersonality        = "personality"
	CategoryNeurodiversity     = "neurodiversity"
	CategoryMentalHealth       = "mental-health"
	CategoryCognitiveFunctions = "cognitive-functions"
	CategoryEnneagram          = "enneagram"
	CategoryAttachment         = "attachment"
)

// Question is a read-only catalog item.
type Question struct {
	ID                     string            `yaml:"id" json:"id"`
	Text                   string            `yaml:"text,omitempty" json:"text,omitempty"`
	Category               string            `yaml:"category" json:"category"`
	Subcategory            string            `yaml:"subcategory,omitempty" json:"subcategory,omitempty"`
	TraitWeights           map[Trait]float64 `yaml:"trait_weights,omitempty" json:"trait_weights,omitempty"`
	Tier                   QuestionTier      `yaml:"tier" json:"tier"`
	BasePriority           float64           `yaml:"base_priority" json:"base_priority"`
	ResponseType           ResponseType      `yaml:"response_type" json:"response_type"`
	ReverseScored          bool              `yaml:"reverse_scored,omitempty" json:"reverse_scored,omitempty"`
	PersonalizationMarkers []string          `yaml:"markers,omitempty" json:"markers,omitempty"`
}

// PrimaryTrait returns the trait with the largest absolute weight. Ties are
// broken by trait name so the result is stable across map iteration order.
// The second return value is false when the question carries no weights.
func (q Question) PrimaryTrait() (Trait, bool) {
	var (
		best    Trait
		bestAbs float64
		found   bool
	)
	for t, w := range q.TraitWeights {
		abs := w
		if abs < 0 {
			abs = -abs
		}
		if !found || abs > bestAbs || (abs == bestAbs && t < best) {
			best, bestAbs, found = t, abs, true
		}
	}
	return best, found
}

// QuestionFilter selects catalog questions. Non-empty fields are combined
// with AND; each slice field is a membership test. A zero Limit means no
// limit.
type QuestionFilter struct {
	Categories    []string       `json:"categories,omitempty"`
	Subcategories []string       `json:"subcategories,omitempty"`
	Tiers         []QuestionTier `json:"tiers,omitempty"`
	ExcludedIDs   []string       `json:"excluded_ids,omitempty"`
	ResponseTypes []ResponseType `json:"response_types,omitempty"`
	Limit         int            `json:"limit,omitempty"`
}

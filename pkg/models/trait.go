package models

import (
	"fmt"
	"sort"
)

// Trait is a named scoring dimension.
type Trait string

// Big Five traits.
const (
	TraitOpenness          Trait = "openness"
	TraitConscientiousness Trait = "conscientiousness"
	TraitExtraversion      Trait = "extraversion"
	TraitAgreeableness     Trait = "agreeableness"
	TraitNeuroticism       Trait = "neuroticism"
)

// Neurodiversity and indicator traits.
const (
	TraitADHD                Trait = "adhd"
	TraitAutism              Trait = "autism"
	TraitSensoryProcessing   Trait = "sensory_processing"
	TraitExecutiveFunction   Trait = "executive_function"
	TraitTrauma              Trait = "trauma"
	TraitAnxiety             Trait = "anxiety"
	TraitDepression          Trait = "depression"
	TraitMasking             Trait = "masking"
	TraitCognitiveComplexity Trait = "cognitive_complexity"
	TraitEmotionalRegulation Trait = "emotional_regulation"
	TraitAttachmentSecurity  Trait = "attachment_security"
)

var validTraits = map[Trait]bool{
	TraitOpenness:            true,
	TraitConscientiousness:   true,
	TraitExtraversion:        true,
	TraitAgreeableness:       true,
	TraitNeuroticism:         true,
	TraitADHD:                true,
	TraitAutism:              true,
	TraitSensoryProcessing:   true,
	TraitExecutiveFunction:   true,
	TraitTrauma:              true,
	TraitAnxiety:             true,
	TraitDepression:          true,
	TraitMasking:             true,
	TraitCognitiveComplexity: true,
	TraitEmotionalRegulation: true,
	TraitAttachmentSecurity:  true,
}

// IsValid reports whether the trait is part of the fixed vocabulary.
func (t Trait) IsValid() bool {
	return validTraits[t]
}

// ValidateTrait returns an error if the trait is not recognized.
func ValidateTrait(t Trait) error {
	if !validTraits[t] {
		return fmt.Errorf("unknown trait %q", t)
	}
	return nil
}

// KnownTraits returns the trait vocabulary in sorted order.
func KnownTraits() []Trait {
	out := make([]Trait, 0, len(validTraits))
	for t := range validTraits {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Indicator is a marker a question declares; it fires when the question is
// answered in the top category of the scale.
type Indicator string

const (
	IndicatorExecutiveFunction      Indicator = "executive_function"
	IndicatorAttentionDifficulty    Indicator = "attention_difficulty"
	IndicatorHyperactivity          Indicator = "hyperactivity"
	IndicatorImpulsivity            Indicator = "impulsivity"
	IndicatorTimeBlindness          Indicator = "time_blindness"
	IndicatorHyperfocus             Indicator = "hyperfocus"
	IndicatorSocialCommunication    Indicator = "social_communication"
	IndicatorSensorySensitivity     Indicator = "sensory_sensitivity"
	IndicatorSensorySeeking         Indicator = "sensory_seeking"
	IndicatorSensoryOverload        Indicator = "sensory_overload"
	IndicatorRoutinePreference      Indicator = "routine_preference"
	IndicatorSpecialInterests       Indicator = "special_interests"
	IndicatorPatternRecognition     Indicator = "pattern_recognition"
	IndicatorMasking                Indicator = "masking"
	IndicatorSocialCamouflage       Indicator = "social_camouflage"
	IndicatorHypervigilance         Indicator = "hypervigilance"
	IndicatorEmotionalDysregulation Indicator = "emotional_dysregulation"
	IndicatorAvoidance              Indicator = "avoidance"
	IndicatorDissociation           Indicator = "dissociation"
	IndicatorWorry                  Indicator = "worry"
	IndicatorRumination             Indicator = "rumination"
	IndicatorLowMood                Indicator = "low_mood"
)

var validIndicators = map[Indicator]bool{
	IndicatorExecutiveFunction:      true,
	IndicatorAttentionDifficulty:    true,
	IndicatorHyperactivity:          true,
	IndicatorImpulsivity:            true,
	IndicatorTimeBlindness:          true,
	IndicatorHyperfocus:             true,
	IndicatorSocialCommunication:    true,
	IndicatorSensorySensitivity:     true,
	IndicatorSensorySeeking:         true,
	IndicatorSensoryOverload:        true,
	IndicatorRoutinePreference:      true,
	IndicatorSpecialInterests:       true,
	IndicatorPatternRecognition:     true,
	IndicatorMasking:                true,
	IndicatorSocialCamouflage:       true,
	IndicatorHypervigilance:         true,
	IndicatorEmotionalDysregulation: true,
	IndicatorAvoidance:              true,
	IndicatorDissociation:           true,
	IndicatorWorry:                  true,
	IndicatorRumination:             true,
	IndicatorLowMood:                true,
}

// ValidateIndicator returns an error if the indicator is not recognized.
func ValidateIndicator(i Indicator) error {
	if !validIndicators[i] {
		return fmt.Errorf("unknown indicator %q", i)
	}
	return nil
}

// NeurodivergentIndicators are the markers that count as neurodivergent
// signal for hidden-pattern detection.
var NeurodivergentIndicators = []Indicator{
	IndicatorExecutiveFunction,
	IndicatorAttentionDifficulty,
	IndicatorHyperactivity,
	IndicatorImpulsivity,
	IndicatorTimeBlindness,
	IndicatorHyperfocus,
	IndicatorSocialCommunication,
	IndicatorSensorySensitivity,
	IndicatorRoutinePreference,
	IndicatorSpecialInterests,
	IndicatorPatternRecognition,
}

// MaskingIndicators signal camouflaging behaviour.
var MaskingIndicators = []Indicator{
	IndicatorMasking,
	IndicatorSocialCamouflage,
}

// SensoryIndicators signal sensory-processing differences.
var SensoryIndicators = []Indicator{
	IndicatorSensorySensitivity,
	IndicatorSensorySeeking,
	IndicatorSensoryOverload,
}

// Scale describes the numeric range a normalized score lives on.
type Scale struct {
	Min           int `yaml:"min" json:"min" mapstructure:"min"`
	Max           int `yaml:"max" json:"max" mapstructure:"max"`
	Midpoint      int `yaml:"midpoint" json:"midpoint" mapstructure:"midpoint"`
	HighThreshold int `yaml:"high_threshold" json:"high_threshold" mapstructure:"high_threshold"`
}

// DefaultScale is the five-point Likert scale.
func DefaultScale() Scale {
	return Scale{Min: 1, Max: 5, Midpoint: 3, HighThreshold: 4}
}

// PercentScale is the 0-100 slider scale.
func PercentScale() Scale {
	return Scale{Min: 0, Max: 100, Midpoint: 50, HighThreshold: 80}
}

// Contains reports whether v lies within the scale bounds.
func (s Scale) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

func activationIDs(acts []PathwayActivation) []string {
	var ids []string
	for _, a := range acts {
		ids = append(ids, a.Pathway.ID)
	}
	return ids
}

func TestDefaultPathways_Valid(t *testing.T) {
	if err := ValidatePathwayTable(DefaultPathways()); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestEvaluatePathways_FiresOnSecondMatchingResponse(t *testing.T) {
	table := DefaultPathways()
	var responses []models.ResponseEvent
	var active []string
	firedAt := -1

	for i := 0; i < 3; i++ {
		responses = append(responses, response("ef", "neurodiversity", 4, "executive_function"))
		acts := EvaluatePathways(Analyze(responses, models.DefaultScale()), table, active)
		for _, a := range acts {
			if a.Pathway.ID == "adhd" {
				firedAt = i
			}
			active = append(active, a.Pathway.ID)
		}
	}
	if firedAt != 1 {
		t.Errorf("adhd fired after response index %d, want 1", firedAt)
	}
}

func TestEvaluatePathways_DeclarationOrder(t *testing.T) {
	responses := []models.ResponseEvent{
		response("a", "neurodiversity", 5, "sensory_sensitivity", "sensory_overload"),
		response("b", "neurodiversity", 5, "attention_difficulty", "impulsivity"),
		response("c", "neurodiversity", 5, "routine_preference"),
	}
	acts := EvaluatePathways(Analyze(responses, models.DefaultScale()), DefaultPathways(), nil)

	want := []string{"adhd", "autism", "sensory", "audhd"}
	if diff := cmp.Diff(want, activationIDs(acts)); diff != "" {
		t.Errorf("activation order mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatePathways_SkipsAlreadyActive(t *testing.T) {
	responses := []models.ResponseEvent{
		response("a", "neurodiversity", 5, "executive_function", "time_blindness"),
	}
	acts := EvaluatePathways(Analyze(responses, models.DefaultScale()), DefaultPathways(), []string{"adhd"})
	if len(acts) != 0 {
		t.Errorf("expected no activations, got %v", activationIDs(acts))
	}
}

func TestEvaluatePathways_CombinedNeedsAllMembers(t *testing.T) {
	responses := []models.ResponseEvent{
		response("a", "neurodiversity", 5, "executive_function", "hyperactivity"),
	}
	pattern := Analyze(responses, models.DefaultScale())

	acts := EvaluatePathways(pattern, DefaultPathways(), nil)
	if diff := cmp.Diff([]string{"adhd"}, activationIDs(acts)); diff != "" {
		t.Errorf("only adhd should fire (-want +got):\n%s", diff)
	}

	// autism fired in an earlier call; audhd now completes.
	acts = EvaluatePathways(pattern, DefaultPathways(), []string{"autism"})
	if diff := cmp.Diff([]string{"adhd", "audhd"}, activationIDs(acts)); diff != "" {
		t.Errorf("combined activation mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"adhd", "autism"}, acts[1].Triggers); diff != "" {
		t.Errorf("combined triggers mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatePathways_CombinedDeclaredFirst(t *testing.T) {
	table := []models.Pathway{
		{ID: "both", CombinedOf: []string{"left", "right"}},
		{ID: "all", CombinedOf: []string{"both", "left"}},
		{ID: "left", TriggerIndicators: []models.Indicator{models.IndicatorWorry}, IndicatorThreshold: 1},
		{ID: "right", TriggerIndicators: []models.Indicator{models.IndicatorAvoidance}, IndicatorThreshold: 1},
	}
	if err := ValidatePathwayTable(table); err != nil {
		t.Fatalf("table invalid: %v", err)
	}
	responses := []models.ResponseEvent{response("a", "mental-health", 5, "worry", "avoidance")}

	acts := EvaluatePathways(Analyze(responses, models.DefaultScale()), table, nil)
	if diff := cmp.Diff([]string{"both", "all", "left", "right"}, activationIDs(acts)); diff != "" {
		t.Errorf("activation mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatePathways_ScoreThreshold(t *testing.T) {
	table := DefaultPathways()
	withTrait := func(score int) models.ResponseEvent {
		r := response("w", "mental-health", score, "worry", "rumination")
		r.TraitWeights = map[models.Trait]float64{models.TraitAnxiety: 1}
		return r
	}

	low := []models.ResponseEvent{withTrait(4)}
	low[0].TraitWeights[models.TraitAnxiety] = 0.5
	if acts := EvaluatePathways(Analyze(low, models.DefaultScale()), table, nil); len(acts) != 0 {
		t.Errorf("anxiety fired below its score threshold: %v", activationIDs(acts))
	}

	high := []models.ResponseEvent{withTrait(4)}
	acts := EvaluatePathways(Analyze(high, models.DefaultScale()), table, nil)
	if diff := cmp.Diff([]string{"anxiety"}, activationIDs(acts)); diff != "" {
		t.Errorf("activation mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatePathwayTable_Errors(t *testing.T) {
	tests := []struct {
		name  string
		table []models.Pathway
	}{
		{"empty id", []models.Pathway{{TriggerIndicators: []models.Indicator{models.IndicatorWorry}, IndicatorThreshold: 1}}},
		{"duplicate id", []models.Pathway{
			{ID: "a", TriggerIndicators: []models.Indicator{models.IndicatorWorry}, IndicatorThreshold: 1},
			{ID: "a", TriggerIndicators: []models.Indicator{models.IndicatorWorry}, IndicatorThreshold: 1},
		}},
		{"unknown indicator", []models.Pathway{{ID: "a", TriggerIndicators: []models.Indicator{"vibes"}, IndicatorThreshold: 1}}},
		{"non-positive threshold", []models.Pathway{{ID: "a", TriggerIndicators: []models.Indicator{models.IndicatorWorry}}}},
		{"no triggers", []models.Pathway{{ID: "a", IndicatorThreshold: 1}}},
		{"combined with triggers", []models.Pathway{
			{ID: "a", TriggerIndicators: []models.Indicator{models.IndicatorWorry}, IndicatorThreshold: 1},
			{ID: "b", CombinedOf: []string{"a"}, TriggerIndicators: []models.Indicator{models.IndicatorWorry}},
		}},
		{"combined unknown", []models.Pathway{{ID: "b", CombinedOf: []string{"ghost"}}}},
		{"combined self", []models.Pathway{{ID: "b", CombinedOf: []string{"b"}}}},
		{"unknown score trait", []models.Pathway{{
			ID: "a", TriggerIndicators: []models.Indicator{models.IndicatorWorry}, IndicatorThreshold: 1,
			ScoreThreshold: models.FloatPtr(1), Trait: "grit",
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathwayTable(tt.table)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsValidationError(err) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestLoadPathwayTable(t *testing.T) {
	dir := t.TempDir()

	got, err := LoadPathwayTable(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if len(got) != len(DefaultPathways()) {
		t.Errorf("missing file should yield defaults, got %d pathways", len(got))
	}

	path := filepath.Join(dir, "pathways.yaml")
	content := `version: "1"
pathways:
  - id: rumination
    name: Rumination
    trigger_indicators: [worry, rumination]
    indicator_threshold: 2
    priority_boost_subcategories: [anxiety]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadPathwayTable(path)
	if err != nil {
		t.Fatalf("LoadPathwayTable: %v", err)
	}
	if len(got) != 1 || got[0].ID != "rumination" || got[0].IndicatorThreshold != 2 {
		t.Errorf("unexpected table: %+v", got)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("pathways:\n  - id: x\n    trigger_indicators: [nope]\n    indicator_threshold: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPathwayTable(bad); !IsValidationError(err) {
		t.Errorf("expected ValidationError for unknown indicator, got %v", err)
	}
}

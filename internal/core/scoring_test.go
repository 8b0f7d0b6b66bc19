package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

func TestPercentile_Symmetric(t *testing.T) {
	if got := Percentile(3.5, 3.5, 0.8); got != 50 {
		t.Errorf("Percentile(3.5, 3.5, 0.8) = %d, want 50", got)
	}
}

func TestPercentile_KnownValues(t *testing.T) {
	tests := []struct {
		x, mu, sigma float64
		want         int
	}{
		{4.3, 3.5, 0.8, 84},  // z = 1
		{2.7, 3.5, 0.8, 16},  // z = -1
		{5.1, 3.5, 0.8, 98},  // z = 2
		{1.9, 3.5, 0.8, 2},   // z = -2
		{3.5, 3.0, 1.0, 69},  // z = 0.5
		{10, 3.0, 0.8, 100},  // far right tail
		{-10, 3.0, 0.8, 0},   // far left tail
		{4.0, 3.0, 0, 50},    // degenerate sigma
		{4.0, 3.0, -1.0, 50}, // negative sigma
	}
	for _, tt := range tests {
		if got := Percentile(tt.x, tt.mu, tt.sigma); got != tt.want {
			t.Errorf("Percentile(%v, %v, %v) = %d, want %d", tt.x, tt.mu, tt.sigma, got, tt.want)
		}
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		pct  int
		want models.TraitLevel
	}{
		{0, models.LevelVeryLow},
		{9, models.LevelVeryLow},
		{10, models.LevelLow},
		{29, models.LevelLow},
		{30, models.LevelAverage},
		{70, models.LevelAverage},
		{71, models.LevelHigh},
		{90, models.LevelHigh},
		{91, models.LevelVeryHigh},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.pct); got != tt.want {
			t.Errorf("LevelFor(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestQuality_StraightLining(t *testing.T) {
	var ten []models.ResponseEvent
	for i := 0; i < 10; i++ {
		ten = append(ten, response("q", models.CategoryPersonality, 3))
	}
	if Analyze(ten, models.DefaultScale()).ResponseStyle != models.StyleCentral {
		t.Error("ten midpoint answers should be central")
	}
	q := Quality(ten, 20, models.DefaultScale())
	if q.LongestRun != 10 {
		t.Errorf("LongestRun = %d, want 10", q.LongestRun)
	}
	if q.StraightLining {
		t.Error("a run of exactly 10 is not straight-lining")
	}

	eleven := append(ten, response("q", models.CategoryPersonality, 3))
	q = Quality(eleven, 20, models.DefaultScale())
	if !q.StraightLining {
		t.Error("a run of 11 should be straight-lining")
	}
	if !q.LowValidity {
		t.Error("straight-lining should mark low validity")
	}
}

func TestQuality_Metrics(t *testing.T) {
	rs := []models.ResponseEvent{
		response("a", "personality", 1),
		response("b", "personality", 2),
		response("c", "personality", 2),
		response("d", "personality", 5),
	}
	rs[0].ResponseTimeMs = models.IntPtr(1500)
	rs[1].ResponseTimeMs = models.IntPtr(2500)
	rs[3].Score = nil

	q := Quality(rs, 8, models.DefaultScale())
	if q.CompletionRate != 0.5 {
		t.Errorf("CompletionRate = %v, want 0.5", q.CompletionRate)
	}
	if q.MeanResponseTimeMs != 2000 || q.TimedResponses != 2 {
		t.Errorf("mean RT = %v over %d, want 2000 over 2", q.MeanResponseTimeMs, q.TimedResponses)
	}
	// distinct {1, 2, 3} over min(4, 7)
	if q.Diversity != 0.75 {
		t.Errorf("Diversity = %v, want 0.75", q.Diversity)
	}
	if q.CoercedResponses != 1 {
		t.Errorf("CoercedResponses = %d, want 1", q.CoercedResponses)
	}
	if q.CarelessResponding || q.LowValidity {
		t.Errorf("unexpected validity flags: %+v", q)
	}
}

func TestQuality_FastResponsesAreCareless(t *testing.T) {
	rs := []models.ResponseEvent{
		response("a", "personality", 1),
		response("b", "personality", 4),
		response("c", "personality", 2),
	}
	for i := range rs {
		rs[i].ResponseTimeMs = models.IntPtr(400)
	}
	if q := Quality(rs, 20, models.DefaultScale()); !q.CarelessResponding {
		t.Errorf("expected careless responding, got %+v", q)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		n           int
		consistency float64
		pathways    int
		want        float64
	}{
		{0, 0, 0, 0.5},
		{19, 0.7, 0, 0.64},
		{20, 1.0, 0, 0.8},
		{45, 0.7, 1, 0.84},
		{75, 1.0, 0, 0.9},
		{75, 1.0, 6, 0.95},
	}
	for _, tt := range tests {
		got := Confidence(tt.n, tt.consistency, tt.pathways)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Confidence(%d, %v, %d) = %v, want %v", tt.n, tt.consistency, tt.pathways, got, tt.want)
		}
	}
}

func TestScore_EmptyResponseSet(t *testing.T) {
	s := NewScorer(models.DefaultEngineConfig())
	_, err := s.Score(&models.SessionState{TotalBudget: 20})
	if !errors.Is(err, ErrEmptyResponseSet) {
		t.Fatalf("err = %v, want ErrEmptyResponseSet", err)
	}
}

func TestScore_Report(t *testing.T) {
	s := NewScorer(models.DefaultEngineConfig())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.newID = func() string { return "report-1" }

	state := &models.SessionState{
		ID:             "AS-00007",
		Tier:           models.TierQuick,
		TotalBudget:    20,
		ActivePathways: []string{"adhd"},
		Responses: []models.ResponseEvent{
			{QuestionID: "a", Score: models.IntPtr(4), Category: "personality",
				TraitWeights: map[models.Trait]float64{models.TraitOpenness: 1, models.TraitExtraversion: 0.5}},
			{QuestionID: "b", Score: models.IntPtr(2), Category: "personality",
				TraitWeights: map[models.Trait]float64{models.TraitOpenness: 1}},
			{QuestionID: "c", Score: models.IntPtr(5), Category: "neurodiversity",
				TraitWeights:           map[models.Trait]float64{models.TraitADHD: 1, "luck": 1},
				PersonalizationMarkers: []string{"executive_function"}},
		},
	}

	r, err := s.Score(state)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if r.ID != "report-1" || r.SessionID != "AS-00007" || r.ResponseCount != 3 {
		t.Errorf("header mismatch: %+v", r)
	}

	want := []models.TraitScore{
		{Trait: models.TraitADHD, Raw: 5, Percentile: Percentile(5, 3.0, 0.8), Level: models.LevelVeryHigh, Contributions: 1},
		{Trait: models.TraitExtraversion, Raw: 2, Percentile: Percentile(2, 3.0, 0.9), Level: LevelFor(Percentile(2, 3.0, 0.9)), Contributions: 1},
		{Trait: models.TraitOpenness, Raw: 3, Percentile: Percentile(3, 3.2, 0.8), Level: LevelFor(Percentile(3, 3.2, 0.8)), Contributions: 2},
	}
	if diff := cmp.Diff(want, r.Traits); diff != "" {
		t.Errorf("Traits mismatch (-want +got):\n%s", diff)
	}
	if r.Quality.UnknownTraitKeys != 1 {
		t.Errorf("UnknownTraitKeys = %d, want 1", r.Quality.UnknownTraitKeys)
	}
	if diff := cmp.Diff([]string{"executive_function"}, r.Indicators); diff != "" {
		t.Errorf("Indicators mismatch (-want +got):\n%s", diff)
	}
	if r.Confidence < 0.5 || r.Confidence > 0.95 {
		t.Errorf("Confidence %v out of bounds", r.Confidence)
	}
	if r.Profile.Label == "" {
		t.Error("expected a profile label")
	}
}

func TestDetectPatterns(t *testing.T) {
	cog := func(markers ...string) models.ResponseEvent {
		return response("cf", models.CategoryCognitiveFunctions, 5, markers...)
	}

	t.Run("twice exceptional", func(t *testing.T) {
		rs := []models.ResponseEvent{cog(), cog(), cog(), cog("hyperfocus")}
		got := DetectPatterns(ScoreContext{Pattern: Analyze(rs, models.DefaultScale())}, DefaultPatternRules())
		if len(got) != 1 || got[0].ID != "twice_exceptional" || got[0].Confidence != 0.75 {
			t.Errorf("unexpected patterns: %+v", got)
		}
	})

	t.Run("three high responses are not enough", func(t *testing.T) {
		rs := []models.ResponseEvent{cog(), cog(), cog("hyperfocus")}
		if got := DetectPatterns(ScoreContext{Pattern: Analyze(rs, models.DefaultScale())}, DefaultPatternRules()); len(got) != 0 {
			t.Errorf("unexpected patterns: %+v", got)
		}
	})

	t.Run("compensation", func(t *testing.T) {
		rs := []models.ResponseEvent{
			response("m", "neurodiversity", 4, "masking"),
			response("a", "personality", 3),
			response("b", "personality", 3),
			response("c", "personality", 3),
		}
		got := DetectPatterns(ScoreContext{Pattern: Analyze(rs, models.DefaultScale())}, DefaultPatternRules())
		if len(got) != 1 || got[0].ID != "compensation" || got[0].Confidence != 0.7 {
			t.Errorf("unexpected patterns: %+v", got)
		}
	})

	t.Run("masking burnout", func(t *testing.T) {
		rs := []models.ResponseEvent{response("m", "neurodiversity", 5, "social_camouflage")}
		ctx := ScoreContext{
			Pattern: Analyze(rs, models.DefaultScale()),
			Traits: map[models.Trait]models.TraitScore{
				models.TraitNeuroticism: {Trait: models.TraitNeuroticism, Percentile: 85},
			},
		}
		got := DetectPatterns(ctx, DefaultPatternRules())
		if len(got) != 1 || got[0].ID != "masking_burnout" {
			t.Errorf("unexpected patterns: %+v", got)
		}
	})
}

func TestMatchProfile_FirstMatchWins(t *testing.T) {
	ctx := ScoreContext{
		Pattern: Analyze(nil, models.DefaultScale()),
		Traits: map[models.Trait]models.TraitScore{
			models.TraitOpenness:     {Percentile: 80},
			models.TraitExtraversion: {Percentile: 75},
		},
	}
	if got := MatchProfile(ctx, DefaultProfileRules()); got.Label != "Creative Visionary" {
		t.Errorf("Label = %q, want Creative Visionary", got.Label)
	}

	rules := []ProfileRule{
		{Label: "first", Match: func(ScoreContext) bool { return true }},
		{Label: "second", Match: func(ScoreContext) bool { return true }},
	}
	if got := MatchProfile(ctx, rules); got.Label != "first" {
		t.Errorf("Label = %q, want first", got.Label)
	}
	if got := MatchProfile(ctx, nil); got != fallbackProfile {
		t.Errorf("empty table should yield fallback, got %+v", got)
	}
}

func TestScorer_WithProfiles(t *testing.T) {
	base := NewScorer(models.DefaultEngineConfig())
	custom := base.WithProfiles([]ProfileRule{{Label: "custom", Match: func(ScoreContext) bool { return true }}})

	state := &models.SessionState{TotalBudget: 20, Responses: []models.ResponseEvent{response("a", "personality", 3)}}
	r, err := custom.Score(state)
	if err != nil {
		t.Fatal(err)
	}
	if r.Profile.Label != "custom" {
		t.Errorf("Label = %q, want custom", r.Profile.Label)
	}
	if r, _ := base.Score(state); r.Profile.Label == "custom" {
		t.Error("WithProfiles modified the original scorer")
	}
}

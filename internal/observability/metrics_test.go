package observability

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMetricsCalculator_Aggregates(t *testing.T) {
	log := newTestLog(t)
	base := time.Now().UTC().Add(-time.Hour)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	writeEvents(t, log,
		sessionEvent(at(0), "session.started", "AS-00001", map[string]any{"tier": "quick"}),
		sessionEvent(at(1), "session.started", "AS-00002", map[string]any{"tier": "deep"}),
		sessionEvent(at(2), "session.advanced", "AS-00001", map[string]any{"answered": 8}),
		sessionEvent(at(3), "response.coerced", "AS-00001", nil),
		sessionEvent(at(4), "trait.unknown", "AS-00001", nil),
		sessionEvent(at(5), "pathway.activated", "AS-00001", map[string]any{"pathway_id": "adhd"}),
		sessionEvent(at(6), "pathway.activated", "AS-00002", map[string]any{"pathway_id": "adhd"}),
		sessionEvent(at(7), "pathway.activated", "AS-00002", map[string]any{"pathway_id": "sensory"}),
		sessionEvent(at(8), "session.advanced", "AS-00001", map[string]any{"answered": 5}),
		sessionEvent(at(9), "selection.broadened", "AS-00002", nil),
		sessionEvent(at(10), "session.finalized", "AS-00001", map[string]any{
			"profile": "Creative Visionary", "confidence": 0.7, "low_validity": false,
		}),
		sessionEvent(at(11), "session.finalized", "AS-00002", map[string]any{
			"profile": "Balanced Explorer", "confidence": 0.8, "low_validity": true,
		}),
		Event{Time: at(12), Level: LevelInfo, Type: "catalog.refreshed"},
	)

	m, err := NewMetricsCalculator(log).Calculate(base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if m.SessionsStarted != 2 || m.SessionsFinalized != 2 {
		t.Errorf("sessions started=%d finalized=%d", m.SessionsStarted, m.SessionsFinalized)
	}
	if m.CompletionRate != 1 {
		t.Errorf("completion rate = %v, want 1", m.CompletionRate)
	}
	if m.ResponsesRecorded != 13 {
		t.Errorf("responses = %d, want 13", m.ResponsesRecorded)
	}
	if m.CoercedResponses != 1 || m.UnknownTraitKeys != 1 {
		t.Errorf("coerced=%d unknown=%d", m.CoercedResponses, m.UnknownTraitKeys)
	}
	if diff := cmp.Diff(map[string]int{"adhd": 2, "sensory": 1}, m.PathwayActivations); diff != "" {
		t.Errorf("pathway activations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"quick": 1, "deep": 1}, m.SessionsByTier); diff != "" {
		t.Errorf("sessions by tier (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"Creative Visionary": 1, "Balanced Explorer": 1}, m.Profiles); diff != "" {
		t.Errorf("profiles (-want +got):\n%s", diff)
	}
	if m.LowValidityReports != 1 {
		t.Errorf("low validity = %d, want 1", m.LowValidityReports)
	}
	if math.Abs(m.MeanConfidence-0.75) > 1e-9 {
		t.Errorf("mean confidence = %v, want 0.75", m.MeanConfidence)
	}
	if m.Broadened != 1 || m.Exhausted != 0 || m.CatalogRefreshes != 1 {
		t.Errorf("broadened=%d exhausted=%d refreshes=%d", m.Broadened, m.Exhausted, m.CatalogRefreshes)
	}
	if m.EventCount != 13 {
		t.Errorf("event count = %d, want 13", m.EventCount)
	}
	if m.OldestEvent == nil || !m.OldestEvent.Equal(at(0)) {
		t.Errorf("oldest event = %v", m.OldestEvent)
	}
	if m.NewestEvent == nil || !m.NewestEvent.Equal(at(12)) {
		t.Errorf("newest event = %v", m.NewestEvent)
	}
}

func TestMetricsCalculator_SinceExcludesOlder(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()
	writeEvents(t, log,
		sessionEvent(now.Add(-48*time.Hour), "session.started", "AS-00001", map[string]any{"tier": "quick"}),
		sessionEvent(now.Add(-time.Hour), "session.started", "AS-00002", map[string]any{"tier": "quick"}),
	)

	m, err := NewMetricsCalculator(log).Calculate(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if m.SessionsStarted != 1 {
		t.Errorf("expected 1 session in window, got %d", m.SessionsStarted)
	}
	if m.CompletionRate != 0 {
		t.Errorf("expected zero completion rate, got %v", m.CompletionRate)
	}
}

func TestMetricsCalculator_Empty(t *testing.T) {
	m, err := NewMetricsCalculator(newTestLog(t)).Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if m.EventCount != 0 || m.OldestEvent != nil || m.NewestEvent != nil {
		t.Errorf("expected empty metrics, got %+v", m)
	}
	if m.PathwayActivations == nil || m.Profiles == nil || m.SessionsByTier == nil {
		t.Error("maps should be initialized")
	}
}

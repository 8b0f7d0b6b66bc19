package observability

import (
	"testing"
	"time"
)

func newTestAlertEngine(log EventLog, th AlertThresholds, now time.Time) AlertEngine {
	ae := NewAlertEngine(log, th).(*alertEngine)
	ae.now = func() time.Time { return now }
	return ae
}

func conditions(alerts []Alert) map[string]int {
	out := make(map[string]int)
	for _, a := range alerts {
		out[a.Condition]++
	}
	return out
}

func TestAlertEngine_StalledSessions(t *testing.T) {
	log := newTestLog(t)
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	writeEvents(t, log,
		// Stalled: last activity 72h ago.
		sessionEvent(now.Add(-80*time.Hour), "session.started", "AS-00001", nil),
		sessionEvent(now.Add(-72*time.Hour), "session.advanced", "AS-00001", nil),
		// Old but finalized.
		sessionEvent(now.Add(-90*time.Hour), "session.started", "AS-00002", nil),
		sessionEvent(now.Add(-89*time.Hour), "session.finalized", "AS-00002", nil),
		// Recent activity.
		sessionEvent(now.Add(-100*time.Hour), "session.started", "AS-00003", nil),
		sessionEvent(now.Add(-time.Hour), "session.advanced", "AS-00003", nil),
	)

	alerts, err := newTestAlertEngine(log, AlertThresholds{StalledHours: 48}, now).Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d: %+v", len(alerts), alerts)
	}
	if alerts[0].ID != "stalled-AS-00001" || alerts[0].Severity != SeverityLow || alerts[0].SessionID != "AS-00001" {
		t.Errorf("unexpected alert: %+v", alerts[0])
	}
	if !alerts[0].TriggeredAt.Equal(now) {
		t.Errorf("TriggeredAt = %v, want %v", alerts[0].TriggeredAt, now)
	}
}

func TestAlertEngine_LowValidityCarriesReport(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()
	writeEvents(t, log, sessionEvent(now, "session.finalized", "AS-00007", map[string]any{
		"low_validity": true,
		"report_id":    "rpt-7",
	}))

	alerts, err := newTestAlertEngine(log, AlertThresholds{}, now).Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %+v", alerts)
	}
	if alerts[0].SessionID != "AS-00007" || alerts[0].ReportID != "rpt-7" {
		t.Errorf("alert should identify the session and report: %+v", alerts[0])
	}
}

func TestAlertEngine_StalledDisabled(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()
	writeEvents(t, log, sessionEvent(now.Add(-1000*time.Hour), "session.started", "AS-00001", nil))

	alerts, err := newTestAlertEngine(log, AlertThresholds{StalledHours: 0}, now).Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts when stalled check is disabled, got %+v", alerts)
	}
}

func TestAlertEngine_LowValidity(t *testing.T) {
	now := time.Now().UTC()
	finalized := func(id string, low bool) Event {
		return sessionEvent(now, "session.finalized", id, map[string]any{"low_validity": low})
	}

	tests := []struct {
		name string
		max  int
		want int
	}{
		{"any low validity report alerts", 0, 2},
		{"at threshold stays quiet", 2, 0},
		{"above threshold alerts per report", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := newTestLog(t)
			writeEvents(t, log, finalized("AS-00002", true), finalized("AS-00001", true), finalized("AS-00003", false))

			alerts, err := newTestAlertEngine(log, AlertThresholds{MaxLowValidity: tt.max}, now).Evaluate()
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got := conditions(alerts)["report_low_validity"]; got != tt.want {
				t.Errorf("expected %d alerts, got %d", tt.want, got)
			}
			if tt.want > 0 && alerts[0].ID != "low-validity-AS-00001" {
				t.Errorf("alerts not sorted by session: %+v", alerts)
			}
		})
	}
}

func TestAlertEngine_Exhaustion(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		writeEvents(t, log, sessionEvent(now, "selection.exhausted", "AS-00001", nil))
	}

	alerts, err := newTestAlertEngine(log, AlertThresholds{MaxExhaustEvents: 2}, now).Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Condition != "catalog_exhausted" || alerts[0].Severity != SeverityHigh {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}

	alerts, err = newTestAlertEngine(log, AlertThresholds{MaxExhaustEvents: 3}, now).Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts at threshold, got %+v", alerts)
	}
}

func TestAlertEngine_CatalogRefresh(t *testing.T) {
	now := time.Now().UTC()
	failed := Event{Time: now, Type: "catalog.refresh_failed", Data: map[string]any{"error": "disk gone"}}
	ok := Event{Time: now, Type: "catalog.refreshed"}

	tests := []struct {
		name   string
		events []Event
		want   int
	}{
		{"no refreshes", nil, 0},
		{"last refresh failed", []Event{ok, failed}, 1},
		{"recovered", []Event{failed, ok}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := newTestLog(t)
			writeEvents(t, log, tt.events...)
			alerts, err := newTestAlertEngine(log, AlertThresholds{}, now).Evaluate()
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got := conditions(alerts)["catalog_refresh_failed"]; got != tt.want {
				t.Errorf("expected %d alerts, got %d", tt.want, got)
			}
		})
	}
}

func TestDefaultAlertThresholds(t *testing.T) {
	th := DefaultAlertThresholds()
	if th.StalledHours != 48 || th.MaxLowValidity != 0 || th.MaxExhaustEvents != 0 {
		t.Errorf("unexpected defaults: %+v", th)
	}
}

package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert is a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
	// SessionID and ReportID are set for alerts about a single session.
	SessionID string `json:"session_id,omitempty"`
	ReportID  string `json:"report_id,omitempty"`
}

// AlertThresholds configures when alerts fire. A low-validity or exhaustion
// alert fires once the count exceeds its maximum.
type AlertThresholds struct {
	StalledHours     int `yaml:"stalled_hours" json:"stalled_hours"`
	MaxLowValidity   int `yaml:"max_low_validity" json:"max_low_validity"`
	MaxExhaustEvents int `yaml:"max_exhaust_events" json:"max_exhaust_events"`
}

// DefaultAlertThresholds returns the stock thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return ThresholdsFromConfig(models.DefaultEngineConfig().Alerts)
}

// ThresholdsFromConfig converts the alerts section of the engine config.
func ThresholdsFromConfig(c models.AlertConfig) AlertThresholds {
	return AlertThresholds{
		StalledHours:     c.StalledHours,
		MaxLowValidity:   c.MaxLowValidity,
		MaxExhaustEvents: c.MaxExhaustEvents,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine over eventLog.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks every condition. Alerts are ordered by condition, then ID.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading events for alerts: %w", err)
	}
	now := ae.now()

	var alerts []Alert
	alerts = append(alerts, ae.checkStalledSessions(events, now)...)
	alerts = append(alerts, ae.checkLowValidity(events, now)...)
	alerts = append(alerts, ae.checkExhaustion(events, now)...)
	alerts = append(alerts, ae.checkCatalogRefresh(events, now)...)
	return alerts, nil
}

// checkStalledSessions flags sessions that started but were neither
// finalized nor advanced within the threshold.
func (ae *alertEngine) checkStalledSessions(events []Event, now time.Time) []Alert {
	if ae.thresholds.StalledHours <= 0 {
		return nil
	}
	lastActivity := make(map[string]time.Time)
	finalized := make(map[string]bool)
	for _, event := range events {
		id := event.SessionID()
		if id == "" {
			continue
		}
		switch event.Type {
		case "session.finalized":
			finalized[id] = true
		case "session.started", "session.advanced":
			if event.Time.After(lastActivity[id]) {
				lastActivity[id] = event.Time
			}
		}
	}

	threshold := time.Duration(ae.thresholds.StalledHours) * time.Hour
	var alerts []Alert
	for _, id := range sortedSessionIDs(lastActivity) {
		if finalized[id] || now.Sub(lastActivity[id]) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "stalled-" + id,
			Condition:   "session_stalled",
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("session %s has had no responses for more than %d hours", id, ae.thresholds.StalledHours),
			TriggeredAt: now,
			SessionID:   id,
		})
	}
	return alerts
}

// checkLowValidity raises one alert per low-validity report once their
// number exceeds the threshold.
func (ae *alertEngine) checkLowValidity(events []Event, now time.Time) []Alert {
	var sessions []string
	reports := make(map[string]string)
	for _, event := range events {
		if event.Type != "session.finalized" {
			continue
		}
		if low, _ := event.Data["low_validity"].(bool); low {
			id := event.SessionID()
			sessions = append(sessions, id)
			reports[id], _ = event.Data["report_id"].(string)
		}
	}
	if len(sessions) <= ae.thresholds.MaxLowValidity {
		return nil
	}
	sort.Strings(sessions)
	alerts := make([]Alert, 0, len(sessions))
	for _, id := range sessions {
		alerts = append(alerts, Alert{
			ID:          "low-validity-" + id,
			Condition:   "report_low_validity",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("report for session %s shows straight-lining or careless responding", id),
			TriggeredAt: now,
			SessionID:   id,
			ReportID:    reports[id],
		})
	}
	return alerts
}

func (ae *alertEngine) checkExhaustion(events []Event, now time.Time) []Alert {
	count := 0
	for _, event := range events {
		if event.Type == "selection.exhausted" {
			count++
		}
	}
	if count <= ae.thresholds.MaxExhaustEvents {
		return nil
	}
	return []Alert{{
		ID:          "catalog-exhausted",
		Condition:   "catalog_exhausted",
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("question catalog ran out of candidates %d times, exceeding the maximum of %d", count, ae.thresholds.MaxExhaustEvents),
		TriggeredAt: now,
	}}
}

// checkCatalogRefresh alerts when the most recent catalog refresh failed.
func (ae *alertEngine) checkCatalogRefresh(events []Event, now time.Time) []Alert {
	var last *Event
	for i := range events {
		switch events[i].Type {
		case "catalog.refreshed", "catalog.refresh_failed":
			last = &events[i]
		}
	}
	if last == nil || last.Type != "catalog.refresh_failed" {
		return nil
	}
	reason, _ := last.Data["error"].(string)
	return []Alert{{
		ID:          "catalog-refresh",
		Condition:   "catalog_refresh_failed",
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("catalog refresh failing, serving previous snapshot: %s", reason),
		TriggeredAt: now,
	}}
}

func sortedSessionIDs(m map[string]time.Time) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

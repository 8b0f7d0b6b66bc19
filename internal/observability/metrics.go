package observability

import (
	"fmt"
	"time"
)

// Metrics are assessment figures derived from the event log.
type Metrics struct {
	SessionsStarted    int            `json:"sessions_started"`
	SessionsFinalized  int            `json:"sessions_finalized"`
	SessionsByTier     map[string]int `json:"sessions_by_tier"`
	CompletionRate     float64        `json:"completion_rate"`
	ResponsesRecorded  int            `json:"responses_recorded"`
	CoercedResponses   int            `json:"coerced_responses"`
	UnknownTraitKeys   int            `json:"unknown_trait_keys"`
	PathwayActivations map[string]int `json:"pathway_activations"`
	Profiles           map[string]int `json:"profiles"`
	LowValidityReports int            `json:"low_validity_reports"`
	MeanConfidence     float64        `json:"mean_confidence"`
	Broadened          int            `json:"selection_broadened"`
	Exhausted          int            `json:"selection_exhausted"`
	CatalogRefreshes   int            `json:"catalog_refreshes"`
	EventCount         int            `json:"event_count"`
	OldestEvent        *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent        *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		SessionsByTier:     make(map[string]int),
		PathwayActivations: make(map[string]int),
		Profiles:           make(map[string]int),
		EventCount:         len(events),
	}

	var confidenceSum float64
	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case "session.started":
			m.SessionsStarted++
			if tier, ok := event.Data["tier"].(string); ok {
				m.SessionsByTier[tier]++
			}
		case "session.advanced":
			m.ResponsesRecorded += intField(event.Data, "answered")
		case "session.finalized":
			m.SessionsFinalized++
			if label, ok := event.Data["profile"].(string); ok && label != "" {
				m.Profiles[label]++
			}
			if low, ok := event.Data["low_validity"].(bool); ok && low {
				m.LowValidityReports++
			}
			confidenceSum += floatField(event.Data, "confidence")
		case "response.coerced":
			m.CoercedResponses++
		case "trait.unknown":
			m.UnknownTraitKeys++
		case "pathway.activated":
			if id, ok := event.Data["pathway_id"].(string); ok {
				m.PathwayActivations[id]++
			}
		case "selection.broadened":
			m.Broadened++
		case "selection.exhausted":
			m.Exhausted++
		case "catalog.refreshed":
			m.CatalogRefreshes++
		}
	}

	if m.SessionsStarted > 0 {
		m.CompletionRate = float64(m.SessionsFinalized) / float64(m.SessionsStarted)
	}
	if m.SessionsFinalized > 0 {
		m.MeanConfidence = confidenceSum / float64(m.SessionsFinalized)
	}
	return m, nil
}

// intField reads a numeric attribute that may have round-tripped through
// JSON as float64.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func floatField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

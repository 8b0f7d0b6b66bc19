package core

// EventLogger is the subset of the observability event log that the engine
// needs. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by the engine.
const (
	EventSessionStarted     = "session.started"
	EventSessionAdvanced    = "session.advanced"
	EventSessionFinalized   = "session.finalized"
	EventResponseCoerced    = "response.coerced"
	EventTraitUnknown       = "trait.unknown"
	EventPathwayActivated   = "pathway.activated"
	EventSelectionBroadened = "selection.broadened"
	EventSelectionExhausted = "selection.exhausted"
)

// logEvent writes to l if it is non-nil. Logging failures never interrupt a
// session.
func logEvent(l EventLogger, eventType string, data map[string]any) {
	if l == nil {
		return
	}
	_ = l.LogEvent(eventType, data)
}

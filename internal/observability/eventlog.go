package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Event is one line of the event log.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Type    string         `json:"type"` // e.g. "session.started", "pathway.activated"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// SessionID returns the session_id attribute, if any.
func (e Event) SessionID() string {
	id, _ := e.Data["session_id"].(string)
	return id
}

// EventFilter specifies criteria for reading events. TypePrefix matches a
// family such as "session.".
type EventFilter struct {
	Since      *time.Time
	Until      *time.Time
	Type       string
	TypePrefix string
	Level      string
	SessionID  string
}

// EventLog writes and reads events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog opens (creating if needed) an append-only JSONL file.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

func (l *jsonlEventLog) Write(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the whole file and returns matching events in write order.
// Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.TypePrefix != "" && !strings.HasPrefix(event.Type, filter.TypePrefix) {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	if filter.SessionID != "" && event.SessionID() != filter.SessionID {
		return false
	}
	return true
}

// levelFor maps an event type to its log level.
func levelFor(eventType string) string {
	switch eventType {
	case "catalog.refresh_failed":
		return LevelError
	case "response.coerced", "trait.unknown", "selection.exhausted", "selection.broadened":
		return LevelWarn
	default:
		return LevelInfo
	}
}

// EventLogger adapts an EventLog to the LogEvent interface the engine and
// the catalog accept.
type EventLogger struct {
	log EventLog
	now func() time.Time
}

// NewEventLogger wraps log.
func NewEventLogger(log EventLog) *EventLogger {
	return &EventLogger{log: log, now: func() time.Time { return time.Now().UTC() }}
}

// LogEvent writes a structured event, deriving the level from its type.
func (a *EventLogger) LogEvent(eventType string, data map[string]any) error {
	msg := eventType
	if id, ok := data["session_id"].(string); ok && id != "" {
		msg = eventType + " " + id
	}
	return a.log.Write(Event{
		Time:    a.now(),
		Level:   levelFor(eventType),
		Type:    eventType,
		Message: msg,
		Data:    data,
	})
}

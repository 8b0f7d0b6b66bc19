package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
	"gopkg.in/yaml.v3"
)

var (
	// ErrSessionNotFound is returned when no stored session has the given ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrReportNotFound is returned when a session has not been scored yet.
	ErrReportNotFound = errors.New("report not found")

	// ErrStaleSession is returned when saving a state that is not an
	// extension of the stored one, for example a copy loaded before another
	// writer advanced the session.
	ErrStaleSession = errors.New("stale session state")
)

// SessionStore persists session states and their reports under sessions/.
type SessionStore interface {
	NextSessionID() (string, error)
	SaveSession(state *models.SessionState) error
	LoadSession(id string) (*models.SessionState, error)
	SaveReport(report *models.Report) error
	LoadReport(sessionID string) (*models.Report, error)
	ListSessions(filter models.SessionFilter) ([]models.SessionSummary, error)
	Load() error
}

type fileSessionStore struct {
	basePath string

	mu    sync.Mutex
	index models.SessionIndex
}

// NewSessionStore creates a SessionStore backed by YAML files under
// sessions/ in the given base directory. Call Load to read an existing
// index.
func NewSessionStore(basePath string) SessionStore {
	return &fileSessionStore{
		basePath: basePath,
		index:    models.SessionIndex{Version: "1.0"},
	}
}

func (s *fileSessionStore) sessionsDir() string {
	return filepath.Join(s.basePath, "sessions")
}

func (s *fileSessionStore) indexPath() string {
	return filepath.Join(s.sessionsDir(), "index.yaml")
}

func (s *fileSessionStore) counterPath() string {
	return filepath.Join(s.sessionsDir(), ".session_counter")
}

func (s *fileSessionStore) sessionDir(id string) string {
	return filepath.Join(s.sessionsDir(), id)
}

// NextSessionID reads and increments the session counter file, returning the
// next sequential ID in AS-XXXXX format. The counter is guarded by an
// exclusive file lock so concurrent processes never share an ID.
func (s *fileSessionStore) NextSessionID() (string, error) {
	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return "", fmt.Errorf("generating session ID: creating directory: %w", err)
	}

	unlock, err := lockFile(s.counterPath())
	if err != nil {
		return "", fmt.Errorf("generating session ID: %w", err)
	}
	defer func() { _ = unlock() }()

	counter := 0
	data, err := os.ReadFile(s.counterPath())
	if err != nil {
		return "", fmt.Errorf("generating session ID: reading counter: %w", err)
	}
	if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
		counter, err = strconv.Atoi(trimmed)
		if err != nil {
			return "", fmt.Errorf("generating session ID: parsing counter: %w", err)
		}
	}

	counter++
	if err := os.WriteFile(s.counterPath(), []byte(strconv.Itoa(counter)), 0o600); err != nil {
		return "", fmt.Errorf("generating session ID: writing counter: %w", err)
	}
	return fmt.Sprintf("AS-%05d", counter), nil
}

// SaveSession writes the state and refreshes its index entry. A state that
// drops or reorders previously stored responses or asked questions is
// rejected with ErrStaleSession.
func (s *fileSessionStore) SaveSession(state *models.SessionState) error {
	if state == nil || state.ID == "" {
		return fmt.Errorf("saving session: ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lockSessions()
	if err != nil {
		return fmt.Errorf("saving session %s: %w", state.ID, err)
	}
	defer func() { _ = unlock() }()

	dir := s.sessionDir(state.ID)
	statePath := filepath.Join(dir, "session.yaml")

	var stored models.SessionState
	found, err := loadYAML(statePath, &stored)
	if err != nil {
		return fmt.Errorf("saving session %s: reading stored state: %w", state.ID, err)
	}
	if found {
		if err := checkExtends(&stored, state); err != nil {
			return fmt.Errorf("saving session %s: %w", state.ID, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("saving session %s: creating directory: %w", state.ID, err)
	}
	if err := saveYAML(statePath, state); err != nil {
		return fmt.Errorf("saving session %s: %w", state.ID, err)
	}

	_, reportErr := os.Stat(filepath.Join(dir, "report.yaml"))
	if err := s.reloadIndex(); err != nil {
		return fmt.Errorf("saving session %s: %w", state.ID, err)
	}
	s.upsert(summarize(state, reportErr == nil))
	return s.saveIndex()
}

// LoadSession reads a stored state by ID.
func (s *fileSessionStore) LoadSession(id string) (*models.SessionState, error) {
	var state models.SessionState
	found, err := loadYAML(filepath.Join(s.sessionDir(id), "session.yaml"), &state)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("loading session %s: %w", id, ErrSessionNotFound)
	}
	return &state, nil
}

// SaveReport writes the report next to its session and marks the index
// entry.
func (s *fileSessionStore) SaveReport(report *models.Report) error {
	if report == nil || report.SessionID == "" {
		return fmt.Errorf("saving report: session ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lockSessions()
	if err != nil {
		return fmt.Errorf("saving report for %s: %w", report.SessionID, err)
	}
	defer func() { _ = unlock() }()

	dir := s.sessionDir(report.SessionID)
	if _, err := os.Stat(filepath.Join(dir, "session.yaml")); err != nil {
		return fmt.Errorf("saving report for %s: %w", report.SessionID, ErrSessionNotFound)
	}
	if err := saveYAML(filepath.Join(dir, "report.yaml"), report); err != nil {
		return fmt.Errorf("saving report for %s: %w", report.SessionID, err)
	}

	if err := s.reloadIndex(); err != nil {
		return fmt.Errorf("saving report for %s: %w", report.SessionID, err)
	}
	for i := range s.index.Sessions {
		if s.index.Sessions[i].ID == report.SessionID {
			s.index.Sessions[i].HasReport = true
		}
	}
	return s.saveIndex()
}

// LoadReport reads the stored report of a session.
func (s *fileSessionStore) LoadReport(sessionID string) (*models.Report, error) {
	var report models.Report
	found, err := loadYAML(filepath.Join(s.sessionDir(sessionID), "report.yaml"), &report)
	if err != nil {
		return nil, fmt.Errorf("loading report for %s: %w", sessionID, err)
	}
	if !found {
		return nil, fmt.Errorf("loading report for %s: %w", sessionID, ErrReportNotFound)
	}
	return &report, nil
}

// ListSessions returns index entries matching filter, oldest first. The
// index is re-read so sessions saved by other processes are included.
func (s *fileSessionStore) ListSessions(filter models.SessionFilter) ([]models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadIndex(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var result []models.SessionSummary
	for _, summary := range s.index.Sessions {
		if filter.Tier != "" && summary.Tier != filter.Tier {
			continue
		}
		if filter.Completed != nil && summary.Completed != *filter.Completed {
			continue
		}
		if filter.WithoutReport && summary.HasReport {
			continue
		}
		if filter.Since != nil && summary.UpdatedAt.Before(*filter.Since) {
			continue
		}
		result = append(result, summary)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Load reads the session index from disk. A missing index is treated as
// empty.
func (s *fileSessionStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadIndex()
}

// reloadIndex replaces the in-memory index with the one on disk. Callers
// hold s.mu.
func (s *fileSessionStore) reloadIndex() error {
	var index models.SessionIndex
	if _, err := loadYAML(s.indexPath(), &index); err != nil {
		return fmt.Errorf("loading session index: %w", err)
	}
	if index.Version == "" {
		index.Version = "1.0"
	}
	s.index = index
	return nil
}

// lockSessions takes the store-wide file lock that serializes writers
// across processes.
func (s *fileSessionStore) lockSessions() (func() error, error) {
	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return lockFile(filepath.Join(s.sessionsDir(), ".lock"))
}

func (s *fileSessionStore) upsert(summary models.SessionSummary) {
	for i := range s.index.Sessions {
		if s.index.Sessions[i].ID == summary.ID {
			s.index.Sessions[i] = summary
			return
		}
	}
	s.index.Sessions = append(s.index.Sessions, summary)
}

func (s *fileSessionStore) saveIndex() error {
	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("saving session index: creating directory: %w", err)
	}
	if err := saveYAML(s.indexPath(), &s.index); err != nil {
		return fmt.Errorf("saving session index: %w", err)
	}
	return nil
}

func summarize(state *models.SessionState, hasReport bool) models.SessionSummary {
	return models.SessionSummary{
		ID:             state.ID,
		Tier:           state.Tier,
		Phase:          state.Phase,
		Responses:      len(state.Responses),
		TotalBudget:    state.TotalBudget,
		ActivePathways: append([]string(nil), state.ActivePathways...),
		Completed:      state.Completed,
		HasReport:      hasReport,
		CreatedAt:      state.CreatedAt,
		UpdatedAt:      state.UpdatedAt,
	}
}

// checkExtends verifies that next keeps stored's responses, asked questions
// and active pathways as prefixes.
func checkExtends(stored, next *models.SessionState) error {
	if stored.Tier != next.Tier {
		return fmt.Errorf("%w: tier changed from %s to %s", ErrStaleSession, stored.Tier, next.Tier)
	}
	if stored.Completed && !next.Completed {
		return fmt.Errorf("%w: session already completed", ErrStaleSession)
	}
	if len(next.Responses) < len(stored.Responses) {
		return fmt.Errorf("%w: %d responses stored, %d given", ErrStaleSession, len(stored.Responses), len(next.Responses))
	}
	for i, r := range stored.Responses {
		if next.Responses[i].QuestionID != r.QuestionID {
			return fmt.Errorf("%w: response %d changed from %s to %s", ErrStaleSession, i, r.QuestionID, next.Responses[i].QuestionID)
		}
	}
	if !hasPrefix(next.AskedQuestionIDs, stored.AskedQuestionIDs) {
		return fmt.Errorf("%w: asked questions diverge", ErrStaleSession)
	}
	if !hasPrefix(next.ActivePathways, stored.ActivePathways) {
		return fmt.Errorf("%w: active pathways diverge", ErrStaleSession)
	}
	return nil
}

func hasPrefix(s, prefix []string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// loadYAML decodes path into target. The bool is false when the file does
// not exist.
func loadYAML(path string, target any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return true, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// saveYAML writes through a temp file and rename so readers never see a
// partial document.
func saveYAML(path string, source any) error {
	data, err := yaml.Marshal(source)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Package catalog serves the read-only question pool. Readers see an
// immutable Snapshot loaded through an atomic pointer, so Find never takes a
// lock; Refresh builds a new snapshot from a Source and swaps it in.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/valter-silva-au/adaptive-assessment/internal/core"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// Source loads the full question list in catalog order.
type Source interface {
	Load(ctx context.Context) ([]models.Question, error)
	Name() string
}

// Event types emitted by the catalog.
const (
	EventCatalogRefreshed     = "catalog.refreshed"
	EventCatalogRefreshFailed = "catalog.refresh_failed"
)

// Snapshot is one immutable version of the catalog. It must not be modified
// after construction.
type Snapshot struct {
	Version   int
	Source    string
	LoadedAt  time.Time
	questions []models.Question
	byID      map[string]int
}

// NewSnapshot validates qs and indexes it. The slice is copied.
func NewSnapshot(qs []models.Question, source string, version int) (*Snapshot, error) {
	if err := Validate(qs); err != nil {
		return nil, err
	}
	s := &Snapshot{
		Version:   version,
		Source:    source,
		LoadedAt:  time.Now().UTC(),
		questions: append([]models.Question(nil), qs...),
		byID:      make(map[string]int, len(qs)),
	}
	for i, q := range s.questions {
		s.byID[q.ID] = i
	}
	return s, nil
}

// Len returns the number of questions.
func (s *Snapshot) Len() int { return len(s.questions) }

// Questions returns a copy of every question in catalog order.
func (s *Snapshot) Questions() []models.Question {
	return append([]models.Question(nil), s.questions...)
}

// Get looks a question up by ID.
func (s *Snapshot) Get(id string) (models.Question, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.Question{}, false
	}
	return s.questions[i], true
}

// Find returns the questions matching f in catalog order.
func (s *Snapshot) Find(f models.QuestionFilter) []models.Question {
	return Apply(s.questions, f)
}

// CategoryCounts returns the number of questions per category.
func (s *Snapshot) CategoryCounts() map[string]int {
	out := make(map[string]int)
	for _, q := range s.questions {
		out[q.Category]++
	}
	return out
}

// Categories returns the sorted category names.
func (s *Snapshot) Categories() []string {
	counts := s.CategoryCounts()
	out := make([]string, 0, len(counts))
	for c := range counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Catalog is the concurrently readable question catalog.
type Catalog struct {
	source  Source
	current atomic.Pointer[Snapshot]
	events  core.EventLogger
}

// New loads the initial snapshot from src. events may be nil.
func New(ctx context.Context, src Source, events core.EventLogger) (*Catalog, error) {
	c := &Catalog{source: src, events: events}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromQuestions builds a catalog over a fixed question list.
func NewFromQuestions(qs []models.Question) (*Catalog, error) {
	snap, err := NewSnapshot(qs, "memory", 1)
	if err != nil {
		return nil, err
	}
	c := &Catalog{}
	c.current.Store(snap)
	return c, nil
}

// Snapshot returns the current snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Find implements the engine's catalog accessor over the current snapshot.
func (c *Catalog) Find(f models.QuestionFilter) ([]models.Question, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("catalog not loaded")
	}
	return snap.Find(f), nil
}

// Get looks a question up by ID in the current snapshot.
func (c *Catalog) Get(id string) (models.Question, bool) {
	snap := c.current.Load()
	if snap == nil {
		return models.Question{}, false
	}
	return snap.Get(id)
}

// Refresh reloads the source and swaps in a new snapshot. On failure the
// previous snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	qs, err := c.source.Load(ctx)
	if err != nil {
		c.log(EventCatalogRefreshFailed, map[string]any{"source": c.source.Name(), "error": err.Error()})
		return fmt.Errorf("loading catalog from %s: %w", c.source.Name(), err)
	}

	version := 1
	if prev := c.current.Load(); prev != nil {
		version = prev.Version + 1
	}
	snap, err := NewSnapshot(qs, c.source.Name(), version)
	if err != nil {
		c.log(EventCatalogRefreshFailed, map[string]any{"source": c.source.Name(), "error": err.Error()})
		return fmt.Errorf("validating catalog from %s: %w", c.source.Name(), err)
	}
	c.current.Store(snap)
	c.log(EventCatalogRefreshed, map[string]any{
		"source":    snap.Source,
		"version":   snap.Version,
		"questions": snap.Len(),
	})
	return nil
}

// Watch refreshes the catalog every interval until ctx is cancelled. Errors
// are passed to onErr, which may be nil.
func (c *Catalog) Watch(ctx context.Context, interval time.Duration, onErr func(error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

func (c *Catalog) log(eventType string, data map[string]any) {
	if c.events == nil {
		return
	}
	_ = c.events.LogEvent(eventType, data)
}

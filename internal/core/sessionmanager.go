package core

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Answer is a caller-supplied response. The manager fills in the category,
// weights and markers from the catalog so callers only send what the
// respondent did.
type Answer struct {
	QuestionID     string `json:"question_id"`
	Score          *int   `json:"score,omitempty"`
	RawValue       string `json:"raw_value,omitempty"`
	ResponseTimeMs *int   `json:"response_time_ms,omitempty"`
}

// StartResult is returned when a session is created.
type StartResult struct {
	Session   *models.SessionState `json:"session"`
	Questions []models.Question   `json:"questions"`
}

// SessionStatus describes a stored session without advancing it.
type SessionStatus struct {
	Session         *models.SessionState `json:"session"`
	Pending         []models.Question   `json:"pending"`
	PercentComplete int                 `json:"percent_complete"`
}

// SessionManager runs stored sessions: it loads state, drives the engine
// and persists the result.
type SessionManager interface {
	Start(tier models.SessionTier, seed *int64) (*StartResult, error)
	Answer(sessionID string, answers []Answer) (*AdvanceResult, error)
	Finalize(sessionID string) (*models.Report, error)
	Status(sessionID string) (*SessionStatus, error)
	Report(sessionID string) (*models.Report, error)
	RescoreCompleted(ctx context.Context, workers int) ([]*models.Report, error)
}

type sessionManager struct {
	engine    *Engine
	repo      SessionRepository
	questions QuestionLookup

	locks sync.Map // session ID -> *sync.Mutex
}

// NewSessionManager wires the engine to a repository and a question lookup.
func NewSessionManager(engine *Engine, repo SessionRepository, questions QuestionLookup) SessionManager {
	return &sessionManager{engine: engine, repo: repo, questions: questions}
}

// lock serializes work on one session within this process. Cross-process
// writers are caught by the repository's stale-state check.
func (m *sessionManager) lock(id string) func() {
	v, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (m *sessionManager) Start(tier models.SessionTier, seed *int64) (*StartResult, error) {
	var (
		state *models.SessionState
		batch []models.Question
		err   error
	)
	if seed != nil {
		state, batch, err = m.engine.StartSessionWithSeed(tier, *seed)
	} else {
		state, batch, err = m.engine.StartSession(tier)
	}
	if err != nil {
		return nil, err
	}
	if err := m.repo.SaveSession(state); err != nil {
		return nil, fmt.Errorf("saving new session: %w", err)
	}
	return &StartResult{Session: state, Questions: batch}, nil
}

func (m *sessionManager) Answer(sessionID string, answers []Answer) (*AdvanceResult, error) {
	defer m.lock(sessionID)()

	state, err := m.repo.LoadSession(sessionID)
	if err != nil {
		return nil, err
	}
	events, err := m.responses(answers)
	if err != nil {
		return nil, err
	}

	result, err := m.engine.Advance(state, events)
	if err != nil {
		return nil, err
	}
	if err := m.repo.SaveSession(state); err != nil {
		return nil, fmt.Errorf("saving session %s: %w", sessionID, err)
	}
	return result, nil
}

// responses turns answers into response events. A missing score falls back
// to an integer raw value; anything else is left for the engine to coerce.
// Reverse-scored questions record the reversed value.
func (m *sessionManager) responses(answers []Answer) ([]models.ResponseEvent, error) {
	out := make([]models.ResponseEvent, 0, len(answers))
	for i, a := range answers {
		q, ok := m.questions.Get(a.QuestionID)
		if !ok {
			return nil, validationErrorf(fmt.Sprintf("answers[%d].question_id", i), "unknown question %q", a.QuestionID)
		}
		r := models.NewResponse(q, 0)
		r.Score = nil
		raw := a.Score
		if raw == nil && a.RawValue != "" {
			if v, err := strconv.Atoi(a.RawValue); err == nil {
				raw = &v
			}
		}
		if raw != nil {
			r.Score = models.IntPtr(scoredValue(q, *raw, m.engine.cfg.Scale))
		}
		r.RawValue = a.RawValue
		r.ResponseTimeMs = a.ResponseTimeMs
		r.AnsweredAt = m.engine.now()
		out = append(out, r)
	}
	return out, nil
}

func (m *sessionManager) Finalize(sessionID string) (*models.Report, error) {
	defer m.lock(sessionID)()

	state, err := m.repo.LoadSession(sessionID)
	if err != nil {
		return nil, err
	}
	report, err := m.engine.Finalize(state)
	if err != nil {
		return nil, err
	}
	if err := m.repo.SaveSession(state); err != nil {
		return nil, fmt.Errorf("saving session %s: %w", sessionID, err)
	}
	if err := m.repo.SaveReport(report); err != nil {
		return nil, fmt.Errorf("saving report for %s: %w", sessionID, err)
	}
	return report, nil
}

func (m *sessionManager) Status(sessionID string) (*SessionStatus, error) {
	state, err := m.repo.LoadSession(sessionID)
	if err != nil {
		return nil, err
	}
	status := &SessionStatus{Session: state, PercentComplete: state.PercentComplete()}
	for _, id := range pendingQuestions(state) {
		if q, ok := m.questions.Get(id); ok {
			status.Pending = append(status.Pending, q)
		}
	}
	return status, nil
}

func (m *sessionManager) Report(sessionID string) (*models.Report, error) {
	return m.repo.LoadReport(sessionID)
}

// RescoreCompleted scores every completed session again with the current
// configuration, using up to workers goroutines. Reports are returned in
// session ID order and saved back to the repository.
func (m *sessionManager) RescoreCompleted(ctx context.Context, workers int) ([]*models.Report, error) {
	completed := true
	summaries, err := m.repo.ListSessions(models.SessionFilter{Completed: &completed})
	if err != nil {
		return nil, fmt.Errorf("listing completed sessions: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	reports := make([]*models.Report, len(summaries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, summary := range summaries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			state, err := m.repo.LoadSession(summary.ID)
			if err != nil {
				return err
			}
			report, err := m.engine.Scorer().Score(state)
			if err != nil {
				return fmt.Errorf("scoring %s: %w", summary.ID, err)
			}
			if err := m.repo.SaveReport(report); err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

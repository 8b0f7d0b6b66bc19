package core

import "github.com/valter-silva-au/adaptive-assessment/pkg/models"

// SessionRepository is the subset of storage.SessionStore that the session
// manager needs. Defining it here keeps core independent of storage.
type SessionRepository interface {
	SaveSession(state *models.SessionState) error
	LoadSession(id string) (*models.SessionState, error)
	SaveReport(report *models.Report) error
	LoadReport(sessionID string) (*models.Report, error)
	ListSessions(filter models.SessionFilter) ([]models.SessionSummary, error)
}

// QuestionLookup resolves a question by ID. The catalog implements it.
type QuestionLookup interface {
	Get(id string) (models.Question, bool)
}

// Package mcp provides an MCP (Model Context Protocol) server that lets an
// assistant run adaptive assessments: start a session, submit answers batch
// by batch and read back the report.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/adaptive-assessment/internal/core"
	"github.com/valter-silva-au/adaptive-assessment/internal/observability"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// Server wraps the session manager and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	sessions    core.SessionManager
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server. metricsCalc and alertEngine may be nil
// if observability is disabled.
func NewServer(sessions core.SessionManager, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		sessions:    sessions,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "aqe", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type startSessionInput struct {
	Tier string `json:"tier" jsonschema:"required,assessment length: quick, standard or deep"`
	Seed *int64 `json:"seed,omitempty" jsonschema:"optional seed for a reproducible first batch"`
}

type questionOutput struct {
	ID           string `json:"id"`
	Text         string `json:"text,omitempty"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory,omitempty"`
	ResponseType string `json:"response_type"`
}

type sessionOutput struct {
	SessionID       string           `json:"session_id"`
	Tier            string           `json:"tier"`
	Phase           string           `json:"phase"`
	TotalBudget     int              `json:"total_budget"`
	Answered        int              `json:"answered"`
	PercentComplete int              `json:"percent_complete"`
	ActivePathways  []string         `json:"active_pathways,omitempty"`
	Completed       bool             `json:"completed"`
	Questions       []questionOutput `json:"questions"`
	Created         string           `json:"created"`
	Updated         string           `json:"updated"`
}

type answerInput struct {
	QuestionID     string `json:"question_id" jsonschema:"required,the question being answered"`
	Score          *int   `json:"score,omitempty" jsonschema:"numeric answer on the question's scale"`
	RawValue       string `json:"raw_value,omitempty" jsonschema:"the answer as typed, used when score is absent"`
	ResponseTimeMs *int   `json:"response_time_ms,omitempty" jsonschema:"time taken to answer in milliseconds"`
}

type advanceSessionInput struct {
	SessionID string        `json:"session_id" jsonschema:"required,the session identifier (e.g. AS-00042)"`
	Answers   []answerInput `json:"answers" jsonschema:"required,answers to questions from the current batch"`
}

type advanceSessionOutput struct {
	SessionID         string           `json:"session_id"`
	Phase             string           `json:"phase"`
	PercentComplete   int              `json:"percent_complete"`
	IsComplete        bool             `json:"is_complete"`
	Exhausted         bool             `json:"exhausted,omitempty"`
	ActivatedPathways []string         `json:"activated_pathways,omitempty"`
	NextBatch         []questionOutput `json:"next_batch"`
	Pending           []string         `json:"pending,omitempty"`
}

type sessionIDInput struct {
	SessionID string `json:"session_id" jsonschema:"required,the session identifier (e.g. AS-00042)"`
}

type traitOutput struct {
	Trait      string  `json:"trait"`
	Raw        float64 `json:"raw"`
	Percentile int     `json:"percentile"`
	Level      string  `json:"level"`
}

type reportOutput struct {
	ReportID       string        `json:"report_id"`
	SessionID      string        `json:"session_id"`
	Generated      string        `json:"generated"`
	Responses      int           `json:"responses"`
	Traits         []traitOutput `json:"traits"`
	Profile        string        `json:"profile"`
	Description    string        `json:"description,omitempty"`
	ResponseStyle  string        `json:"response_style"`
	Consistency    float64       `json:"consistency"`
	Confidence     float64       `json:"confidence"`
	LowValidity    bool          `json:"low_validity"`
	ActivePathways []string      `json:"active_pathways,omitempty"`
	Indicators     []string      `json:"indicators,omitempty"`
	HiddenPatterns []string      `json:"hidden_patterns,omitempty"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	SessionsStarted    int            `json:"sessions_started"`
	SessionsFinalized  int            `json:"sessions_finalized"`
	SessionsByTier     map[string]int `json:"sessions_by_tier"`
	CompletionRate     float64        `json:"completion_rate"`
	ResponsesRecorded  int            `json:"responses_recorded"`
	CoercedResponses   int            `json:"coerced_responses"`
	PathwayActivations map[string]int `json:"pathway_activations"`
	Profiles           map[string]int `json:"profiles"`
	LowValidityReports int            `json:"low_validity_reports"`
	MeanConfidence     float64        `json:"mean_confidence"`
	EventCount         int            `json:"event_count"`
	OldestEvent        string         `json:"oldest_event,omitempty"`
	NewestEvent        string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_session",
		Description: "Start an adaptive assessment. Returns the session ID and the first batch of questions to ask.",
	}, s.handleStartSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "advance_session",
		Description: "Submit answers for the current batch. Returns the next batch, the phase, newly activated pathways and progress.",
	}, s.handleAdvanceSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "finalize_session",
		Description: "Finish a session and score it. Returns the report with trait percentiles, profile, confidence and validity flags.",
	}, s.handleFinalizeSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_session",
		Description: "Get a session's progress and the questions that were presented but not yet answered.",
	}, s.handleGetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_report",
		Description: "Get the stored report of a finalized session.",
	}, s.handleGetReport)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: sessions, completion rate, pathway activations and profiles.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (stalled sessions, low-validity reports, catalog exhaustion, catalog refresh failures).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleStartSession(_ context.Context, _ *gomcp.CallToolRequest, input startSessionInput) (*gomcp.CallToolResult, sessionOutput, error) {
	if input.Tier == "" {
		return errorResult("tier is required"), sessionOutput{}, nil
	}
	tier := models.SessionTier(input.Tier)
	if err := models.ValidateSessionTier(tier); err != nil {
		return errorResult(err.Error()), sessionOutput{}, nil
	}

	res, err := s.sessions.Start(tier, input.Seed)
	if err != nil {
		return errorResult(fmt.Sprintf("starting session: %s", err)), sessionOutput{}, nil
	}
	return nil, sessionToOutput(res.Session, res.Questions), nil
}

func (s *Server) handleAdvanceSession(_ context.Context, _ *gomcp.CallToolRequest, input advanceSessionInput) (*gomcp.CallToolResult, advanceSessionOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), advanceSessionOutput{}, nil
	}

	answers := make([]core.Answer, len(input.Answers))
	for i, a := range input.Answers {
		answers[i] = core.Answer{
			QuestionID:     a.QuestionID,
			Score:          a.Score,
			RawValue:       a.RawValue,
			ResponseTimeMs: a.ResponseTimeMs,
		}
	}

	res, err := s.sessions.Answer(input.SessionID, answers)
	if err != nil {
		return errorResult(fmt.Sprintf("advancing session %s: %s", input.SessionID, err)), advanceSessionOutput{}, nil
	}

	return nil, advanceSessionOutput{
		SessionID:         input.SessionID,
		Phase:             string(res.Phase),
		PercentComplete:   res.PercentComplete,
		IsComplete:        res.IsComplete,
		Exhausted:         res.Exhausted,
		ActivatedPathways: res.ActivatedPathways,
		NextBatch:         questionsToOutput(res.NextBatch),
		Pending:           res.Pending,
	}, nil
}

func (s *Server) handleFinalizeSession(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, reportOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), reportOutput{}, nil
	}
	report, err := s.sessions.Finalize(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("finalizing session %s: %s", input.SessionID, err)), reportOutput{}, nil
	}
	return nil, reportToOutput(report), nil
}

func (s *Server) handleGetSession(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, sessionOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), sessionOutput{}, nil
	}
	status, err := s.sessions.Status(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting session %s: %s", input.SessionID, err)), sessionOutput{}, nil
	}
	return nil, sessionToOutput(status.Session, status.Pending), nil
}

func (s *Server) handleGetReport(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, reportOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), reportOutput{}, nil
	}
	report, err := s.sessions.Report(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting report for %s: %s", input.SessionID, err)), reportOutput{}, nil
	}
	return nil, reportToOutput(report), nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	m, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		SessionsStarted:    m.SessionsStarted,
		SessionsFinalized:  m.SessionsFinalized,
		SessionsByTier:     m.SessionsByTier,
		CompletionRate:     m.CompletionRate,
		ResponsesRecorded:  m.ResponsesRecorded,
		CoercedResponses:   m.CoercedResponses,
		PathwayActivations: m.PathwayActivations,
		Profiles:           m.Profiles,
		LowValidityReports: m.LowValidityReports,
		MeanConfidence:     m.MeanConfidence,
		EventCount:         m.EventCount,
	}
	if m.OldestEvent != nil {
		out.OldestEvent = m.OldestEvent.Format(time.RFC3339)
	}
	if m.NewestEvent != nil {
		out.NewestEvent = m.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func questionsToOutput(qs []models.Question) []questionOutput {
	out := make([]questionOutput, len(qs))
	for i, q := range qs {
		out[i] = questionOutput{
			ID:           q.ID,
			Text:         q.Text,
			Category:     q.Category,
			Subcategory:  q.Subcategory,
			ResponseType: string(q.ResponseType),
		}
	}
	return out
}

func sessionToOutput(state *models.SessionState, questions []models.Question) sessionOutput {
	return sessionOutput{
		SessionID:       state.ID,
		Tier:            string(state.Tier),
		Phase:           string(state.Phase),
		TotalBudget:     state.TotalBudget,
		Answered:        len(state.Responses),
		PercentComplete: state.PercentComplete(),
		ActivePathways:  state.ActivePathways,
		Completed:       state.Completed,
		Questions:       questionsToOutput(questions),
		Created:         state.CreatedAt.Format(time.RFC3339),
		Updated:         state.UpdatedAt.Format(time.RFC3339),
	}
}

func reportToOutput(r *models.Report) reportOutput {
	out := reportOutput{
		ReportID:       r.ID,
		SessionID:      r.SessionID,
		Generated:      r.GeneratedAt.Format(time.RFC3339),
		Responses:      r.ResponseCount,
		Traits:         make([]traitOutput, len(r.Traits)),
		Profile:        r.Profile.Label,
		Description:    r.Profile.Description,
		ResponseStyle:  string(r.ResponseStyle),
		Consistency:    r.Consistency,
		Confidence:     r.Confidence,
		LowValidity:    r.Quality.LowValidity,
		ActivePathways: r.ActivePathways,
		Indicators:     r.Indicators,
	}
	for i, t := range r.Traits {
		out.Traits[i] = traitOutput{
			Trait:      string(t.Trait),
			Raw:        t.Raw,
			Percentile: t.Percentile,
			Level:      string(t.Level),
		}
	}
	for _, p := range r.HiddenPatterns {
		out.HiddenPatterns = append(out.HiddenPatterns, p.Name)
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		SessionsByTier:     make(map[string]int),
		PathwayActivations: make(map[string]int),
		Profiles:           make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a duration like "7d", "30d" or "24h" into the
// corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	var num int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}

package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/internal/observability"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// Dashboard panels, in tab order.
const (
	panelSessions = iota
	panelMetrics
	panelAlerts
	numPanels
)

// metricsWindow is how far back the metrics panel looks.
const metricsWindow = 7 * 24 * time.Hour

type dashboardModel struct {
	activePanel   int
	width, height int

	sessions    *sessionSnapshot
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	loading bool
	err     error
}

type sessionSnapshot struct {
	active    int
	completed int
	byTier    map[string]int
	stalest   string
}

type metricsSnapshot struct {
	started        int
	finalized      int
	completionRate float64
	responses      int
	lowValidity    int
	topPathways    []string
	eventCount     int
}

type alertSnapshot struct {
	severity string
	message  string
}

// dataLoadedMsg is delivered when a refresh finishes.
type dataLoadedMsg struct {
	sessions *sessionSnapshot
	metrics  *metricsSnapshot
	alerts   []alertSnapshot
	err      error
}

var (
	accentColor = lipgloss.Color("63")

	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(accentColor).
			Padding(0, 1)
	helpStyle    = lipgloss.NewStyle().Faint(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(accentColor)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	openStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

var severityStyles = map[observability.AlertSeverity]lipgloss.Style{
	observability.SeverityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	observability.SeverityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	observability.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
}

var severityOrder = map[observability.AlertSeverity]int{
	observability.SeverityHigh:   0,
	observability.SeverityMedium: 1,
	observability.SeverityLow:    2,
}

func newDashboardModel() dashboardModel {
	return dashboardModel{activePanel: panelSessions, loading: true}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case dataLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.sessions, m.metricsData, m.alerts = msg.sessions, msg.metrics, msg.alerts
		}
	}
	return m, nil
}

func (m dashboardModel) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab:
		m.activePanel = (m.activePanel + 1) % numPanels
	case tea.KeyShiftTab:
		m.activePanel = (m.activePanel + numPanels - 1) % numPanels
	case tea.KeyRunes:
		switch string(k.Runes) {
		case "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, loadData
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch {
	case m.loading:
		body = "  Loading data..."
	case m.err != nil:
		body = "  Error: " + m.err.Error()
	default:
		body = m.layoutPanels()
	}
	return titleStyle.Render(" aqe dashboard ") + "\n\n" + body + "\n\n" +
		helpStyle.Render("tab/shift+tab: panel | r: refresh | q: quit")
}

// layoutPanels puts the panels side by side on wide terminals and stacks them
// otherwise.
func (m dashboardModel) layoutPanels() string {
	contents := [numPanels]string{m.sessionsPanel(), m.metricsPanel(), m.alertsPanel()}

	wide := m.width > 122
	width := max(m.width-6, 20)
	if wide {
		width = (m.width-2)/numPanels - 4
	}

	boxes := make([]string, numPanels)
	for i, content := range contents {
		style := boxStyle
		if i == m.activePanel {
			style = style.BorderForeground(accentColor)
		}
		boxes[i] = style.Width(width).Render(content)
	}
	if wide {
		return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}

func panelRow(label string, value any) string {
	return fmt.Sprintf("  %-14s %v", label, value)
}

func (m dashboardModel) sessionsPanel() string {
	lines := []string{sectionStyle.Render("Sessions")}
	s := m.sessions
	if s == nil || s.active+s.completed == 0 {
		return strings.Join(append(lines, "  No sessions found."), "\n")
	}

	lines = append(lines,
		openStyle.Render(panelRow("active", s.active)),
		doneStyle.Render(panelRow("completed", s.completed)),
		"",
	)
	for _, tier := range []models.SessionTier{models.TierQuick, models.TierStandard, models.TierDeep} {
		if n := s.byTier[string(tier)]; n > 0 {
			lines = append(lines, panelRow(string(tier), n))
		}
	}
	if s.stalest != "" {
		lines = append(lines, "", "  Oldest active: "+s.stalest)
	}
	return strings.Join(lines, "\n")
}

func (m dashboardModel) metricsPanel() string {
	lines := []string{sectionStyle.Render("Metrics (7d)")}
	md := m.metricsData
	if md == nil {
		return strings.Join(append(lines, "  No metrics available."), "\n")
	}

	lines = append(lines,
		panelRow("Events", md.eventCount),
		panelRow("Started", md.started),
		panelRow("Finalized", md.finalized),
		panelRow("Completion", fmt.Sprintf("%.0f%%", md.completionRate*100)),
		panelRow("Responses", md.responses),
	)
	if md.lowValidity > 0 {
		lines = append(lines, warnStyle.Render(panelRow("Low validity", md.lowValidity)))
	}
	if len(md.topPathways) > 0 {
		lines = append(lines, "", "  Pathways: "+strings.Join(md.topPathways, ", "))
	}
	return strings.Join(lines, "\n")
}

func (m dashboardModel) alertsPanel() string {
	lines := []string{sectionStyle.Render("Alerts")}
	if len(m.alerts) == 0 {
		return strings.Join(append(lines, "  No active alerts."), "\n")
	}

	for _, a := range m.alerts {
		style, ok := severityStyles[observability.AlertSeverity(strings.ToLower(a.severity))]
		if !ok {
			style = lipgloss.NewStyle()
		}
		tag := style.Render("[" + strings.ToUpper(a.severity) + "]")
		lines = append(lines, "  "+tag+" "+a.message)
	}
	lines = append(lines, "", fmt.Sprintf("  Total: %d alert(s)", len(m.alerts)))
	return strings.Join(lines, "\n")
}

// loadData gathers every panel's data. The first failure aborts the refresh.
func loadData() tea.Msg {
	sessions, err := loadSessionSnapshot()
	if err != nil {
		return dataLoadedMsg{err: err}
	}
	metrics, err := loadMetricsSnapshot(time.Now().UTC().Add(-metricsWindow))
	if err != nil {
		return dataLoadedMsg{err: err}
	}
	alerts, err := loadAlertSnapshots()
	if err != nil {
		return dataLoadedMsg{err: err}
	}
	return dataLoadedMsg{sessions: sessions, metrics: metrics, alerts: alerts}
}

func loadSessionSnapshot() (*sessionSnapshot, error) {
	if SessionIndex == nil {
		return nil, nil
	}
	sessions, err := SessionIndex.ListSessions(models.SessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	return summarizeSessions(sessions), nil
}

func loadMetricsSnapshot(since time.Time) (*metricsSnapshot, error) {
	if MetricsCalc == nil {
		return nil, nil
	}
	mt, err := MetricsCalc.Calculate(since)
	if err != nil {
		return nil, fmt.Errorf("loading metrics: %w", err)
	}
	return &metricsSnapshot{
		started:        mt.SessionsStarted,
		finalized:      mt.SessionsFinalized,
		completionRate: mt.CompletionRate,
		responses:      mt.ResponsesRecorded,
		lowValidity:    mt.LowValidityReports,
		topPathways:    topKeys(mt.PathwayActivations, 3),
		eventCount:     mt.EventCount,
	}, nil
}

// loadAlertSnapshots returns the current alerts, most severe first.
func loadAlertSnapshots() ([]alertSnapshot, error) {
	if AlertEngine == nil {
		return nil, nil
	}
	alerts, err := AlertEngine.Evaluate()
	if err != nil {
		return nil, fmt.Errorf("loading alerts: %w", err)
	}
	slices.SortStableFunc(alerts, func(a, b observability.Alert) int {
		return cmp.Compare(severityRank(a.Severity), severityRank(b.Severity))
	})
	out := make([]alertSnapshot, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertSnapshot{severity: string(a.Severity), message: a.Message})
	}
	return out, nil
}

func severityRank(s observability.AlertSeverity) int {
	if r, ok := severityOrder[s]; ok {
		return r
	}
	return len(severityOrder)
}

func summarizeSessions(sessions []models.SessionSummary) *sessionSnapshot {
	s := &sessionSnapshot{byTier: make(map[string]int)}
	var oldest time.Time
	for _, sum := range sessions {
		s.byTier[string(sum.Tier)]++
		if sum.Completed {
			s.completed++
			continue
		}
		s.active++
		if oldest.IsZero() || sum.UpdatedAt.Before(oldest) {
			oldest = sum.UpdatedAt
			s.stalest = sum.ID
		}
	}
	return s
}

// topKeys returns up to n keys with the highest counts, ties broken by key.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for sessions, metrics and alerts",
	Long: `Open a terminal dashboard with three panels: stored sessions by tier
and state, metrics from the last seven days of events, and current alerts.

Keys: tab and shift+tab move between panels, r reloads, q quits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}
		_, err := tea.NewProgram(newDashboardModel(), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

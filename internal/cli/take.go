package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/internal/core"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

var (
	takeTier   string
	takeResume string
)

// takeModel walks a respondent through a session one question at a time.
// Answers are buffered per batch and submitted when the batch is done.
type takeModel struct {
	sessions core.SessionManager
	now      func() time.Time

	tier      models.SessionTier
	sessionID string
	batch     []models.Question
	idx       int
	shownAt   time.Time
	answers   []core.Answer

	phase     models.Phase
	percent   int
	notice    string
	waiting   bool
	finishing bool
	report    *models.Report
	quitting  bool
	err       error
}

type sessionReadyMsg struct {
	sessionID string
	batch     []models.Question
	percent   int
	phase     models.Phase
	err       error
}

type batchDoneMsg struct {
	result *core.AdvanceResult
	err    error
}

type reportReadyMsg struct {
	report *models.Report
	err    error
}

var (
	questionStyle = lipgloss.NewStyle().Bold(true).Width(72)
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	barFullStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func newTakeModel(sessions core.SessionManager, tier models.SessionTier, resumeID string) takeModel {
	return takeModel{
		sessions:  sessions,
		now:       time.Now,
		tier:      tier,
		sessionID: resumeID,
		waiting:   true,
	}
}

func (m takeModel) Init() tea.Cmd {
	sessions, tier, id := m.sessions, m.tier, m.sessionID
	if id != "" {
		return func() tea.Msg {
			status, err := sessions.Status(id)
			if err != nil {
				return sessionReadyMsg{err: err}
			}
			if status.Session.Completed {
				return sessionReadyMsg{err: fmt.Errorf("session %s is already completed", id)}
			}
			return sessionReadyMsg{
				sessionID: id,
				batch:     status.Pending,
				percent:   status.PercentComplete,
				phase:     status.Session.Phase,
			}
		}
	}
	return func() tea.Msg {
		res, err := sessions.Start(tier, nil)
		if err != nil {
			return sessionReadyMsg{err: err}
		}
		return sessionReadyMsg{
			sessionID: res.Session.ID,
			batch:     res.Questions,
			phase:     res.Session.Phase,
		}
	}
}

func (m takeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionReadyMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.sessionID = msg.sessionID
		m.percent = msg.percent
		m.phase = msg.phase
		m.setBatch(msg.batch)
		if len(m.batch) == 0 {
			m.waiting = true
			return m, m.finalize()
		}
		return m, nil

	case batchDoneMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		res := msg.result
		m.percent = res.PercentComplete
		m.phase = res.Phase
		m.notice = ""
		if len(res.ActivatedPathways) > 0 {
			m.notice = "Follow-up questions added: " + strings.Join(res.ActivatedPathways, ", ")
		}
		if m.finishing || res.IsComplete || len(res.NextBatch) == 0 {
			m.waiting = true
			return m, m.finalize()
		}
		m.setBatch(res.NextBatch)
		return m, nil

	case reportReadyMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
		}
		m.report = msg.report
		return m, tea.Quit
	}
	return m, nil
}

func (m *takeModel) setBatch(batch []models.Question) {
	m.batch = batch
	m.idx = 0
	m.answers = nil
	m.shownAt = m.now()
}

func (m takeModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	if m.waiting || m.idx >= len(m.batch) {
		return m, nil
	}

	switch key {
	case "1", "2", "3", "4", "5":
		score := int(key[0] - '0')
		return m.record(core.Answer{Score: &score})
	case "s":
		return m.record(core.Answer{RawValue: "skipped"})
	case "f":
		m.waiting = true
		if len(m.answers) > 0 {
			m.finishing = true
			return m, m.submit()
		}
		return m, m.finalize()
	case "backspace", "left":
		if m.idx > 0 {
			m.idx--
			m.answers = m.answers[:m.idx]
			m.shownAt = m.now()
		}
	}
	return m, nil
}

// record stores the answer for the current question and submits the batch
// once every question in it has an answer.
func (m takeModel) record(a core.Answer) (tea.Model, tea.Cmd) {
	q := m.batch[m.idx]
	a.QuestionID = q.ID
	ms := int(m.now().Sub(m.shownAt).Milliseconds())
	a.ResponseTimeMs = &ms
	m.answers = append(m.answers, a)
	m.idx++
	m.shownAt = m.now()

	if m.idx < len(m.batch) {
		return m, nil
	}
	m.waiting = true
	return m, m.submit()
}

func (m takeModel) submit() tea.Cmd {
	sessions, id := m.sessions, m.sessionID
	answers := append([]core.Answer(nil), m.answers...)
	return func() tea.Msg {
		res, err := sessions.Answer(id, answers)
		return batchDoneMsg{result: res, err: err}
	}
}

func (m takeModel) finalize() tea.Cmd {
	sessions, id := m.sessions, m.sessionID
	return func() tea.Msg {
		report, err := sessions.Finalize(id)
		return reportReadyMsg{report: report, err: err}
	}
}

func (m takeModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %s\n", m.err)
	}
	if m.report != nil || m.quitting {
		return ""
	}
	if m.waiting || m.idx >= len(m.batch) {
		return titleStyle.Render(" aqe ") + "\n\n  Working...\n"
	}

	q := m.batch[m.idx]
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" aqe %s ", m.sessionID)))
	b.WriteString("  ")
	b.WriteString(progressBar(m.percent, 30))
	fmt.Fprintf(&b, " %d%%  %s\n\n", m.percent, metaStyle.Render(string(m.phase)))

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n\n")
	}
	b.WriteString(questionStyle.Render(q.Text))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%s · question %d of %d in this batch", q.Category, m.idx+1, len(m.batch))))
	b.WriteString("\n\n  ")
	b.WriteString(scaleHint(q.ResponseType))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("1-5: answer | s: skip | backspace: back | f: finish now | q: quit (resume later)"))
	return b.String()
}

func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	full := percent * width / 100
	return barFullStyle.Render(strings.Repeat("█", full)) + barEmptyStyle.Render(strings.Repeat("░", width-full))
}

var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take an assessment interactively",
	Long: `Run an assessment in the terminal, one question at a time.

Answers are submitted in batches, so quitting part-way keeps everything
answered so far; continue later with --resume <session-id>. The report is
printed when the session finishes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session manager not initialized")
		}
		tier := models.SessionTier(takeTier)
		if takeResume == "" {
			if err := models.ValidateSessionTier(tier); err != nil {
				return err
			}
		}

		final, err := tea.NewProgram(newTakeModel(Sessions, tier, takeResume)).Run()
		if err != nil {
			return err
		}
		m := final.(takeModel)
		out := cmd.OutOrStdout()
		switch {
		case m.err != nil:
			return m.err
		case m.report != nil:
			printReport(out, m.report)
		case m.sessionID != "":
			fmt.Fprintf(out, "Session %s saved at %d%%. Resume with: aqe take --resume %s\n", m.sessionID, m.percent, m.sessionID)
		}
		return nil
	},
}

func init() {
	takeCmd.Flags().StringVar(&takeTier, "tier", string(models.TierQuick), "Assessment tier (quick, standard, deep)")
	takeCmd.Flags().StringVar(&takeResume, "resume", "", "Continue an existing session")
	active := false
	_ = takeCmd.RegisterFlagCompletionFunc("tier", completeTiers)
	_ = takeCmd.RegisterFlagCompletionFunc("resume", completeSessionIDs(&active))
	rootCmd.AddCommand(takeCmd)
}

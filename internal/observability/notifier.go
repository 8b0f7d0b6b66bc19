package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier sends alert notifications to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier posting to a Slack incoming webhook.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Block Kit payload. Only the block types the digest uses are modelled.
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(s string) slackText { return slackText{Type: "mrkdwn", Text: s} }

// Notify posts one digest for the alerts. No request is made for an empty
// slice.
func (s *slackNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildDigest(alerts))
	if err != nil {
		return fmt.Errorf("marshalling slack message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// buildDigest lays the alerts out as a header, a severity summary, one
// section per affected session, and a single section for catalog-wide
// alerts.
func buildDigest(alerts []Alert) slackMessage {
	var (
		sessionAlerts []Alert
		catalogLines  []string
		bySeverity    = make(map[AlertSeverity]int)
	)
	for _, a := range alerts {
		bySeverity[a.Severity]++
		if a.SessionID != "" {
			sessionAlerts = append(sessionAlerts, a)
			continue
		}
		catalogLines = append(catalogLines, fmt.Sprintf("%s *[%s]* %s", severityEmoji(a.Severity), strings.ToUpper(string(a.Severity)), a.Message))
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("aqe: %d assessment alert(s)", len(alerts))}},
		{Type: "context", Elements: []slackText{mrkdwn(severitySummary(bySeverity) + " | " + alerts[0].TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"))}},
	}

	for _, a := range sessionAlerts {
		fields := []slackText{
			mrkdwn("*Session*\n" + a.SessionID),
			mrkdwn("*Condition*\n" + a.Condition),
		}
		if a.ReportID != "" {
			fields = append(fields, mrkdwn("*Report*\n"+a.ReportID))
		}
		blocks = append(blocks,
			slackBlock{Type: "divider"},
			slackBlock{
				Type:   "section",
				Text:   ptr(mrkdwn(fmt.Sprintf("%s *[%s]* %s", severityEmoji(a.Severity), strings.ToUpper(string(a.Severity)), a.Message))),
				Fields: fields,
			},
		)
	}

	if len(catalogLines) > 0 {
		blocks = append(blocks,
			slackBlock{Type: "divider"},
			slackBlock{Type: "section", Text: ptr(mrkdwn("*Catalog*\n" + strings.Join(catalogLines, "\n")))},
		)
	}
	return slackMessage{Blocks: blocks}
}

func ptr[T any](v T) *T { return &v }

// severitySummary renders counts most severe first, e.g. "1 high, 2 low".
func severitySummary(counts map[AlertSeverity]int) string {
	var parts []string
	for _, sev := range []AlertSeverity{SeverityHigh, SeverityMedium, SeverityLow} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	if len(parts) == 0 {
		return "no severity"
	}
	return strings.Join(parts, ", ")
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return ":red_circle:"
	case SeverityMedium:
		return ":large_yellow_circle:"
	case SeverityLow:
		return ":large_blue_circle:"
	default:
		return ":grey_question:"
	}
}

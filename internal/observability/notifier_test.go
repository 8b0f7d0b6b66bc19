package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestSlackNotifier_NoAlerts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := n.Notify(context.Background(), []Alert{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("expected no HTTP request for empty alerts")
	}
}

func TestSlackNotifier_SendsAlerts(t *testing.T) {
	var (
		body        []byte
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	at := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	alerts := []Alert{
		{
			ID:          "catalog-exhausted",
			Condition:   "catalog_exhausted",
			Severity:    SeverityHigh,
			Message:     "question catalog ran out of candidates 3 times",
			TriggeredAt: at,
		},
		{
			ID:          "stalled-AS-00004",
			Condition:   "session_stalled",
			Severity:    SeverityLow,
			Message:     "session AS-00004 has had no responses for more than 48 hours",
			SessionID:   "AS-00004",
			TriggeredAt: at,
		},
		{
			ID:          "low-validity-AS-00007",
			Condition:   "low_validity_reports",
			Severity:    SeverityMedium,
			Message:     "session AS-00007 finalized with low validity",
			SessionID:   "AS-00007",
			ReportID:    "rpt-7",
			TriggeredAt: at,
		},
	}
	if err := NewSlackNotifier(srv.URL).Notify(context.Background(), alerts); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("expected application/json, got %q", contentType)
	}
	var msg slackMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	// header, context, then divider+section for each session and the catalog
	if len(msg.Blocks) != 8 {
		t.Fatalf("expected 8 blocks, got %d", len(msg.Blocks))
	}
	if msg.Blocks[0].Type != "header" || !strings.Contains(msg.Blocks[0].Text.Text, "3 assessment alert") {
		t.Errorf("unexpected header: %+v", msg.Blocks[0])
	}

	summary := msg.Blocks[1]
	if summary.Type != "context" || len(summary.Elements) != 1 {
		t.Fatalf("unexpected summary block: %+v", summary)
	}
	for _, want := range []string{"1 high, 1 medium, 1 low", "2026-01-15 10:30 UTC"} {
		if !strings.Contains(summary.Elements[0].Text, want) {
			t.Errorf("summary %q missing %q", summary.Elements[0].Text, want)
		}
	}

	for _, i := range []int{2, 4, 6} {
		if msg.Blocks[i].Type != "divider" {
			t.Errorf("block %d: expected divider, got %s", i, msg.Blocks[i].Type)
		}
	}

	stalled := msg.Blocks[3]
	if !strings.Contains(stalled.Text.Text, "[LOW]") || len(stalled.Fields) != 2 {
		t.Errorf("unexpected stalled section: %+v", stalled)
	}
	if !strings.Contains(stalled.Fields[0].Text, "AS-00004") {
		t.Errorf("stalled section missing session: %+v", stalled.Fields)
	}

	lowValidity := msg.Blocks[5]
	if len(lowValidity.Fields) != 3 {
		t.Fatalf("expected session, condition and report fields, got %+v", lowValidity.Fields)
	}
	for i, want := range []string{"AS-00007", "low_validity_reports", "rpt-7"} {
		if !strings.Contains(lowValidity.Fields[i].Text, want) {
			t.Errorf("field %d = %q, want it to contain %q", i, lowValidity.Fields[i].Text, want)
		}
	}

	catalog := msg.Blocks[7]
	if !strings.HasPrefix(catalog.Text.Text, "*Catalog*") || !strings.Contains(catalog.Text.Text, "[HIGH]") {
		t.Errorf("unexpected catalog section: %s", catalog.Text.Text)
	}
	if strings.Contains(catalog.Text.Text, "AS-0000") {
		t.Errorf("session alerts leaked into catalog section: %s", catalog.Text.Text)
	}
}

func TestSlackNotifier_SessionOnlyDigest(t *testing.T) {
	msg := buildDigest([]Alert{{Condition: "session_stalled", Severity: SeverityLow, SessionID: "AS-00001"}})
	for _, b := range msg.Blocks {
		if b.Text != nil && strings.HasPrefix(b.Text.Text, "*Catalog*") {
			t.Fatal("expected no catalog section without catalog alerts")
		}
	}
	if len(msg.Blocks) != 4 {
		t.Errorf("expected header, context, divider and section, got %d blocks", len(msg.Blocks))
	}
}

func TestSeveritySummary(t *testing.T) {
	got := severitySummary(map[AlertSeverity]int{SeverityLow: 2, SeverityHigh: 1})
	if got != "1 high, 2 low" {
		t.Errorf("severitySummary = %q", got)
	}
	if got := severitySummary(nil); got != "no severity" {
		t.Errorf("empty summary = %q", got)
	}
}

func TestSlackNotifier_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL).Notify(context.Background(), []Alert{{ID: "x", Severity: SeverityMedium}})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSlackNotifier_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewSlackNotifier(srv.URL).Notify(ctx, []Alert{{ID: "x"}}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestSeverityEmoji(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range []AlertSeverity{SeverityHigh, SeverityMedium, SeverityLow, "unknown"} {
		e := severityEmoji(s)
		if e == "" || seen[e] {
			t.Errorf("severity %q has empty or duplicate emoji %q", s, e)
		}
		seen[e] = true
	}
}

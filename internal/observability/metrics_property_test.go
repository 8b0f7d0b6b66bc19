package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var propEventTypes = []string{
	"session.started",
	"session.advanced",
	"session.finalized",
	"response.coerced",
	"trait.unknown",
	"pathway.activated",
	"selection.broadened",
	"selection.exhausted",
}

// Feature: observability, Property 8: Metrics counts match the number of
// events of each type.
func TestProperty8_MetricsMatchEventCounts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir, err := os.MkdirTemp("", "metrics-prop-test-*")
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = os.RemoveAll(dir) }()

		log, err := NewJSONLEventLog(filepath.Join(dir, "events.jsonl"))
		if err != nil {
			t.Fatal(err)
		}
		defer log.Close()

		n := rapid.IntRange(0, 60).Draw(t, "events")
		base := time.Now().UTC().Add(-time.Hour)
		counts := make(map[string]int)
		started := make(map[string]bool)
		answered := 0
		for i := 0; i < n; i++ {
			typ := rapid.SampledFrom(propEventTypes).Draw(t, "type")
			id := fmt.Sprintf("AS-%05d", rapid.IntRange(1, 5).Draw(t, "session"))
			data := map[string]any{"session_id": id}
			switch typ {
			case "session.started":
				if started[id] {
					typ = "session.advanced"
				} else {
					started[id] = true
					data["tier"] = "quick"
				}
			case "session.finalized":
				if !started[id] {
					typ = "trait.unknown"
				}
			case "pathway.activated":
				data["pathway_id"] = "adhd"
			}
			if typ == "session.advanced" {
				k := rapid.IntRange(1, 5).Draw(t, "answered")
				data["answered"] = k
				answered += k
			}
			counts[typ]++
			if err := log.Write(Event{Time: base.Add(time.Duration(i) * time.Second), Type: typ, Data: data}); err != nil {
				t.Fatal(err)
			}
		}

		m, err := NewMetricsCalculator(log).Calculate(base.Add(-time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if m.EventCount != n {
			t.Fatalf("event count %d, want %d", m.EventCount, n)
		}
		if m.SessionsStarted != counts["session.started"] {
			t.Fatalf("started %d, want %d", m.SessionsStarted, counts["session.started"])
		}
		if m.SessionsFinalized != counts["session.finalized"] {
			t.Fatalf("finalized %d, want %d", m.SessionsFinalized, counts["session.finalized"])
		}
		if m.ResponsesRecorded != answered {
			t.Fatalf("responses %d, want %d", m.ResponsesRecorded, answered)
		}
		if m.PathwayActivations["adhd"] != counts["pathway.activated"] {
			t.Fatalf("activations %d, want %d", m.PathwayActivations["adhd"], counts["pathway.activated"])
		}
		if m.CoercedResponses != counts["response.coerced"] || m.UnknownTraitKeys != counts["trait.unknown"] {
			t.Fatalf("coerced/unknown mismatch: %+v", m)
		}
		if m.CompletionRate < 0 {
			t.Fatalf("negative completion rate %v", m.CompletionRate)
		}
	})
}

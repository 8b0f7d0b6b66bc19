package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

func TestCompleteSessionIDs(t *testing.T) {
	lister := &fakeLister{sessions: []models.SessionSummary{
		{ID: "AS-00001", Tier: models.TierQuick, Phase: models.PhaseCore},
		{ID: "AS-00012", Tier: models.TierDeep, Phase: models.PhaseBranching},
	}}
	orig := SessionIndex
	defer func() { SessionIndex = orig }()
	SessionIndex = lister

	active := false
	got, directive := completeSessionIDs(&active)(answerCmd, nil, "AS-0001")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v", directive)
	}
	want := []string{"AS-00012\tdeep, branching"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("completions mismatch (-want +got):\n%s", diff)
	}
	if lister.filter.Completed == nil || *lister.filter.Completed {
		t.Errorf("filter = %+v, want active sessions only", lister.filter)
	}

	if got, _ := completeSessionIDs(nil)(statusCmd, []string{"AS-00001"}, ""); got != nil {
		t.Errorf("second argument should not complete, got %v", got)
	}

	SessionIndex = nil
	if got, _ := completeSessionIDs(nil)(statusCmd, nil, ""); got != nil {
		t.Errorf("nil index should give no completions, got %v", got)
	}
}

func TestCompleteTiers(t *testing.T) {
	got, _ := completeTiers(startCmd, nil, "")
	if len(got) != 3 || !strings.HasPrefix(got[0], "quick\t") {
		t.Errorf("completeTiers() = %v", got)
	}
}

func TestCompletionCmd_PrintsScripts(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		var out bytes.Buffer
		completionCmd.SetOut(&out)
		if err := runCompletion(completionCmd, []string{shell}); err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.Contains(out.String(), "aqe") {
			t.Errorf("%s script does not mention aqe", shell)
		}
	}
	completionCmd.SetOut(nil)

	if err := runCompletion(completionCmd, []string{"tcsh"}); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestInstallCompletion(t *testing.T) {
	home := t.TempDir()
	for _, shell := range []string{"bash", "zsh", "fish"} {
		target, err := installCompletion(home, shell)
		if err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.HasPrefix(target, home) {
			t.Errorf("%s target %q is outside home", shell, target)
		}
		info, err := os.Stat(target)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s completion file missing or empty: %v", shell, err)
		}
	}
	if filepath.Base(mustTarget(t, home, "zsh")) != "_aqe" {
		t.Error("zsh completion file should be named _aqe")
	}
	if _, err := installCompletion(home, "powershell"); err == nil {
		t.Error("powershell install should be rejected")
	}
}

func mustTarget(t *testing.T, home, shell string) string {
	t.Helper()
	target, err := completionTarget(home, shell)
	if err != nil {
		t.Fatal(err)
	}
	return target
}

package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// completeSessionIDs returns a completion function over stored session IDs.
// completed selects which sessions are offered; nil offers all of them. Only
// the first positional argument is completed.
func completeSessionIDs(completed *bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if SessionIndex == nil || len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		sessions, err := SessionIndex.ListSessions(models.SessionFilter{Completed: completed})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var ids []string
		for _, s := range sessions {
			if strings.HasPrefix(s.ID, toComplete) {
				ids = append(ids, s.ID+"\t"+string(s.Tier)+", "+string(s.Phase))
			}
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

func completeTiers(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.TierQuick) + "\tshortest assessment",
		string(models.TierStandard) + "\tbalanced assessment",
		string(models.TierDeep) + "\tlongest assessment",
	}, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	active, done := false, true
	answerCmd.ValidArgsFunction = completeSessionIDs(&active)
	finalizeCmd.ValidArgsFunction = completeSessionIDs(&active)
	statusCmd.ValidArgsFunction = completeSessionIDs(nil)
	reportCmd.ValidArgsFunction = completeSessionIDs(&done)
}

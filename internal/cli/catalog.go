package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/internal/catalog"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

var (
	catalogCategory string
	catalogTier     string
	catalogJSON     bool
	catalogSQLite   string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and manage the question catalog",
	Long: `Inspect and manage the question catalog.

The catalog is read from catalog.sqlite when set, otherwise from catalog.path,
otherwise the built-in seed catalog is used.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("catalog not initialized")
		}
		var f models.QuestionFilter
		if catalogCategory != "" {
			f.Categories = []string{catalogCategory}
		}
		if catalogTier != "" {
			f.Tiers = []models.QuestionTier{models.QuestionTier(catalogTier)}
		}
		qs, err := Catalog.Find(f)
		if err != nil {
			return fmt.Errorf("listing questions: %w", err)
		}

		out := cmd.OutOrStdout()
		if catalogJSON {
			return printJSON(out, qs)
		}
		snap := Catalog.Snapshot()
		fmt.Fprintf(out, "%d question(s) from %s (version %d)\n\n", len(qs), snap.Source, snap.Version)
		fmt.Fprintf(out, "  %-10s %-20s %-22s %-14s %-16s %s\n", "ID", "CATEGORY", "SUBCATEGORY", "TIER", "TYPE", "PRIORITY")
		for _, q := range qs {
			fmt.Fprintf(out, "  %-10s %-20s %-22s %-14s %-16s %.2f\n",
				q.ID, q.Category, q.Subcategory, q.Tier, q.ResponseType, q.BasePriority)
		}
		return nil
	},
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show question counts per category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("catalog not initialized")
		}
		snap := Catalog.Snapshot()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Catalog %s, version %d, loaded %s\n", snap.Source, snap.Version, snap.LoadedAt.Format("2006-01-02 15:04 UTC"))
		printCounts(out, fmt.Sprintf("Questions (%d)", snap.Len()), snap.CategoryCounts())
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <catalog.yaml>",
	Short: "Check a YAML catalog file without loading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := catalog.YAMLSource{Path: args[0]}.Load(commandContext(cmd))
		if err != nil {
			return err
		}
		if err := catalog.Validate(qs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d valid question(s)\n", args[0], len(qs))
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Import a YAML catalog into the SQLite catalog",
	Long: `Validate a YAML catalog and replace the contents of the SQLite catalog with
it. The target is --sqlite, or catalog.sqlite from the configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := catalogSQLite
		if target == "" {
			target = CatalogCfg.SQLitePath
		}
		if target == "" {
			return fmt.Errorf("no SQLite catalog configured (use --sqlite or set catalog.sqlite)")
		}

		ctx := commandContext(cmd)
		qs, err := catalog.YAMLSource{Path: args[0]}.Load(ctx)
		if err != nil {
			return err
		}
		if err := catalog.ImportToSQLite(ctx, target, qs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d question(s) into %s\n", len(qs), target)
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export <catalog.yaml>",
	Short: "Write the current catalog to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("catalog not initialized")
		}
		qs := Catalog.Snapshot().Questions()
		if err := catalog.WriteYAML(args[0], qs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d question(s) to %s\n", len(qs), args[0])
		return nil
	},
}

func init() {
	catalogListCmd.Flags().StringVar(&catalogCategory, "category", "", "Only list this category")
	catalogListCmd.Flags().StringVar(&catalogTier, "tier", "", "Only list this question tier")
	catalogListCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output as JSON")
	catalogImportCmd.Flags().StringVar(&catalogSQLite, "sqlite", "", "SQLite catalog to write")

	catalogCmd.AddCommand(catalogListCmd, catalogStatsCmd, catalogValidateCmd, catalogImportCmd, catalogExportCmd)
	rootCmd.AddCommand(catalogCmd)
}

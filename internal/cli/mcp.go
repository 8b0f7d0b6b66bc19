package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	aqemcp "github.com/valter-silva-au/adaptive-assessment/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the aqe MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the aqe MCP server on stdio",
	Long: `Start the aqe MCP server on stdio transport.

The server exposes assessments as MCP tools that AI assistants can call:
start_session, advance_session, finalize_session, get_session, get_report,
get_metrics, get_alerts.

While the server runs, the question catalog is reloaded every
catalog.refresh_interval so edits to the catalog file take effect without a
restart. A failed reload keeps the previous catalog.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session manager not initialized")
		}

		srv := aqemcp.NewServer(Sessions, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if Catalog != nil && CatalogCfg.RefreshInterval > 0 {
			go Catalog.Watch(ctx, CatalogCfg.RefreshInterval, func(err error) {
				// stdout carries the protocol; report on stderr.
				fmt.Fprintf(os.Stderr, "aqe: catalog refresh: %v\n", err)
			})
		}

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

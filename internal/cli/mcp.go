package cli

import (
	"github.com/huangang/basewatch/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve fleet statistics as MCP tools over stdio",
	Long: `Start an MCP server on stdin/stdout exposing list_units, unit_stats,
fleet_stats and unit_history. Reports are loaded once at startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, closeDB, err := openReports(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		return mcp.New(reports, Version).ServeStdio()
	},
}

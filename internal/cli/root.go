// Package cli contains the basewatchctl commands.
package cli

import (
	"fmt"
	"os"

	"github.com/huangang/basewatch/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	// Version is the current version of basewatchctl
	Version = "dev"

	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "basewatchctl",
	Short: "Operator tool for the basewatch report store",
	Long: `basewatchctl works directly against the basewatch database.

It imports report archives, prints unit and fleet statistics as YAML, exports
the fleet table to XLSX and serves the statistics to agents over MCP.

Examples:
  basewatchctl import reports.json
  basewatchctl stats --unit Alpha --start 2024-01-01
  basewatchctl export --out fleet.xlsx
  basewatchctl mcp`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// stdout carries command output and the MCP transport.
		level := "error"
		if verbose {
			level = "debug"
		}
		logger.InitWithWriter(level, os.Stderr)
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $CONFIG_PATH or config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging on stderr")

	rootCmd.AddCommand(initConfigCmd, importCmd, unitsCmd, statsCmd, exportCmd, mcpCmd)
}

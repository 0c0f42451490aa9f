package cli

import (
	"fmt"

	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/spf13/cobra"
)

var (
	statsUnit  string
	statsStart string
	statsEnd   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print unit or fleet statistics as YAML",
	Long: `Without --unit, prints every unit that reported in the window plus fleet
totals. With --unit, prints that unit's statistics. Dates are inclusive
YYYY-MM-DD; an omitted bound is open.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsUnit, "unit", "", "Unit name (default: whole fleet)")
	statsCmd.Flags().StringVar(&statsStart, "start", "", "Window start, YYYY-MM-DD")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "Window end, YYYY-MM-DD")
}

func runStats(cmd *cobra.Command, args []string) error {
	window, err := reporting.ParseDateRange(statsStart, statsEnd)
	if err != nil {
		return err
	}

	reports, closeDB, err := openReports(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()
	snapshot := reports.Reports()

	if statsUnit == "" {
		return printYAML(cmd.OutOrStdout(), reporting.BuildFleetContext(snapshot, window))
	}
	if _, ok := reporting.FindUnit(snapshot, statsUnit); !ok {
		return fmt.Errorf("unknown unit %q", statsUnit)
	}
	return printYAML(cmd.OutOrStdout(), reporting.ComputeStat(snapshot, statsUnit, window))
}

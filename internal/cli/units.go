package cli

import (
	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/spf13/cobra"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List units with report counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, closeDB, err := openReports(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		return printYAML(cmd.OutOrStdout(), reporting.ListUnits(reports.Reports()))
	},
}

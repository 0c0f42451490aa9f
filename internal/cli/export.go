package cli

import (
	"fmt"
	"os"

	"github.com/huangang/basewatch/internal/services"
	"github.com/spf13/cobra"
)

var (
	exportOut   string
	exportStart string
	exportEnd   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write fleet statistics to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default: fleet_<start>_<end>.xlsx)")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "Window start, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "Window end, YYYY-MM-DD")
}

func runExport(cmd *cobra.Command, args []string) error {
	reports, closeDB, err := openReports(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	stats, err := services.NewDashboardService(reports).GetStats(&services.DashboardStatsRequest{
		StartDate: exportStart,
		EndDate:   exportEnd,
	})
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = services.ExportFilename(stats.Window)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := services.WriteStatsWorkbook(f, stats); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d units)\n", out, len(stats.Units))
	return nil
}

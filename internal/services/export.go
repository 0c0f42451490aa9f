package services

import (
	"fmt"
	"io"

	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/xuri/excelize/v2"
)

const (
	ExportSheet       = "Fleet"
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeadings = []string{"Unité", "Rapports", "Satisfaction moyenne", "Carburant (j)", "Eau (j)", "Vivres (j)", "Dernier rapport"}

// ExportFilename names the workbook after its window, e.g. fleet_2024-01-01_2024-01-31.xlsx.
func ExportFilename(window reporting.DateRange) string {
	bound := func(d reporting.Date) string {
		if d.IsZero() {
			return "open"
		}
		return d.String()
	}
	return fmt.Sprintf("fleet_%s_%s.xlsx", bound(window.Start), bound(window.End))
}

// WriteStatsWorkbook writes one row per unit followed by a fleet totals row.
func WriteStatsWorkbook(w io.Writer, stats *DashboardResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return err
	}

	for i, h := range exportHeadings {
		if err := f.SetCellValue(ExportSheet, cellName(i, 1), h); err != nil {
			return err
		}
	}

	row := 2
	for _, u := range stats.Units {
		last := reporting.NotAvailable
		if u.LastReportDate != nil {
			last = u.LastReportDate.String()
		}
		values := []interface{}{u.UnitName, u.TotalReports, cellFloat(u.AvgSatisfaction),
			cellFloat(u.FuelDays), cellFloat(u.WaterDays), cellFloat(u.ProvisionDays), last}
		if err := setRow(f, row, values); err != nil {
			return err
		}
		row++
	}

	totals := []interface{}{"Total", stats.Totals.TotalReports, cellFloat(stats.Totals.AvgSatisfaction)}
	if err := setRow(f, row, totals); err != nil {
		return err
	}

	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	for col, v := range values {
		if err := f.SetCellValue(ExportSheet, cellName(col, row), v); err != nil {
			return err
		}
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

func cellFloat(v *float64) interface{} {
	if v == nil {
		return reporting.NotAvailable
	}
	return *v
}

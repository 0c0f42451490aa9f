package reporting

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// AllUnits is the UnitName of the stat returned by ComputeAll. It is a label
// only: ComputeStat treats every name, "*" included, as a literal unit.
const AllUnits = "*"

// NotAvailable is the display form of an absent numeric value.
const NotAvailable = "N/A"

// AggregateStat summarizes the reports of one unit (or of all units) inside a window.
// Satisfaction is averaged; supply levels are the point-in-time reading of the
// most recent report in the window. Nil numeric fields mean N/A.
type AggregateStat struct {
	UnitName        string   `json:"unitName"`
	AvgSatisfaction *float64 `json:"avgSatisfaction"`
	FuelDays        *float64 `json:"fuelDays"`
	WaterDays       *float64 `json:"waterDays"`
	ProvisionDays   *float64 `json:"provisionDays"`
	TotalReports    int      `json:"totalReports"`
	LastReportDate  *Date    `json:"lastReportDate"`
}

// SatisfactionLabel renders the average with one decimal, or N/A.
func (s AggregateStat) SatisfactionLabel() string {
	return formatOptional(s.AvgSatisfaction, 1)
}

// SupplyLabels renders fuel, water and provisions as whole days, or N/A.
func (s AggregateStat) SupplyLabels() (fuel, water, provisions string) {
	return formatOptional(s.FuelDays, 0), formatOptional(s.WaterDays, 0), formatOptional(s.ProvisionDays, 0)
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// ComputeStat aggregates the reports of unit whose date lies in window.
// An empty selection yields zero counts and N/A values, never an error.
func ComputeStat(reports []Report, unit string, window DateRange) AggregateStat {
	return computeStat(reports, unit, func(r *Report) bool { return r.UnitName == unit }, window)
}

// ComputeAll aggregates every report in window regardless of unit.
func ComputeAll(reports []Report, window DateRange) AggregateStat {
	return computeStat(reports, AllUnits, func(*Report) bool { return true }, window)
}

func computeStat(reports []Report, label string, selected func(*Report) bool, window DateRange) AggregateStat {
	stat := AggregateStat{UnitName: label}
	if window.Inverted() {
		return stat
	}

	var (
		sum    int64
		latest *Report
	)
	for i := range reports {
		r := &reports[i]
		if !selected(r) {
			continue
		}
		if !window.Contains(r.Date) {
			continue
		}
		stat.TotalReports++
		sum += int64(r.Satisfaction)
		if latest == nil || r.newerThan(*latest) {
			latest = r
		}
	}

	if stat.TotalReports == 0 {
		return stat
	}

	stat.AvgSatisfaction = roundedMean(decimal.NewFromInt(sum), stat.TotalReports)
	stat.FuelDays = latest.Fuel.Float()
	stat.WaterDays = latest.Water.Float()
	stat.ProvisionDays = latest.Provisions.Float()
	lastDate := latest.Date
	stat.LastReportDate = &lastDate
	return stat
}

// ComputeGlobal returns one stat per unit with reports in window, ordered by unit name.
func ComputeGlobal(reports []Report, window DateRange) []AggregateStat {
	if window.Inverted() {
		return []AggregateStat{}
	}
	seen := make(map[string]bool)
	var names []string
	for _, r := range reports {
		if !window.Contains(r.Date) || seen[r.UnitName] {
			continue
		}
		seen[r.UnitName] = true
		names = append(names, r.UnitName)
	}
	sort.Strings(names)

	stats := make([]AggregateStat, 0, len(names))
	for _, name := range names {
		stats = append(stats, ComputeStat(reports, name, window))
	}
	return stats
}

// FleetTotals rolls per-unit stats up to the fleet. AvgSatisfaction weighs every
// unit equally (mean of the per-unit averages), not every report.
type FleetTotals struct {
	TotalUnits      int      `json:"totalUnits"`
	TotalReports    int      `json:"totalReports"`
	AvgSatisfaction *float64 `json:"avgSatisfaction"`
}

// ComputeFleetTotals sums report counts and averages per-unit satisfaction.
func ComputeFleetTotals(stats []AggregateStat) FleetTotals {
	totals := FleetTotals{TotalUnits: len(stats)}
	sum := decimal.Zero
	rated := 0
	for _, s := range stats {
		totals.TotalReports += s.TotalReports
		if s.AvgSatisfaction != nil {
			sum = sum.Add(decimal.NewFromFloat(*s.AvgSatisfaction))
			rated++
		}
	}
	if rated > 0 {
		totals.AvgSatisfaction = roundedMean(sum, rated)
	}
	return totals
}

func roundedMean(sum decimal.Decimal, n int) *float64 {
	f, _ := sum.Div(decimal.NewFromInt(int64(n))).Round(1).Float64()
	return &f
}

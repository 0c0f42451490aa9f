package reporting

import (
	"sort"
	"time"
)

// UnitSummary is derived per unit on every read.
type UnitSummary struct {
	Name                string    `json:"name"`
	ReportCount         int       `json:"reportCount"`
	LastReportTimestamp time.Time `json:"lastReportTimestamp"`
}

// ListUnits groups reports by unit name, ordered by name. "Last report" follows
// creation order, not the subject date, since dates can be backdated.
func ListUnits(reports []Report) []UnitSummary {
	byName := make(map[string]*UnitSummary)
	for _, r := range reports {
		u, ok := byName[r.UnitName]
		if !ok {
			u = &UnitSummary{Name: r.UnitName}
			byName[r.UnitName] = u
		}
		u.ReportCount++
		if r.Timestamp.After(u.LastReportTimestamp) {
			u.LastReportTimestamp = r.Timestamp
		}
	}

	units := make([]UnitSummary, 0, len(byName))
	for _, u := range byName {
		units = append(units, *u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units
}

// FindUnit returns the summary for one unit.
func FindUnit(reports []Report, name string) (UnitSummary, bool) {
	u := UnitSummary{Name: name}
	for _, r := range reports {
		if r.UnitName != name {
			continue
		}
		u.ReportCount++
		if r.Timestamp.After(u.LastReportTimestamp) {
			u.LastReportTimestamp = r.Timestamp
		}
	}
	return u, u.ReportCount > 0
}

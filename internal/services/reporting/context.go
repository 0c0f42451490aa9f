package reporting

import (
	"encoding/json"
	"sort"
	"time"
)

// ContextEntry is one report as handed to the assistant. Photo bytes are left out;
// HasPhoto and the caption carry what a text model can use.
type ContextEntry struct {
	ID             ReportID       `json:"id"`
	Date           Date           `json:"date"`
	Timestamp      time.Time      `json:"timestamp"`
	Satisfaction   int            `json:"satisfaction"`
	Fuel           SupplyReading  `json:"fuel"`
	Water          SupplyReading  `json:"water"`
	Provisions     SupplyReading  `json:"provisions"`
	Armament       string         `json:"armament,omitempty"`
	CommanderNote  string         `json:"commanderNote,omitempty"`
	Forecast       string         `json:"forecast,omitempty"`
	PhotoCaption   string         `json:"photoCaption,omitempty"`
	HasPhoto       bool           `json:"hasPhoto"`
	Defibrillators Defibrillators `json:"defibrillators"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// UnitContext is the full, unfiltered history of one unit ordered by date.
// Its size is bounded only by the unit's report count; truncation is the
// transport's concern.
type UnitContext struct {
	Unit        string         `json:"unit"`
	ReportCount int            `json:"reportCount"`
	Reports     []ContextEntry `json:"reports"`
}

// FleetContext is the aggregate table for a window.
type FleetContext struct {
	Window DateRange       `json:"window"`
	Totals FleetTotals     `json:"totals"`
	Units  []AggregateStat `json:"units"`
}

// BuildUnitContext collects every report of unit regardless of date.
func BuildUnitContext(reports []Report, unit string) UnitContext {
	var selected []Report
	for _, r := range reports {
		if r.UnitName == unit {
			selected = append(selected, r)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[j].newerThan(selected[i]) })

	entries := make([]ContextEntry, 0, len(selected))
	for _, r := range selected {
		entries = append(entries, ContextEntry{
			ID:             r.ID,
			Date:           r.Date,
			Timestamp:      r.Timestamp,
			Satisfaction:   r.Satisfaction,
			Fuel:           r.Fuel,
			Water:          r.Water,
			Provisions:     r.Provisions,
			Armament:       r.Armament,
			CommanderNote:  r.CommanderNote,
			Forecast:       r.Forecast,
			PhotoCaption:   r.PhotoCaption,
			HasPhoto:       r.Photo != "",
			Defibrillators: r.Defibrillators,
			Warnings:       r.QualityWarnings(),
		})
	}
	return UnitContext{Unit: unit, ReportCount: len(entries), Reports: entries}
}

// BuildFleetContext packages the per-unit aggregate table for a window.
func BuildFleetContext(reports []Report, window DateRange) FleetContext {
	stats := ComputeGlobal(reports, window)
	return FleetContext{
		Window: window,
		Totals: ComputeFleetTotals(stats),
		Units:  stats,
	}
}

// JSON serializes a context payload with indentation, as sent to the assistant.
func (c UnitContext) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

func (c FleetContext) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

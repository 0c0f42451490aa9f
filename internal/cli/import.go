package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/huangang/basewatch/internal/services/reporting"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import a JSON array of reports",
	Long: `Import reports exported by the field client. Each entry uses the client's
field names (buildingName, date, satisfaction, fuel, water, provisions,
armament, commanderNote, photoCaption, previsionJ1, defibrillators, photo)
and goes through the same validation as the API. Invalid entries are
reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// clientReport is the report shape produced by the field client. Numbers may
// arrive as strings, and empty strings mean "not filled in".
type clientReport struct {
	BuildingName   string                  `json:"buildingName"`
	Date           string                  `json:"date"`
	Satisfaction   flexInt                 `json:"satisfaction"`
	Fuel           reporting.SupplyReading `json:"fuel"`
	Water          reporting.SupplyReading `json:"water"`
	Provisions     reporting.SupplyReading `json:"provisions"`
	Armament       string                  `json:"armament"`
	CommanderNote  string                  `json:"commanderNote"`
	PhotoCaption   string                  `json:"photoCaption"`
	PrevisionJ1    string                  `json:"previsionJ1"`
	Photo          string                  `json:"photo"`
	Defibrillators struct {
		Available flexInt `json:"available"`
		Total     flexInt `json:"total"`
	} `json:"defibrillators"`
}

func (r clientReport) draft() reporting.Draft {
	return reporting.Draft{
		UnitName:      r.BuildingName,
		Date:          r.Date,
		Satisfaction:  int(r.Satisfaction),
		Fuel:          r.Fuel,
		Water:         r.Water,
		Provisions:    r.Provisions,
		Armament:      r.Armament,
		CommanderNote: r.CommanderNote,
		Forecast:      r.PrevisionJ1,
		PhotoCaption:  r.PhotoCaption,
		Photo:         r.Photo,
		Defibrillators: reporting.Defibrillators{
			Available: int(r.Defibrillators.Available),
			Total:     int(r.Defibrillators.Total),
		},
	}
}

// flexInt accepts 7, "7" and "".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("not an integer: %s", raw)
	}
	*f = flexInt(n)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%s: expected a JSON array of reports: %w", args[0], err)
	}

	reports, closeDB, err := openReports(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	out := cmd.OutOrStdout()
	accepted, rejected := 0, 0
	for i, raw := range entries {
		var entry clientReport
		if err := json.Unmarshal(raw, &entry); err != nil {
			rejected++
			fmt.Fprintf(out, "#%d rejected: %v\n", i+1, err)
			continue
		}
		result, err := reports.Submit(cmd.Context(), entry.draft())
		if err != nil {
			rejected++
			fmt.Fprintf(out, "#%d rejected: %v\n", i+1, err)
			continue
		}
		accepted++
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "#%d warning: %s\n", i+1, w)
		}
	}

	fmt.Fprintf(out, "accepted: %d\nrejected: %d\n", accepted, rejected)
	return nil
}

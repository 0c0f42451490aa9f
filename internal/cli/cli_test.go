package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangang/basewatch/internal/config"
	"github.com/xuri/excelize/v2"
)

const sampleImport = `[
  {"buildingName": "Alpha", "date": "2024-01-02", "satisfaction": 8, "fuel": 2, "water": "5",
   "provisions": "", "previsionJ1": "RAS", "defibrillators": {"available": "", "total": 2}},
  {"buildingName": "Alpha", "date": "2024-01-03", "satisfaction": "6", "fuel": "4", "water": 7,
   "defibrillators": {"available": 3, "total": 2}},
  {"buildingName": "Bravo", "date": "2024-01-02", "satisfaction": 9},
  {"buildingName": "", "date": "2024-01-02", "satisfaction": 5},
  {"buildingName": "Charlie", "date": "02/01/2024", "satisfaction": 5}
]`

// setupCLI points the commands at a fresh sqlite file and resets flag state.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "basewatch.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	statsUnit, statsStart, statsEnd = "", "", ""
	exportOut, exportStart, exportEnd = "", "", ""
	verbose, initForce = false, false
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func importSample(t *testing.T, dir string) string {
	t.Helper()
	file := filepath.Join(dir, "reports.json")
	if err := os.WriteFile(file, []byte(sampleImport), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, dir, "import", file)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return out
}

func TestImport_CountsAcceptedAndRejected(t *testing.T) {
	dir := setupCLI(t)
	out := importSample(t, dir)

	if !strings.Contains(out, "accepted: 3") || !strings.Contains(out, "rejected: 2") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "#2 warning:") {
		t.Errorf("expected defibrillator warning for entry 2:\n%s", out)
	}
	if !strings.Contains(out, "#4 rejected:") || !strings.Contains(out, "#5 rejected:") {
		t.Errorf("expected entries 4 and 5 rejected:\n%s", out)
	}
}

func TestImport_NotAnArray(t *testing.T) {
	dir := setupCLI(t)
	file := filepath.Join(dir, "bad.json")
	os.WriteFile(file, []byte(`{"buildingName":"Alpha"}`), 0o600)

	if _, err := run(t, dir, "import", file); err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestUnits_PersistAcrossRuns(t *testing.T) {
	dir := setupCLI(t)
	importSample(t, dir)

	out, err := run(t, dir, "units")
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	if !strings.Contains(out, "name: Alpha") || !strings.Contains(out, "name: Bravo") {
		t.Errorf("units output missing names:\n%s", out)
	}
	if strings.Contains(out, "Charlie") {
		t.Errorf("rejected unit listed:\n%s", out)
	}
}

func TestStats_Unit(t *testing.T) {
	dir := setupCLI(t)
	importSample(t, dir)

	out, err := run(t, dir, "stats", "--unit", "Alpha")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"totalReports: 2", "avgSatisfaction: 7"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestStats_UnknownUnitAndBadDate(t *testing.T) {
	dir := setupCLI(t)
	importSample(t, dir)

	if _, err := run(t, dir, "stats", "--unit", "Zulu"); err == nil || !strings.Contains(err.Error(), "Zulu") {
		t.Errorf("expected unknown unit error, got %v", err)
	}
	statsUnit = ""
	if _, err := run(t, dir, "stats", "--start", "2024/01/01"); err == nil {
		t.Error("expected invalid date error")
	}
}

func TestStats_FleetWindow(t *testing.T) {
	dir := setupCLI(t)
	importSample(t, dir)

	out, err := run(t, dir, "stats", "--start", "2024-01-03", "--end", "2024-01-03")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Alpha") || strings.Contains(out, "Bravo") {
		t.Errorf("window not applied:\n%s", out)
	}
}

func TestExport_WritesWorkbook(t *testing.T) {
	dir := setupCLI(t)
	importSample(t, dir)
	target := filepath.Join(dir, "fleet.xlsx")

	out, err := run(t, dir, "export", "--out", target)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "2 units") {
		t.Errorf("unexpected output: %s", out)
	}

	f, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Fleet")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[1][0] != "Alpha" || rows[3][0] != "Total" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestInitConfig(t *testing.T) {
	dir := setupCLI(t)

	if _, err := run(t, dir, "init-config"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if _, err := run(t, dir, "init-config", "--force"); err != nil {
		t.Fatalf("init-config --force: %v", err)
	}

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" || cfg.RateLimit.SubmitBurst != 10 {
		t.Errorf("defaults not written: %+v", cfg)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"networth/internal/config"
)

const balancesCSV = `Account Name,Date,Balance,Currency,Ticker
A,2024-01-01,100,CAD,
B,2024-01-01,50,USD,
Broken,someday,1,CAD,
`

const valetJSON = `{
  "seriesDetail": {"FXUSDCAD": {"label": "USD/CAD"}},
  "observations": [{"d": "2024-01-01", "FXUSDCAD": {"v": "1.35"}}]
}`

// setupCLI isolates config lookups and returns a data dir for the CLI.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{"NETWORTH_DATA_DIR", "NETWORTH_DB_PATH", "NETWORTH_DISPLAY_CURRENCY", "NETWORTH_CATEGORY_DIR"} {
		t.Setenv(key, "")
	}
	t.Cleanup(func() { config.SetRuntimeDataDir("") })
	return filepath.Join(home, "data")
}

func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// seedCLI imports two balances and one USD/CAD rate.
func seedCLI(t *testing.T, dataDir string) {
	t.Helper()
	tmp := t.TempDir()
	out, err := runCLI(t, dataDir, "import", writeFile(t, filepath.Join(tmp, "b.csv"), balancesCSV))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 2 rows, skipped 1") {
		t.Fatalf("unexpected import output: %q", out)
	}
	if !strings.Contains(out, "row=4") {
		t.Fatalf("expected skipped row to be reported: %q", out)
	}

	out, err = runCLI(t, dataDir, "import-fx", writeFile(t, filepath.Join(tmp, "fx.json"), valetJSON))
	if err != nil {
		t.Fatalf("import-fx: %v", err)
	}
	if !strings.Contains(out, "imported 1 rates for USD/CAD") {
		t.Fatalf("unexpected import-fx output: %q", out)
	}
}

func TestInitRecordsDataDir(t *testing.T) {
	dataDir := setupCLI(t)

	out, err := runCLI(t, dataDir, "init", "--db-name", "mine.db")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, dataDir) {
		t.Fatalf("expected data dir in output, got %q", out)
	}
	if got := config.LoadUserConfig(); got.DBName != "mine.db" || !got.SetupComplete {
		t.Fatalf("unexpected saved config: %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "mine.db")); err == nil {
		t.Fatalf("init should not create the database")
	}
}

func TestImportAndConvert(t *testing.T) {
	dataDir := setupCLI(t)
	seedCLI(t, dataDir)

	if _, err := os.Stat(filepath.Join(dataDir, "finance.db")); err != nil {
		t.Fatalf("expected database in data dir: %v", err)
	}

	out, err := runCLI(t, dataDir, "convert", "50", "usd", "--date", "2024-01-01")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if strings.TrimSpace(out) != "$67.50" {
		t.Fatalf("unexpected conversion %q", out)
	}

	if _, err := runCLI(t, dataDir, "convert", "ten", "USD"); err == nil {
		t.Fatalf("expected invalid amount error")
	}
	if _, err := runCLI(t, dataDir, "convert", "1", "EUR", "CAD", "--date", "2024-01-01"); err == nil {
		t.Fatalf("expected missing rate error")
	}
}

func TestSeriesCommand(t *testing.T) {
	dataDir := setupCLI(t)
	seedCLI(t, dataDir)

	out, err := runCLI(t, dataDir, "series", "--now", "2024-03-01", "--names", "A,B,Missing")
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	for _, want := range []string{"A", "B", "2024-03-01 $100.00", "2024-03-01 $67.50", "no data: Missing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, dataDir, "--json", "series", "--now", "2024-03-01", "--names", "A")
	if err != nil {
		t.Fatalf("series json: %v", err)
	}
	var body struct {
		Currency string `json:"currency"`
		Window   struct {
			Series map[string][]any `json:"series"`
		} `json:"window"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode series json: %v\n%s", err, out)
	}
	if body.Currency != "CAD" || len(body.Window.Series["A"]) == 0 {
		t.Fatalf("unexpected series json: %+v", body)
	}

	if _, err := runCLI(t, dataDir, "series", "--timeframe", "2w"); err == nil {
		t.Fatalf("expected invalid timeframe error")
	}
}

func TestSeriesCommandCurrency(t *testing.T) {
	dataDir := setupCLI(t)
	seedCLI(t, dataDir)

	out, err := runCLI(t, dataDir, "series", "--now", "2024-03-01", "--names", "A,B", "--currency", "usd")
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	for _, want := range []string{"2024-03-01 $50.00", "2024-03-01 $74.07"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, dataDir, "--json", "series", "--now", "2024-03-01", "--names", "B", "--currency", "USD")
	if err != nil {
		t.Fatalf("series json: %v", err)
	}
	var body struct {
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode series json: %v\n%s", err, out)
	}
	if body.Currency != "USD" {
		t.Fatalf("expected USD, got %q", body.Currency)
	}

	if _, err := runCLI(t, dataDir, "series", "--currency", "XYZ"); err == nil {
		t.Fatalf("expected unknown currency error")
	}

	writeFile(t, filepath.Join(dataDir, "config", "investing.txt"), "A\nB\n")
	out, err = runCLI(t, dataDir, "breakdown", "investing", "--date", "2024-01-01", "--currency", "USD")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if !strings.Contains(out, "$50.00") || !strings.Contains(out, "$124.07") {
		t.Fatalf("expected USD breakdown, got:\n%s", out)
	}
}

func TestBreakdownCommand(t *testing.T) {
	dataDir := setupCLI(t)
	seedCLI(t, dataDir)

	if _, err := runCLI(t, dataDir, "breakdown", "investing", "--date", "2024-01-01"); err == nil {
		t.Fatalf("expected error for unconfigured category")
	}

	writeFile(t, filepath.Join(dataDir, "config", "investing.txt"), "A\nB\n")
	out, err := runCLI(t, dataDir, "breakdown", "investing", "--date", "2024-01-01")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected two entries and a total, got:\n%s", out)
	}
	if !strings.Contains(lines[0], "A") || !strings.Contains(lines[0], "$100.00") {
		t.Fatalf("expected largest entry first, got %q", lines[0])
	}
	if !strings.Contains(lines[2], "total") || !strings.Contains(lines[2], "$167.50") {
		t.Fatalf("unexpected total line %q", lines[2])
	}

	if _, err := runCLI(t, dataDir, "breakdown", "savings"); err == nil {
		t.Fatalf("expected unknown category error")
	}
}

func TestUnknownLogLevel(t *testing.T) {
	dataDir := setupCLI(t)
	if _, err := runCLI(t, dataDir, "--log-level", "loud", "series"); err == nil {
		t.Fatalf("expected unknown log level error")
	}
}

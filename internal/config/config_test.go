package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skalibog/genetrader/internal/brkga"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Backtest.InitialBalance != 10000 || cfg.Backtest.WarmupCandles != 250 || cfg.Backtest.Divisions != 12 {
		t.Fatalf("unexpected backtest defaults: %+v", cfg.Backtest)
	}
	if cfg.Backtest.Slippage != 0.005 || cfg.Backtest.Fee != 0.02 {
		t.Fatalf("unexpected cost defaults: %+v", cfg.Backtest)
	}
	o := cfg.Optimizer
	if o.Seed != 18988547 || o.PopulationSize != 1000 || o.MaxGenerations != 100 ||
		o.EliteFraction != 0.1 || o.MutantFraction != 0.3 || o.ElitismBias != 0.6 {
		t.Fatalf("unexpected optimizer defaults: %+v", o)
	}
	if cfg.Data.Source != "csv" || cfg.Log.Level != "info" || cfg.Download.Limit != 1500 {
		t.Fatalf("unexpected defaults: %+v %+v %+v", cfg.Data, cfg.Log, cfg.Download)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data:
  csv: testdata/ADAUSDT-30m.csv
  symbol: ADAUSDT
  interval: 30m
backtest:
  divisions: 6
  fee: 0.0004
optimizer:
  seed: 1223
  population_size: 200
  workers: 4
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Data.Symbol != "ADAUSDT" || cfg.Backtest.Divisions != 6 || cfg.Backtest.Fee != 0.0004 {
		t.Fatalf("file values were not applied: %+v %+v", cfg.Data, cfg.Backtest)
	}
	if cfg.Backtest.Slippage != 0.005 || cfg.Optimizer.MaxGenerations != 100 {
		t.Fatalf("defaults must fill the gaps: %+v %+v", cfg.Backtest, cfg.Optimizer)
	}

	engine := cfg.Backtest.Engine()
	if engine.Divisions != 6 || engine.InitialBalance != 10000 {
		t.Fatalf("unexpected engine config: %+v", engine)
	}
	opt := cfg.Optimizer.BRKGA(36)
	if opt.ChromosomeSize != 36 || opt.Workers != 4 || opt.PopulationSize != 200 {
		t.Fatalf("unexpected optimizer config: %+v", opt)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("backtest:\n  divisons: 3\n")); err == nil {
		t.Fatalf("expected an error for a misspelled field")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`
backtest:
  divisions: 1
  initial_balance: -5
data:
  source: ftp
log:
  level: loud
`))
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, field := range []string{"Divisions", "InitialBalance", "Source", "Level"} {
		if !strings.Contains(msg, field) {
			t.Fatalf("expected %s in %q", field, msg)
		}
	}
}

func TestValidateOptimizerProportions(t *testing.T) {
	_, err := Parse([]byte(`
optimizer:
  elite_fraction: 0.6
  mutant_fraction: 0.5
`))
	if !errors.Is(err, brkga.ErrInvalidConfig) {
		t.Fatalf("expected brkga.ErrInvalidConfig, got %v", err)
	}
}

func TestValidateInfluxSource(t *testing.T) {
	if _, err := Parse([]byte("data:\n  source: influx\n")); err == nil {
		t.Fatalf("influx source without storage must fail")
	}
	cfg, err := Parse([]byte("data:\n  source: influx\nstorage:\n  enabled: true\n  token: secret\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.URL != "http://localhost:8086" || cfg.Storage.Bucket != "candles" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if _, err := Parse([]byte("storage:\n  enabled: true\n")); err == nil {
		t.Fatalf("enabled storage without token must fail")
	}
}

func TestDownloadPeriod(t *testing.T) {
	d := Default().Download
	d.Start, d.End = "2021-01-01", "2021-02-01"
	start, end, err := d.Period()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end.Sub(start).Hours() != 31*24 {
		t.Fatalf("unexpected period %s - %s", start, end)
	}

	d.Start, d.End = "2021-02-01", "2021-01-01"
	if _, _, err := d.Period(); err == nil {
		t.Fatalf("expected an error for an inverted period")
	}
	d.Start = "01.02.2021"
	if _, _, err := d.Period(); err == nil {
		t.Fatalf("expected an error for a bad date")
	}
}

func TestLoggerOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.Logger()
	if !opts.Console || !opts.Truncate || opts.JSONFile != "app.json.log" {
		t.Fatalf("unexpected logger options: %+v", opts)
	}
	cfg.UI.Enabled = true
	if cfg.Logger().Console {
		t.Fatalf("console output must be off while the dashboard is shown")
	}
}

func TestAnalysisSection(t *testing.T) {
	a := Default().Analysis
	if a.Skip || a.RSIPeriod != 14 || a.SMAPeriod != 50 || a.MACDSlow != 26 || a.TrendShare != 0.6 {
		t.Fatalf("unexpected analysis defaults: %+v", a)
	}

	_, err := Parse([]byte(`
analysis:
  macd_fast: 30
  macd_slow: 20
`))
	if err == nil || !strings.Contains(err.Error(), "MACDSlow") {
		t.Fatalf("expected MACDSlow error, got %v", err)
	}
}

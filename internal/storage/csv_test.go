package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skalibog/genetrader/pkg/models"
)

const header = "open_time,open,high,low,close,volume,close_time,quote_asset_volume,num_trades\n"

func TestReadCandles(t *testing.T) {
	data := header +
		"1609459200000,736.42,739.00,729.33,734.07,27932.69,1609459499999,20523440.11,11233\n" +
		"1609459500000,734.08,737.50,733.10,736.00,15000,1609459799999,11034455.5,8011\n"

	candles, err := ReadCandles(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	want := models.Candle{
		OpenTime: 1609459200000, Open: 736.42, High: 739, Low: 729.33, Close: 734.07,
		Volume: 27932.69, CloseTime: 1609459499999, QuoteAssetVolume: 20523440.11, NumTrades: 11233,
	}
	if candles[0] != want {
		t.Fatalf("expected %+v, got %+v", want, candles[0])
	}
	if candles[1].Volume != 15000 || candles[1].NumTrades != 8011 {
		t.Fatalf("unexpected second candle: %+v", candles[1])
	}
}

func TestReadCandlesRejectsMalformedRecords(t *testing.T) {
	good := "1,1,1,1,1,1,2,1,1\n"
	cases := map[string]string{
		"empty":          "",
		"header only":    header,
		"missing field":  header + good + "3,1,1,1,1,1,4,1\n",
		"text price":     header + "1,abc,1,1,1,1,2,1,1\n",
		"nan price":      header + "1,NaN,1,1,1,1,2,1,1\n",
		"inf volume":     header + "1,1,1,1,1,+Inf,2,1,1\n",
		"empty close":    header + "1,1,1,1,,1,2,1,1\n",
		"float time":     header + "1.5,1,1,1,1,1,2,1,1\n",
		"out of order":   header + "5,1,1,1,1,1,6,1,1\n" + good,
		"duplicate time": header + good + good,
	}
	for name, data := range cases {
		candles, err := ReadCandles(strings.NewReader(data))
		if !errors.Is(err, ErrMalformedData) {
			t.Fatalf("%s: expected ErrMalformedData, got %v", name, err)
		}
		if candles != nil {
			t.Fatalf("%s: partial series returned", name)
		}
	}
}

func TestWriteAndLoadCandlesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ETHUSDT-5m.csv")
	candles := []models.Candle{
		{OpenTime: 1000, Open: 1.5, High: 2.25, Low: 1.125, Close: 2, Volume: 10, CloseTime: 1999, QuoteAssetVolume: 20, NumTrades: 3},
		{OpenTime: 2000, Open: 2, High: 2.5, Low: 1.75, Close: 2.1, Volume: 0.001, CloseTime: 2999, QuoteAssetVolume: 0.0021, NumTrades: 1},
	}
	if err := WriteCandlesCSV(path, candles); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadCandlesCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != len(candles) {
		t.Fatalf("expected %d candles, got %d", len(candles), len(loaded))
	}
	for i := range candles {
		if loaded[i] != candles[i] {
			t.Fatalf("candle %d: expected %+v, got %+v", i, candles[i], loaded[i])
		}
	}
}

func TestLoadCandlesCSVMissingFile(t *testing.T) {
	if _, err := LoadCandlesCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

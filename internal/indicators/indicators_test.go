package indicators

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/genetrader/pkg/models"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func candle(high, low, close float64) *models.Candle {
	return &models.Candle{High: high, Low: low, Close: close}
}

func TestSMANext(t *testing.T) {
	sma := NewSMA(4)
	inputs := []float64{4, 5, 6, 6, 6, 6, 2}
	want := []float64{4, 4.5, 5, 5.25, 5.75, 6, 5}
	for i, v := range inputs {
		if got := sma.Next(v); got != want[i] {
			t.Fatalf("step %d: expected %.4f, got %.4f", i, want[i], got)
		}
	}
}

func TestSMAMinMax(t *testing.T) {
	sma := NewSMA(3)
	sma.Next(3)
	sma.Next(1)
	sma.Next(5)
	if sma.Min() != 1 || sma.Max() != 5 {
		t.Fatalf("expected min=1 max=5, got min=%.2f max=%.2f", sma.Min(), sma.Max())
	}

	sma.Next(15)
	if sma.Max() != 15 {
		t.Fatalf("expected max=15, got %.2f", sma.Max())
	}
	sma.Next(31)
	if sma.Min() != 5 || sma.Max() != 31 {
		t.Fatalf("expected min=5 max=31, got min=%.2f max=%.2f", sma.Min(), sma.Max())
	}
	sma.Next(11)
	if sma.Min() != 11 || sma.Max() != 31 {
		t.Fatalf("expected min=11 max=31, got min=%.2f max=%.2f", sma.Min(), sma.Max())
	}
}

func TestSMAMinMaxBeforeWindowFills(t *testing.T) {
	sma := NewSMA(10)
	sma.Next(7)
	sma.Next(9)
	if sma.Min() != 7 {
		t.Fatalf("partial window must ignore empty slots, got min=%.2f", sma.Min())
	}
	if sma.Max() != 9 {
		t.Fatalf("expected max=9, got %.2f", sma.Max())
	}
}

func TestSMAWindowMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for _, period := range []int{1, 2, 5, 17} {
		sma := NewSMA(period)
		var seen []float64
		for i := 0; i < 300; i++ {
			v := rng.Float64()*200 - 100
			seen = append(seen, v)
			sma.Next(v)

			from := len(seen) - period
			if from < 0 {
				from = 0
			}
			lo, hi := seen[from], seen[from]
			for _, x := range seen[from:] {
				lo = math.Min(lo, x)
				hi = math.Max(hi, x)
			}
			if sma.Min() != lo || sma.Max() != hi {
				t.Fatalf("period %d step %d: expected [%.6f, %.6f], got [%.6f, %.6f]",
					period, i, lo, hi, sma.Min(), sma.Max())
			}
		}
	}
}

func TestSMAAgreesWithTalib(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	const period = 14
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + rng.Float64()*10
	}

	refAvg := talib.Sma(closes, period)
	refMax := talib.Max(closes, period)
	refMin := talib.Min(closes, period)

	sma := NewSMA(period)
	for i, c := range closes {
		got := sma.Next(c)
		if i < period-1 {
			continue
		}
		if math.Abs(got-refAvg[i]) > 1e-9 {
			t.Fatalf("index %d: sma %.10f, talib %.10f", i, got, refAvg[i])
		}
		if sma.Max() != refMax[i] || sma.Min() != refMin[i] {
			t.Fatalf("index %d: window [%.6f, %.6f], talib [%.6f, %.6f]",
				i, sma.Min(), sma.Max(), refMin[i], refMax[i])
		}
	}
}

func TestSMAReset(t *testing.T) {
	sma := NewSMA(3)
	sma.Next(10)
	sma.Next(20)
	sma.Reset()
	if got := sma.Next(4); got != 4 {
		t.Fatalf("expected 4 after reset, got %.2f", got)
	}
	if sma.Min() != 4 || sma.Max() != 4 {
		t.Fatalf("expected window [4, 4] after reset, got [%.2f, %.2f]", sma.Min(), sma.Max())
	}
}

func TestEMANext(t *testing.T) {
	ema := NewEMA(3)
	inputs := []float64{2, 5, 1, 6.25}
	want := []float64{2, 3.5, 2.25, 4.25}
	for i, v := range inputs {
		if got := ema.Next(v); got != want[i] {
			t.Fatalf("step %d: expected %.4f, got %.4f", i, want[i], got)
		}
	}
}

func TestEMARecurrence(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 5))
	ema := NewEMA(9)
	first := rng.Float64() * 50
	if got := ema.Next(first); got != first {
		t.Fatalf("first output must equal first input: %.6f vs %.6f", got, first)
	}
	prev := first
	k := 2.0 / 10.0
	for i := 0; i < 100; i++ {
		in := rng.Float64() * 50
		got := ema.Next(in)
		want := k*in + (1-k)*prev
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("step %d: expected %.10f, got %.10f", i, want, got)
		}
		prev = got
	}
}

func TestRSINext(t *testing.T) {
	rsi := NewRSI(3)
	if got := rsi.Next(10); got != 50 {
		t.Fatalf("expected 50 for the seed sample, got %.4f", got)
	}
	for _, step := range []struct {
		in   float64
		want float64
	}{
		{10.5, 86},
		{10, 35},
		{9.5, 16},
	} {
		if got := math.Round(rsi.Next(step.in)); got != step.want {
			t.Fatalf("input %.2f: expected %.0f, got %.0f", step.in, step.want, got)
		}
	}
}

func TestTrueRange(t *testing.T) {
	tr := NewTrueRange()
	if got := tr.Next(candle(10, 7.5, 9)); got != 2.5 {
		t.Fatalf("first candle must be high-low, got %.4f", got)
	}
	if got := tr.Next(candle(11, 9, 9.5)); got != 2 {
		t.Fatalf("expected 2, got %.4f", got)
	}
	if got := tr.Next(candle(9, 5, 8)); got != 4.5 {
		t.Fatalf("expected 4.5, got %.4f", got)
	}
}

func TestTrueRangeValues(t *testing.T) {
	tr := NewTrueRange()
	if got := tr.NextValue(2.5); got != 0 {
		t.Fatalf("expected 0, got %.4f", got)
	}
	if got := tr.NextValue(3.6); math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("expected 1.1, got %.6f", got)
	}
	if got := tr.NextValue(3.3); math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("expected 0.3, got %.6f", got)
	}
}

func TestTrueRangeAgreesWithTalib(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 1))
	n := 100
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += rng.Float64()*4 - 2
		lows[i] = price - rng.Float64()*3
		highs[i] = price + rng.Float64()*3
		closes[i] = lows[i] + (highs[i]-lows[i])*rng.Float64()
	}
	ref := talib.TRange(highs, lows, closes)

	tr := NewTrueRange()
	for i := 0; i < n; i++ {
		got := tr.Next(candle(highs[i], lows[i], closes[i]))
		if i == 0 {
			if got != highs[0]-lows[0] {
				t.Fatalf("first true range must be high-low, got %.6f", got)
			}
			continue
		}
		if math.Abs(got-ref[i]) > 1e-9 {
			t.Fatalf("index %d: got %.8f, talib %.8f", i, got, ref[i])
		}
	}
}

func TestATRNext(t *testing.T) {
	atr := NewATR(3)
	want := []float64{2.5, 2.25, 3.375}
	candles := []*models.Candle{candle(10, 7.5, 9), candle(11, 9, 9.5), candle(9, 5, 8)}
	for i, c := range candles {
		if got := atr.Next(c); got != want[i] {
			t.Fatalf("step %d: expected %.4f, got %.4f", i, want[i], got)
		}
	}

	atr.Reset()
	if got := atr.Next(candles[1]); got != 2 {
		t.Fatalf("after reset the first candle must be high-low, got %.4f", got)
	}
}

func TestMACDNext(t *testing.T) {
	macd := NewMACD(3, 6, 4)
	steps := []struct {
		in                   float64
		macd, signal, hist float64
	}{
		{2.0, 0, 0, 0},
		{3.0, 0.21, 0.09, 0.13},
		{4.2, 0.52, 0.26, 0.26},
		{7.0, 1.15, 0.62, 0.54},
		{6.7, 1.15, 0.83, 0.32},
		{6.5, 0.94, 0.87, 0.07},
	}
	for i, s := range steps {
		out := macd.Next(s.in)
		if round2(out.MACD) != s.macd || round2(out.Signal) != s.signal || round2(out.Histogram) != s.hist {
			t.Fatalf("step %d: expected (%.2f, %.2f, %.2f), got (%.2f, %.2f, %.2f)",
				i, s.macd, s.signal, s.hist, round2(out.MACD), round2(out.Signal), round2(out.Histogram))
		}
	}
	if macd.Value() != macd.Last().Signal {
		t.Fatalf("Value must report the signal line")
	}
}

func TestIndicatorNames(t *testing.T) {
	for _, tc := range []struct {
		ind  Indicator
		want string
	}{
		{NewSMA(5), "SMA(5)"},
		{NewEMA(7), "EMA(7)"},
		{NewRSI(16), "RSI(16)"},
		{NewATR(8), "ATR(8)"},
		{NewMACD(13, 30, 10), "MACD(13, 30, 10)"},
		{NewTrueRange(), "TRUE_RANGE()"},
	} {
		if got := tc.ind.String(); got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
}

func TestPeriodsClampToOne(t *testing.T) {
	if NewSMA(0).Period() != 1 || NewEMA(-3).Period() != 1 || NewRSI(0).Period() != 1 {
		t.Fatalf("non-positive periods must be clamped to 1")
	}
}

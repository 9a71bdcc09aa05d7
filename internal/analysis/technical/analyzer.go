package technical

import (
	"errors"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/genetrader/internal/backtest"
	"github.com/skalibog/genetrader/internal/config"
	"github.com/skalibog/genetrader/pkg/logger"
	"github.com/skalibog/genetrader/pkg/models"
	"go.uber.org/zap"
)

// ErrNotEnoughData диапазон короче самого длинного индикатора
var ErrNotEnoughData = errors.New("недостаточно свечей для анализа")

// Regime характер рынка на диапазоне
type Regime string

const (
	RegimeUp   Regime = "рост"
	RegimeDown Regime = "падение"
	RegimeFlat Regime = "флэт"
)

// Profile сводка по одному диапазону свечей
type Profile struct {
	Mode    backtest.Mode
	Index   int
	From    time.Time
	To      time.Time
	Candles int

	// Return изменение цены закрытия за диапазон, доля
	Return float64
	// Volatility средний ATR относительно средней цены
	Volatility float64
	RSI        float64
	// AboveSMA доля свечей, закрывшихся выше SMA
	AboveSMA float64
	// MACDBullish доля свечей, где MACD выше сигнальной линии
	MACDBullish float64
	Regime      Regime
}

// Analyzer считает рыночный профиль диапазонов обучения и валидации
type Analyzer struct {
	config config.TechnicalConfig
}

// NewAnalyzer создает новый анализатор технических индикаторов
func NewAnalyzer(cfg config.TechnicalConfig) *Analyzer {
	return &Analyzer{config: cfg}
}

// minCandles минимальная длина ряда, на которой у всех индикаторов есть значения
func (a *Analyzer) minCandles() int {
	return max(
		a.config.SMAPeriod,
		a.config.RSIPeriod+1,
		a.config.ATRPeriod+1,
		a.config.MACDSlow+a.config.MACDSignal-1,
	)
}

// Analyze считает профиль ряда свечей
func (a *Analyzer) Analyze(candles []models.Candle) (Profile, error) {
	if len(candles) < a.minCandles() {
		return Profile{}, fmt.Errorf("%w: %d из %d", ErrNotEnoughData, len(candles), a.minCandles())
	}

	// Подготавливаем данные для расчета индикаторов
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	first, last := candles[0], candles[len(candles)-1]
	p := Profile{
		From:    first.OpenedAt(),
		To:      last.ClosedAt(),
		Candles: len(candles),
	}
	if first.Close != 0 {
		p.Return = last.Close/first.Close - 1
	}

	// ATR к средней цене за то же окно
	atr := talib.Atr(highs, lows, closes, a.config.ATRPeriod)
	meanClose := mean(closes[a.config.ATRPeriod:])
	if meanClose != 0 {
		p.Volatility = mean(atr[a.config.ATRPeriod:]) / meanClose
	}

	rsi := talib.Rsi(closes, a.config.RSIPeriod)
	p.RSI = mean(rsi[a.config.RSIPeriod:])

	sma := talib.Sma(closes, a.config.SMAPeriod)
	from := a.config.SMAPeriod - 1
	p.AboveSMA = share(closes[from:], sma[from:])

	macd, signal, _ := talib.Macd(closes, a.config.MACDFast, a.config.MACDSlow, a.config.MACDSignal)
	from = a.config.MACDSlow + a.config.MACDSignal - 2
	p.MACDBullish = share(macd[from:], signal[from:])

	p.Regime = a.regime(p)
	return p, nil
}

// regime тренд определяется по доле свечей над SMA
func (a *Analyzer) regime(p Profile) Regime {
	switch {
	case p.AboveSMA >= a.config.TrendShare:
		return RegimeUp
	case p.AboveSMA <= 1-a.config.TrendShare:
		return RegimeDown
	default:
		return RegimeFlat
	}
}

// ProfileRanges считает профиль каждого диапазона; слишком короткие пропускаются
func (a *Analyzer) ProfileRanges(candles []models.Candle, mode backtest.Mode, ranges []backtest.Range) []Profile {
	profiles := make([]Profile, 0, len(ranges))
	for i, r := range ranges {
		p, err := a.Analyze(candles[r.Start:r.End])
		if err != nil {
			logger.Debug("Диапазон пропущен при анализе",
				zap.Stringer("mode", mode),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		p.Mode = mode
		p.Index = i
		profiles = append(profiles, p)
	}
	return profiles
}

// Summary сколько диапазонов каждого режима
func Summary(profiles []Profile) map[Regime]int {
	counts := make(map[Regime]int, 3)
	for _, p := range profiles {
		counts[p.Regime]++
	}
	return counts
}

// LogProfiles пишет профили в лог
func LogProfiles(log *zap.Logger, profiles []Profile) {
	for _, p := range profiles {
		log.Info("Профиль диапазона",
			zap.Stringer("mode", p.Mode),
			zap.Int("index", p.Index),
			zap.Time("с", p.From),
			zap.Time("по", p.To),
			zap.Int("свечей", p.Candles),
			zap.String("режим", string(p.Regime)),
			zap.Float64("доходность", p.Return),
			zap.Float64("волатильность", p.Volatility),
			zap.Float64("rsi", p.RSI),
			zap.Float64("над_sma", p.AboveSMA),
			zap.Float64("macd_бычий", p.MACDBullish))
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// share доля позиций, где a[i] > b[i]
func share(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	above := 0
	for i := range a {
		if a[i] > b[i] {
			above++
		}
	}
	return float64(above) / float64(len(a))
}

package backtest

import (
	"fmt"

	"github.com/skalibog/genetrader/pkg/logger"
	"github.com/skalibog/genetrader/pkg/models"
	"go.uber.org/zap"
)

// Mode выбирает группу диапазонов для прогона
type Mode int

const (
	Training Mode = iota
	Validation
)

func (m Mode) String() string {
	if m == Validation {
		return "validation"
	}
	return "training"
}

// Config параметры симуляции
type Config struct {
	Divisions      int
	Slippage       float64
	Fee            float64
	InitialBalance float64
	WarmupCandles  int
}

// Report подробный итог прогона стратегии
type Report struct {
	Mode         Mode
	Fitness      float64
	Profit       float64
	TradesOpened int
	Closed       map[models.CloseReason]int
	// LeftOpen сделки, которые так и не закрылись до конца своего диапазона
	LeftOpen int
	FeesPaid float64
	Ranges   int
	// Balances баланс на конец каждого диапазона
	Balances []float64
}

// Engine прогоняет стратегию по свечам. Свечи только читаются,
// поэтому один Engine безопасно использовать из нескольких горутин.
type Engine struct {
	candles    []models.Candle
	training   []Range
	validation []Range
	cfg        Config
}

// NewEngine разбивает ряд на диапазоны: четные идут в обучение, нечетные в валидацию
func NewEngine(candles []models.Candle, cfg Config) (*Engine, error) {
	if cfg.Slippage < 0 || cfg.Fee < 0 {
		return nil, fmt.Errorf("%w: проскальзывание и комиссия не могут быть отрицательными", ErrInvalidConfig)
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("%w: начальный баланс должен быть положительным", ErrInvalidConfig)
	}
	if cfg.WarmupCandles < 0 {
		return nil, fmt.Errorf("%w: количество свечей прогрева не может быть отрицательным", ErrInvalidConfig)
	}

	ranges, err := SplitRanges(len(candles), cfg.Divisions)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		candles:    candles,
		cfg:        cfg,
		training:   make([]Range, 0, len(ranges)/2+1),
		validation: make([]Range, 0, len(ranges)/2),
	}
	for i, r := range ranges {
		if i%2 == 0 {
			e.training = append(e.training, r)
		} else {
			e.validation = append(e.validation, r)
		}
	}

	if len(ranges) > 0 && ranges[0].Len() <= cfg.WarmupCandles {
		logger.Warn("Диапазон не длиннее прогрева, торговли в нем не будет",
			zap.Int("длина_диапазона", ranges[0].Len()),
			zap.Int("прогрев", cfg.WarmupCandles))
	}
	logger.Debug("Свечи разбиты на диапазоны",
		zap.Int("свечей", len(candles)),
		zap.Int("обучение", len(e.training)),
		zap.Int("валидация", len(e.validation)))

	return e, nil
}

func (e *Engine) Ranges(mode Mode) []Range {
	if mode == Validation {
		return e.validation
	}
	return e.training
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Run прогоняет стратегию и возвращает фитнес
func (e *Engine) Run(mode Mode, strategy Strategy) float64 {
	return e.Simulate(mode, strategy).Fitness
}

// Simulate прогоняет стратегию по всем диапазонам режима.
// Если не открылось ни одной сделки, фитнес равен минус начальному балансу.
func (e *Engine) Simulate(mode Mode, strategy Strategy) Report {
	report := Report{
		Mode:   mode,
		Closed: make(map[models.CloseReason]int, 4),
	}

	for _, r := range e.Ranges(mode) {
		e.simulateRange(r, strategy, &report)
		strategy.Reset()
		report.Ranges++
	}

	report.Fitness = report.Profit
	if report.TradesOpened == 0 {
		report.Fitness = -e.cfg.InitialBalance
	}
	return report
}

func (e *Engine) simulateRange(r Range, strategy Strategy, report *Report) {
	balance := e.cfg.InitialBalance
	var trade *Trade // nil означает, что сделки нет

	// прогрев индикаторов без торговли
	tradingStart := r.Start + e.cfg.WarmupCandles
	if tradingStart > r.End {
		tradingStart = r.End
	}
	for i := r.Start; i < tradingStart; i++ {
		strategy.NewCandle(&e.candles[i])
	}

	for i := tradingStart; i < r.End; i++ {
		candle := &e.candles[i]
		strategy.NewCandle(candle)

		if trade == nil {
			signal, ok := strategy.ShouldStartTrade()
			if !ok {
				continue
			}
			debit := strategy.PercentageAmountPerTrade() * balance
			trade = OpenTrade(signal.Direction, debit/candle.Close, candle,
				strategy.Leverage(), e.cfg.Slippage, e.cfg.Fee)
			trade.SetTakeProfit(signal.TakeProfit)
			trade.SetStopLoss(signal.StopLoss)
			balance -= debit
			report.TradesOpened++
			continue
		}

		var result float64
		switch {
		case trade.IsLiquidationReached(candle):
			result = trade.CloseOnLiquidation(candle)
			balance += result
		case trade.IsStopLossReached(candle):
			result = trade.CloseOnStopLoss(candle)
			balance += result
			balance -= trade.TotalFeePaid
		case trade.IsTakeProfitReached(candle):
			result = trade.CloseOnTakeProfit(candle)
			balance += result
			balance -= trade.TotalFeePaid
		default:
			continue
		}

		report.Profit += result
		report.FeesPaid += trade.TotalFeePaid
		report.Closed[trade.CloseReason()]++
		trade = nil
	}

	if trade != nil {
		report.LeftOpen++
	}
	report.Balances = append(report.Balances, balance)
}

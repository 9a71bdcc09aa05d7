package backtest

import (
	"fmt"
	"math"

	"github.com/skalibog/genetrader/internal/indicators"
	"github.com/skalibog/genetrader/pkg/models"
)

// RuleGenes количество генов, которые читает одно правило
const RuleGenes = 17

// TradeRule правило входа в сделку для одного направления
type TradeRule struct {
	direction models.Direction

	sma           *indicators.SMA
	rsi           *indicators.RSI
	macd          *indicators.MACD
	ema           *indicators.EMA
	takeProfitATR *indicators.ATR
	stopLossATR   *indicators.ATR
	takeProfitSMA *indicators.SMA // трекер экстремумов для тейка
	stopLossSMA   *indicators.SMA // трекер экстремумов для стопа
	allIndicators []indicators.Indicator

	macdTarget        float64
	rsiFloor          float64
	rsiCeil           float64
	emaMinGap         float64
	smaMaxGap         float64
	takeProfitATRMult float64
	stopLossATRMult   float64
}

// NewTradeRule декодирует правило из первых RuleGenes генов
func NewTradeRule(dir models.Direction, genes []float64) (*TradeRule, error) {
	if len(genes) < RuleGenes {
		return nil, fmt.Errorf("%w: правилу нужно %d генов, получено %d", ErrInvalidInput, RuleGenes, len(genes))
	}

	rsiBound1 := mapRange(0, 100, genes[5])
	rsiBound2 := mapRange(0, 100, genes[6])

	r := &TradeRule{
		direction:         dir,
		takeProfitATRMult: mapRange(0.1, 20, genes[0]),
		takeProfitATR:     indicators.NewATR(mapPeriod(2, 100, genes[1])),
		stopLossATRMult:   mapRange(0.1, 20, genes[2]),
		stopLossATR:       indicators.NewATR(mapPeriod(2, 50, genes[3])),
		rsi:               indicators.NewRSI(mapPeriod(0, 100, genes[4])),
		rsiFloor:          math.Min(rsiBound1, rsiBound2),
		rsiCeil:           math.Max(rsiBound1, rsiBound2),
		macd: indicators.NewMACD(
			mapPeriod(2, 100, genes[7]),
			mapPeriod(2, 100, genes[8]),
			mapPeriod(2, 100, genes[9]),
		),
		macdTarget:    mapRange(-1000, 1000, genes[10]),
		ema:           indicators.NewEMA(mapPeriod(2, 100, genes[11])),
		emaMinGap:     mapRange(0.1, 100, genes[12]),
		sma:           indicators.NewSMA(mapPeriod(2, 100, genes[13])),
		smaMaxGap:     mapRange(0.1, 100, genes[14]),
		takeProfitSMA: indicators.NewSMA(mapPeriod(1, 100, genes[15])),
		stopLossSMA:   indicators.NewSMA(mapPeriod(1, 100, genes[16])),
	}
	r.allIndicators = []indicators.Indicator{
		r.sma, r.rsi, r.macd, r.ema,
		r.takeProfitATR, r.stopLossATR,
		r.takeProfitSMA, r.stopLossSMA,
	}
	return r, nil
}

func (r *TradeRule) Direction() models.Direction {
	return r.direction
}

// Evaluate продвигает все индикаторы на одну свечу и решает, открывать ли сделку.
// Приоритет операторов буквальный: (A && B && C) || D.
func (r *TradeRule) Evaluate(candle *models.Candle) bool {
	rsi := r.rsi.Next(candle.Close)
	macd := r.macd.Next(candle.Close)
	ema := r.ema.Next(candle.Close)
	sma := r.sma.Next(candle.Close)
	emaGap := PercentageDifference(ema, candle.Close)
	smaGap := PercentageDifference(sma, ema)

	if r.direction == models.Long {
		r.takeProfitSMA.Next(candle.High)
		r.stopLossSMA.Next(candle.Low)
	} else {
		r.takeProfitSMA.Next(candle.Low)
		r.stopLossSMA.Next(candle.High)
	}

	r.takeProfitATR.Next(candle)
	r.stopLossATR.Next(candle)

	return macd.Signal > r.macdTarget &&
		rsi > r.rsiFloor && rsi < r.rsiCeil &&
		emaGap >= r.emaMinGap ||
		smaGap <= r.smaMaxGap
}

// TakeProfit целевая цена тейк-профита
func (r *TradeRule) TakeProfit() float64 {
	diff := r.takeProfitATR.Value() * r.takeProfitATRMult
	if r.direction == models.Long {
		return r.takeProfitSMA.Max() + diff
	}
	return r.takeProfitSMA.Min() - diff
}

// StopLoss целевая цена стоп-лосса
func (r *TradeRule) StopLoss() float64 {
	diff := r.stopLossATR.Value() * r.stopLossATRMult
	if r.direction == models.Long {
		return r.stopLossSMA.Min() - diff
	}
	return r.stopLossSMA.Max() + diff
}

// Reset сбрасывает состояние индикаторов, пороги остаются
func (r *TradeRule) Reset() {
	for _, ind := range r.allIndicators {
		ind.Reset()
	}
}

func (r *TradeRule) String() string {
	return fmt.Sprintf("%s{%s[%.1f..%.1f] %s>%.2f %s gap>=%.2f %s gap<=%.2f tp=%s*%.2f sl=%s*%.2f}",
		r.direction, r.rsi, r.rsiFloor, r.rsiCeil, r.macd, r.macdTarget,
		r.ema, r.emaMinGap, r.sma, r.smaMaxGap,
		r.takeProfitATR, r.takeProfitATRMult, r.stopLossATR, r.stopLossATRMult)
}

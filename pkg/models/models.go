package models

import (
	"time"
)

// Candle представляет свечу
type Candle struct {
	OpenTime         int64 // unix ms
	Open             float64
	High             float64
	Low              float64
	Close            float64
	Volume           float64
	CloseTime        int64 // unix ms
	QuoteAssetVolume float64
	NumTrades        int64
}

// OpenedAt возвращает время открытия свечи
func (c Candle) OpenedAt() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// ClosedAt возвращает время закрытия свечи
func (c Candle) ClosedAt() time.Time {
	return time.UnixMilli(c.CloseTime).UTC()
}

// Direction направление сделки
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Short {
		return "SHORT"
	}
	return "LONG"
}

// Sign возвращает +1 для лонга и -1 для шорта
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// CloseReason причина закрытия сделки
type CloseReason int

const (
	CloseNone CloseReason = iota
	CloseNormal
	CloseStopLoss
	CloseTakeProfit
	CloseLiquidation
)

func (r CloseReason) String() string {
	switch r {
	case CloseNormal:
		return "normal"
	case CloseStopLoss:
		return "stop_loss"
	case CloseTakeProfit:
		return "take_profit"
	case CloseLiquidation:
		return "liquidation"
	default:
		return "none"
	}
}

// GenerationStats сводка по одному поколению оптимизатора
type GenerationStats struct {
	Generation int
	Best       float64
	Median     float64
	Worst      float64
	Evaluated  int // сколько особей реально прогнано через бэктест
	Duration   time.Duration
	// Validation заполняется наблюдателем, если он считает out-of-sample результат
	Validation *float64
	BestGenes  []float64
}

// RunResult итог оптимизации
type RunResult struct {
	RunID             string
	Symbol            string
	Interval          string
	Seed              uint64
	Generations       int
	PopulationSize    int
	TrainingFitness   float64
	ValidationFitness float64
	Chromosome        []float64
	StartedAt         time.Time
	FinishedAt        time.Time
}

package backtest

import (
	"fmt"

	"github.com/skalibog/genetrader/pkg/models"
)

const (
	// SingleStrategyGenes длина хромосомы SingleStrategy: плечо + лонг + шорт
	SingleStrategyGenes = 36
	// defaultAmountPerTrade доля баланса, которая идет в одну сделку
	defaultAmountPerTrade = 0.015
)

// Signal сигнал на открытие сделки с целями тейк-профита и стоп-лосса
type Signal struct {
	Direction  models.Direction
	TakeProfit float64
	StopLoss   float64
}

// Strategy набор возможностей торговой стратегии
type Strategy interface {
	// NewCandle обрабатывает очередную свечу
	NewCandle(candle *models.Candle)
	// ShouldStartTrade возвращает сигнал, если по последней свече нужно открыть сделку
	ShouldStartTrade() (Signal, bool)
	// PercentageAmountPerTrade доля баланса на одну сделку
	PercentageAmountPerTrade() float64
	// Leverage плечо сделок
	Leverage() int
	// Reset сбрасывает внутреннее состояние перед новым диапазоном свечей
	Reset()
}

// SingleStrategy одно правило на лонг и одно на шорт
type SingleStrategy struct {
	leverage       int
	longRule       *TradeRule
	shortRule      *TradeRule
	amountPerTrade float64
	startLong      bool
	startShort     bool
}

// DecodeSingleStrategy собирает стратегию из хромосомы:
// ген 0 плечо, гены 1-17 лонг, гены 18-35 шорт
func DecodeSingleStrategy(chromosome []float64) (*SingleStrategy, error) {
	if len(chromosome) != SingleStrategyGenes {
		return nil, fmt.Errorf("%w: хромосома должна содержать %d генов, получено %d",
			ErrInvalidInput, SingleStrategyGenes, len(chromosome))
	}
	for i, g := range chromosome {
		// отрицание ловит и NaN
		if !(g >= 0 && g <= 1) {
			return nil, fmt.Errorf("%w: ген %d = %v вне диапазона [0, 1]", ErrInvalidInput, i, g)
		}
	}

	longRule, err := NewTradeRule(models.Long, chromosome[1:18])
	if err != nil {
		return nil, fmt.Errorf("правило лонга: %w", err)
	}
	shortRule, err := NewTradeRule(models.Short, chromosome[18:36])
	if err != nil {
		return nil, fmt.Errorf("правило шорта: %w", err)
	}

	return &SingleStrategy{
		leverage:       int(mapRange(1, 60, chromosome[0])),
		longRule:       longRule,
		shortRule:      shortRule,
		amountPerTrade: defaultAmountPerTrade,
	}, nil
}

func (s *SingleStrategy) NewCandle(candle *models.Candle) {
	s.startLong = s.longRule.Evaluate(candle)
	s.startShort = s.shortRule.Evaluate(candle)
}

// ShouldStartTrade одновременный сигнал в обе стороны считается отсутствием сигнала
func (s *SingleStrategy) ShouldStartTrade() (Signal, bool) {
	switch {
	case s.startLong && s.startShort:
		return Signal{}, false
	case s.startLong:
		return Signal{
			Direction:  models.Long,
			TakeProfit: s.longRule.TakeProfit(),
			StopLoss:   s.longRule.StopLoss(),
		}, true
	case s.startShort:
		return Signal{
			Direction:  models.Short,
			TakeProfit: s.shortRule.TakeProfit(),
			StopLoss:   s.shortRule.StopLoss(),
		}, true
	}
	return Signal{}, false
}

func (s *SingleStrategy) PercentageAmountPerTrade() float64 {
	return s.amountPerTrade
}

func (s *SingleStrategy) Leverage() int {
	return s.leverage
}

func (s *SingleStrategy) Reset() {
	s.longRule.Reset()
	s.shortRule.Reset()
	s.startLong = false
	s.startShort = false
}

func (s *SingleStrategy) String() string {
	return fmt.Sprintf("x%d long=%s short=%s", s.leverage, s.longRule, s.shortRule)
}

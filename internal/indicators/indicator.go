// Package indicators содержит потоковые технические индикаторы.
// Каждый индикатор принимает по одному значению (или свече) за раз и хранит
// только минимально необходимое состояние.
package indicators

import "github.com/skalibog/genetrader/pkg/models"

// Indicator общий набор возможностей потокового индикатора
type Indicator interface {
	Reset()
	String() string
}

// ValueIndicator индикатор по одному числовому ряду
type ValueIndicator interface {
	Indicator
	Next(value float64) float64
	Value() float64
}

// CandleIndicator индикатор, которому нужна вся свеча (high/low/close)
type CandleIndicator interface {
	Indicator
	Next(candle *models.Candle) float64
	Value() float64
}

var (
	_ ValueIndicator  = (*SMA)(nil)
	_ ValueIndicator  = (*EMA)(nil)
	_ ValueIndicator  = (*RSI)(nil)
	_ CandleIndicator = (*TrueRange)(nil)
	_ CandleIndicator = (*ATR)(nil)
	_ Indicator       = (*MACD)(nil)
)

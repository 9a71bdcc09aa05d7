package indicators

import (
	"fmt"

	"github.com/skalibog/genetrader/pkg/models"
)

// ATR средний истинный диапазон: EMA поверх TrueRange
type ATR struct {
	trueRange *TrueRange
	ema       *EMA
}

func NewATR(period int) *ATR {
	return &ATR{
		trueRange: NewTrueRange(),
		ema:       NewEMA(period),
	}
}

func (a *ATR) Next(candle *models.Candle) float64 {
	return a.ema.Next(a.trueRange.Next(candle))
}

func (a *ATR) Value() float64 {
	return a.ema.Value()
}

func (a *ATR) Period() int {
	return a.ema.Period()
}

func (a *ATR) Reset() {
	a.trueRange.Reset()
	a.ema.Reset()
}

func (a *ATR) String() string {
	return fmt.Sprintf("ATR(%d)", a.ema.Period())
}

package indicators

import (
	"math"

	"github.com/skalibog/genetrader/pkg/models"
)

// TrueRange истинный диапазон свечи
type TrueRange struct {
	prevClose float64
	hasPrev   bool
	value     float64
}

func NewTrueRange() *TrueRange {
	return &TrueRange{}
}

// Next max(high-low, |high-prevClose|, |low-prevClose|); до первой закрытой свечи просто high-low
func (t *TrueRange) Next(candle *models.Candle) float64 {
	dist := candle.High - candle.Low
	if t.hasPrev {
		dist = math.Max(dist, math.Max(
			math.Abs(candle.High-t.prevClose),
			math.Abs(candle.Low-t.prevClose),
		))
	}
	t.prevClose = candle.Close
	t.hasPrev = true
	t.value = dist
	return dist
}

// NextValue вариант для голого ряда цен: |value - prev|, для первого значения 0
func (t *TrueRange) NextValue(value float64) float64 {
	dist := 0.0
	if t.hasPrev {
		dist = math.Abs(value - t.prevClose)
	}
	t.prevClose = value
	t.hasPrev = true
	t.value = dist
	return dist
}

func (t *TrueRange) Value() float64 {
	return t.value
}

func (t *TrueRange) Reset() {
	t.prevClose = 0
	t.hasPrev = false
	t.value = 0
}

func (t *TrueRange) String() string {
	return "TRUE_RANGE()"
}

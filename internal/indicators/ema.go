package indicators

import "fmt"

// EMA экспоненциальная скользящая средняя.
// Первое значение принимается как есть, без разогрева средним.
type EMA struct {
	period int
	k      float64
	value  float64
	fresh  bool
}

// NewEMA создает EMA с коэффициентом сглаживания 2/(period+1)
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period: period,
		k:      2.0 / float64(period+1),
		fresh:  true,
	}
}

func (e *EMA) Next(value float64) float64 {
	if e.fresh {
		e.fresh = false
		e.value = value
	} else {
		e.value = e.k*value + (1-e.k)*e.value
	}
	return e.value
}

func (e *EMA) Value() float64 {
	return e.value
}

func (e *EMA) Period() int {
	return e.period
}

// K коэффициент сглаживания
func (e *EMA) K() float64 {
	return e.k
}

func (e *EMA) Reset() {
	e.value = 0
	e.fresh = true
}

func (e *EMA) String() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

package indicators

import "fmt"

// rsiSeed стартовое значение для обеих EMA, чтобы не делить на ноль
const rsiSeed = 0.1

// RSI индекс относительной силы на EMA приростов и падений
type RSI struct {
	period int
	up     *EMA
	down   *EMA
	prev   float64
	fresh  bool
	value  float64
}

func NewRSI(period int) *RSI {
	if period < 1 {
		period = 1
	}
	return &RSI{
		period: period,
		up:     NewEMA(period),
		down:   NewEMA(period),
		fresh:  true,
	}
}

func (r *RSI) Next(value float64) float64 {
	var up, down float64

	if r.fresh {
		r.fresh = false
		up = rsiSeed
		down = rsiSeed
	} else if value > r.prev {
		up = value - r.prev
	} else {
		down = r.prev - value
	}

	r.prev = value
	upEMA := r.up.Next(up)
	downEMA := r.down.Next(down)
	r.value = 100 * upEMA / (upEMA + downEMA)
	return r.value
}

func (r *RSI) Value() float64 {
	return r.value
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Reset() {
	r.fresh = true
	r.prev = 0
	r.value = 0
	r.up.Reset()
	r.down.Reset()
}

func (r *RSI) String() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

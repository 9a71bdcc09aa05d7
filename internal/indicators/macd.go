package indicators

import "fmt"

// MACDOutput значения MACD на одном шаге
type MACDOutput struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD схождение/расхождение скользящих средних
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	last   MACDOutput
}

func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Next(value float64) MACDOutput {
	macd := m.fast.Next(value) - m.slow.Next(value)
	signal := m.signal.Next(macd)

	m.last = MACDOutput{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
	return m.last
}

// Value последнее значение сигнальной линии
func (m *MACD) Value() float64 {
	return m.last.Signal
}

func (m *MACD) Last() MACDOutput {
	return m.last
}

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
	m.last = MACDOutput{}
}

func (m *MACD) String() string {
	return fmt.Sprintf("MACD(%d, %d, %d)", m.fast.Period(), m.slow.Period(), m.signal.Period())
}

package indicators

import "fmt"

// SMA простая скользящая средняя на кольцевом буфере
type SMA struct {
	period int
	index  int
	count  int
	sum    float64
	window []float64
	value  float64
}

// NewSMA создает SMA; период меньше 1 приводится к 1
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		window: make([]float64, period),
	}
}

// Next добавляет значение и возвращает среднее по min(count, period) последним значениям
func (s *SMA) Next(value float64) float64 {
	old := s.window[s.index]
	s.window[s.index] = value

	s.index++
	if s.index == s.period {
		s.index = 0
	}

	if s.count < s.period {
		s.count++
		old = 0
	}

	s.sum = s.sum - old + value
	s.value = s.sum / float64(s.count)
	return s.value
}

func (s *SMA) Value() float64 {
	return s.value
}

func (s *SMA) Period() int {
	return s.period
}

// Min минимум среди значений, которые сейчас лежат в окне
func (s *SMA) Min() float64 {
	if s.count == 0 {
		return 0
	}
	min := s.window[0]
	for i := 1; i < s.count; i++ {
		if s.window[i] < min {
			min = s.window[i]
		}
	}
	return min
}

// Max максимум среди значений, которые сейчас лежат в окне
func (s *SMA) Max() float64 {
	if s.count == 0 {
		return 0
	}
	max := s.window[0]
	for i := 1; i < s.count; i++ {
		if s.window[i] > max {
			max = s.window[i]
		}
	}
	return max
}

func (s *SMA) Reset() {
	s.index = 0
	s.count = 0
	s.sum = 0
	s.value = 0
	for i := range s.window {
		s.window[i] = 0
	}
}

func (s *SMA) String() string {
	return fmt.Sprintf("SMA(%d)", s.period)
}
